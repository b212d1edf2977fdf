package models

import (
	"strings"
	"time"
)

type User struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Username  string    `json:"username" gorm:"size:150;not null"`
	LastName  string    `json:"last_name" gorm:"size:150"`
	Email     string    `json:"email" gorm:"size:254;uniqueIndex;not null"`
	Password  string    `json:"-" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FullName joins username and last name, trimming the separator when the
// last name is empty.
func (u *User) FullName() string {
	return strings.TrimSpace(u.Username + " " + u.LastName)
}

// SplitFullName turns a registration "fullname" into a username (first word)
// and a last name (all remaining words).
func SplitFullName(fullname string) (username, lastName string) {
	parts := strings.Fields(fullname)
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}
