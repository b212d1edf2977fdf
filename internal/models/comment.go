package models

import "time"

type Comment struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	TaskID    uint      `json:"task_id" gorm:"not null;index"`
	AuthorID  uint      `json:"author_id" gorm:"not null;index"`
	Content   string    `json:"content" gorm:"size:255;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`

	Task   *Task `json:"-" gorm:"foreignKey:TaskID"`
	Author *User `json:"-" gorm:"foreignKey:AuthorID"`
}

func (c *Comment) IsAuthor(userID uint) bool {
	return c.AuthorID == userID
}
