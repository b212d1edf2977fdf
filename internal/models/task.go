package models

import (
	"time"
)

type TaskStatus string

const (
	StatusToDo       TaskStatus = "to-do"
	StatusInProgress TaskStatus = "in-progress"
	StatusReview     TaskStatus = "review"
	StatusDone       TaskStatus = "done"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case StatusToDo, StatusInProgress, StatusReview, StatusDone:
		return true
	}
	return false
}

type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

type Task struct {
	ID          uint         `json:"id" gorm:"primaryKey"`
	BoardID     uint         `json:"board" gorm:"not null;index"`
	Title       string       `json:"title" gorm:"size:100;not null"`
	Description *string      `json:"description" gorm:"size:255"`
	Status      TaskStatus   `json:"status" gorm:"size:20;not null;default:'to-do'"`
	Priority    TaskPriority `json:"priority" gorm:"size:10;not null;default:'medium'"`
	AssigneeID  *uint        `json:"assignee_id" gorm:"index"`
	ReviewerID  *uint        `json:"reviewer_id" gorm:"index"`
	DueDate     *Date        `json:"due_date"`
	CreatorID   uint         `json:"creator_id" gorm:"not null;index"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`

	Board    *Board    `json:"-" gorm:"foreignKey:BoardID"`
	Assignee *User     `json:"-" gorm:"foreignKey:AssigneeID"`
	Reviewer *User     `json:"-" gorm:"foreignKey:ReviewerID"`
	Creator  *User     `json:"-" gorm:"foreignKey:CreatorID"`
	Comments []Comment `json:"-" gorm:"foreignKey:TaskID"`
}

// ApplyDefaults fills status and priority when the caller left them empty.
func (t *Task) ApplyDefaults() {
	if t.Status == "" {
		t.Status = StatusToDo
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
}

func (t *Task) IsCreator(userID uint) bool {
	return t.CreatorID == userID
}
