package models

import "time"

type Board struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Title     string    `json:"title" gorm:"size:50;not null"`
	OwnerID   uint      `json:"owner_id" gorm:"not null;index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Owner   *User  `json:"-" gorm:"foreignKey:OwnerID"`
	Members []User `json:"-" gorm:"many2many:board_members;"`
	Tasks   []Task `json:"-" gorm:"foreignKey:BoardID"`
}

// BoardMember is the join row behind Board.Members.
type BoardMember struct {
	BoardID uint `gorm:"primaryKey"`
	UserID  uint `gorm:"primaryKey"`
}

func (BoardMember) TableName() string {
	return "board_members"
}

func (b *Board) IsOwner(userID uint) bool {
	return b.OwnerID == userID
}

func (b *Board) HasMember(userID uint) bool {
	for _, member := range b.Members {
		if member.ID == userID {
			return true
		}
	}
	return false
}

// IsOwnerOrMember reports member-level access. The owner always has it, even
// when not listed in Members.
func (b *Board) IsOwnerOrMember(userID uint) bool {
	return b.IsOwner(userID) || b.HasMember(userID)
}

func (b *Board) MemberIDs() []uint {
	ids := make([]uint, 0, len(b.Members))
	for _, member := range b.Members {
		ids = append(ids, member.ID)
	}
	return ids
}
