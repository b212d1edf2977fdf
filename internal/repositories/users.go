package repositories

import (
	"context"
	"errors"
	"fmt"

	"kanmind/backend/internal/models"

	"gorm.io/gorm"
)

// ErrCreatorOnForeignBoard is returned when a user that created tasks on
// boards owned by someone else is deleted. Those tasks keep their creator.
var ErrCreatorOnForeignBoard = errors.New("user created tasks on boards owned by other users")

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *UserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindByIDs returns the users with the given ids together with the ids that
// did not resolve, in input order.
func (r *UserRepository) FindByIDs(ctx context.Context, ids []uint) ([]models.User, []uint, error) {
	if len(ids) == 0 {
		return []models.User{}, nil, nil
	}

	var found []models.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id").Find(&found).Error; err != nil {
		return nil, nil, err
	}

	byID := make(map[uint]models.User, len(found))
	for _, user := range found {
		byID[user.ID] = user
	}

	users := make([]models.User, 0, len(ids))
	seen := make(map[uint]bool, len(ids))
	var missing []uint
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if user, ok := byID[id]; ok {
			users = append(users, user)
		} else {
			missing = append(missing, id)
		}
	}
	return users, missing, nil
}

// Delete removes a user and everything that cannot outlive them, in one
// transaction: task assignments and reviews are cleared, authored comments and
// owned boards are deleted, memberships and refresh tokens are removed.
func (r *UserRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var foreign int64
		err := tx.Model(&models.Task{}).
			Joins("JOIN boards ON boards.id = tasks.board_id").
			Where("tasks.creator_id = ? AND boards.owner_id <> ?", id, id).
			Count(&foreign).Error
		if err != nil {
			return err
		}
		if foreign > 0 {
			return ErrCreatorOnForeignBoard
		}

		if err := tx.Model(&models.Task{}).Where("assignee_id = ?", id).Update("assignee_id", nil).Error; err != nil {
			return fmt.Errorf("clear assignments: %w", err)
		}
		if err := tx.Model(&models.Task{}).Where("reviewer_id = ?", id).Update("reviewer_id", nil).Error; err != nil {
			return fmt.Errorf("clear reviews: %w", err)
		}
		if err := tx.Where("author_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return fmt.Errorf("delete comments: %w", err)
		}

		var owned []uint
		if err := tx.Model(&models.Board{}).Where("owner_id = ?", id).Pluck("id", &owned).Error; err != nil {
			return err
		}
		for _, boardID := range owned {
			if err := deleteBoardTx(tx, boardID); err != nil {
				return err
			}
		}

		if err := tx.Where("user_id = ?", id).Delete(&models.BoardMember{}).Error; err != nil {
			return fmt.Errorf("delete memberships: %w", err)
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.Token{}).Error; err != nil {
			return fmt.Errorf("delete tokens: %w", err)
		}

		result := tx.Delete(&models.User{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
