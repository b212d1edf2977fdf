package repositories

import (
	"context"
	"fmt"

	"kanmind/backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BoardRepository struct {
	db *gorm.DB
}

func NewBoardRepository(db *gorm.DB) *BoardRepository {
	return &BoardRepository{db: db}
}

func orderedMembers(db *gorm.DB) *gorm.DB {
	return db.Order("users.id")
}

func orderedTasks(db *gorm.DB) *gorm.DB {
	return db.Order("tasks.id")
}

// Create inserts the board and its membership rows. Members must already be
// resolved to existing users.
func (r *BoardRepository) Create(ctx context.Context, board *models.Board, members []models.User) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(board).Error; err != nil {
			return err
		}
		if err := insertMembers(tx, board.ID, members); err != nil {
			return err
		}
		board.Members = members
		board.Tasks = []models.Task{}
		return nil
	})
}

func insertMembers(tx *gorm.DB, boardID uint, members []models.User) error {
	if len(members) == 0 {
		return nil
	}
	rows := make([]models.BoardMember, 0, len(members))
	for _, member := range members {
		rows = append(rows, models.BoardMember{BoardID: boardID, UserID: member.ID})
	}
	if err := tx.Create(&rows).Error; err != nil {
		return fmt.Errorf("insert board members: %w", err)
	}
	return nil
}

// GetByID loads the board with its owner, members and tasks.
func (r *BoardRepository) GetByID(ctx context.Context, id uint) (*models.Board, error) {
	var board models.Board
	err := r.db.WithContext(ctx).
		Preload("Owner").
		Preload("Members", orderedMembers).
		Preload("Tasks", orderedTasks).
		First(&board, id).Error
	if err != nil {
		return nil, err
	}
	return &board, nil
}

// GetWithMembers loads only what an access check needs.
func (r *BoardRepository) GetWithMembers(ctx context.Context, id uint) (*models.Board, error) {
	var board models.Board
	if err := r.db.WithContext(ctx).Preload("Members", orderedMembers).First(&board, id).Error; err != nil {
		return nil, err
	}
	return &board, nil
}

// GetDetail is GetByID plus the tasks' assignee, reviewer and comments, as
// needed to render every task of the board.
func (r *BoardRepository) GetDetail(ctx context.Context, id uint) (*models.Board, error) {
	var board models.Board
	err := r.db.WithContext(ctx).
		Preload("Owner").
		Preload("Members", orderedMembers).
		Preload("Tasks", orderedTasks).
		Preload("Tasks.Assignee").
		Preload("Tasks.Reviewer").
		Preload("Tasks.Comments").
		First(&board, id).Error
	if err != nil {
		return nil, err
	}
	return &board, nil
}

// ListForUser returns every board the user owns or is a member of, each once,
// ordered by id.
func (r *BoardRepository) ListForUser(ctx context.Context, userID uint) ([]models.Board, error) {
	member := r.db.Model(&models.BoardMember{}).Select("board_id").Where("user_id = ?", userID)

	var boards []models.Board
	err := r.db.WithContext(ctx).
		Preload("Members", orderedMembers).
		Preload("Tasks", orderedTasks).
		Where("owner_id = ? OR id IN (?)", userID, member).
		Order("id").
		Find(&boards).Error
	if err != nil {
		return nil, err
	}
	return boards, nil
}

// Update saves the title and, when members is non-nil, replaces the member
// set wholesale.
func (r *BoardRepository) Update(ctx context.Context, board *models.Board, title *string, members []models.User) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if title != nil {
			if err := tx.Model(board).Omit(clause.Associations).Update("title", *title).Error; err != nil {
				return err
			}
		}
		if members != nil {
			if err := tx.Where("board_id = ?", board.ID).Delete(&models.BoardMember{}).Error; err != nil {
				return fmt.Errorf("clear board members: %w", err)
			}
			if err := insertMembers(tx, board.ID, members); err != nil {
				return err
			}
			board.Members = members
		}
		return nil
	})
}

// Delete removes the board, its tasks with their comments and its
// membership rows.
func (r *BoardRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return deleteBoardTx(tx, id)
	})
}

func deleteBoardTx(tx *gorm.DB, id uint) error {
	tasks := tx.Model(&models.Task{}).Select("id").Where("board_id = ?", id)
	if err := tx.Where("task_id IN (?)", tasks).Delete(&models.Comment{}).Error; err != nil {
		return fmt.Errorf("delete board comments: %w", err)
	}
	if err := tx.Where("board_id = ?", id).Delete(&models.Task{}).Error; err != nil {
		return fmt.Errorf("delete board tasks: %w", err)
	}
	if err := tx.Where("board_id = ?", id).Delete(&models.BoardMember{}).Error; err != nil {
		return fmt.Errorf("delete board members: %w", err)
	}

	result := tx.Delete(&models.Board{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
