package repositories

import (
	"context"
	"fmt"

	"kanmind/backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) withView(db *gorm.DB) *gorm.DB {
	return db.Preload("Assignee").Preload("Reviewer").Preload("Comments")
}

func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(task).Error
}

// GetByID loads the task with what a task view needs: assignee, reviewer and
// comments.
func (r *TaskRepository) GetByID(ctx context.Context, id uint) (*models.Task, error) {
	var task models.Task
	if err := r.withView(r.db.WithContext(ctx)).First(&task, id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// BoardIDOf resolves the board a task belongs to without loading the task.
func (r *TaskRepository) BoardIDOf(ctx context.Context, id uint) (uint, error) {
	var task models.Task
	if err := r.db.WithContext(ctx).Select("id", "board_id").First(&task, id).Error; err != nil {
		return 0, err
	}
	return task.BoardID, nil
}

func (r *TaskRepository) AssignedTo(ctx context.Context, userID uint) ([]models.Task, error) {
	var tasks []models.Task
	err := r.withView(r.db.WithContext(ctx)).Where("assignee_id = ?", userID).Order("id").Find(&tasks).Error
	return tasks, err
}

func (r *TaskRepository) ReviewedBy(ctx context.Context, userID uint) ([]models.Task, error) {
	var tasks []models.Task
	err := r.withView(r.db.WithContext(ctx)).Where("reviewer_id = ?", userID).Order("id").Find(&tasks).Error
	return tasks, err
}

// Update writes the given columns. Keys are column names; a nil value clears
// a nullable column.
func (r *TaskRepository) Update(ctx context.Context, id uint, changes map[string]interface{}) error {
	if len(changes) == 0 {
		return nil
	}
	result := r.db.WithContext(ctx).Model(&models.Task{ID: id}).Omit(clause.Associations).Updates(changes)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes the task and its comments.
func (r *TaskRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return fmt.Errorf("delete task comments: %w", err)
		}
		result := tx.Delete(&models.Task{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
