package repositories

import (
	"context"
	"time"

	"kanmind/backend/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type TokenRepository struct {
	db *gorm.DB
}

func NewTokenRepository(db *gorm.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

func (r *TokenRepository) Create(ctx context.Context, token *models.Token) error {
	return r.db.WithContext(ctx).Create(token).Error
}

// FindValid returns the unexpired refresh token row for the given token value.
func (r *TokenRepository) FindValid(ctx context.Context, refreshToken uuid.UUID) (*models.Token, error) {
	var token models.Token
	err := r.db.WithContext(ctx).
		Where("refresh_token = ? AND expires_at > ?", refreshToken, time.Now()).
		First(&token).Error
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// Consume deletes the token row and reports whether this call removed it, so
// concurrent refreshes of the same token cannot both succeed.
func (r *TokenRepository) Consume(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Token{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *TokenRepository) DeleteByValue(ctx context.Context, userID uint, refreshToken uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND refresh_token = ?", userID, refreshToken).
		Delete(&models.Token{}).Error
}

func (r *TokenRepository) DeleteExpiredForUser(ctx context.Context, userID uint) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND expires_at <= ?", userID, time.Now()).
		Delete(&models.Token{}).Error
}

// DeleteExpired removes every expired refresh token and reports how many went.
func (r *TokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&models.Token{})
	return result.RowsAffected, result.Error
}
