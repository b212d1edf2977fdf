package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"kanmind/backend/internal/repositories"
)

type UserService interface {
	Profile(ctx context.Context, userID uint) (*UserProfile, error)
	EmailCheck(ctx context.Context, email string) (*UserProfile, error)
	DeleteAccount(ctx context.Context, userID uint) error
}

type UserServiceImpl struct {
	users  *repositories.UserRepository
	cached *repositories.CachedUserRepository
}

func NewUserService(users *repositories.UserRepository, cached *repositories.CachedUserRepository) *UserServiceImpl {
	return &UserServiceImpl{users: users, cached: cached}
}

func (s *UserServiceImpl) Profile(ctx context.Context, userID uint) (*UserProfile, error) {
	user, err := s.cached.GetByID(ctx, userID)
	if err != nil {
		return nil, translate(err)
	}
	profile := NewUserProfile(user)
	return &profile, nil
}

// EmailCheck resolves a user by exact email so boards can invite them.
func (s *UserServiceImpl) EmailCheck(ctx context.Context, email string) (*UserProfile, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, NewValidationError("email", "Email parameter is required.")
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, translate(err)
	}
	profile := NewUserProfile(user)
	return &profile, nil
}

// DeleteAccount removes the user with everything that depends on them. It is
// refused while the user is the creator of tasks on boards owned by others.
func (s *UserServiceImpl) DeleteAccount(ctx context.Context, userID uint) error {
	if err := s.users.Delete(ctx, userID); err != nil {
		if errors.Is(err, repositories.ErrCreatorOnForeignBoard) {
			return fmt.Errorf("%w: %v", ErrConflict, err)
		}
		return translate(err)
	}
	s.cached.Invalidate(ctx, userID)
	return nil
}
