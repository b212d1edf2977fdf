package repositories

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"kanmind/backend/internal/cache"
	"kanmind/backend/internal/models"
)

// CachedUserRepository serves user lookups by id from the cache. Cached users
// carry no password hash, so it is only fit for identity lookups such as
// request authentication.
type CachedUserRepository struct {
	users *UserRepository
	cache cache.Cache
	ttl   time.Duration
	log   *slog.Logger
}

func NewCachedUserRepository(users *UserRepository, c cache.Cache, ttl time.Duration, log *slog.Logger) *CachedUserRepository {
	if log == nil {
		log = slog.Default()
	}
	return &CachedUserRepository{users: users, cache: c, ttl: ttl, log: log}
}

func userCacheKey(id uint) string {
	return fmt.Sprintf("user:%d", id)
}

func (r *CachedUserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var cached models.User
	err := r.cache.Get(ctx, userCacheKey(id), &cached)
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		r.log.WarnContext(ctx, "user cache lookup failed", slog.Uint64("user_id", uint64(id)), slog.String("error", err.Error()))
	}

	user, err := r.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := r.cache.Set(ctx, userCacheKey(id), user, r.ttl); err != nil {
		r.log.WarnContext(ctx, "user cache store failed", slog.Uint64("user_id", uint64(id)), slog.String("error", err.Error()))
	}
	return user, nil
}

func (r *CachedUserRepository) Invalidate(ctx context.Context, id uint) {
	if err := r.cache.Delete(ctx, userCacheKey(id)); err != nil {
		r.log.WarnContext(ctx, "user cache invalidation failed", slog.Uint64("user_id", uint64(id)), slog.String("error", err.Error()))
	}
}
