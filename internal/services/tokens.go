package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"kanmind/backend/internal/cache"
	"kanmind/backend/internal/config"
	"kanmind/backend/internal/models"
	"kanmind/backend/internal/repositories"

	"github.com/gofrs/uuid"
	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims are the claims of a bearer access token. The token id (jti)
// is what logout puts on the denylist.
type AccessClaims struct {
	UserID uint `json:"user_id"`
	jwt.RegisteredClaims
}

type TokenPair struct {
	AccessToken  string `json:"token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// TokenIssuer signs access tokens, persists refresh tokens and keeps the
// denylist of revoked access tokens.
type TokenIssuer struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	tokens     *repositories.TokenRepository
	denylist   cache.Cache
	log        *slog.Logger
	now        func() time.Time
}

func NewTokenIssuer(cfg config.AuthConfig, tokens *repositories.TokenRepository, denylist cache.Cache, log *slog.Logger) *TokenIssuer {
	if log == nil {
		log = slog.Default()
	}
	return &TokenIssuer{
		secret:     []byte(cfg.JWTSecret),
		issuer:     cfg.Issuer,
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
		tokens:     tokens,
		denylist:   denylist,
		log:        log.With(slog.String("component", "tokens")),
		now:        time.Now,
	}
}

func revokedKey(jti string) string {
	return "revoked:" + jti
}

// Issue signs a new access token and stores a new refresh token for the user.
// Expired refresh tokens of the user are pruned on the way.
func (t *TokenIssuer) Issue(ctx context.Context, userID uint) (*TokenPair, error) {
	now := t.now()
	jti, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}

	claims := AccessClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti.String(),
			Issuer:    t.issuer,
			Subject:   fmt.Sprint(userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.accessTTL)),
		},
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refresh, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	if err := t.tokens.DeleteExpiredForUser(ctx, userID); err != nil {
		t.log.WarnContext(ctx, "pruning expired refresh tokens failed", slog.Uint64("user_id", uint64(userID)), slog.String("error", err.Error()))
	}
	token := &models.Token{
		ID:           uuid.Must(uuid.NewV4()),
		UserID:       userID,
		RefreshToken: refresh,
		ExpiresAt:    now.Add(t.refreshTTL),
	}
	if err := t.tokens.Create(ctx, token); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh.String(),
		ExpiresIn:    int64(t.accessTTL.Seconds()),
	}, nil
}

// ParseAccess verifies signature, algorithm, issuer and expiry. Every failure
// is reported as ErrUnauthenticated.
func (t *TokenIssuer) ParseAccess(raw string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if claims.ID == "" || claims.UserID == 0 {
		return nil, fmt.Errorf("%w: token lacks id or user", ErrUnauthenticated)
	}
	return claims, nil
}

// Revoke puts the access token on the denylist until it would have expired
// anyway. When only the shared cache is unreachable the revocation still
// holds in this process, so that is logged rather than returned.
func (t *TokenIssuer) Revoke(ctx context.Context, claims *AccessClaims) error {
	if claims.ExpiresAt == nil {
		return nil
	}
	remaining := claims.ExpiresAt.Sub(t.now())
	if remaining <= 0 {
		return nil
	}
	err := t.denylist.Set(ctx, revokedKey(claims.ID), true, remaining)
	if errors.Is(err, cache.ErrCacheDown) {
		t.log.WarnContext(ctx, "access token revoked locally only",
			slog.String("jti", claims.ID),
			slog.Uint64("user_id", uint64(claims.UserID)),
			slog.String("error", err.Error()),
		)
		return nil
	}
	return err
}

func (t *TokenIssuer) IsRevoked(ctx context.Context, jti string) (bool, error) {
	return t.denylist.Exists(ctx, revokedKey(jti))
}

// Rotate exchanges a refresh token for a new pair. The old refresh token is
// consumed first so it can be used only once.
func (t *TokenIssuer) Rotate(ctx context.Context, refreshToken string) (*TokenPair, uint, error) {
	value, err := uuid.FromString(refreshToken)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: malformed refresh token", ErrUnauthenticated)
	}
	stored, err := t.tokens.FindValid(ctx, value)
	if err != nil {
		if errors.Is(translate(err), ErrNotFound) {
			return nil, 0, fmt.Errorf("%w: refresh token unknown or expired", ErrUnauthenticated)
		}
		return nil, 0, err
	}
	consumed, err := t.tokens.Consume(ctx, stored.ID)
	if err != nil {
		return nil, 0, err
	}
	if !consumed {
		return nil, 0, fmt.Errorf("%w: refresh token already used", ErrUnauthenticated)
	}
	pair, err := t.Issue(ctx, stored.UserID)
	if err != nil {
		return nil, 0, err
	}
	return pair, stored.UserID, nil
}

// DropRefresh deletes one of the user's refresh tokens. Unknown or malformed
// values are ignored.
func (t *TokenIssuer) DropRefresh(ctx context.Context, userID uint, refreshToken string) error {
	value, err := uuid.FromString(refreshToken)
	if err != nil {
		return nil
	}
	return t.tokens.DeleteByValue(ctx, userID, value)
}
