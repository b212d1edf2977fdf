package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"kanmind/backend/internal/models"
	"kanmind/backend/internal/monitoring"
	"kanmind/backend/internal/repositories"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	msgLoginMismatch = "Email or password is not match"
	// maxNamePart is the column size of both username and last_name.
	maxNamePart = 150
)

type RegistrationInput struct {
	FullName         string `json:"fullname" binding:"required,max=300"`
	Email            string `json:"email" binding:"required,email,max=254"`
	Password         string `json:"password" binding:"required"`
	RepeatedPassword string `json:"repeated_password" binding:"required"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthResult is returned by registration and login.
type AuthResult struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
	FullName     string `json:"fullname"`
	Email        string `json:"email"`
	UserID       uint   `json:"user_id"`
}

type AuthService interface {
	Register(ctx context.Context, input RegistrationInput) (*AuthResult, error)
	Login(ctx context.Context, input LoginInput) (*AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, claims *AccessClaims, refreshToken string) error
}

type AuthServiceImpl struct {
	users      *repositories.UserRepository
	issuer     *TokenIssuer
	bcryptCost int
}

func NewAuthService(users *repositories.UserRepository, issuer *TokenIssuer, bcryptCost int) *AuthServiceImpl {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &AuthServiceImpl{users: users, issuer: issuer, bcryptCost: bcryptCost}
}

func VerifyPassword(hashedPassword, plainPassword string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(plainPassword))
	return err == nil
}

func (s *AuthServiceImpl) result(ctx context.Context, user *models.User) (*AuthResult, error) {
	pair, err := s.issuer.Issue(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{
		Token:        pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		FullName:     user.FullName(),
		Email:        user.Email,
		UserID:       user.ID,
	}, nil
}

// Register creates the account and signs the user in. Nothing is stored when
// the passwords differ or the email is taken.
func (s *AuthServiceImpl) Register(ctx context.Context, input RegistrationInput) (result *AuthResult, err error) {
	defer func() { monitoring.ObserveAuthEvent("register", err) }()

	v := &ValidationError{}
	username, lastName := models.SplitFullName(input.FullName)
	switch {
	case username == "":
		v.Add("fullname", msgBlank)
	case utf8.RuneCountInString(username) > maxNamePart, utf8.RuneCountInString(lastName) > maxNamePart:
		v.Add("fullname", maxLengthMessage(maxNamePart))
	}
	email := strings.TrimSpace(input.Email)
	if input.Password != input.RepeatedPassword {
		v.Add("repeated_password", "Passwords dont match")
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	exists, err := s.users.EmailExists(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, NewValidationError("email", "Email already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.bcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, NewValidationError("password", "Ensure this field has no more than 72 bytes.")
		}
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Username: username,
		LastName: lastName,
		Email:    email,
		Password: string(hash),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, NewValidationError("email", "Email already exists")
		}
		return nil, err
	}
	return s.result(ctx, user)
}

// Login authenticates by email. Unknown email and wrong password are
// reported the same way.
func (s *AuthServiceImpl) Login(ctx context.Context, input LoginInput) (result *AuthResult, err error) {
	defer func() { monitoring.ObserveAuthEvent("login", err) }()

	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(input.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewValidationError("non_field_errors", msgLoginMismatch)
		}
		return nil, err
	}
	if !VerifyPassword(user.Password, input.Password) {
		return nil, NewValidationError("non_field_errors", msgLoginMismatch)
	}
	return s.result(ctx, user)
}

func (s *AuthServiceImpl) Refresh(ctx context.Context, refreshToken string) (pair *TokenPair, err error) {
	defer func() { monitoring.ObserveAuthEvent("refresh", err) }()

	pair, _, err = s.issuer.Rotate(ctx, refreshToken)
	return pair, err
}

// Logout revokes the presented access token and drops the refresh token when
// one is given.
func (s *AuthServiceImpl) Logout(ctx context.Context, claims *AccessClaims, refreshToken string) (err error) {
	defer func() { monitoring.ObserveAuthEvent("logout", err) }()

	if refreshToken != "" {
		if err := s.issuer.DropRefresh(ctx, claims.UserID, refreshToken); err != nil {
			return err
		}
	}
	return s.issuer.Revoke(ctx, claims)
}
