package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"folioshare-api/internal/apperr"
	"folioshare-api/internal/auth"
	"folioshare-api/internal/models"
	"folioshare-api/internal/store"
)

// AccountService handles registration and login, issuing bearer tokens
// through the JWT manager.
type AccountService struct {
	store store.UserStore
	jwt   *auth.JWTManager
}

func NewAccountService(st store.UserStore, jwt *auth.JWTManager) *AccountService {
	return &AccountService{store: st, jwt: jwt}
}

func (s *AccountService) Signup(ctx context.Context, creds models.Credentials) (*models.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(creds.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperr.InvalidInput("a valid email is required")
	}
	if len(creds.Password) < 8 {
		return nil, apperr.InvalidInput("password must be at least 8 characters")
	}

	if _, err := s.store.UserByEmail(ctx, email); err == nil {
		return nil, apperr.Conflict("user already exists")
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, apperr.Unavailable("failed to look up user", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Unavailable("failed to hash password", err)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrExists) {
			return nil, apperr.Conflict("user already exists")
		}
		return nil, apperr.Unavailable("failed to create user", err)
	}

	return s.issueToken(user)
}

func (s *AccountService) Login(ctx context.Context, creds models.Credentials) (*models.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(creds.Email))

	user, err := s.store.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.Unauthenticated("invalid credentials")
		}
		return nil, apperr.Unavailable("failed to look up user", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)) != nil {
		return nil, apperr.Unauthenticated("invalid credentials")
	}

	return s.issueToken(user)
}

func (s *AccountService) issueToken(user *models.User) (*models.AuthResponse, error) {
	token, err := s.jwt.GenerateToken(user.ID, user.Email)
	if err != nil {
		return nil, apperr.Unavailable("failed to issue token", err)
	}

	return &models.AuthResponse{
		Token: token,
		User:  models.UserInfo{ID: user.ID, Email: user.Email},
	}, nil
}
