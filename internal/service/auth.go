package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/inkcircle/inkcircle-server/internal/auth"
	"github.com/inkcircle/inkcircle-server/internal/domain"
	domainerrors "github.com/inkcircle/inkcircle-server/internal/errors"
	"github.com/inkcircle/inkcircle-server/internal/id"
	"github.com/inkcircle/inkcircle-server/internal/store"
	"github.com/inkcircle/inkcircle-server/internal/validation"
)

// AuthService handles sign up, sign in and token verification.
type AuthService struct {
	store        store.Store
	tokenService *auth.TokenService
	validator    *validation.Validator
	logger       *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	store store.Store,
	tokenService *auth.TokenService,
	validator *validation.Validator,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		store:        store,
		tokenService: tokenService,
		validator:    validator,
		logger:       logger,
	}
}

// SignupInput contains the data for a new account.
type SignupInput struct {
	Username string `json:"username" validate:"required,min=3,max=30,username"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// SigninInput contains user credentials.
type SigninInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResult is returned by Signup and Signin.
type AuthResult struct {
	User      *domain.User
	Token     string
	ExpiresIn time.Duration
}

// Signup creates a user with the default role and avatar and signs them in.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, domainerrors.Validation("password is too long")
		}
		return nil, fmt.Errorf("hash password: %w", err)
	}

	userID, err := id.Generate(id.User)
	if err != nil {
		return nil, fmt.Errorf("generate user id: %w", err)
	}

	username := strings.TrimSpace(in.Username)
	user := &domain.User{
		Username:     username,
		Email:        strings.TrimSpace(in.Email),
		PasswordHash: hash,
		Role:         domain.RoleUser,
		AvatarURL:    domain.DefaultAvatarURL(username),
		Archived:     []string{},
		Recent:       []domain.Visit{},
	}
	user.ID = userID
	user.InitTimestamps()

	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, storeError(err, msgUserNotFound)
	}

	s.logger.Info("user signed up", "user_id", user.ID, "username", user.Username)
	return s.issue(user)
}

// Signin verifies credentials and issues a token.
// An unknown email and a wrong password produce the same error.
func (s *AuthService) Signin(ctx context.Context, in SigninInput) (*AuthResult, error) {
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}

	user, err := s.store.GetUserByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.InvalidCredentials("invalid email or password")
		}
		return nil, storeError(err, msgUserNotFound)
	}

	ok, err := auth.VerifyPassword(user.PasswordHash, in.Password)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		s.logger.Info("sign in rejected", "user_id", user.ID)
		return nil, domainerrors.InvalidCredentials("invalid email or password")
	}

	s.logger.Info("user signed in", "user_id", user.ID)
	return s.issue(user)
}

// Verify resolves a token to the caller's identity.
func (s *AuthService) Verify(token string) (auth.Identity, error) {
	identity, err := s.tokenService.Verify(token)
	if err != nil {
		return auth.Identity{}, domainerrors.Unauthorized("invalid or expired token").WithCause(err)
	}
	return identity, nil
}

// CurrentUser loads the caller's account.
func (s *AuthService) CurrentUser(ctx context.Context, caller auth.Identity) (*domain.User, error) {
	user, err := s.store.GetUser(ctx, caller.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.Unauthorized("account no longer exists")
		}
		return nil, storeError(err, msgUserNotFound)
	}
	return user, nil
}

// TokenDuration is the lifetime of issued tokens.
func (s *AuthService) TokenDuration() time.Duration {
	return s.tokenService.AccessTokenDuration()
}

func (s *AuthService) issue(user *domain.User) (*AuthResult, error) {
	token, err := s.tokenService.GenerateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}
	return &AuthResult{
		User:      user,
		Token:     token,
		ExpiresIn: s.tokenService.AccessTokenDuration(),
	}, nil
}
