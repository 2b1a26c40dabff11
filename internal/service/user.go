package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/inkcircle/inkcircle-server/internal/auth"
	"github.com/inkcircle/inkcircle-server/internal/domain"
	domainerrors "github.com/inkcircle/inkcircle-server/internal/errors"
	"github.com/inkcircle/inkcircle-server/internal/store"
	"github.com/inkcircle/inkcircle-server/internal/validation"
)

// UpdateProfileInput changes the caller's own account. CurrentPassword
// is always required; nil fields are left alone.
type UpdateProfileInput struct {
	Username        *string `json:"username" validate:"omitnil,min=3,max=30,username"`
	Email           *string `json:"email" validate:"omitnil,email,max=254"`
	AvatarURL       *string `json:"avatarUrl" validate:"omitnil,http_url"`
	NewPassword     *string `json:"newPassword" validate:"omitnil,min=8,max=128"`
	CurrentPassword string  `json:"currentPassword" validate:"required"`
}

// UserService manages a user's own account.
type UserService struct {
	store        store.Store
	books        *BookService
	interactions *InteractionService
	validator    *validation.Validator
	logger       *slog.Logger
}

// NewUserService creates a new user service.
func NewUserService(
	store store.Store,
	books *BookService,
	interactions *InteractionService,
	validator *validation.Validator,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		store:        store,
		books:        books,
		interactions: interactions,
		validator:    validator,
		logger:       logger,
	}
}

// GetUser returns a single user.
func (s *UserService) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, storeError(err, msgUserNotFound)
	}
	return user, nil
}

// UpdateProfile applies in after checking the current password.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput) (*domain.User, error) {
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}

	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	ok, err := auth.VerifyPassword(user.PasswordHash, in.CurrentPassword)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, domainerrors.InvalidCredentials("current password is incorrect")
	}

	// Hash outside the mutate function, which may run more than once.
	var newHash string
	if in.NewPassword != nil {
		if newHash, err = auth.HashPassword(*in.NewPassword); err != nil {
			if errors.Is(err, auth.ErrPasswordTooLong) {
				return nil, domainerrors.Validation("password is too long")
			}
			return nil, fmt.Errorf("hash password: %w", err)
		}
	}

	updated, err := s.store.UpdateUser(ctx, userID, func(u *domain.User) error {
		if in.Username != nil {
			u.Username = strings.TrimSpace(*in.Username)
		}
		if in.Email != nil {
			u.Email = strings.TrimSpace(*in.Email)
		}
		if in.AvatarURL != nil {
			u.AvatarURL = *in.AvatarURL
		}
		if newHash != "" {
			u.PasswordHash = newHash
		}
		u.Touch()
		return nil
	})
	if err != nil {
		return nil, storeError(err, msgUserNotFound)
	}

	s.logger.Info("profile updated", "user_id", userID, "password_changed", newHash != "")
	return updated, nil
}

// DeleteAccount removes the caller's uploads and then the account itself.
func (s *UserService) DeleteAccount(ctx context.Context, userID string) error {
	if _, err := s.GetUser(ctx, userID); err != nil {
		return err
	}
	removed, err := s.books.RemoveUploads(ctx, userID)
	if err != nil {
		s.logger.Error("account deletion aborted", "user_id", userID, "books_removed", removed, "error", err)
		return err
	}
	if err := s.store.DeleteUser(ctx, userID); err != nil {
		return storeError(err, msgUserNotFound)
	}
	s.logger.Info("account deleted", "user_id", userID, "books_removed", removed)
	return nil
}

// Uploads returns the books the user has uploaded, newest first.
func (s *UserService) Uploads(ctx context.Context, userID string) ([]*domain.Book, error) {
	return s.books.ListUploads(ctx, userID)
}

// RecentlyVisited returns userID's recently-visited books. Callers may only
// read their own list unless they are an admin.
func (s *UserService) RecentlyVisited(ctx context.Context, caller auth.Identity, userID string) ([]VisitedBook, error) {
	if caller.UserID != userID && !caller.IsAdmin() {
		return nil, domainerrors.Forbidden("cannot view another user's history")
	}
	return s.interactions.GetRecentlyVisited(ctx, userID)
}
