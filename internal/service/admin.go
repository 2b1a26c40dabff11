package service

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/inkcircle/inkcircle-server/internal/domain"
	domainerrors "github.com/inkcircle/inkcircle-server/internal/errors"
	"github.com/inkcircle/inkcircle-server/internal/store"
	"github.com/inkcircle/inkcircle-server/internal/validation"
)

const topDownloadedLimit = 5

// AdminUpdateUserInput is a moderator's edit of an account.
type AdminUpdateUserInput struct {
	Username *string      `json:"username" validate:"omitnil,min=3,max=30,username"`
	Email    *string      `json:"email" validate:"omitnil,email,max=254"`
	Role     *domain.Role `json:"role" validate:"omitnil,oneof=admin user"`
}

// Stats summarizes the whole site.
type Stats struct {
	TotalUsers       int            `json:"totalUsers"`
	TotalBooks       int            `json:"totalBooks"`
	PendingApprovals int            `json:"pendingApprovals"`
	TotalDownloads   int64          `json:"totalDownloads"`
	MostDownloaded   []*domain.Book `json:"mostDownloaded"`
}

// AdminService implements moderation and account management.
// Callers are expected to have checked the admin role.
type AdminService struct {
	store     store.Store
	books     *BookService
	validator *validation.Validator
	logger    *slog.Logger
}

// NewAdminService creates a new admin service.
func NewAdminService(store store.Store, books *BookService, validator *validation.Validator, logger *slog.Logger) *AdminService {
	return &AdminService{
		store:     store,
		books:     books,
		validator: validator,
		logger:    logger,
	}
}

// ListUsers returns all users, newest first.
func (s *AdminService) ListUsers(ctx context.Context) ([]*domain.User, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, storeError(err, msgUserNotFound)
	}
	slices.SortStableFunc(users, func(a, b *domain.User) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return users, nil
}

// GetUser returns a single user.
func (s *AdminService) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, storeError(err, msgUserNotFound)
	}
	return user, nil
}

// UpdateUser changes a user's name, email or role.
func (s *AdminService) UpdateUser(ctx context.Context, userID string, in AdminUpdateUserInput) (*domain.User, error) {
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}

	user, err := s.store.UpdateUser(ctx, userID, func(u *domain.User) error {
		if in.Username != nil {
			u.Username = strings.TrimSpace(*in.Username)
		}
		if in.Email != nil {
			u.Email = strings.TrimSpace(*in.Email)
		}
		if in.Role != nil {
			u.Role = *in.Role
		}
		u.Touch()
		return nil
	})
	if err != nil {
		return nil, storeError(err, msgUserNotFound)
	}

	s.logger.Info("user updated by admin", "user_id", userID, "role", user.Role)
	return user, nil
}

// DeleteUser removes a user and every book they uploaded.
func (s *AdminService) DeleteUser(ctx context.Context, userID string) error {
	if _, err := s.GetUser(ctx, userID); err != nil {
		return err
	}
	removed, err := s.books.RemoveUploads(ctx, userID)
	if err != nil {
		s.logger.Error("user deletion aborted", "user_id", userID, "books_removed", removed, "error", err)
		return err
	}
	if err := s.store.DeleteUser(ctx, userID); err != nil {
		return storeError(err, msgUserNotFound)
	}
	s.logger.Info("user deleted by admin", "user_id", userID, "books_removed", removed)
	return nil
}

// ListBooks returns every book, newest first.
func (s *AdminService) ListBooks(ctx context.Context) ([]*domain.Book, error) {
	books, err := s.store.ListBooks(ctx)
	if err != nil {
		return nil, storeError(err, msgBookNotFound)
	}
	sortNewestFirst(books)
	return books, nil
}

// PendingBooks returns the books awaiting review, newest first.
func (s *AdminService) PendingBooks(ctx context.Context) ([]*domain.Book, error) {
	books, err := s.ListBooks(ctx)
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(books, func(b *domain.Book) bool { return b.Approved }), nil
}

// ReviewBook sets the approval state of a book.
func (s *AdminService) ReviewBook(ctx context.Context, bookID string, approved bool) (*domain.Book, error) {
	book, err := s.store.UpdateBook(ctx, bookID, func(b *domain.Book) error {
		if b.Approved == approved {
			return store.ErrUnchanged
		}
		b.Approved = approved
		b.Touch()
		return nil
	})
	if err != nil {
		return nil, storeError(err, msgBookNotFound)
	}

	s.logger.Info("book reviewed", "book_id", bookID, "approved", approved)
	return book, nil
}

// DeleteBook removes any book and its blobs.
func (s *AdminService) DeleteBook(ctx context.Context, bookID string) error {
	return s.books.RemoveBook(ctx, bookID)
}

// BooksByAuthor returns books whose author matches exactly, ignoring case.
func (s *AdminService) BooksByAuthor(ctx context.Context, author string) ([]*domain.Book, error) {
	author = strings.TrimSpace(author)
	if author == "" {
		return nil, domainerrors.Validation("author is required")
	}
	books, err := s.ListBooks(ctx)
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(books, func(b *domain.Book) bool {
		return !strings.EqualFold(strings.TrimSpace(b.Author), author)
	}), nil
}

// Stats computes site totals and the most downloaded books.
func (s *AdminService) Stats(ctx context.Context) (*Stats, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, storeError(err, msgUserNotFound)
	}
	books, err := s.store.ListBooks(ctx)
	if err != nil {
		return nil, storeError(err, msgBookNotFound)
	}

	stats := &Stats{
		TotalUsers: len(users),
		TotalBooks: len(books),
	}
	for _, b := range books {
		if !b.Approved {
			stats.PendingApprovals++
		}
		stats.TotalDownloads += b.DownloadCount
	}

	slices.SortStableFunc(books, func(a, b *domain.Book) int {
		if c := cmp.Compare(b.DownloadCount, a.DownloadCount); c != 0 {
			return c
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	stats.MostDownloaded = append([]*domain.Book{}, books[:min(len(books), topDownloadedLimit)]...)

	return stats, nil
}
