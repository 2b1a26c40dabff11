// Package store defines the persistence interface for the InkCircle server.
//
// Two backends implement it: badgerdb (the default) and sqlite. Every change
// to an existing aggregate goes through UpdateBook or UpdateUser, which run
// the mutate function as one atomic read-modify-write.
package store

import (
	"context"
	"errors"

	"github.com/inkcircle/inkcircle-server/internal/domain"
)

// ErrUnchanged may be returned by a mutate function to skip the write.
// The update then succeeds and returns the current aggregate.
var ErrUnchanged = errors.New("store: unchanged")

// BookMutator changes a book in place. It may be called more than once
// for a single update, so it must not keep state between calls.
type BookMutator func(*domain.Book) error

// UserMutator changes a user in place. The same retry rule as BookMutator applies.
type UserMutator func(*domain.User) error

// Store defines the interface for all persistence operations.
type Store interface {
	// Lifecycle
	Close() error
	Ping(ctx context.Context) error

	// Books
	CreateBook(ctx context.Context, book *domain.Book) error
	GetBook(ctx context.Context, id string) (*domain.Book, error)
	// GetBooks returns the books that exist, in the order of ids. Missing ids are skipped.
	GetBooks(ctx context.Context, ids []string) ([]*domain.Book, error)
	UpdateBook(ctx context.Context, id string, fn BookMutator) (*domain.Book, error)
	DeleteBook(ctx context.Context, id string) error
	ListBooks(ctx context.Context) ([]*domain.Book, error)
	ListBooksByUploader(ctx context.Context, uploaderID string) ([]*domain.Book, error)

	// Users
	CreateUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	UpdateUser(ctx context.Context, id string, fn UserMutator) (*domain.User, error)
	DeleteUser(ctx context.Context, id string) error
	ListUsers(ctx context.Context) ([]*domain.User, error)
}
