package badgerdb

import (
	"context"

	"github.com/inkcircle/inkcircle-server/internal/domain"
	"github.com/inkcircle/inkcircle-server/internal/store"
)

// CreateBook persists a new book.
func (s *Store) CreateBook(ctx context.Context, book *domain.Book) error {
	return s.books.Create(ctx, book.ID, book)
}

// GetBook retrieves a book by ID.
func (s *Store) GetBook(ctx context.Context, id string) (*domain.Book, error) {
	return s.books.Get(ctx, id)
}

// GetBooks retrieves the books that still exist among ids, in order.
func (s *Store) GetBooks(ctx context.Context, ids []string) ([]*domain.Book, error) {
	return s.books.GetMany(ctx, ids)
}

// UpdateBook applies fn to the stored book atomically.
func (s *Store) UpdateBook(ctx context.Context, id string, fn store.BookMutator) (*domain.Book, error) {
	return s.books.Mutate(ctx, id, fn)
}

// DeleteBook removes a book. Deleting a missing book is not an error.
func (s *Store) DeleteBook(ctx context.Context, id string) error {
	return s.books.Delete(ctx, id)
}

// ListBooks returns every book in key order.
func (s *Store) ListBooks(ctx context.Context) ([]*domain.Book, error) {
	return collect(s.books.List(ctx))
}

// ListBooksByUploader returns the books uploaded by uploaderID.
func (s *Store) ListBooksByUploader(ctx context.Context, uploaderID string) ([]*domain.Book, error) {
	return s.books.ListByIndex(ctx, "uploader", uploaderID)
}
