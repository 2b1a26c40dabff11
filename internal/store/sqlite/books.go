package sqlite

import (
	"context"
	"database/sql"
	"encoding/json/v2"
	"errors"
	"fmt"

	"github.com/inkcircle/inkcircle-server/internal/domain"
	"github.com/inkcircle/inkcircle-server/internal/store"
)

func scanBook(scanner interface{ Scan(dest ...any) error }) (*domain.Book, error) {
	var data string
	if err := scanner.Scan(&data); err != nil {
		return nil, err
	}
	var b domain.Book
	if err := json.Unmarshal([]byte(data), &b); err != nil {
		return nil, fmt.Errorf("unmarshal book: %w", err)
	}
	return &b, nil
}

func queryBooks(ctx context.Context, q interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}, query string, args ...any) ([]*domain.Book, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var books []*domain.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

// CreateBook inserts a new book.
// Returns store.ErrAlreadyExists on duplicate ID.
func (s *Store) CreateBook(ctx context.Context, book *domain.Book) error {
	data, err := json.Marshal(book)
	if err != nil {
		return fmt.Errorf("marshal book: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO books (id, uploader_id, approved, created_at, updated_at, data)
		VALUES (?, ?, ?, ?, ?, ?)`,
		book.ID,
		book.UploaderID,
		boolToInt(book.Approved),
		formatTime(book.CreatedAt),
		formatTime(book.UpdatedAt),
		string(data),
	)
	if err != nil {
		return uniqueViolation(err)
	}
	return nil
}

// GetBook retrieves a book by ID.
// Returns store.ErrNotFound if the book does not exist.
func (s *Store) GetBook(ctx context.Context, id string) (*domain.Book, error) {
	b, err := scanBook(s.db.QueryRowContext(ctx, `SELECT data FROM books WHERE id = ?`, id))
	if isNoRows(err) {
		return nil, store.ErrNotFound
	}
	return b, err
}

// GetBooks retrieves the books that still exist among ids, in order.
func (s *Store) GetBooks(ctx context.Context, ids []string) ([]*domain.Book, error) {
	out := make([]*domain.Book, 0, len(ids))
	for _, id := range ids {
		b, err := s.GetBook(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// UpdateBook applies fn to the stored book inside one write transaction.
func (s *Store) UpdateBook(ctx context.Context, id string, fn store.BookMutator) (*domain.Book, error) {
	var result *domain.Book
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		current, err := scanBook(tx.QueryRowContext(ctx, `SELECT data FROM books WHERE id = ?`, id))
		if isNoRows(err) {
			return store.ErrNotFound
		}
		if err != nil {
			return err
		}

		if err := fn(current); err != nil {
			if !errors.Is(err, store.ErrUnchanged) {
				return err
			}
			// fn may have edited the copy before giving up.
			result, err = scanBook(tx.QueryRowContext(ctx, `SELECT data FROM books WHERE id = ?`, id))
			return err
		}

		data, err := json.Marshal(current)
		if err != nil {
			return fmt.Errorf("marshal book: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE books SET approved = ?, updated_at = ?, data = ? WHERE id = ?`,
			boolToInt(current.Approved),
			formatTime(current.UpdatedAt),
			string(data),
			id,
		)
		if err != nil {
			return err
		}
		result = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteBook removes a book. Deleting a missing book is not an error.
func (s *Store) DeleteBook(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, id)
	return err
}

// ListBooks returns every book, oldest first.
func (s *Store) ListBooks(ctx context.Context) ([]*domain.Book, error) {
	return queryBooks(ctx, s.db, `SELECT data FROM books ORDER BY created_at, id`)
}

// ListBooksByUploader returns the books uploaded by uploaderID, oldest first.
func (s *Store) ListBooksByUploader(ctx context.Context, uploaderID string) ([]*domain.Book, error) {
	return queryBooks(ctx, s.db, `SELECT data FROM books WHERE uploader_id = ? ORDER BY created_at, id`, uploaderID)
}
