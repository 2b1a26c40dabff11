package sqlite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/inkcircle/inkcircle-server/internal/domain"
	"github.com/inkcircle/inkcircle-server/internal/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s, err := Open(dbPath, logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func makeBook(id, uploader string) *domain.Book {
	b := &domain.Book{Title: "Title " + id, Genres: []string{"poem"}, UploaderID: uploader}
	b.ID = id
	b.InitTimestamps()
	return b
}

func makeUser(id, username, email string) *domain.User {
	u := &domain.User{Username: username, Email: email, Role: domain.RoleUser}
	u.ID = id
	u.InitTimestamps()
	return u
}

func TestOpen(t *testing.T) {
	s := newTestStore(t)

	var journalMode string
	if err := s.db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatalf("query journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("expected wal, got %s", journalMode)
	}

	for _, table := range []string{"users", "books"} {
		var name string
		err := s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}
}

func TestOpenClose(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	s, err := Open(dbPath, logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := s.CreateBook(context.Background(), makeBook("book-1", "user-1")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	// Re-open should work (schema is idempotent).
	s2, err := Open(dbPath, logger)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer s2.Close()
	if _, err := s2.GetBook(context.Background(), "book-1"); err != nil {
		t.Errorf("book lost across reopen: %v", err)
	}
}

func TestBooks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateBook(ctx, makeBook("book-1", "user-1")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.CreateBook(ctx, makeBook("book-1", "user-1")); !errors.Is(err, store.ErrAlreadyExists) {
		t.Errorf("duplicate create: expected ErrAlreadyExists, got %v", err)
	}
	if err := s.CreateBook(ctx, makeBook("book-2", "user-2")); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.GetBooks(ctx, []string{"book-2", "book-x", "book-1"})
	if err != nil {
		t.Fatalf("get books: %v", err)
	}
	if len(got) != 2 || got[0].ID != "book-2" || got[1].ID != "book-1" {
		t.Errorf("unexpected GetBooks result: %+v", got)
	}

	mine, err := s.ListBooksByUploader(ctx, "user-1")
	if err != nil || len(mine) != 1 {
		t.Errorf("ListBooksByUploader = %d books, err %v", len(mine), err)
	}

	if err := s.DeleteBook(ctx, "book-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetBook(ctx, "book-1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	all, _ := s.ListBooks(ctx)
	if len(all) != 1 {
		t.Errorf("expected 1 book, got %d", len(all))
	}
}

func TestUpdateBook_Unchanged(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.CreateBook(ctx, makeBook("book-1", "user-1")); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.UpdateBook(ctx, "book-1", func(b *domain.Book) error {
		b.Title = "discarded"
		return store.ErrUnchanged
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Title != "Title book-1" {
		t.Errorf("expected stored title, got %q", got.Title)
	}

	if _, err := s.UpdateBook(ctx, "book-x", func(*domain.Book) error { return nil }); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUsers_Uniqueness(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateUser(ctx, makeUser("user-1", "Alice", "alice@example.com")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.CreateUser(ctx, makeUser("user-2", "bob", "bob@example.com")); err != nil {
		t.Fatalf("create: %v", err)
	}

	err := s.CreateUser(ctx, makeUser("user-3", "ALICE", "carol@example.com"))
	var se *store.Error
	if !errors.As(err, &se) || se.Index != "username" {
		t.Errorf("expected username conflict, got %v", err)
	}

	_, err = s.UpdateUser(ctx, "user-2", func(u *domain.User) error {
		u.Email = "Alice@Example.com"
		return nil
	})
	if !errors.As(err, &se) || se.Index != "email" {
		t.Errorf("expected email conflict, got %v", err)
	}

	u, err := s.GetUserByEmail(ctx, "ALICE@example.com")
	if err != nil || u.ID != "user-1" {
		t.Errorf("GetUserByEmail = %v, %v", u, err)
	}
	u, err = s.GetUserByUsername(ctx, " alice ")
	if err != nil || u.Username != "Alice" {
		t.Errorf("GetUserByUsername = %v, %v", u, err)
	}

	if err := s.DeleteUser(ctx, "user-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	users, _ := s.ListUsers(ctx)
	if len(users) != 1 {
		t.Errorf("expected 1 user, got %d", len(users))
	}
}

func TestUpdateBook_ConcurrentIncrements(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.CreateBook(ctx, makeBook("book-1", "user-1")); err != nil {
		t.Fatalf("create: %v", err)
	}

	const n = 50
	var wg sync.WaitGroup
	errs := make(chan error, 2*n)
	for i := range n {
		wg.Go(func() {
			_, err := s.UpdateBook(ctx, "book-1", func(b *domain.Book) error {
				b.IncrementDownloads()
				return nil
			})
			errs <- err
		})
		wg.Go(func() {
			_, err := s.UpdateBook(ctx, "book-1", func(b *domain.Book) error {
				b.ToggleLike(fmt.Sprintf("user-%d", i))
				return nil
			})
			errs <- err
		})
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("update: %v", err)
		}
	}

	b, err := s.GetBook(ctx, "book-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if b.DownloadCount != n {
		t.Errorf("expected %d downloads, got %d", n, b.DownloadCount)
	}
	if len(b.Likes) != n {
		t.Errorf("expected %d likes, got %d", n, len(b.Likes))
	}
}
