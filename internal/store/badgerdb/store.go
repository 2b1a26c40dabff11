// Package badgerdb implements store.Store on an embedded Badger database.
package badgerdb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/inkcircle/inkcircle-server/internal/domain"
	"github.com/inkcircle/inkcircle-server/internal/store"
)

const (
	defaultMaxAttempts = 16
	defaultBaseBackoff = 2 * time.Millisecond
)

var _ store.Store = (*Store)(nil)

// Options tune the optimistic retry loop used by updates.
type Options struct {
	// MaxAttempts bounds the read-modify-write attempts per update.
	MaxAttempts int
	// BaseBackoff is the upper bound of the first jittered sleep between attempts.
	BaseBackoff time.Duration
	// OnConflict is called each time an update loses to a concurrent writer.
	OnConflict func(entity string)
	// InMemory opens the database without touching disk. Used by tests and the seed tool.
	InMemory bool
}

// Store wraps a Badger database instance.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
	tracer trace.Tracer
	opts   Options

	books *Entity[domain.Book]
	users *Entity[domain.User]
}

// New opens (or creates) the Badger database at path.
func New(path string, logger *slog.Logger, opts Options) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.BaseBackoff <= 0 {
		opts.BaseBackoff = defaultBaseBackoff
	}

	bopts := badger.DefaultOptions(path)
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	}
	bopts.Logger = nil            // Disable Badger's internal logging
	bopts.SyncWrites = !opts.InMemory
	bopts.CompactL0OnClose = true // Compact L0 tables on close for faster startup

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	s := &Store{
		db:     db,
		logger: logger,
		tracer: otel.Tracer("github.com/inkcircle/inkcircle-server/internal/store/badgerdb"),
		opts:   opts,
	}

	s.books = NewEntity[domain.Book](s, "book:").
		WithMultiIndex("uploader", func(b *domain.Book) []string {
			return []string{b.UploaderID}
		})

	// Username and email are unique case-insensitively; the stored casing is kept.
	userKey := func(field func(*domain.User) string) func(*domain.User) []string {
		return func(u *domain.User) []string { return []string{domain.NormalizeKey(field(u))} }
	}
	s.users = NewEntity[domain.User](s, "user:").
		WithIndexTransform("username", userKey(func(u *domain.User) string { return u.Username }), domain.NormalizeKey).
		WithIndexTransform("email", userKey(func(u *domain.User) string { return u.Email }), domain.NormalizeKey)

	logger.Info("Badger database opened successfully", "path", path, "in_memory", opts.InMemory)

	return s, nil
}

// Close gracefully closes the database connection.
func (s *Store) Close() error {
	if s.db.IsClosed() {
		return nil
	}
	s.logger.Info("Closing database connection")
	return s.db.Close()
}

// Ping reports whether the database is open and readable.
func (s *Store) Ping(ctx context.Context) error {
	if s.db.IsClosed() {
		return errors.New("database is closed")
	}
	return s.db.View(func(*badger.Txn) error { return ctx.Err() })
}
