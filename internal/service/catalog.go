package service

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/inkcircle/inkcircle-server/internal/auth"
	"github.com/inkcircle/inkcircle-server/internal/domain"
	"github.com/inkcircle/inkcircle-server/internal/genre"
	"github.com/inkcircle/inkcircle-server/internal/store"
)

// BookFilter narrows a catalog listing. Zero values match everything.
type BookFilter struct {
	// Search is a case-insensitive substring over title, author and genres.
	Search string
	// Title must match exactly.
	Title string
	// Author is a case-insensitive substring.
	Author string
	// Genres matches books carrying any of the tags, after normalization.
	Genres []string
	// Approved, when set, restricts to approved or pending books.
	Approved *bool
}

// CatalogService answers catalog queries.
type CatalogService struct {
	store        store.Store
	interactions *InteractionService
	logger       *slog.Logger
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(store store.Store, interactions *InteractionService, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		store:        store,
		interactions: interactions,
		logger:       logger,
	}
}

// ListBooks returns the books matching f, newest first.
func (s *CatalogService) ListBooks(ctx context.Context, f BookFilter) ([]*domain.Book, error) {
	books, err := s.store.ListBooks(ctx)
	if err != nil {
		return nil, storeError(err, msgBookNotFound)
	}

	m := newMatcher(f)
	out := slices.DeleteFunc(books, func(b *domain.Book) bool { return !m.match(b) })
	sortNewestFirst(out)
	return out, nil
}

// GetBook returns a single book.
func (s *CatalogService) GetBook(ctx context.Context, bookID string) (*domain.Book, error) {
	book, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		return nil, storeError(err, msgBookNotFound)
	}
	return book, nil
}

// ViewBook returns a book and, for an authenticated viewer, records the
// visit. A failed visit write is logged and does not fail the read.
func (s *CatalogService) ViewBook(ctx context.Context, bookID string, viewer auth.Identity) (*domain.Book, error) {
	book, err := s.GetBook(ctx, bookID)
	if err != nil {
		return nil, err
	}

	if viewer.UserID != "" {
		if _, err := s.interactions.RecordVisit(ctx, viewer.UserID, bookID); err != nil {
			s.logger.Warn("failed to record visit",
				"book_id", bookID,
				"user_id", viewer.UserID,
				"error", err,
			)
		}
	}
	return book, nil
}

type matcher struct {
	search   string
	title    string
	author   string
	genres   []string
	approved *bool
}

func newMatcher(f BookFilter) matcher {
	m := matcher{
		search:   strings.ToLower(strings.TrimSpace(f.Search)),
		title:    strings.TrimSpace(f.Title),
		author:   strings.ToLower(strings.TrimSpace(f.Author)),
		approved: f.Approved,
	}
	for _, g := range f.Genres {
		if n := genre.Normalize(g); n != "" {
			m.genres = append(m.genres, n)
		}
	}
	return m
}

func (m matcher) match(b *domain.Book) bool {
	if m.approved != nil && b.Approved != *m.approved {
		return false
	}
	if m.title != "" && b.Title != m.title {
		return false
	}
	if m.author != "" && !strings.Contains(strings.ToLower(b.Author), m.author) {
		return false
	}
	if len(m.genres) > 0 && !slices.ContainsFunc(b.Genres, func(g string) bool {
		return slices.Contains(m.genres, g)
	}) {
		return false
	}
	if m.search != "" && !m.matchSearch(b) {
		return false
	}
	return true
}

func (m matcher) matchSearch(b *domain.Book) bool {
	if strings.Contains(strings.ToLower(b.Title), m.search) ||
		strings.Contains(strings.ToLower(b.Author), m.search) {
		return true
	}
	asGenre := genre.Normalize(m.search)
	return slices.ContainsFunc(b.Genres, func(g string) bool {
		return strings.Contains(g, m.search) || (asGenre != "" && strings.Contains(g, asGenre))
	})
}

func sortNewestFirst(books []*domain.Book) {
	slices.SortStableFunc(books, func(a, b *domain.Book) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
