package service

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/inkcircle/inkcircle-server/internal/auth"
	"github.com/inkcircle/inkcircle-server/internal/blob"
	"github.com/inkcircle/inkcircle-server/internal/domain"
	"github.com/inkcircle/inkcircle-server/internal/id"
	"github.com/inkcircle/inkcircle-server/internal/metrics"
	"github.com/inkcircle/inkcircle-server/internal/store"
	"github.com/inkcircle/inkcircle-server/internal/store/badgerdb"
	"github.com/inkcircle/inkcircle-server/internal/store/sqlite"
	"github.com/inkcircle/inkcircle-server/internal/validation"
)

const testPassword = "correct-horse-battery"

var testKeyHex = strings.Repeat("ab", 32)

type testEnv struct {
	store        store.Store
	blobs        *blob.Local
	metrics      *metrics.Metrics
	interactions *InteractionService
	catalog      *CatalogService
	books        *BookService
	users        *UserService
	admin        *AdminService
	auth         *AuthService
}

var backends = []string{"badger", "sqlite"}

// forEachBackend runs fn as a subtest against every store implementation.
func forEachBackend(t *testing.T, fn func(t *testing.T, env *testEnv)) {
	t.Helper()
	for _, backend := range backends {
		t.Run(backend, func(t *testing.T) {
			fn(t, newTestEnv(t, backend))
		})
	}
}

func newTestEnv(t *testing.T, backend string) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New()

	var s store.Store
	switch backend {
	case "sqlite":
		ss, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"), logger)
		require.NoError(t, err)
		s = ss
	default:
		bs, err := badgerdb.New(filepath.Join(t.TempDir(), "badger"), logger, badgerdb.Options{
			MaxAttempts: 64,
			OnConflict:  m.StoreConflict,
		})
		require.NoError(t, err)
		s = bs
	}
	t.Cleanup(func() { _ = s.Close() })

	blobs, err := blob.NewLocal(t.TempDir(), "http://localhost:8080/files", logger)
	require.NoError(t, err)

	tokens, err := auth.NewTokenService(testKeyHex, time.Hour)
	require.NoError(t, err)

	v := validation.New()
	interactions := NewInteractionService(s, m, logger)
	books := NewBookService(s, blobs, v, m, logger, 1<<20)

	return &testEnv{
		store:        s,
		blobs:        blobs,
		metrics:      m,
		interactions: interactions,
		catalog:      NewCatalogService(s, interactions, logger),
		books:        books,
		users:        NewUserService(s, books, interactions, v, logger),
		admin:        NewAdminService(s, books, v, logger),
		auth:         NewAuthService(s, tokens, v, logger),
	}
}

var (
	hashOnce   sync.Once
	cachedHash string
)

// passwordHash hashes testPassword once per test binary.
func passwordHash(t *testing.T) string {
	t.Helper()
	hashOnce.Do(func() {
		h, err := auth.HashPassword(testPassword)
		require.NoError(t, err)
		cachedHash = h
	})
	return cachedHash
}

func createTestUser(t *testing.T, env *testEnv, username string, role domain.Role) *domain.User {
	t.Helper()
	u := &domain.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: passwordHash(t),
		Role:         role,
		AvatarURL:    domain.DefaultAvatarURL(username),
	}
	u.ID = id.MustGenerate(id.User)
	u.InitTimestamps()
	require.NoError(t, env.store.CreateUser(context.Background(), u))
	return u
}

func createTestBook(t *testing.T, env *testEnv, uploaderID, title string, genres ...string) *domain.Book {
	t.Helper()
	if len(genres) == 0 {
		genres = []string{"fiction"}
	}
	b := &domain.Book{
		Title:      title,
		Author:     "Test Author",
		Genres:     genres,
		FileURL:    "https://cdn.example.com/" + title + ".pdf",
		FileType:   "pdf",
		UploaderID: uploaderID,
	}
	b.ID = id.MustGenerate(id.Book)
	b.InitTimestamps()
	require.NoError(t, env.store.CreateBook(context.Background(), b))
	return b
}

func identity(u *domain.User) auth.Identity {
	return auth.Identity{UserID: u.ID, Role: u.Role}
}

// steppingClock returns a clock that advances by step on every call.
func steppingClock(start time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	next := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now := next
		next = next.Add(step)
		return now
	}
}
