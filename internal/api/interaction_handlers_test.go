package api

import (
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkcircle/inkcircle-server/internal/api/dto"
	"github.com/inkcircle/inkcircle-server/internal/domain"
	"github.com/inkcircle/inkcircle-server/internal/service"
)

func TestToggleLike(t *testing.T) {
	ts := newTestServer(t)
	token, user := ts.signup(t, "jane")
	book := ts.createBook(t, token, "Dune", "Frank Herbert", "Science Fiction")

	resp := ts.api.Put("/api/v1/books/"+book.ID+"/like", bearerHeader(token))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	likes := decode[dto.LikesResponse](t, resp).Data
	assert.True(t, likes.Liked)
	assert.Equal(t, []string{user.ID}, likes.Likes)

	resp = ts.api.Put("/api/v1/books/"+book.ID+"/like", bearerHeader(token))
	require.Equal(t, http.StatusOK, resp.Code)
	likes = decode[dto.LikesResponse](t, resp).Data
	assert.False(t, likes.Liked)
	assert.Empty(t, likes.Likes)
	assert.NotNil(t, likes.Likes)

	requireError(t, ts.api.Put("/api/v1/books/"+book.ID+"/like"), http.StatusUnauthorized, "UNAUTHORIZED")
	requireError(t, ts.api.Put("/api/v1/books/missing/like", bearerHeader(token)), http.StatusNotFound, "NOT_FOUND")
}

func TestToggleLike_ConcurrentUsers(t *testing.T) {
	ts := newTestServer(t)
	ownerToken, _ := ts.signup(t, "owner")
	book := ts.createBook(t, ownerToken, "Dune", "Frank Herbert", "Science Fiction")

	const n = 10
	tokens := make([]string, n)
	for i := range n {
		tokens[i], _ = ts.signup(t, fmt.Sprintf("reader%02d", i))
	}

	var wg sync.WaitGroup
	codes := make([]int, n)
	for i := range n {
		wg.Go(func() {
			codes[i] = ts.api.Put("/api/v1/books/"+book.ID+"/like", bearerHeader(tokens[i])).Code
		})
	}
	wg.Wait()

	for _, code := range codes {
		assert.Equal(t, http.StatusOK, code)
	}
	resp := ts.api.Get("/api/v1/books/" + book.ID)
	assert.Len(t, decode[*domain.Book](t, resp).Data.Likes, n)
}

func TestComments_Lifecycle(t *testing.T) {
	ts := newTestServer(t)
	authorToken, author := ts.signup(t, "author")
	otherToken, _ := ts.signup(t, "other")
	adminToken, _ := ts.admin(t, "moderator")
	book := ts.createBook(t, authorToken, "Dune", "Frank Herbert", "Science Fiction")
	base := "/api/v1/books/" + book.ID + "/comments"

	resp := ts.api.Post(base, bearerHeader(authorToken), map[string]any{"text": "  Great read  "})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	first := decode[domain.Comment](t, resp).Data
	assert.Equal(t, "Great read", first.Text)
	assert.Equal(t, author.ID, first.AuthorUserID)
	assert.Equal(t, "author", first.AuthorDisplayName)

	resp = ts.api.Post(base, map[string]any{"text": "Anonymous thoughts"})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	anon := decode[domain.Comment](t, resp).Data
	assert.Empty(t, anon.AuthorUserID)
	assert.Equal(t, domain.AnonymousDisplayName, anon.AuthorDisplayName)

	requireError(t, ts.api.Post(base, bearerHeader(authorToken), map[string]any{"text": "   "}), http.StatusBadRequest, "VALIDATION")

	// Only the author or an admin may edit.
	requireError(t, ts.api.Put(base+"/"+first.ID, bearerHeader(otherToken), map[string]any{"text": "hijacked"}),
		http.StatusForbidden, "FORBIDDEN")
	resp = ts.api.Put(base+"/"+first.ID, bearerHeader(authorToken), map[string]any{"text": "Loved it"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, "Loved it", decode[domain.Comment](t, resp).Data.Text)

	requireError(t, ts.api.Put(base+"/missing", bearerHeader(authorToken), map[string]any{"text": "x"}),
		http.StatusNotFound, "NOT_FOUND")

	// Anonymous comments can only be removed by an admin.
	requireError(t, ts.api.Delete(base+"/"+anon.ID, bearerHeader(otherToken)), http.StatusForbidden, "FORBIDDEN")
	resp = ts.api.Delete(base+"/"+anon.ID, bearerHeader(adminToken))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	remaining := decode[dto.CommentsResponse](t, resp).Data.Comments
	require.Len(t, remaining, 1)
	assert.Equal(t, first.ID, remaining[0].ID)

	resp = ts.api.Delete(base+"/"+first.ID, bearerHeader(authorToken))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Empty(t, decode[dto.CommentsResponse](t, resp).Data.Comments)

	requireError(t, ts.api.Delete(base+"/"+first.ID, bearerHeader(authorToken)), http.StatusNotFound, "NOT_FOUND")
}

func TestDownload_CountsWithoutAuth(t *testing.T) {
	ts := newTestServer(t)
	token, _ := ts.signup(t, "jane")
	book := ts.createBook(t, token, "Dune", "Frank Herbert", "Science Fiction")

	var last int64
	for range 3 {
		resp := ts.api.Put("/api/v1/books/" + book.ID + "/download")
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
		last = decode[dto.DownloadResponse](t, resp).Data.DownloadCount
	}
	assert.Equal(t, int64(3), last)

	requireError(t, ts.api.Put("/api/v1/books/missing/download"), http.StatusNotFound, "NOT_FOUND")
}

func TestDownload_RateLimited(t *testing.T) {
	ts := newTestServer(t, func(o *Options) {
		o.DownloadPerMinute = 1
		o.DownloadBurst = 3
	})
	token, _ := ts.signup(t, "jane")
	book := ts.createBook(t, token, "Dune", "Frank Herbert", "Science Fiction")

	for range 3 {
		require.Equal(t, http.StatusOK, ts.api.Put("/api/v1/books/"+book.ID+"/download").Code)
	}
	requireError(t, ts.api.Put("/api/v1/books/"+book.ID+"/download"), http.StatusTooManyRequests, "RATE_LIMITED")

	resp := ts.api.Get("/api/v1/books/" + book.ID)
	assert.Equal(t, int64(3), decode[*domain.Book](t, resp).Data.DownloadCount)
}

func TestArchive(t *testing.T) {
	ts := newTestServer(t)
	token, _ := ts.signup(t, "jane")
	dune := ts.createBook(t, token, "Dune", "Frank Herbert", "Science Fiction")
	hobbit := ts.createBook(t, token, "The Hobbit", "J.R.R. Tolkien", "Fantasy")

	resp := ts.api.Post("/api/v1/books/"+hobbit.ID+"/archive", bearerHeader(token))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, dto.ArchiveResponse{Archived: true}, decode[dto.ArchiveResponse](t, resp).Data)

	resp = ts.api.Post("/api/v1/books/"+hobbit.ID+"/archive", bearerHeader(token))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, dto.ArchiveResponse{Archived: true, AlreadyArchived: true}, decode[dto.ArchiveResponse](t, resp).Data)

	require.Equal(t, http.StatusOK, ts.api.Post("/api/v1/books/"+dune.ID+"/archive", bearerHeader(token)).Code)

	resp = ts.api.Get("/api/v1/books/archived", bearerHeader(token))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, []string{"The Hobbit", "Dune"}, titlesOf(decode[[]*domain.Book](t, resp).Data))

	resp = ts.api.Delete("/api/v1/books/"+hobbit.ID+"/archive", bearerHeader(token))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.False(t, decode[dto.ArchiveResponse](t, resp).Data.Archived)

	resp = ts.api.Get("/api/v1/books/archived", bearerHeader(token))
	assert.Equal(t, []string{"Dune"}, titlesOf(decode[[]*domain.Book](t, resp).Data))

	requireError(t, ts.api.Post("/api/v1/books/missing/archive", bearerHeader(token)), http.StatusNotFound, "NOT_FOUND")
	requireError(t, ts.api.Get("/api/v1/books/archived"), http.StatusUnauthorized, "UNAUTHORIZED")
}

func TestRecentlyVisited_Access(t *testing.T) {
	ts := newTestServer(t)
	janeToken, jane := ts.signup(t, "jane")
	bobToken, _ := ts.signup(t, "bob")
	adminToken, _ := ts.admin(t, "moderator")

	var ids []string
	for i := range 3 {
		b := ts.createBook(t, janeToken, fmt.Sprintf("Book %d", i), "Author", "drama")
		ids = append(ids, b.ID)
	}
	for _, id := range []string{ids[0], ids[1], ids[2], ids[0]} {
		require.Equal(t, http.StatusOK, ts.api.Get("/api/v1/books/"+id, bearerHeader(janeToken)).Code)
	}

	resp := ts.api.Get("/api/v1/users/me/recently-visited", bearerHeader(janeToken))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	visited := decode[[]service.VisitedBook](t, resp).Data
	got := make([]string, 0, len(visited))
	for _, v := range visited {
		got = append(got, v.Book.ID)
	}
	assert.Equal(t, []string{ids[0], ids[2], ids[1]}, got)

	requireError(t, ts.api.Get("/api/v1/users/"+jane.ID+"/recently-visited", bearerHeader(bobToken)),
		http.StatusForbidden, "FORBIDDEN")

	resp = ts.api.Get("/api/v1/users/"+jane.ID+"/recently-visited", bearerHeader(adminToken))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Len(t, decode[[]service.VisitedBook](t, resp).Data, 3)
}
