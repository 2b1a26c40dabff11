package api

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkcircle/inkcircle-server/internal/api/dto"
	"github.com/inkcircle/inkcircle-server/internal/domain"
	"github.com/inkcircle/inkcircle-server/internal/service"
)

func titlesOf(books []*domain.Book) []string {
	out := make([]string, 0, len(books))
	for _, b := range books {
		out = append(out, b.Title)
	}
	return out
}

func TestCreateBook_MultipartUpload(t *testing.T) {
	ts := newTestServer(t)
	token, user := ts.signup(t, "jane")

	ct, body := multipartRequest(t,
		map[string][]string{
			"title":       {"  The Hobbit "},
			"author":      {"J.R.R. Tolkien"},
			"description": {"There and back again"},
			"genres":      {"Fantasy, Adventures", "Classics"},
		},
		formFile{field: "file", name: "hobbit.pdf", contentType: "application/pdf", body: testPDF},
		formFile{field: "coverImage", name: "cover.png", contentType: "image/png", body: testPNG},
	)
	resp := ts.api.Post("/api/v1/books", bearerHeader(token), ct, body)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	book := decode[*domain.Book](t, resp).Data
	assert.NotEmpty(t, book.ID)
	assert.Equal(t, "J.R.R. Tolkien", book.Author)
	assert.Equal(t, user.ID, book.UploaderID)
	assert.Equal(t, []string{"fantasy", "adventure", "classic"}, book.Genres)
	assert.Equal(t, "hobbit.pdf", book.FileName)
	assert.Equal(t, "pdf", book.FileType)
	assert.False(t, book.Approved)
	assert.Empty(t, book.Likes)
	assert.Empty(t, book.Comments)
	require.True(t, strings.HasPrefix(book.FileURL, testBlobBase+"/"), book.FileURL)
	require.True(t, strings.HasPrefix(book.CoverImageURL, testBlobBase+"/"), book.CoverImageURL)

	// The blob is served back under /files.
	served := ts.api.Get(strings.TrimPrefix(book.FileURL, "http://localhost:8080"))
	require.Equal(t, http.StatusOK, served.Code)
	assert.Equal(t, testPDF, served.Body.String())
}

func TestCreateBook_FromURL(t *testing.T) {
	ts := newTestServer(t)
	token, _ := ts.signup(t, "jane")

	book := ts.createBook(t, token, "Dune", "Frank Herbert", "Science Fiction")

	assert.Equal(t, "https://cdn.example.com/dune.pdf", book.FileURL)
	assert.Equal(t, "dune.pdf", book.FileName)
	assert.Equal(t, "pdf", book.FileType)
}

func TestCreateBook_Rejects(t *testing.T) {
	ts := newTestServer(t)
	token, _ := ts.signup(t, "jane")

	tests := []struct {
		name   string
		fields map[string][]string
		files  []formFile
		field  string
	}{
		{
			name:   "no file or url",
			fields: map[string][]string{"title": {"T"}, "author": {"A"}, "genres": {"drama"}},
			field:  "file",
		},
		{
			name:   "missing genres",
			fields: map[string][]string{"title": {"T"}, "author": {"A"}, "fileUrl": {"https://cdn.example.com/t.pdf"}},
			field:  "genres",
		},
		{
			name:   "blank title",
			fields: map[string][]string{"title": {"   "}, "author": {"A"}, "genres": {"drama"}, "fileUrl": {"https://cdn.example.com/t.pdf"}},
			field:  "title",
		},
		{
			name:   "unsupported type",
			fields: map[string][]string{"title": {"T"}, "author": {"A"}, "genres": {"drama"}},
			files:  []formFile{{field: "file", name: "virus.exe", contentType: "application/octet-stream", body: "MZ"}},
			field:  "file",
		},
		{
			name:   "html disguised as pdf",
			fields: map[string][]string{"title": {"T"}, "author": {"A"}, "genres": {"drama"}},
			files:  []formFile{{field: "file", name: "evil.html", contentType: "application/pdf", body: "<html><script>alert(1)</script></html>"}},
			field:  "file",
		},
		{
			name:   "cover that is not an image",
			fields: map[string][]string{"title": {"T"}, "author": {"A"}, "genres": {"drama"}, "fileUrl": {"https://cdn.example.com/t.pdf"}},
			files:  []formFile{{field: "coverImage", name: "c.png", contentType: "image/png", body: "not a png at all"}},
			field:  "coverImage",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ct, body := multipartRequest(t, tt.fields, tt.files...)
			resp := ts.api.Post("/api/v1/books", bearerHeader(token), ct, body)

			apiErr := requireError(t, resp, http.StatusBadRequest, "VALIDATION")
			details, ok := apiErr.Details.(map[string]any)
			require.True(t, ok, "details: %#v", apiErr.Details)
			assert.Contains(t, details, tt.field)
		})
	}
}

func TestCreateBook_RequiresAuth(t *testing.T) {
	ts := newTestServer(t)

	ct, body := multipartRequest(t, map[string][]string{
		"title": {"T"}, "author": {"A"}, "genres": {"drama"}, "fileUrl": {"https://cdn.example.com/t.pdf"},
	})
	requireError(t, ts.api.Post("/api/v1/books", ct, body), http.StatusUnauthorized, "UNAUTHORIZED")
}

func TestListBooks_Filters(t *testing.T) {
	ts := newTestServer(t)
	token, _ := ts.signup(t, "jane")

	hobbit := ts.createBook(t, token, "The Hobbit", "J.R.R. Tolkien", "Fantasy")
	ts.createBook(t, token, "Dune", "Frank Herbert", "Science Fiction")
	watchmen := ts.createBook(t, token, "Watchmen", "Alan Moore", "Comics")
	ts.approve(t, hobbit.ID)
	ts.approve(t, watchmen.ID)

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{name: "all newest first", query: "", want: []string{"Watchmen", "Dune", "The Hobbit"}},
		{name: "search title", query: "?search=hob", want: []string{"The Hobbit"}},
		{name: "search genre", query: "?search=comic", want: []string{"Watchmen"}},
		{name: "exact title", query: "?title=Dune", want: []string{"Dune"}},
		{name: "author substring", query: "?author=moore", want: []string{"Watchmen"}},
		{name: "genres any", query: "?genres=Fantasy,comics", want: []string{"Watchmen", "The Hobbit"}},
		{name: "approved only", query: "?approved=true", want: []string{"Watchmen", "The Hobbit"}},
		{name: "pending only", query: "?approved=false", want: []string{"Dune"}},
		{name: "no match", query: "?title=dune", want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.api.Get("/api/v1/books" + tt.query)
			require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
			assert.Equal(t, tt.want, titlesOf(decode[[]*domain.Book](t, resp).Data))
		})
	}

	requireError(t, ts.api.Get("/api/v1/books?approved=maybe"), http.StatusBadRequest, "VALIDATION")
}

func TestGetBook_RecordsVisitForAuthenticatedCaller(t *testing.T) {
	ts := newTestServer(t)
	token, user := ts.signup(t, "jane")
	book := ts.createBook(t, token, "Dune", "Frank Herbert", "Science Fiction")

	// Anonymous reads work and leave no trace.
	resp := ts.api.Get("/api/v1/books/" + book.ID)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "Dune", decode[*domain.Book](t, resp).Data.Title)

	resp = ts.api.Get("/api/v1/books/"+book.ID, bearerHeader(token))
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Get("/api/v1/users/"+user.ID+"/recently-visited", bearerHeader(token))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	visited := decode[[]service.VisitedBook](t, resp).Data
	require.Len(t, visited, 1)
	assert.Equal(t, book.ID, visited[0].Book.ID)

	requireError(t, ts.api.Get("/api/v1/books/missing"), http.StatusNotFound, "NOT_FOUND")
}

func TestUpdateBook_OwnerOnly(t *testing.T) {
	ts := newTestServer(t)
	ownerToken, _ := ts.signup(t, "owner")
	otherToken, _ := ts.signup(t, "other")
	book := ts.createBook(t, ownerToken, "Dune", "Frank Herbert", "Science Fiction")

	ct, body := multipartRequest(t, map[string][]string{"title": {"Dune Messiah"}})
	requireError(t, ts.api.Patch("/api/v1/books/"+book.ID, bearerHeader(otherToken), ct, body), http.StatusForbidden, "FORBIDDEN")

	ct, body = multipartRequest(t, map[string][]string{"title": {"Dune Messiah"}, "genres": {"classics"}})
	resp := ts.api.Patch("/api/v1/books/"+book.ID, bearerHeader(ownerToken), ct, body)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	updated := decode[*domain.Book](t, resp).Data
	assert.Equal(t, "Dune Messiah", updated.Title)
	assert.Equal(t, "Frank Herbert", updated.Author)
	assert.Equal(t, []string{"classic"}, updated.Genres)
}

func TestUpdateBook_ReplacesFile(t *testing.T) {
	ts := newTestServer(t)
	token, _ := ts.signup(t, "jane")

	ct, body := multipartRequest(t,
		map[string][]string{"title": {"Notes"}, "author": {"Jane"}, "genres": {"essay"}},
		formFile{field: "file", name: "v1.pdf", contentType: "application/pdf", body: testPDF},
	)
	resp := ts.api.Post("/api/v1/books", bearerHeader(token), ct, body)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	original := decode[*domain.Book](t, resp).Data

	ct, body = multipartRequest(t, nil,
		formFile{field: "file", name: "v2.pdf", contentType: "application/pdf", body: testPDF + "% v2\n"},
	)
	resp = ts.api.Patch("/api/v1/books/"+original.ID, bearerHeader(token), ct, body)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	updated := decode[*domain.Book](t, resp).Data

	assert.NotEqual(t, original.FileURL, updated.FileURL)
	assert.Equal(t, "v2.pdf", updated.FileName)
	assert.Equal(t, http.StatusNotFound, fetchBlob(ts, original.FileURL).Code)

	served := fetchBlob(ts, updated.FileURL)
	require.Equal(t, http.StatusOK, served.Code)
	got, _ := io.ReadAll(served.Body)
	assert.Equal(t, testPDF+"% v2\n", string(got))
}

func TestDeleteBook(t *testing.T) {
	ts := newTestServer(t)
	ownerToken, _ := ts.signup(t, "owner")
	otherToken, _ := ts.signup(t, "other")
	book := ts.createBook(t, ownerToken, "Dune", "Frank Herbert", "Science Fiction")

	requireError(t, ts.api.Delete("/api/v1/books/"+book.ID, bearerHeader(otherToken)), http.StatusForbidden, "FORBIDDEN")

	resp := ts.api.Delete("/api/v1/books/"+book.ID, bearerHeader(ownerToken))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, "book deleted", decode[dto.MessageResponse](t, resp).Data.Message)

	requireError(t, ts.api.Get("/api/v1/books/"+book.ID), http.StatusNotFound, "NOT_FOUND")
}

func fetchBlob(ts *testServer, url string) *httptest.ResponseRecorder {
	return ts.api.Get(strings.TrimPrefix(url, "http://localhost:8080"))
}
