package api

import (
	"bytes"
	"context"
	"encoding/json/v2"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/require"

	"github.com/inkcircle/inkcircle-server/internal/api/dto"
	"github.com/inkcircle/inkcircle-server/internal/auth"
	"github.com/inkcircle/inkcircle-server/internal/blob"
	"github.com/inkcircle/inkcircle-server/internal/domain"
	"github.com/inkcircle/inkcircle-server/internal/metrics"
	"github.com/inkcircle/inkcircle-server/internal/service"
	"github.com/inkcircle/inkcircle-server/internal/store"
	"github.com/inkcircle/inkcircle-server/internal/store/badgerdb"
	"github.com/inkcircle/inkcircle-server/internal/validation"
)

const (
	testPassword = "correct-horse-battery"
	testBlobBase = "http://localhost:8080/files"
)

type testServer struct {
	server  *Server
	api     humatest.TestAPI
	store   store.Store
	blobs   *blob.Local
	metrics *metrics.Metrics
}

// testEnvelope mirrors APIEnvelope with a typed data member.
type testEnvelope[T any] struct {
	Version int            `json:"v"`
	Success bool           `json:"success"`
	Data    T              `json:"data"`
	Error   *EnvelopeError `json:"error"`
}

func newTestServer(t *testing.T, tweaks ...func(*Options)) *testServer {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New()

	st, err := badgerdb.New("", logger, badgerdb.Options{
		InMemory:    true,
		MaxAttempts: 64,
		OnConflict:  m.StoreConflict,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	blobs, err := blob.NewLocal(t.TempDir(), testBlobBase, logger)
	require.NoError(t, err)

	tokens, err := auth.NewTokenService(strings.Repeat("cd", 32), time.Hour)
	require.NoError(t, err)

	v := validation.New()
	interactions := service.NewInteractionService(st, m, logger)
	books := service.NewBookService(st, blobs, v, m, logger, 1<<20)
	services := &Services{
		Auth:         service.NewAuthService(st, tokens, v, logger),
		Catalog:      service.NewCatalogService(st, interactions, logger),
		Books:        books,
		Interactions: interactions,
		Users:        service.NewUserService(st, books, interactions, v, logger),
		Admin:        service.NewAdminService(st, books, v, logger),
	}

	opts := Options{
		Version:           "test",
		MaxUploadBytes:    1 << 20,
		AuthPerMinute:     6000,
		AuthBurst:         1000,
		DownloadPerMinute: 6000,
		DownloadBurst:     1000,
	}
	for _, tweak := range tweaks {
		tweak(&opts)
	}

	s := NewServer(services, st, blobs.Handler(), m, opts, logger)
	t.Cleanup(s.Close)

	return &testServer{
		server:  s,
		api:     humatest.Wrap(t, s.API()),
		store:   st,
		blobs:   blobs,
		metrics: m,
	}
}

func decode[T any](t *testing.T, resp *httptest.ResponseRecorder) testEnvelope[T] {
	t.Helper()
	var env testEnvelope[T]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env), "body: %s", resp.Body.String())
	require.Equal(t, EnvelopeVersion, env.Version)
	return env
}

// requireError asserts an error envelope with the given status and code.
func requireError(t *testing.T, resp *httptest.ResponseRecorder, status int, code string) *EnvelopeError {
	t.Helper()
	require.Equal(t, status, resp.Code, "body: %s", resp.Body.String())
	env := decode[any](t, resp)
	require.False(t, env.Success)
	require.NotNil(t, env.Error)
	require.Equal(t, code, env.Error.Code)
	return env.Error
}

func bearerHeader(token string) string {
	return "Authorization: Bearer " + token
}

// signup registers a user through the API and returns its token.
func (ts *testServer) signup(t *testing.T, username string) (string, dto.User) {
	t.Helper()
	resp := ts.api.Post("/api/v1/auth/signup", map[string]any{
		"username": username,
		"email":    username + "@example.com",
		"password": testPassword,
	})
	require.Equal(t, http.StatusCreated, resp.Code, "body: %s", resp.Body.String())

	env := decode[dto.AuthResponse](t, resp)
	return env.Data.Token, env.Data.User
}

// admin registers a user and promotes it in the store.
func (ts *testServer) admin(t *testing.T, username string) (string, dto.User) {
	t.Helper()
	token, user := ts.signup(t, username)
	_, err := ts.store.UpdateUser(context.Background(), user.ID, func(u *domain.User) error {
		u.Role = domain.RoleAdmin
		return nil
	})
	require.NoError(t, err)
	return token, user
}

// Minimal bodies that content sniffing recognizes.
const (
	testPDF = "%PDF-1.7\n1 0 obj\n<< /Type /Catalog >>\nendobj\n"
	testPNG = "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01"
)

type formFile struct {
	field, name, contentType, body string
}

// multipartRequest builds a body and the matching Content-Type header for humatest.
func multipartRequest(t *testing.T, fields map[string][]string, files ...formFile) (string, io.Reader) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for key, vals := range fields {
		for _, v := range vals {
			require.NoError(t, w.WriteField(key, v))
		}
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+f.field+`"; filename="`+f.name+`"`)
		h.Set("Content-Type", f.contentType)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = io.WriteString(part, f.body)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	return "Content-Type: " + w.FormDataContentType(), &buf
}

// createBook publishes a book from a URL and returns it.
func (ts *testServer) createBook(t *testing.T, token, title, author string, genres ...string) *domain.Book {
	t.Helper()
	ct, body := multipartRequest(t, map[string][]string{
		"title":   {title},
		"author":  {author},
		"genres":  genres,
		"fileUrl": {"https://cdn.example.com/" + strings.ReplaceAll(strings.ToLower(title), " ", "-") + ".pdf"},
	})
	resp := ts.api.Post("/api/v1/books", bearerHeader(token), ct, body)
	require.Equal(t, http.StatusCreated, resp.Code, "body: %s", resp.Body.String())
	return decode[*domain.Book](t, resp).Data
}

func (ts *testServer) approve(t *testing.T, bookID string) {
	t.Helper()
	_, err := ts.store.UpdateBook(context.Background(), bookID, func(b *domain.Book) error {
		b.Approved = true
		return nil
	})
	require.NoError(t, err)
}
