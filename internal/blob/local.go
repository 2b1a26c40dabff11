package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Local stores blobs in a directory on disk.
type Local struct {
	root    string
	baseURL string
	logger  *slog.Logger
}

// NewLocal creates the root directory if needed. baseURL is the public
// prefix blobs are served under, e.g. http://localhost:8080/files.
func NewLocal(root, baseURL string, logger *slog.Logger) (*Local, error) {
	if root == "" {
		return nil, fmt.Errorf("blob root cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create blob directory: %w", err)
	}
	return &Local{
		root:    root,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}, nil
}

// Upload implements Store.
func (l *Local) Upload(ctx context.Context, name, _ string, body io.Reader) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}

	key := ObjectKey(name)
	path := l.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return Object{}, fmt.Errorf("failed to create blob directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return Object{}, fmt.Errorf("failed to create blob file: %w", err)
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		os.Remove(path)
		return Object{}, fmt.Errorf("failed to write blob file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return Object{}, fmt.Errorf("failed to close blob file: %w", err)
	}

	l.logger.Debug("blob stored", "key", key)
	return Object{URL: l.baseURL + "/" + key, Key: key}, nil
}

// Delete implements Store.
func (l *Local) Delete(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key, ok := keyFromURL(l.baseURL, url)
	if !ok {
		return nil
	}
	if err := os.Remove(l.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete blob file: %w", err)
	}
	return nil
}

// Handler serves stored blobs. Mount it with http.StripPrefix. Browsers are
// told not to second-guess the type derived from the key's extension.
func (l *Local) Handler() http.Handler {
	files := http.FileServerFS(os.DirFS(l.root))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		files.ServeHTTP(w, r)
	})
}

func (l *Local) path(key string) string {
	return filepath.Join(l.root, filepath.FromSlash(key))
}
