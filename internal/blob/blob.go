// Package blob stores uploaded book files and cover images.
//
// Two backends exist: a local directory served by the API under /files/,
// and an S3-compatible bucket. Both hand back a public URL that is written
// into the book document, and both accept that URL again for deletion.
package blob

import (
	"context"
	"io"
	"path"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// Object describes a stored blob.
type Object struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

// Store is a blob backend.
type Store interface {
	// Upload writes body under a fresh key derived from name.
	Upload(ctx context.Context, name, contentType string, body io.Reader) (Object, error)
	// Delete removes the blob behind url. Missing blobs and URLs the
	// backend does not own are not an error.
	Delete(ctx context.Context, url string) error
}

const (
	keyPrefix   = "books/"
	maxBaseName = 64
)

// ObjectKey builds a collision-free key of the form books/<uuid>-<base>.<ext>.
func ObjectKey(name string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	ext := strings.ToLower(path.Ext(name))
	base := sanitize(strings.TrimSuffix(name, path.Ext(name)))

	key := keyPrefix + uuid.NewString()
	if base != "" {
		key += "-" + base
	}
	return key + sanitizeExt(ext)
}

func sanitize(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range s {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_') {
			b.WriteRune(unicode.ToLower(r))
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimRight(b.String(), "-")
	if len(out) > maxBaseName {
		out = strings.TrimRight(out[:maxBaseName], "-")
	}
	return out
}

func sanitizeExt(ext string) string {
	if len(ext) < 2 || len(ext) > 8 {
		return ""
	}
	if s := sanitize(ext[1:]); s == ext[1:] {
		return ext
	}
	return ""
}

// keyFromURL strips base from url. ok is false if url is not under base.
func keyFromURL(base, url string) (string, bool) {
	base = strings.TrimRight(base, "/") + "/"
	key, ok := strings.CutPrefix(url, base)
	if !ok || key == "" || strings.Contains(key, "..") {
		return "", false
	}
	return key, true
}
