package api

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	domainerrors "github.com/inkcircle/inkcircle-server/internal/errors"
	"github.com/inkcircle/inkcircle-server/internal/genre"
	"github.com/inkcircle/inkcircle-server/internal/service"
)

// authCookie carries the access token for browser clients.
func (s *Server) authCookie(token string, ttl time.Duration) http.Cookie {
	return http.Cookie{
		Name:     s.opts.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   s.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

// clearedAuthCookie expires the auth cookie immediately.
func (s *Server) clearedAuthCookie() http.Cookie {
	return http.Cookie{
		Name:     s.opts.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

// bookForm reads a multipart book submission. Every opened file is
// registered with the returned closer.
type bookForm struct {
	form  *multipart.Form
	files []multipart.File
}

func newBookForm(form *multipart.Form) *bookForm {
	return &bookForm{form: form}
}

// value returns the first value of a text field and whether it was sent.
func (f *bookForm) value(key string) (string, bool) {
	if f.form == nil {
		return "", false
	}
	vals, ok := f.form.Value[key]
	if !ok || len(vals) == 0 {
		return "", false
	}
	return vals[0], true
}

func (f *bookForm) optional(key string) *string {
	v, ok := f.value(key)
	if !ok {
		return nil
	}
	return &v
}

// genres accepts repeated fields, comma-separated values, or both.
func (f *bookForm) genres() ([]string, bool) {
	if f.form == nil {
		return nil, false
	}
	vals, ok := f.form.Value["genres"]
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		out = append(out, genre.ParseList(v)...)
	}
	return out, true
}

// file opens the named file part, or returns nil when it was not sent.
func (f *bookForm) file(key string) (*service.FileUpload, error) {
	if f.form == nil {
		return nil, nil
	}
	headers := f.form.File[key]
	if len(headers) == 0 {
		return nil, nil
	}
	if len(headers) > 1 {
		return nil, domainerrors.ValidationWithDetails("only one file per field is allowed",
			map[string]string{key: "must contain a single file"})
	}

	fh := headers[0]
	body, err := fh.Open()
	if err != nil {
		return nil, domainerrors.Validation("unreadable upload").WithCause(err)
	}
	f.files = append(f.files, body)

	return &service.FileUpload{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Body:        body,
	}, nil
}

// Close releases opened parts and any temporary files of the form.
func (f *bookForm) Close() error {
	var errs []error
	for _, file := range f.files {
		errs = append(errs, file.Close())
	}
	if f.form != nil {
		errs = append(errs, f.form.RemoveAll())
	}
	return errors.Join(errs...)
}

func (f *bookForm) createInput() (service.CreateBookInput, error) {
	in := service.CreateBookInput{}
	in.Title, _ = f.value("title")
	in.Author, _ = f.value("author")
	in.Description, _ = f.value("description")
	in.Genres, _ = f.genres()
	in.FileURL, _ = f.value("fileUrl")
	in.FileName, _ = f.value("fileName")
	in.CoverImageURL, _ = f.value("coverImageUrl")

	var err error
	if in.File, err = f.file("file"); err != nil {
		return in, err
	}
	if in.Cover, err = f.file("coverImage"); err != nil {
		return in, err
	}
	return in, nil
}

func (f *bookForm) updateInput() (service.UpdateBookInput, error) {
	in := service.UpdateBookInput{
		Title:         f.optional("title"),
		Author:        f.optional("author"),
		Description:   f.optional("description"),
		CoverImageURL: f.optional("coverImageUrl"),
	}
	if genres, ok := f.genres(); ok {
		if len(genres) == 0 {
			return in, domainerrors.ValidationWithDetails("genres cannot be empty",
				map[string]string{"genres": "must contain at least 1 item"})
		}
		in.Genres = genres
	}

	var err error
	if in.File, err = f.file("file"); err != nil {
		return in, err
	}
	if in.Cover, err = f.file("coverImage"); err != nil {
		return in, err
	}
	return in, nil
}

// parseOptionalBool reads a tri-state query flag.
func parseOptionalBool(field, raw string) (*bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return nil, nil
	case "true", "1", "yes":
		v := true
		return &v, nil
	case "false", "0", "no":
		v := false
		return &v, nil
	default:
		return nil, domainerrors.ValidationWithDetails("invalid "+field,
			map[string]string{field: "must be true or false"})
	}
}
