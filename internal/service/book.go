package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"go.opentelemetry.io/otel/attribute"

	"github.com/inkcircle/inkcircle-server/internal/auth"
	"github.com/inkcircle/inkcircle-server/internal/blob"
	"github.com/inkcircle/inkcircle-server/internal/domain"
	domainerrors "github.com/inkcircle/inkcircle-server/internal/errors"
	"github.com/inkcircle/inkcircle-server/internal/genre"
	"github.com/inkcircle/inkcircle-server/internal/id"
	"github.com/inkcircle/inkcircle-server/internal/metrics"
	"github.com/inkcircle/inkcircle-server/internal/store"
	"github.com/inkcircle/inkcircle-server/internal/validation"
)

// DefaultMaxUploadBytes is the per-file size limit when none is configured.
const DefaultMaxUploadBytes = 25 << 20

// sniffLen is how much of an upload is read to detect its type.
const sniffLen = 3072

// File types accepted for uploads, keyed by MIME type.
var fileTypes = map[string]string{
	"application/pdf":    "pdf",
	"application/msword": "doc",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": "docx",
	"image/jpeg": "jpeg",
	"image/png":  "png",
}

var extensionTypes = map[string]string{
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

// FileUpload is one uploaded part of a create or update request.
type FileUpload struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// CreateBookInput describes a new book. Either File or FileURL must be set;
// Cover and CoverImageURL are both optional.
type CreateBookInput struct {
	Title         string   `json:"title" validate:"notblank,max=300"`
	Author        string   `json:"author" validate:"notblank,max=200"`
	Description   string   `json:"description" validate:"max=5000"`
	Genres        []string `json:"genres" validate:"min=1,max=20,dive,notblank"`
	FileURL       string   `json:"fileUrl" validate:"omitempty,http_url"`
	FileName      string   `json:"fileName" validate:"max=255"`
	CoverImageURL string   `json:"coverImageUrl" validate:"omitempty,http_url"`

	File  *FileUpload `json:"-"`
	Cover *FileUpload `json:"-"`
}

// UpdateBookInput carries the fields to change. Nil fields are left alone.
type UpdateBookInput struct {
	Title         *string  `json:"title" validate:"omitnil,notblank,max=300"`
	Author        *string  `json:"author" validate:"omitnil,notblank,max=200"`
	Description   *string  `json:"description" validate:"omitempty,max=5000"`
	Genres        []string `json:"genres" validate:"omitempty,min=1,max=20,dive,notblank"`
	CoverImageURL *string  `json:"coverImageUrl" validate:"omitempty,http_url"`

	File  *FileUpload `json:"-"`
	Cover *FileUpload `json:"-"`
}

// BookService publishes, edits and removes books and their blobs.
type BookService struct {
	store          store.Store
	blobs          blob.Store
	validator      *validation.Validator
	metrics        *metrics.Metrics
	logger         *slog.Logger
	maxUploadBytes int64
}

// NewBookService creates a new book service.
func NewBookService(
	store store.Store,
	blobs blob.Store,
	validator *validation.Validator,
	m *metrics.Metrics,
	logger *slog.Logger,
	maxUploadBytes int64,
) *BookService {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &BookService{
		store:          store,
		blobs:          blobs,
		validator:      validator,
		metrics:        m,
		logger:         logger,
		maxUploadBytes: maxUploadBytes,
	}
}

// CreateBook stores a new, unapproved book owned by the caller.
func (s *BookService) CreateBook(ctx context.Context, caller auth.Identity, in CreateBookInput) (book *domain.Book, err error) {
	ctx, span := startSpan(ctx, "BookService.CreateBook", attribute.String("user.id", caller.UserID))
	defer func() { finishSpan(span, err) }()

	if caller.UserID == "" {
		return nil, domainerrors.Unauthorized("authentication required")
	}
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}
	if in.File == nil && in.FileURL == "" {
		return nil, domainerrors.ValidationWithDetails("a book file is required",
			map[string]string{"file": "is required"})
	}

	genres, err := genre.NormalizeAll(in.Genres)
	if err != nil {
		return nil, err
	}

	bookID, err := id.Generate(id.Book)
	if err != nil {
		return nil, fmt.Errorf("generate book id: %w", err)
	}

	book = &domain.Book{
		Title:         strings.TrimSpace(in.Title),
		Author:        strings.TrimSpace(in.Author),
		Description:   strings.TrimSpace(in.Description),
		Genres:        genres,
		CoverImageURL: in.CoverImageURL,
		FileURL:       in.FileURL,
		FileName:      in.FileName,
		FileType:      typeFromName(in.FileURL),
		UploaderID:    caller.UserID,
		Likes:         []string{},
		Comments:      []domain.Comment{},
	}
	book.ID = bookID
	book.InitTimestamps()
	if book.FileName == "" && in.FileURL != "" {
		book.FileName = path.Base(in.FileURL)
	}

	var uploaded []string
	if in.File != nil {
		obj, fileType, err := s.upload(ctx, in.File, false)
		if err != nil {
			return nil, err
		}
		uploaded = append(uploaded, obj.URL)
		book.FileURL = obj.URL
		book.FileName = in.File.Name
		book.FileType = fileType
	}
	if in.Cover != nil {
		obj, _, err := s.upload(ctx, in.Cover, true)
		if err != nil {
			s.deleteBlobs(ctx, uploaded...)
			return nil, err
		}
		uploaded = append(uploaded, obj.URL)
		book.CoverImageURL = obj.URL
	}

	if err := s.store.CreateBook(ctx, book); err != nil {
		s.deleteBlobs(ctx, uploaded...)
		return nil, storeError(err, msgBookNotFound)
	}

	s.logger.Info("book created", "book_id", book.ID, "uploader_id", caller.UserID)
	return book, nil
}

// UpdateBook applies in to a book owned by the caller. Replacing a file
// deletes the old blob before uploading the new one.
func (s *BookService) UpdateBook(ctx context.Context, caller auth.Identity, bookID string, in UpdateBookInput) (book *domain.Book, err error) {
	ctx, span := startSpan(ctx, "BookService.UpdateBook",
		attribute.String("book.id", bookID),
		attribute.String("user.id", caller.UserID),
	)
	defer func() { finishSpan(span, err) }()

	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}

	var genres []string
	if in.Genres != nil {
		if genres, err = genre.NormalizeAll(in.Genres); err != nil {
			return nil, err
		}
	}

	current, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		return nil, storeError(err, msgBookNotFound)
	}
	if !current.IsOwnedBy(caller.UserID) {
		return nil, domainerrors.Forbidden("only the uploader can edit this book")
	}

	var file, cover *blob.Object
	var fileType string
	if in.File != nil {
		if err := s.replaceBlob(ctx, current.FileURL); err != nil {
			return nil, err
		}
		obj, ft, err := s.upload(ctx, in.File, false)
		if err != nil {
			return nil, err
		}
		file, fileType = &obj, ft
	}
	if in.Cover != nil {
		if err := s.replaceBlob(ctx, current.CoverImageURL); err != nil {
			return nil, err
		}
		obj, _, err := s.upload(ctx, in.Cover, true)
		if err != nil {
			return nil, err
		}
		cover = &obj
	}

	book, err = s.store.UpdateBook(ctx, bookID, func(b *domain.Book) error {
		if in.Title != nil {
			b.Title = strings.TrimSpace(*in.Title)
		}
		if in.Author != nil {
			b.Author = strings.TrimSpace(*in.Author)
		}
		if in.Description != nil {
			b.Description = strings.TrimSpace(*in.Description)
		}
		if genres != nil {
			b.Genres = genres
		}
		if in.CoverImageURL != nil {
			b.CoverImageURL = *in.CoverImageURL
		}
		if file != nil {
			b.FileURL = file.URL
			b.FileName = in.File.Name
			b.FileType = fileType
		}
		if cover != nil {
			b.CoverImageURL = cover.URL
		}
		b.Touch()
		return nil
	})
	if err != nil {
		return nil, storeError(err, msgBookNotFound)
	}

	s.logger.Info("book updated", "book_id", bookID, "user_id", caller.UserID)
	return book, nil
}

// DeleteBook removes a book owned by the caller along with its blobs.
func (s *BookService) DeleteBook(ctx context.Context, caller auth.Identity, bookID string) error {
	book, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		return storeError(err, msgBookNotFound)
	}
	if !book.IsOwnedBy(caller.UserID) {
		return domainerrors.Forbidden("only the uploader can delete this book")
	}
	return s.remove(ctx, book)
}

// ListUploads returns the books uploaded by userID, newest first.
func (s *BookService) ListUploads(ctx context.Context, userID string) ([]*domain.Book, error) {
	books, err := s.store.ListBooksByUploader(ctx, userID)
	if err != nil {
		return nil, storeError(err, msgBookNotFound)
	}
	sortNewestFirst(books)
	return books, nil
}

// RemoveBook deletes any book regardless of owner. Used by moderation.
func (s *BookService) RemoveBook(ctx context.Context, bookID string) error {
	book, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		return storeError(err, msgBookNotFound)
	}
	return s.remove(ctx, book)
}

// RemoveUploads deletes every book uploaded by userID and returns how many
// were removed. On error the count covers the books deleted before it.
func (s *BookService) RemoveUploads(ctx context.Context, userID string) (int, error) {
	books, err := s.store.ListBooksByUploader(ctx, userID)
	if err != nil {
		return 0, storeError(err, msgBookNotFound)
	}
	for i, b := range books {
		if err := s.remove(ctx, b); err != nil {
			return i, err
		}
	}
	return len(books), nil
}

// remove deletes the document first; blob cleanup is best effort.
func (s *BookService) remove(ctx context.Context, book *domain.Book) error {
	if err := s.store.DeleteBook(ctx, book.ID); err != nil {
		return storeError(err, msgBookNotFound)
	}
	s.deleteBlobs(ctx, book.FileURL, book.CoverImageURL)
	s.logger.Info("book deleted", "book_id", book.ID, "uploader_id", book.UploaderID)
	return nil
}

func (s *BookService) upload(ctx context.Context, f *FileUpload, image bool) (blob.Object, string, error) {
	field := "file"
	if image {
		field = "coverImage"
	}
	if f.Size > s.maxUploadBytes {
		return blob.Object{}, "", domainerrors.ValidationWithDetails("upload too large",
			map[string]string{field: fmt.Sprintf("must not exceed %d bytes", s.maxUploadBytes)})
	}

	contentType, err := sniffContentType(f)
	if err != nil {
		return blob.Object{}, "", domainerrors.ValidationWithDetails("unsupported file type",
			map[string]string{field: err.Error()})
	}
	fileType := fileTypes[contentType]
	if image && !strings.HasPrefix(contentType, "image/") {
		return blob.Object{}, "", domainerrors.ValidationWithDetails("unsupported file type",
			map[string]string{field: "must be a jpeg or png image"})
	}

	body := io.LimitReader(f.Body, s.maxUploadBytes+1)
	obj, err := s.blobs.Upload(ctx, storedName(f.Name, fileType), contentType, body)
	if err != nil {
		s.metrics.BlobFailure("upload")
		s.logger.Error("blob upload failed", "name", f.Name, "error", err)
		return blob.Object{}, "", domainerrors.Upstream("failed to store upload", err)
	}
	return obj, fileType, nil
}

// replaceBlob deletes the blob about to be replaced. A failure aborts the
// update so a dangling reference is never written.
func (s *BookService) replaceBlob(ctx context.Context, url string) error {
	if url == "" {
		return nil
	}
	if err := s.blobs.Delete(ctx, url); err != nil {
		s.metrics.BlobFailure("delete")
		s.logger.Error("blob delete failed", "url", url, "error", err)
		return domainerrors.Upstream("failed to delete previous upload", err)
	}
	return nil
}

func (s *BookService) deleteBlobs(ctx context.Context, urls ...string) {
	for _, url := range urls {
		if url == "" {
			continue
		}
		if err := s.blobs.Delete(ctx, url); err != nil {
			s.metrics.BlobFailure("delete")
			s.logger.Warn("blob cleanup failed", "url", url, "error", err)
		}
	}
}

// sniffContentType detects the upload's type from its leading bytes. The
// result must be an accepted type and agree with the declared one, when the
// client declared anything more specific than octet-stream. f.Body is
// replaced so the sniffed bytes are still uploaded.
func sniffContentType(f *FileUpload) (string, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f.Body, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", errors.New("could not be read")
	}
	head = head[:n]
	f.Body = io.MultiReader(bytes.NewReader(head), f.Body)

	declared, _, _ := strings.Cut(f.ContentType, ";")
	declared = strings.ToLower(strings.TrimSpace(declared))
	if declared == "image/jpg" {
		declared = "image/jpeg"
	}

	detected := mimetype.Detect(head)
	contentType := ""
	for ct := range fileTypes {
		if detected.Is(ct) {
			contentType = ct
			break
		}
	}
	// Old Word documents are only recognized as generic OLE containers
	// when the directory sector lies past the sniffed prefix.
	if contentType == "" && detected.Is("application/x-ole-storage") &&
		(declared == "application/msword" || strings.EqualFold(path.Ext(f.Name), ".doc")) {
		contentType = "application/msword"
	}
	if contentType == "" {
		return "", fmt.Errorf("unsupported file type %s", detected.String())
	}

	if declared != "" && declared != "application/octet-stream" && declared != contentType {
		return "", fmt.Errorf("content is %s but was declared as %s", contentType, declared)
	}
	return contentType, nil
}

// storedName swaps the client's extension for the one matching the sniffed type.
func storedName(name, fileType string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	return strings.TrimSuffix(name, path.Ext(name)) + "." + fileType
}

// typeFromName guesses the short file type from a URL or file name.
func typeFromName(name string) string {
	return fileTypes[extensionTypes[strings.ToLower(path.Ext(name))]]
}
