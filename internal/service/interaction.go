package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/inkcircle/inkcircle-server/internal/auth"
	"github.com/inkcircle/inkcircle-server/internal/domain"
	domainerrors "github.com/inkcircle/inkcircle-server/internal/errors"
	"github.com/inkcircle/inkcircle-server/internal/id"
	"github.com/inkcircle/inkcircle-server/internal/metrics"
	"github.com/inkcircle/inkcircle-server/internal/store"
)

const maxCommentLength = 5000

const (
	msgBookNotFound    = "book not found"
	msgUserNotFound    = "user not found"
	msgCommentNotFound = "comment not found"
)

// VisitedBook is one resolved entry of a recently-visited list.
type VisitedBook struct {
	Book      domain.BookSummary `json:"book"`
	VisitedAt time.Time          `json:"visitedAt"`
}

// InteractionService applies likes, comments, archive changes, visits and
// download counts. Every change is one UpdateBook or UpdateUser call, so
// concurrent requests against the same document never lose a write.
type InteractionService struct {
	store   store.Store
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// NewInteractionService creates a new interaction service.
func NewInteractionService(store store.Store, m *metrics.Metrics, logger *slog.Logger) *InteractionService {
	return &InteractionService{
		store:   store,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// ToggleLike flips userID's like on the book and returns the resulting likes.
func (s *InteractionService) ToggleLike(ctx context.Context, bookID, userID string) (likes []string, err error) {
	ctx, span := startSpan(ctx, "InteractionService.ToggleLike",
		attribute.String("book.id", bookID),
		attribute.String("user.id", userID),
	)
	defer func() { finishSpan(span, err) }()

	if userID == "" {
		return nil, domainerrors.Unauthorized("authentication required")
	}

	var liked bool
	book, err := s.store.UpdateBook(ctx, bookID, func(b *domain.Book) error {
		liked = b.ToggleLike(userID)
		b.Touch()
		return nil
	})
	if err != nil {
		return nil, storeError(err, msgBookNotFound)
	}

	span.SetAttributes(attribute.Bool("liked", liked))
	if liked {
		s.metrics.Interaction(metrics.ActionLike)
	} else {
		s.metrics.Interaction(metrics.ActionUnlike)
	}
	s.logger.Info("book like toggled", "book_id", bookID, "user_id", userID, "liked", liked)

	if book.Likes == nil {
		return []string{}, nil
	}
	return book.Likes, nil
}

// AddComment appends a comment to the book. An authenticated author's
// username is copied into the comment; anonymous callers may supply a
// display name, which defaults to "Anonymous".
func (s *InteractionService) AddComment(ctx context.Context, bookID string, author auth.Identity, displayName, text string) (comment domain.Comment, err error) {
	ctx, span := startSpan(ctx, "InteractionService.AddComment",
		attribute.String("book.id", bookID),
		attribute.String("user.id", author.UserID),
	)
	defer func() { finishSpan(span, err) }()

	text, err = commentText(text)
	if err != nil {
		return domain.Comment{}, err
	}

	if author.UserID != "" {
		user, err := s.store.GetUser(ctx, author.UserID)
		if err != nil {
			return domain.Comment{}, storeError(err, msgUserNotFound)
		}
		displayName = user.Username
	}

	now := s.now()
	_, err = s.store.UpdateBook(ctx, bookID, func(b *domain.Book) error {
		c := domain.Comment{
			AuthorUserID:      author.UserID,
			AuthorDisplayName: strings.TrimSpace(displayName),
			Text:              text,
			CommentedAt:       now,
		}
		for {
			cid, err := id.Generate(id.Comment)
			if err != nil {
				return err
			}
			c.ID = cid
			if b.AppendComment(c) {
				break
			}
		}
		comment, _ = b.Comment(c.ID)
		b.Touch()
		return nil
	})
	if err != nil {
		return domain.Comment{}, storeError(err, msgBookNotFound)
	}

	s.metrics.Interaction(metrics.ActionCommentAdd)
	s.logger.Info("comment added", "book_id", bookID, "comment_id", comment.ID, "user_id", author.UserID)

	return comment, nil
}

// EditComment replaces the text of a comment and refreshes its timestamp.
// Only the comment's author or an admin may edit it.
func (s *InteractionService) EditComment(ctx context.Context, bookID, commentID string, editor auth.Identity, text string) (comment domain.Comment, err error) {
	ctx, span := startSpan(ctx, "InteractionService.EditComment",
		attribute.String("book.id", bookID),
		attribute.String("comment.id", commentID),
	)
	defer func() { finishSpan(span, err) }()

	text, err = commentText(text)
	if err != nil {
		return domain.Comment{}, err
	}

	now := s.now()
	_, err = s.store.UpdateBook(ctx, bookID, func(b *domain.Book) error {
		existing, ok := b.Comment(commentID)
		if !ok {
			return domainerrors.NotFound(msgCommentNotFound)
		}
		if !canModifyComment(existing, editor) {
			return domainerrors.Forbidden("only the author or an admin can edit this comment")
		}
		comment, _ = b.EditComment(commentID, text, now)
		b.Touch()
		return nil
	})
	if err != nil {
		return domain.Comment{}, storeError(err, msgBookNotFound)
	}

	s.metrics.Interaction(metrics.ActionCommentEdit)
	s.logger.Info("comment edited", "book_id", bookID, "comment_id", commentID, "user_id", editor.UserID)

	return comment, nil
}

// DeleteComment removes a comment and returns the remaining ones in order.
// Only the comment's author or an admin may delete it. A missing comment is
// reported as NOT_FOUND.
func (s *InteractionService) DeleteComment(ctx context.Context, bookID, commentID string, caller auth.Identity) (remaining []domain.Comment, err error) {
	ctx, span := startSpan(ctx, "InteractionService.DeleteComment",
		attribute.String("book.id", bookID),
		attribute.String("comment.id", commentID),
	)
	defer func() { finishSpan(span, err) }()

	book, err := s.store.UpdateBook(ctx, bookID, func(b *domain.Book) error {
		existing, ok := b.Comment(commentID)
		if !ok {
			return domainerrors.NotFound(msgCommentNotFound)
		}
		if !canModifyComment(existing, caller) {
			return domainerrors.Forbidden("only the author or an admin can delete this comment")
		}
		b.RemoveComment(commentID)
		b.Touch()
		return nil
	})
	if err != nil {
		return nil, storeError(err, msgBookNotFound)
	}

	s.metrics.Interaction(metrics.ActionCommentDelete)
	s.logger.Info("comment deleted", "book_id", bookID, "comment_id", commentID, "user_id", caller.UserID)

	if book.Comments == nil {
		return []domain.Comment{}, nil
	}
	return book.Comments, nil
}

// RecordVisit moves bookID to the front of the user's recently-visited list.
// An anonymous caller (empty userID) is a no-op.
func (s *InteractionService) RecordVisit(ctx context.Context, userID, bookID string) (visits []domain.Visit, err error) {
	if userID == "" {
		return nil, nil
	}

	ctx, span := startSpan(ctx, "InteractionService.RecordVisit",
		attribute.String("book.id", bookID),
		attribute.String("user.id", userID),
	)
	defer func() { finishSpan(span, err) }()

	if _, err := s.store.GetBook(ctx, bookID); err != nil {
		return nil, storeError(err, msgBookNotFound)
	}

	now := s.now()
	_, err = s.store.UpdateUser(ctx, userID, func(u *domain.User) error {
		visits = u.RecordVisit(bookID, now)
		u.Touch()
		return nil
	})
	if err != nil {
		return nil, storeError(err, msgUserNotFound)
	}

	s.metrics.Interaction(metrics.ActionVisit)
	s.logger.Debug("visit recorded", "book_id", bookID, "user_id", userID)

	return visits, nil
}

// GetRecentlyVisited returns the user's visits newest first, each resolved to
// a book summary. Visits of books that no longer exist are skipped.
func (s *InteractionService) GetRecentlyVisited(ctx context.Context, userID string) ([]VisitedBook, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, storeError(err, msgUserNotFound)
	}

	visits := user.RecentVisits()
	ids := make([]string, len(visits))
	for i, v := range visits {
		ids[i] = v.BookID
	}

	books, err := s.store.GetBooks(ctx, ids)
	if err != nil {
		return nil, storeError(err, msgBookNotFound)
	}
	byID := make(map[string]*domain.Book, len(books))
	for _, b := range books {
		byID[b.ID] = b
	}

	out := make([]VisitedBook, 0, len(visits))
	for _, v := range visits {
		b, ok := byID[v.BookID]
		if !ok {
			continue
		}
		out = append(out, VisitedBook{Book: b.Summary(), VisitedAt: v.VisitedAt})
	}
	return out, nil
}

// ArchiveBook adds the book to the user's archive. Archiving twice is
// allowed; the second call reports alreadyArchived.
func (s *InteractionService) ArchiveBook(ctx context.Context, userID, bookID string) (alreadyArchived bool, err error) {
	ctx, span := startSpan(ctx, "InteractionService.ArchiveBook",
		attribute.String("book.id", bookID),
		attribute.String("user.id", userID),
	)
	defer func() { finishSpan(span, err) }()

	if _, err := s.store.GetBook(ctx, bookID); err != nil {
		return false, storeError(err, msgBookNotFound)
	}

	_, err = s.store.UpdateUser(ctx, userID, func(u *domain.User) error {
		alreadyArchived = !u.Archive(bookID)
		if alreadyArchived {
			return store.ErrUnchanged
		}
		u.Touch()
		return nil
	})
	if err != nil {
		return false, storeError(err, msgUserNotFound)
	}

	if !alreadyArchived {
		s.metrics.Interaction(metrics.ActionArchive)
		s.logger.Info("book archived", "book_id", bookID, "user_id", userID)
	}
	return alreadyArchived, nil
}

// UnarchiveBook removes the book from the user's archive. Removing a book
// that is not archived succeeds without changes.
func (s *InteractionService) UnarchiveBook(ctx context.Context, userID, bookID string) (err error) {
	ctx, span := startSpan(ctx, "InteractionService.UnarchiveBook",
		attribute.String("book.id", bookID),
		attribute.String("user.id", userID),
	)
	defer func() { finishSpan(span, err) }()

	var removed bool
	_, err = s.store.UpdateUser(ctx, userID, func(u *domain.User) error {
		removed = u.Unarchive(bookID)
		if !removed {
			return store.ErrUnchanged
		}
		u.Touch()
		return nil
	})
	if err != nil {
		return storeError(err, msgUserNotFound)
	}

	if removed {
		s.metrics.Interaction(metrics.ActionUnarchive)
		s.logger.Info("book unarchived", "book_id", bookID, "user_id", userID)
	}
	return nil
}

// ListArchived returns the user's archived books in archive order.
// Books deleted since they were archived are skipped.
func (s *InteractionService) ListArchived(ctx context.Context, userID string) ([]*domain.Book, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, storeError(err, msgUserNotFound)
	}
	books, err := s.store.GetBooks(ctx, user.Archived)
	if err != nil {
		return nil, storeError(err, msgBookNotFound)
	}
	return books, nil
}

// IncrementDownload bumps the book's download counter and returns the new value.
func (s *InteractionService) IncrementDownload(ctx context.Context, bookID string) (count int64, err error) {
	ctx, span := startSpan(ctx, "InteractionService.IncrementDownload",
		attribute.String("book.id", bookID),
	)
	defer func() { finishSpan(span, err) }()

	_, err = s.store.UpdateBook(ctx, bookID, func(b *domain.Book) error {
		count = b.IncrementDownloads()
		return nil
	})
	if err != nil {
		return 0, storeError(err, msgBookNotFound)
	}

	span.SetAttributes(attribute.Int64("book.download_count", count))
	s.metrics.Interaction(metrics.ActionDownload)
	s.logger.Debug("download counted", "book_id", bookID, "download_count", count)

	return count, nil
}

func commentText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", domainerrors.ValidationWithDetails("comment text is required",
			map[string]string{"text": "is required"})
	}
	if len(text) > maxCommentLength {
		return "", domainerrors.ValidationWithDetails("comment is too long",
			map[string]string{"text": "must not exceed 5000 characters"})
	}
	return text, nil
}

// canModifyComment allows the comment's author and admins. Anonymous
// comments have no author, so only admins can change them.
func canModifyComment(c domain.Comment, caller auth.Identity) bool {
	if caller.IsAdmin() {
		return true
	}
	return c.AuthorUserID != "" && c.AuthorUserID == caller.UserID
}
