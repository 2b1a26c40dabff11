package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/inkcircle/inkcircle-server/internal/api/dto"
	"github.com/inkcircle/inkcircle-server/internal/domain"
)

func (s *Server) registerInteractionRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "toggleLike",
		Method:      http.MethodPut,
		Path:        "/api/v1/books/{id}/like",
		Summary:     "Toggle like",
		Description: "Adds the caller to the book's likes, or removes them if already present",
		Tags:        []string{"Interactions"},
		Security:    bearer,
	}, s.handleToggleLike)

	huma.Register(s.api, huma.Operation{
		OperationID:   "addComment",
		Method:        http.MethodPost,
		Path:          "/api/v1/books/{id}/comments",
		Summary:       "Add comment",
		Description:   "Appends a comment. Anonymous callers may supply a display name",
		Tags:          []string{"Interactions"},
		DefaultStatus: http.StatusCreated,
	}, s.handleAddComment)

	huma.Register(s.api, huma.Operation{
		OperationID: "editComment",
		Method:      http.MethodPut,
		Path:        "/api/v1/books/{id}/comments/{commentId}",
		Summary:     "Edit comment",
		Description: "Replaces the text of a comment. Author or admin only",
		Tags:        []string{"Interactions"},
		Security:    bearer,
	}, s.handleEditComment)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteComment",
		Method:      http.MethodDelete,
		Path:        "/api/v1/books/{id}/comments/{commentId}",
		Summary:     "Delete comment",
		Description: "Removes a comment and returns the remaining ones. Author or admin only",
		Tags:        []string{"Interactions"},
		Security:    bearer,
	}, s.handleDeleteComment)

	huma.Register(s.api, huma.Operation{
		OperationID: "recordDownload",
		Method:      http.MethodPut,
		Path:        "/api/v1/books/{id}/download",
		Summary:     "Count a download",
		Description: "Increments the book's download counter",
		Tags:        []string{"Interactions"},
		Middlewares: huma.Middlewares{s.rateLimit("download", s.downloadLimiter)},
	}, s.handleDownload)

	huma.Register(s.api, huma.Operation{
		OperationID: "archiveBook",
		Method:      http.MethodPost,
		Path:        "/api/v1/books/{id}/archive",
		Summary:     "Archive book",
		Description: "Adds the book to the caller's archive. Archiving twice is a no-op",
		Tags:        []string{"Interactions"},
		Security:    bearer,
	}, s.handleArchive)

	huma.Register(s.api, huma.Operation{
		OperationID: "unarchiveBook",
		Method:      http.MethodDelete,
		Path:        "/api/v1/books/{id}/archive",
		Summary:     "Unarchive book",
		Description: "Removes the book from the caller's archive",
		Tags:        []string{"Interactions"},
		Security:    bearer,
	}, s.handleUnarchive)

	huma.Register(s.api, huma.Operation{
		OperationID: "listArchived",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/archived",
		Summary:     "List archived books",
		Description: "Returns the caller's archived books in archive order",
		Tags:        []string{"Interactions"},
		Security:    bearer,
	}, s.handleListArchived)
}

func (s *Server) handleToggleLike(ctx context.Context, input *dto.IDParam) (*dto.LikesOutput, error) {
	caller, err := s.requireUser(ctx)
	if err != nil {
		return nil, err
	}

	likes, err := s.services.Interactions.ToggleLike(ctx, input.ID, caller.UserID)
	if err != nil {
		return nil, err
	}
	liked := (&domain.Book{Likes: likes}).LikedBy(caller.UserID)
	return &dto.LikesOutput{Body: dto.LikesResponse{Liked: liked, Likes: likes}}, nil
}

func (s *Server) handleAddComment(ctx context.Context, input *dto.AddCommentInput) (*dto.CommentOutput, error) {
	// Comments are open to anonymous readers.
	caller := IdentityFrom(ctx)
	if caller.UserID != "" {
		id, err := s.requireUser(ctx)
		if err != nil {
			return nil, err
		}
		caller = id
	}

	comment, err := s.services.Interactions.AddComment(ctx, input.ID, caller, input.Body.DisplayName, input.Body.Text)
	if err != nil {
		return nil, err
	}
	return &dto.CommentOutput{Status: http.StatusCreated, Body: comment}, nil
}

func (s *Server) handleEditComment(ctx context.Context, input *dto.EditCommentInput) (*dto.CommentOutput, error) {
	caller, err := s.requireUser(ctx)
	if err != nil {
		return nil, err
	}

	comment, err := s.services.Interactions.EditComment(ctx, input.ID, input.CommentID, caller, input.Body.Text)
	if err != nil {
		return nil, err
	}
	return &dto.CommentOutput{Status: http.StatusOK, Body: comment}, nil
}

func (s *Server) handleDeleteComment(ctx context.Context, input *dto.CommentPathInput) (*dto.CommentsOutput, error) {
	caller, err := s.requireUser(ctx)
	if err != nil {
		return nil, err
	}

	remaining, err := s.services.Interactions.DeleteComment(ctx, input.ID, input.CommentID, caller)
	if err != nil {
		return nil, err
	}
	return &dto.CommentsOutput{Body: dto.CommentsResponse{Comments: remaining}}, nil
}

func (s *Server) handleDownload(ctx context.Context, input *dto.IDParam) (*dto.DownloadOutput, error) {
	count, err := s.services.Interactions.IncrementDownload(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &dto.DownloadOutput{Body: dto.DownloadResponse{DownloadCount: count}}, nil
}

func (s *Server) handleArchive(ctx context.Context, input *dto.IDParam) (*dto.ArchiveOutput, error) {
	caller, err := s.requireUser(ctx)
	if err != nil {
		return nil, err
	}

	already, err := s.services.Interactions.ArchiveBook(ctx, caller.UserID, input.ID)
	if err != nil {
		return nil, err
	}
	return &dto.ArchiveOutput{Body: dto.ArchiveResponse{Archived: true, AlreadyArchived: already}}, nil
}

func (s *Server) handleUnarchive(ctx context.Context, input *dto.IDParam) (*dto.ArchiveOutput, error) {
	caller, err := s.requireUser(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.services.Interactions.UnarchiveBook(ctx, caller.UserID, input.ID); err != nil {
		return nil, err
	}
	return &dto.ArchiveOutput{Body: dto.ArchiveResponse{Archived: false}}, nil
}

func (s *Server) handleListArchived(ctx context.Context, _ *struct{}) (*dto.BooksOutput, error) {
	caller, err := s.requireUser(ctx)
	if err != nil {
		return nil, err
	}

	books, err := s.services.Interactions.ListArchived(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}
	return dto.Books(books), nil
}
