package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/inkcircle/inkcircle-server/internal/api/dto"
	"github.com/inkcircle/inkcircle-server/internal/service"
)

func (s *Server) registerAdminRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "adminListUsers",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/users",
		Summary:     "List users",
		Tags:        []string{"Admin"},
		Security:    bearer,
	}, s.handleAdminListUsers)

	huma.Register(s.api, huma.Operation{
		OperationID: "adminGetUser",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/users/{id}",
		Summary:     "Get user",
		Tags:        []string{"Admin"},
		Security:    bearer,
	}, s.handleAdminGetUser)

	huma.Register(s.api, huma.Operation{
		OperationID: "adminUpdateUser",
		Method:      http.MethodPatch,
		Path:        "/api/v1/admin/users/{id}",
		Summary:     "Update user",
		Description: "Changes a user's username, email or role",
		Tags:        []string{"Admin"},
		Security:    bearer,
	}, s.handleAdminUpdateUser)

	huma.Register(s.api, huma.Operation{
		OperationID: "adminDeleteUser",
		Method:      http.MethodDelete,
		Path:        "/api/v1/admin/users/{id}",
		Summary:     "Delete user",
		Description: "Deletes a user together with their uploaded books",
		Tags:        []string{"Admin"},
		Security:    bearer,
	}, s.handleAdminDeleteUser)

	huma.Register(s.api, huma.Operation{
		OperationID: "adminListBooks",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/books",
		Summary:     "List all books",
		Tags:        []string{"Admin"},
		Security:    bearer,
	}, s.handleAdminListBooks)

	huma.Register(s.api, huma.Operation{
		OperationID: "adminPendingBooks",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/books/pending",
		Summary:     "List books awaiting approval",
		Tags:        []string{"Admin"},
		Security:    bearer,
	}, s.handleAdminPendingBooks)

	huma.Register(s.api, huma.Operation{
		OperationID: "adminReviewBook",
		Method:      http.MethodPut,
		Path:        "/api/v1/admin/books/{id}/review",
		Summary:     "Review a book",
		Description: "Approves or rejects a book",
		Tags:        []string{"Admin"},
		Security:    bearer,
	}, s.handleAdminReviewBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "adminDeleteBook",
		Method:      http.MethodDelete,
		Path:        "/api/v1/admin/books/{id}",
		Summary:     "Delete any book",
		Tags:        []string{"Admin"},
		Security:    bearer,
	}, s.handleAdminDeleteBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "adminBooksByAuthor",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/books/by-author/{author}",
		Summary:     "Books by author",
		Description: "Lists books whose author matches exactly, ignoring case",
		Tags:        []string{"Admin"},
		Security:    bearer,
	}, s.handleAdminBooksByAuthor)

	huma.Register(s.api, huma.Operation{
		OperationID: "adminStats",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/stats",
		Summary:     "Site statistics",
		Tags:        []string{"Admin"},
		Security:    bearer,
	}, s.handleAdminStats)
}

func (s *Server) handleAdminListUsers(ctx context.Context, _ *struct{}) (*dto.UsersOutput, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}

	users, err := s.services.Admin.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	return &dto.UsersOutput{Body: dto.FromUsers(users)}, nil
}

func (s *Server) handleAdminGetUser(ctx context.Context, input *dto.IDParam) (*dto.UserOutput, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}

	user, err := s.services.Admin.GetUser(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &dto.UserOutput{Body: dto.FromUser(user)}, nil
}

func (s *Server) handleAdminUpdateUser(ctx context.Context, input *dto.AdminUpdateUserInput) (*dto.UserOutput, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}

	user, err := s.services.Admin.UpdateUser(ctx, input.ID, service.AdminUpdateUserInput{
		Username: input.Body.Username,
		Email:    input.Body.Email,
		Role:     input.Body.Role,
	})
	if err != nil {
		return nil, err
	}
	return &dto.UserOutput{Body: dto.FromUser(user)}, nil
}

func (s *Server) handleAdminDeleteUser(ctx context.Context, input *dto.IDParam) (*dto.MessageOutput, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}

	if err := s.services.Admin.DeleteUser(ctx, input.ID); err != nil {
		return nil, err
	}
	return dto.Message("user deleted"), nil
}

func (s *Server) handleAdminListBooks(ctx context.Context, _ *struct{}) (*dto.BooksOutput, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}

	books, err := s.services.Admin.ListBooks(ctx)
	if err != nil {
		return nil, err
	}
	return dto.Books(books), nil
}

func (s *Server) handleAdminPendingBooks(ctx context.Context, _ *struct{}) (*dto.BooksOutput, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}

	books, err := s.services.Admin.PendingBooks(ctx)
	if err != nil {
		return nil, err
	}
	return dto.Books(books), nil
}

func (s *Server) handleAdminReviewBook(ctx context.Context, input *dto.ReviewInput) (*dto.BookOutput, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}

	book, err := s.services.Admin.ReviewBook(ctx, input.ID, input.Body.Approved)
	if err != nil {
		return nil, err
	}
	return &dto.BookOutput{Body: book}, nil
}

func (s *Server) handleAdminDeleteBook(ctx context.Context, input *dto.IDParam) (*dto.MessageOutput, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}

	if err := s.services.Admin.DeleteBook(ctx, input.ID); err != nil {
		return nil, err
	}
	return dto.Message("book deleted"), nil
}

func (s *Server) handleAdminBooksByAuthor(ctx context.Context, input *dto.AuthorInput) (*dto.BooksOutput, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}

	books, err := s.services.Admin.BooksByAuthor(ctx, input.Author)
	if err != nil {
		return nil, err
	}
	return dto.Books(books), nil
}

func (s *Server) handleAdminStats(ctx context.Context, _ *struct{}) (*dto.StatsOutput, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}

	stats, err := s.services.Admin.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return &dto.StatsOutput{Body: stats}, nil
}
