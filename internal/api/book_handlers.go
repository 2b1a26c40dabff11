package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/inkcircle/inkcircle-server/internal/api/dto"
	"github.com/inkcircle/inkcircle-server/internal/genre"
	"github.com/inkcircle/inkcircle-server/internal/service"
)

// multipartSlack covers form fields and part headers on top of the file limit.
const multipartSlack = 1 << 20

func (s *Server) registerBookRoutes() {
	maxBody := 2*s.opts.MaxUploadBytes + multipartSlack

	huma.Register(s.api, huma.Operation{
		OperationID: "listBooks",
		Method:      http.MethodGet,
		Path:        "/api/v1/books",
		Summary:     "List books",
		Description: "Lists books newest first, optionally filtered",
		Tags:        []string{"Books"},
	}, s.handleListBooks)

	huma.Register(s.api, huma.Operation{
		OperationID: "getBook",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{id}",
		Summary:     "Get book",
		Description: "Returns a book. Authenticated callers get the visit recorded in their history",
		Tags:        []string{"Books"},
	}, s.handleGetBook)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createBook",
		Method:        http.MethodPost,
		Path:          "/api/v1/books",
		Summary:       "Publish a book",
		Description:   "Creates a book from multipart file parts or from supplied URLs. New books await admin approval",
		Tags:          []string{"Books"},
		Security:      bearer,
		DefaultStatus: http.StatusCreated,
		MaxBodyBytes:  maxBody,
	}, s.handleCreateBook)

	huma.Register(s.api, huma.Operation{
		OperationID:  "updateBook",
		Method:       http.MethodPatch,
		Path:         "/api/v1/books/{id}",
		Summary:      "Update a book",
		Description:  "Updates fields of a book. Sent file parts replace the stored blobs. Owner only",
		Tags:         []string{"Books"},
		Security:     bearer,
		MaxBodyBytes: maxBody,
	}, s.handleUpdateBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteBook",
		Method:      http.MethodDelete,
		Path:        "/api/v1/books/{id}",
		Summary:     "Delete a book",
		Description: "Deletes a book and its blobs. Owner only",
		Tags:        []string{"Books"},
		Security:    bearer,
	}, s.handleDeleteBook)
}

func (s *Server) handleListBooks(ctx context.Context, input *dto.ListBooksInput) (*dto.BooksOutput, error) {
	approved, err := parseOptionalBool("approved", input.Approved)
	if err != nil {
		return nil, err
	}

	books, err := s.services.Catalog.ListBooks(ctx, service.BookFilter{
		Search:   input.Search,
		Title:    input.Title,
		Author:   input.Author,
		Genres:   genre.ParseList(input.Genres),
		Approved: approved,
	})
	if err != nil {
		return nil, err
	}
	return dto.Books(books), nil
}

func (s *Server) handleGetBook(ctx context.Context, input *dto.IDParam) (*dto.BookOutput, error) {
	book, err := s.services.Catalog.ViewBook(ctx, input.ID, IdentityFrom(ctx))
	if err != nil {
		return nil, err
	}
	return &dto.BookOutput{Body: book}, nil
}

func (s *Server) handleCreateBook(ctx context.Context, input *dto.BookFormInput) (*dto.CreatedBookOutput, error) {
	caller, err := s.requireUser(ctx)
	if err != nil {
		return nil, err
	}

	form := newBookForm(&input.RawBody)
	defer form.Close()

	in, err := form.createInput()
	if err != nil {
		return nil, err
	}

	book, err := s.services.Books.CreateBook(ctx, caller, in)
	if err != nil {
		return nil, err
	}
	return &dto.CreatedBookOutput{Status: http.StatusCreated, Body: book}, nil
}

func (s *Server) handleUpdateBook(ctx context.Context, input *dto.UpdateBookFormInput) (*dto.BookOutput, error) {
	caller, err := s.requireUser(ctx)
	if err != nil {
		return nil, err
	}

	form := newBookForm(&input.RawBody)
	defer form.Close()

	in, err := form.updateInput()
	if err != nil {
		return nil, err
	}

	book, err := s.services.Books.UpdateBook(ctx, caller, input.ID, in)
	if err != nil {
		return nil, err
	}
	return &dto.BookOutput{Body: book}, nil
}

func (s *Server) handleDeleteBook(ctx context.Context, input *dto.IDParam) (*dto.MessageOutput, error) {
	caller, err := s.requireUser(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.services.Books.DeleteBook(ctx, caller, input.ID); err != nil {
		return nil, err
	}
	return dto.Message("book deleted"), nil
}
