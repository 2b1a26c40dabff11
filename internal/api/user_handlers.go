package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/inkcircle/inkcircle-server/internal/api/dto"
	"github.com/inkcircle/inkcircle-server/internal/service"
)

func (s *Server) registerUserRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "updateProfile",
		Method:      http.MethodPatch,
		Path:        "/api/v1/users/me",
		Summary:     "Update profile",
		Description: "Changes the caller's username, email, avatar or password. Requires the current password",
		Tags:        []string{"Users"},
		Security:    bearer,
	}, s.handleUpdateProfile)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteAccount",
		Method:      http.MethodDelete,
		Path:        "/api/v1/users/me",
		Summary:     "Delete account",
		Description: "Deletes the caller's account and every book they uploaded",
		Tags:        []string{"Users"},
		Security:    bearer,
	}, s.handleDeleteAccount)

	huma.Register(s.api, huma.Operation{
		OperationID: "listMyUploads",
		Method:      http.MethodGet,
		Path:        "/api/v1/users/me/uploads",
		Summary:     "List my uploads",
		Description: "Returns the books uploaded by the caller, newest first",
		Tags:        []string{"Users"},
		Security:    bearer,
	}, s.handleListUploads)

	huma.Register(s.api, huma.Operation{
		OperationID: "getRecentlyVisited",
		Method:      http.MethodGet,
		Path:        "/api/v1/users/{id}/recently-visited",
		Summary:     "Recently visited books",
		Description: "Returns up to ten recently visited books, newest first. Callers may only read their own history unless they are an admin",
		Tags:        []string{"Users"},
		Security:    bearer,
	}, s.handleRecentlyVisited)
}

func (s *Server) handleUpdateProfile(ctx context.Context, input *dto.UpdateProfileInput) (*dto.UserOutput, error) {
	caller, err := s.requireUser(ctx)
	if err != nil {
		return nil, err
	}

	user, err := s.services.Users.UpdateProfile(ctx, caller.UserID, service.UpdateProfileInput{
		Username:        input.Body.Username,
		Email:           input.Body.Email,
		AvatarURL:       input.Body.AvatarURL,
		NewPassword:     input.Body.NewPassword,
		CurrentPassword: input.Body.CurrentPassword,
	})
	if err != nil {
		return nil, err
	}
	return &dto.UserOutput{Body: dto.FromUser(user)}, nil
}

func (s *Server) handleDeleteAccount(ctx context.Context, _ *struct{}) (*dto.DeleteAccountOutput, error) {
	caller, err := s.requireUser(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.services.Users.DeleteAccount(ctx, caller.UserID); err != nil {
		return nil, err
	}
	return &dto.DeleteAccountOutput{
		SetCookie: s.clearedAuthCookie(),
		Body:      dto.MessageResponse{Message: "account deleted"},
	}, nil
}

func (s *Server) handleListUploads(ctx context.Context, _ *struct{}) (*dto.BooksOutput, error) {
	caller, err := s.requireUser(ctx)
	if err != nil {
		return nil, err
	}

	books, err := s.services.Users.Uploads(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}
	return dto.Books(books), nil
}

func (s *Server) handleRecentlyVisited(ctx context.Context, input *dto.RecentlyVisitedInput) (*dto.VisitedOutput, error) {
	caller, err := s.requireUser(ctx)
	if err != nil {
		return nil, err
	}

	userID := input.ID
	if userID == "me" {
		userID = caller.UserID
	}

	visited, err := s.services.Users.RecentlyVisited(ctx, caller, userID)
	if err != nil {
		return nil, err
	}
	return &dto.VisitedOutput{Body: visited}, nil
}
