package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/inkcircle/inkcircle-server/internal/api/dto"
	"github.com/inkcircle/inkcircle-server/internal/service"
)

func (s *Server) registerAuthRoutes() {
	limited := huma.Middlewares{s.rateLimit("auth", s.authLimiter)}

	huma.Register(s.api, huma.Operation{
		OperationID:   "signup",
		Method:        http.MethodPost,
		Path:          "/api/v1/auth/signup",
		Summary:       "Create an account",
		Description:   "Creates a user with the default role and signs them in",
		Tags:          []string{"Auth"},
		DefaultStatus: http.StatusCreated,
		Middlewares:   limited,
	}, s.handleSignup)

	huma.Register(s.api, huma.Operation{
		OperationID: "signin",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/signin",
		Summary:     "Sign in",
		Description: "Authenticates with email and password. Returns a token and sets the auth cookie",
		Tags:        []string{"Auth"},
		Middlewares: limited,
	}, s.handleSignin)

	huma.Register(s.api, huma.Operation{
		OperationID: "signout",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/signout",
		Summary:     "Sign out",
		Description: "Clears the auth cookie",
		Tags:        []string{"Auth"},
	}, s.handleSignout)

	huma.Register(s.api, huma.Operation{
		OperationID: "getCurrentUser",
		Method:      http.MethodGet,
		Path:        "/api/v1/auth/me",
		Summary:     "Get current user",
		Description: "Returns the authenticated user",
		Tags:        []string{"Auth"},
		Security:    bearer,
	}, s.handleGetCurrentUser)
}

func (s *Server) handleSignup(ctx context.Context, input *dto.SignupInput) (*dto.AuthOutput, error) {
	result, err := s.services.Auth.Signup(ctx, service.SignupInput{
		Username: input.Body.Username,
		Email:    input.Body.Email,
		Password: input.Body.Password,
	})
	if err != nil {
		return nil, err
	}
	return s.authOutput(result), nil
}

func (s *Server) handleSignin(ctx context.Context, input *dto.SigninInput) (*dto.AuthOutput, error) {
	result, err := s.services.Auth.Signin(ctx, service.SigninInput{
		Email:    input.Body.Email,
		Password: input.Body.Password,
	})
	if err != nil {
		return nil, err
	}
	return s.authOutput(result), nil
}

func (s *Server) handleSignout(_ context.Context, _ *struct{}) (*dto.SignoutOutput, error) {
	return &dto.SignoutOutput{
		SetCookie: s.clearedAuthCookie(),
		Body:      dto.MessageResponse{Message: "signed out"},
	}, nil
}

func (s *Server) handleGetCurrentUser(ctx context.Context, _ *struct{}) (*dto.UserOutput, error) {
	caller, err := s.requireUser(ctx)
	if err != nil {
		return nil, err
	}

	user, err := s.services.Auth.CurrentUser(ctx, caller)
	if err != nil {
		return nil, err
	}
	return &dto.UserOutput{Body: dto.FromUser(user)}, nil
}

func (s *Server) authOutput(result *service.AuthResult) *dto.AuthOutput {
	return &dto.AuthOutput{
		SetCookie: s.authCookie(result.Token, result.ExpiresIn),
		Body: dto.AuthResponse{
			Token:     result.Token,
			ExpiresIn: int(result.ExpiresIn.Seconds()),
			User:      dto.FromUser(result.User),
		},
	}
}
