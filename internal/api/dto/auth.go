package dto

import "net/http"

// SignupRequest is the request body for account creation.
type SignupRequest struct {
	Username string `json:"username" doc:"Unique username (3-30 letters, digits, '.', '_' or '-')"`
	Email    string `json:"email" doc:"Email address"`
	Password string `json:"password" doc:"Password (8-128 chars)"`
}

// SignupInput wraps the signup request for huma.
type SignupInput struct {
	Body SignupRequest
}

// SigninRequest is the request body for user login.
type SigninRequest struct {
	Email    string `json:"email" doc:"User email address"`
	Password string `json:"password" doc:"User password"`
}

// SigninInput wraps the signin request for huma.
type SigninInput struct {
	Body SigninRequest
}

// AuthResponse is the response for successful authentication.
type AuthResponse struct {
	Token     string `json:"token" doc:"PASETO access token"`
	ExpiresIn int    `json:"expiresIn" doc:"Access token expiry in seconds"`
	User      User   `json:"user" doc:"Authenticated user details"`
}

// AuthOutput carries the token both in the body and as an HttpOnly cookie.
type AuthOutput struct {
	SetCookie http.Cookie `header:"Set-Cookie"`
	Body      AuthResponse
}

// SignoutOutput clears the auth cookie.
type SignoutOutput struct {
	SetCookie http.Cookie `header:"Set-Cookie"`
	Body      MessageResponse
}
