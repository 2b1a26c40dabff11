package dto

import (
	"net/http"
	"time"

	"github.com/inkcircle/inkcircle-server/internal/domain"
)

// User is the public view of an account. The password hash never leaves the server.
type User struct {
	ID                   string         `json:"id"`
	Username             string         `json:"username"`
	Email                string         `json:"email"`
	Role                 domain.Role    `json:"role" enum:"admin,user"`
	AvatarURL            string         `json:"avatarUrl"`
	ArchivedBooks        []string       `json:"archivedBooks"`
	RecentlyVisitedBooks []domain.Visit `json:"recentlyVisitedBooks"`
	CreatedAt            time.Time      `json:"createdAt"`
	UpdatedAt            time.Time      `json:"updatedAt"`
}

// FromUser converts a domain user.
func FromUser(u *domain.User) User {
	out := User{
		ID:                   u.ID,
		Username:             u.Username,
		Email:                u.Email,
		Role:                 u.Role,
		AvatarURL:            u.AvatarURL,
		ArchivedBooks:        u.Archived,
		RecentlyVisitedBooks: u.RecentVisits(),
		CreatedAt:            u.CreatedAt,
		UpdatedAt:            u.UpdatedAt,
	}
	if out.ArchivedBooks == nil {
		out.ArchivedBooks = []string{}
	}
	if out.RecentlyVisitedBooks == nil {
		out.RecentlyVisitedBooks = []domain.Visit{}
	}
	return out
}

// FromUsers converts a list of domain users.
func FromUsers(users []*domain.User) []User {
	out := make([]User, 0, len(users))
	for _, u := range users {
		out = append(out, FromUser(u))
	}
	return out
}

// UserOutput wraps a single user for huma.
type UserOutput struct {
	Body User
}

// UsersOutput wraps a user list for huma.
type UsersOutput struct {
	Body []User
}

// UpdateProfileRequest changes the caller's own account.
type UpdateProfileRequest struct {
	Username        *string `json:"username,omitempty" doc:"New username"`
	Email           *string `json:"email,omitempty" doc:"New email address"`
	AvatarURL       *string `json:"avatarUrl,omitempty" doc:"New avatar URL"`
	NewPassword     *string `json:"newPassword,omitempty" doc:"New password (8-128 chars)"`
	CurrentPassword string  `json:"currentPassword" doc:"Current password, always required"`
}

// UpdateProfileInput wraps the profile update for huma.
type UpdateProfileInput struct {
	Body UpdateProfileRequest
}

// DeleteAccountOutput confirms deletion and clears the auth cookie.
type DeleteAccountOutput struct {
	SetCookie http.Cookie `header:"Set-Cookie"`
	Body      MessageResponse
}

// AdminUpdateUserRequest is a moderator's edit of an account.
type AdminUpdateUserRequest struct {
	Username *string      `json:"username,omitempty" doc:"New username"`
	Email    *string      `json:"email,omitempty" doc:"New email address"`
	Role     *domain.Role `json:"role,omitempty" doc:"New role: admin or user"`
}

// AdminUpdateUserInput wraps the admin user update for huma.
type AdminUpdateUserInput struct {
	ID   string `path:"id" doc:"User ID"`
	Body AdminUpdateUserRequest
}
