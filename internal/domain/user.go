package domain

import (
	"net/url"
	"strings"
	"unicode/utf8"
)

// Role represents the user's permission level in the system.
type Role string

const (
	// RoleAdmin grants moderation and user management.
	RoleAdmin Role = "admin"
	// RoleUser grants standard access.
	RoleUser Role = "user"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

const avatarBaseURL = "https://api.dicebear.com/7.x/initials/svg?seed="

// User represents an account.
type User struct {
	Record
	Username     string   `json:"username"`
	Email        string   `json:"email"`
	PasswordHash string   `json:"passwordHash,omitempty"` // Never sent to clients; API uses its own DTO.
	Role         Role     `json:"role"`
	AvatarURL    string   `json:"avatarUrl"`
	Archived     []string `json:"archivedBooks"`
	Recent       []Visit  `json:"recentlyVisitedBooks"`
}

// IsAdmin returns true if the user has administrative privileges.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// DefaultAvatarURL derives an initials avatar from the first character of username.
func DefaultAvatarURL(username string) string {
	r, _ := utf8.DecodeRuneInString(strings.TrimSpace(username))
	if r == utf8.RuneError {
		return avatarBaseURL + "%3F"
	}
	return avatarBaseURL + url.QueryEscape(strings.ToUpper(string(r)))
}

// NormalizeKey is the comparison form used for username/email uniqueness.
func NormalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
