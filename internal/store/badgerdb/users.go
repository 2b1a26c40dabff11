package badgerdb

import (
	"context"

	"github.com/inkcircle/inkcircle-server/internal/domain"
	"github.com/inkcircle/inkcircle-server/internal/store"
)

// CreateUser persists a new user.
// Returns an index conflict if the username or email is already taken.
func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	return s.users.Create(ctx, user.ID, user)
}

// GetUser retrieves a user by ID.
func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.users.Get(ctx, id)
}

// GetUserByEmail looks a user up case-insensitively by email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.users.GetByIndex(ctx, "email", email)
}

// GetUserByUsername looks a user up case-insensitively by username.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.users.GetByIndex(ctx, "username", username)
}

// UpdateUser applies fn to the stored user atomically.
func (s *Store) UpdateUser(ctx context.Context, id string, fn store.UserMutator) (*domain.User, error) {
	return s.users.Mutate(ctx, id, fn)
}

// DeleteUser removes a user and frees their username and email.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	return s.users.Delete(ctx, id)
}

// ListUsers returns every user.
func (s *Store) ListUsers(ctx context.Context) ([]*domain.User, error) {
	return collect(s.users.List(ctx))
}
