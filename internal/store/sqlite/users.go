package sqlite

import (
	"context"
	"database/sql"
	"encoding/json/v2"
	"errors"
	"fmt"

	"github.com/inkcircle/inkcircle-server/internal/domain"
	"github.com/inkcircle/inkcircle-server/internal/store"
)

func scanUser(scanner interface{ Scan(dest ...any) error }) (*domain.User, error) {
	var data string
	if err := scanner.Scan(&data); err != nil {
		return nil, err
	}
	var u domain.User
	if err := json.Unmarshal([]byte(data), &u); err != nil {
		return nil, fmt.Errorf("unmarshal user: %w", err)
	}
	return &u, nil
}

func (s *Store) getUserWhere(ctx context.Context, where string, arg any) (*domain.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT data FROM users WHERE `+where+` = ?`, arg))
	if isNoRows(err) {
		return nil, store.ErrNotFound
	}
	return u, err
}

// CreateUser inserts a new user.
// Returns a store index conflict if the username or email is taken.
func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (id, username_key, email_key, created_at, updated_at, data)
		VALUES (?, ?, ?, ?, ?, ?)`,
		user.ID,
		domain.NormalizeKey(user.Username),
		domain.NormalizeKey(user.Email),
		formatTime(user.CreatedAt),
		formatTime(user.UpdatedAt),
		string(data),
	)
	if err != nil {
		return uniqueViolation(err)
	}
	return nil
}

// GetUser retrieves a user by ID.
func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.getUserWhere(ctx, "id", id)
}

// GetUserByEmail looks a user up case-insensitively by email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.getUserWhere(ctx, "email_key", domain.NormalizeKey(email))
}

// GetUserByUsername looks a user up case-insensitively by username.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.getUserWhere(ctx, "username_key", domain.NormalizeKey(username))
}

// UpdateUser applies fn to the stored user inside one write transaction.
func (s *Store) UpdateUser(ctx context.Context, id string, fn store.UserMutator) (*domain.User, error) {
	var result *domain.User
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		const query = `SELECT data FROM users WHERE id = ?`
		current, err := scanUser(tx.QueryRowContext(ctx, query, id))
		if isNoRows(err) {
			return store.ErrNotFound
		}
		if err != nil {
			return err
		}

		if err := fn(current); err != nil {
			if !errors.Is(err, store.ErrUnchanged) {
				return err
			}
			result, err = scanUser(tx.QueryRowContext(ctx, query, id))
			return err
		}

		data, err := json.Marshal(current)
		if err != nil {
			return fmt.Errorf("marshal user: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE users SET username_key = ?, email_key = ?, updated_at = ?, data = ? WHERE id = ?`,
			domain.NormalizeKey(current.Username),
			domain.NormalizeKey(current.Email),
			formatTime(current.UpdatedAt),
			string(data),
			id,
		)
		if err != nil {
			return uniqueViolation(err)
		}
		result = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteUser removes a user. Deleting a missing user is not an error.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	return err
}

// ListUsers returns every user, oldest first.
func (s *Store) ListUsers(ctx context.Context) ([]*domain.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
