package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/inkcircle/inkcircle-server/internal/auth"
	domainerrors "github.com/inkcircle/inkcircle-server/internal/errors"
)

// ctxKey is the type for context keys to avoid collisions.
type ctxKey string

// identityKey is the context key for the authenticated caller.
const identityKey ctxKey = "identity"

// IdentityFrom returns the caller attached by the auth middleware.
// The zero Identity means an anonymous request.
func IdentityFrom(ctx context.Context) auth.Identity {
	id, _ := ctx.Value(identityKey).(auth.Identity)
	return id
}

func withIdentity(ctx context.Context, id auth.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// authMiddleware resolves the caller from a Bearer token, falling back to
// the auth cookie. If no token is present or it is invalid, the request
// continues anonymously and handlers reject it when auth is required.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			if c, err := r.Cookie(s.opts.CookieName); err == nil {
				token = c.Value
			}
		}
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		id, err := s.services.Auth.Verify(token)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), id)))
	})
}

func bearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// requireUser returns the caller with the role currently stored for the
// account, so a demoted admin loses access before their token expires.
func (s *Server) requireUser(ctx context.Context) (auth.Identity, error) {
	id := IdentityFrom(ctx)
	if id.UserID == "" {
		return auth.Identity{}, domainerrors.Unauthorized("authentication required")
	}

	user, err := s.services.Auth.CurrentUser(ctx, id)
	if err != nil {
		return auth.Identity{}, err
	}
	return auth.Identity{UserID: user.ID, Role: user.Role}, nil
}

// requireAdmin validates the caller is authenticated and has the admin role.
func (s *Server) requireAdmin(ctx context.Context) (auth.Identity, error) {
	id, err := s.requireUser(ctx)
	if err != nil {
		return auth.Identity{}, err
	}
	if !id.IsAdmin() {
		return auth.Identity{}, domainerrors.Forbidden("admin access required")
	}
	return id, nil
}
