// Package main seeds a development database with an admin, a reader and a
// handful of books carrying likes, comments and downloads.
//
// It accepts the same flags and environment as the server:
//
//	go run ./cmd/seed --data-path ./tmp
//	SEED_ADMIN_PASSWORD=changeme go run ./cmd/seed --storage sqlite
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/samber/do/v2"

	"github.com/inkcircle/inkcircle-server/internal/auth"
	"github.com/inkcircle/inkcircle-server/internal/di/providers"
	"github.com/inkcircle/inkcircle-server/internal/domain"
	domainerrors "github.com/inkcircle/inkcircle-server/internal/errors"
	"github.com/inkcircle/inkcircle-server/internal/logger"
	"github.com/inkcircle/inkcircle-server/internal/service"
	"github.com/inkcircle/inkcircle-server/internal/store"
)

type sampleBook struct {
	title  string
	author string
	genres []string
}

var samples = []sampleBook{
	{"The Left Hand of Darkness", "Ursula K. Le Guin", []string{"science fiction", "classics"}},
	{"A Wizard of Earthsea", "Ursula K. Le Guin", []string{"fantasy"}},
	{"Maus", "Art Spiegelman", []string{"comics", "history"}},
	{"Kindred", "Octavia E. Butler", []string{"science fiction", "historical"}},
	{"The Glass Bead Game", "Hermann Hesse", []string{"classics", "philosophy"}},
}

func main() {
	injector := do.New()
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideMetrics)
	do.Provide(injector, providers.ProvideValidator)
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideBlobStorage)
	do.Provide(injector, providers.ProvideAuthKey)
	do.Provide(injector, providers.ProvideTokenService)
	do.Provide(injector, providers.ProvideInteractionService)
	do.Provide(injector, providers.ProvideBookService)
	do.Provide(injector, providers.ProvideAdminService)
	do.Provide(injector, providers.ProvideAuthService)

	err := seed(context.Background(), injector)
	if report := injector.Shutdown(); report != nil {
		fmt.Fprintf(os.Stderr, "shutdown: %v\n", report)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}
}

func seed(ctx context.Context, i do.Injector) error {
	handle, err := do.Invoke[*providers.StoreHandle](i)
	if err != nil {
		return err
	}
	st := handle.Store
	log := do.MustInvoke[*logger.Logger](i)
	authSvc := do.MustInvoke[*service.AuthService](i)
	books := do.MustInvoke[*service.BookService](i)
	admin := do.MustInvoke[*service.AdminService](i)
	interactions := do.MustInvoke[*service.InteractionService](i)

	adminUser, err := ensureUser(ctx, authSvc, st, service.SignupInput{
		Username: "admin",
		Email:    envOr("SEED_ADMIN_EMAIL", "admin@inkcircle.local"),
		Password: envOr("SEED_ADMIN_PASSWORD", "inkcircle-admin"),
	})
	if err != nil {
		return fmt.Errorf("admin: %w", err)
	}
	if adminUser.Role != domain.RoleAdmin {
		if _, err := admin.UpdateUser(ctx, adminUser.ID, service.AdminUpdateUserInput{Role: ptr(domain.RoleAdmin)}); err != nil {
			return fmt.Errorf("promote admin: %w", err)
		}
	}

	reader, err := ensureUser(ctx, authSvc, st, service.SignupInput{
		Username: "reader",
		Email:    "reader@inkcircle.local",
		Password: "inkcircle-reader",
	})
	if err != nil {
		return fmt.Errorf("reader: %w", err)
	}

	existing, err := books.ListUploads(ctx, reader.ID)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		log.Info("Seed data already present", "books", len(existing))
		return nil
	}

	uploader := auth.Identity{UserID: reader.ID, Role: domain.RoleUser}
	adminID := auth.Identity{UserID: adminUser.ID, Role: domain.RoleAdmin}

	for n, s := range samples {
		book, err := books.CreateBook(ctx, uploader, service.CreateBookInput{
			Title:   s.title,
			Author:  s.author,
			Genres:  s.genres,
			FileURL: fmt.Sprintf("https://example.com/books/%d.pdf", n+1),
		})
		if err != nil {
			return fmt.Errorf("create %q: %w", s.title, err)
		}

		// Leave the last book pending so the review queue is not empty.
		if n == len(samples)-1 {
			continue
		}
		if _, err := admin.ReviewBook(ctx, book.ID, true); err != nil {
			return err
		}
		if n%2 == 0 {
			if _, err := interactions.ToggleLike(ctx, book.ID, adminUser.ID); err != nil {
				return err
			}
		}
		if _, err := interactions.AddComment(ctx, book.ID, adminID, "", "Welcome to the circle."); err != nil {
			return err
		}
		for range n + 1 {
			if _, err := interactions.IncrementDownload(ctx, book.ID); err != nil {
				return err
			}
		}
	}

	log.Info("Seed complete", "admin", adminUser.Email, "books", len(samples))
	return nil
}

// ensureUser signs the account up, or falls back to the existing account with the same email.
func ensureUser(ctx context.Context, authSvc *service.AuthService, st store.Store, in service.SignupInput) (*domain.User, error) {
	res, err := authSvc.Signup(ctx, in)
	if err == nil {
		return res.User, nil
	}
	if !errors.Is(err, domainerrors.ErrAlreadyExists) {
		return nil, err
	}
	return st.GetUserByEmail(ctx, in.Email)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func ptr[T any](v T) *T { return &v }
