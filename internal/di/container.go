// Package di provides dependency injection configuration for the InkCircle server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/inkcircle/inkcircle-server/internal/auth"
	"github.com/inkcircle/inkcircle-server/internal/config"
	"github.com/inkcircle/inkcircle-server/internal/di/providers"
	"github.com/inkcircle/inkcircle-server/internal/logger"
	"github.com/inkcircle/inkcircle-server/internal/metrics"
	"github.com/inkcircle/inkcircle-server/internal/service"
	"github.com/inkcircle/inkcircle-server/internal/validation"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideMetrics)
	do.Provide(injector, providers.ProvideTracing)
	do.Provide(injector, providers.ProvideValidator)

	// Storage layer
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideBlobStorage)

	// Auth layer
	do.Provide(injector, providers.ProvideAuthKey)
	do.Provide(injector, providers.ProvideTokenService)

	// Business services
	do.Provide(injector, providers.ProvideInteractionService)
	do.Provide(injector, providers.ProvideCatalogService)
	do.Provide(injector, providers.ProvideBookService)
	do.Provide(injector, providers.ProvideUserService)
	do.Provide(injector, providers.ProvideAdminService)
	do.Provide(injector, providers.ProvideAuthService)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services, starting the HTTP server last.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*metrics.Metrics](injector)
	if _, err := do.Invoke[*providers.TracingHandle](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*validation.Validator](injector)

	if _, err := do.Invoke[*providers.StoreHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.BlobStorage](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*auth.TokenService](injector); err != nil {
		return err
	}

	_ = do.MustInvoke[*service.InteractionService](injector)
	_ = do.MustInvoke[*service.CatalogService](injector)
	_ = do.MustInvoke[*service.BookService](injector)
	_ = do.MustInvoke[*service.UserService](injector)
	_ = do.MustInvoke[*service.AdminService](injector)
	_ = do.MustInvoke[*service.AuthService](injector)

	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
