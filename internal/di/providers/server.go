package providers

import (
	"context"
	"errors"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/inkcircle/inkcircle-server/internal/api"
	"github.com/inkcircle/inkcircle-server/internal/config"
	"github.com/inkcircle/inkcircle-server/internal/logger"
	"github.com/inkcircle/inkcircle-server/internal/metrics"
	"github.com/inkcircle/inkcircle-server/internal/service"
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
	handler *api.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := h.Server.Shutdown(ctx)
	h.handler.Close()
	return err
}

// ProvideHTTPServer provides the HTTP server and starts listening.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	blobs := do.MustInvoke[*BlobStorage](i)
	m := do.MustInvoke[*metrics.Metrics](i)

	services := &api.Services{
		Auth:         do.MustInvoke[*service.AuthService](i),
		Catalog:      do.MustInvoke[*service.CatalogService](i),
		Books:        do.MustInvoke[*service.BookService](i),
		Interactions: do.MustInvoke[*service.InteractionService](i),
		Users:        do.MustInvoke[*service.UserService](i),
		Admin:        do.MustInvoke[*service.AdminService](i),
	}

	handler := api.NewServer(services, storeHandle.Store, blobs.Files, m, api.Options{
		Version:           Version,
		FrontendURL:       cfg.Server.FrontendURL,
		CookieName:        cfg.Auth.CookieName,
		CookieSecure:      cfg.Auth.CookieSecure,
		MaxUploadBytes:    cfg.Server.MaxUploadBytes,
		AuthPerMinute:     cfg.RateLimit.AuthPerMinute,
		AuthBurst:         cfg.RateLimit.AuthBurst,
		DownloadPerMinute: cfg.RateLimit.DownloadPerMinute,
		DownloadBurst:     cfg.RateLimit.DownloadBurst,
	}, log.Logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in background
	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
		}
	}()

	return &HTTPServerHandle{Server: srv, handler: handler}, nil
}
