// Package api provides the HTTP API server and handlers for InkCircle.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/inkcircle/inkcircle-server/internal/metrics"
	"github.com/inkcircle/inkcircle-server/internal/ratelimit"
	"github.com/inkcircle/inkcircle-server/internal/service"
	"github.com/inkcircle/inkcircle-server/internal/store"
)

// Services groups the application services used by handlers.
type Services struct {
	Auth         *service.AuthService
	Catalog      *service.CatalogService
	Books        *service.BookService
	Interactions *service.InteractionService
	Users        *service.UserService
	Admin        *service.AdminService
}

// Options configures the HTTP surface.
type Options struct {
	Version        string
	FrontendURL    string
	CookieName     string
	CookieSecure   bool
	MaxUploadBytes int64

	AuthPerMinute     int
	AuthBurst         int
	DownloadPerMinute int
	DownloadBurst     int
}

func (o *Options) applyDefaults() {
	if o.Version == "" {
		o.Version = "dev"
	}
	if o.CookieName == "" {
		o.CookieName = "token"
	}
	if o.MaxUploadBytes <= 0 {
		o.MaxUploadBytes = service.DefaultMaxUploadBytes
	}
	if o.AuthPerMinute <= 0 {
		o.AuthPerMinute = 20
	}
	if o.AuthBurst <= 0 {
		o.AuthBurst = 10
	}
	if o.DownloadPerMinute <= 0 {
		o.DownloadPerMinute = 30
	}
	if o.DownloadBurst <= 0 {
		o.DownloadBurst = 10
	}
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	services *Services
	store    store.Store
	files    http.Handler
	metrics  *metrics.Metrics
	router   *chi.Mux
	api      huma.API
	logger   *slog.Logger
	opts     Options

	authLimiter     *ratelimit.KeyedRateLimiter
	downloadLimiter *ratelimit.KeyedRateLimiter
}

// NewServer creates a new HTTP server with all routes configured.
// files serves locally stored blobs under /files and may be nil.
func NewServer(
	services *Services,
	st store.Store,
	files http.Handler,
	m *metrics.Metrics,
	opts Options,
	logger *slog.Logger,
) *Server {
	opts.applyDefaults()

	s := &Server{
		services:        services,
		store:           st,
		files:           files,
		metrics:         m,
		router:          chi.NewRouter(),
		logger:          logger,
		opts:            opts,
		authLimiter:     ratelimit.PerInterval(opts.AuthPerMinute, time.Minute, opts.AuthBurst),
		downloadLimiter: ratelimit.PerInterval(opts.DownloadPerMinute, time.Minute, opts.DownloadBurst),
	}

	s.setupMiddleware()
	s.setupHuma()
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API exposes the huma API, mainly for tests and OpenAPI export.
func (s *Server) API() huma.API {
	return s.api
}

// Close stops the background sweepers of the rate limiters.
func (s *Server) Close() {
	s.authLimiter.Stop()
	s.downloadLimiter.Stop()
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(capturePeerAddr)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.observe)
	s.router.Use(middleware.Recoverer)

	if s.opts.FrontendURL != "" {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{s.opts.FrontendURL},
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	s.router.Use(s.authMiddleware)
}

func (s *Server) setupHuma() {
	RegisterErrorHandler(s.logger)

	humaConfig := huma.DefaultConfig("InkCircle API", s.opts.Version)
	humaConfig.Info.Description = "Community book sharing: catalog, uploads, likes, comments and moderation."
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
	}
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)

	s.api = humachi.New(s.router, humaConfig)
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Handle("/metrics", s.metrics.Handler())
	if s.files != nil {
		s.router.Handle("/files/*", http.StripPrefix("/files", s.files))
	}

	s.registerHealthRoutes()
	s.registerAuthRoutes()
	s.registerBookRoutes()
	s.registerInteractionRoutes()
	s.registerUserRoutes()
	s.registerAdminRoutes()
}

// bearer marks an operation as requiring a token in the OpenAPI document.
var bearer = []map[string][]string{{"bearer": {}}}
