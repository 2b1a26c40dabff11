// Package config loads server configuration from command-line flags,
// environment variables and a .env file.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage backends.
const (
	StorageBadger = "badger"
	StorageSQLite = "sqlite"
)

// Blob backends.
const (
	BlobLocal = "local"
	BlobS3    = "s3"
)

// Config holds the application configuration.
type Config struct {
	App       AppConfig
	Logger    LoggerConfig
	Server    ServerConfig
	Storage   StorageConfig
	Blob      BlobConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Tracing   TracingConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level  string
	Format string // Optional: json or pretty
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Port           string        // Server port (default: 8080)
	ReadTimeout    time.Duration // HTTP read timeout (default: 30s)
	WriteTimeout   time.Duration // HTTP write timeout (default: 30s)
	IdleTimeout    time.Duration // HTTP idle timeout (default: 60s)
	FrontendURL    string        // CORS origin allowed with credentials
	MaxUploadBytes int64         // Request body limit for book uploads (default: 25 MiB)
}

// StorageConfig selects and locates the catalog store.
type StorageConfig struct {
	DataPath string // Directory holding the database and auth key
	Backend  string // badger or sqlite
}

// BlobConfig selects the blob backend for book files and covers.
type BlobConfig struct {
	Backend        string // local or s3
	LocalPath      string // Default: {data}/blobs
	PublicBaseURL  string // Default: http://localhost:{port}/files for local
	S3Bucket       string
	S3Region       string
	S3Endpoint     string
	S3AccessKey    string
	S3SecretKey    string
	S3UsePathStyle bool
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	// Hex-encoded PASETO v4 key. Generated into {data}/auth.key when empty.
	AccessTokenKey      string
	AccessTokenDuration time.Duration
	CookieName          string
	CookieSecure        bool
}

// RateLimitConfig holds per-client-IP limits.
type RateLimitConfig struct {
	AuthPerMinute     int
	AuthBurst         int
	DownloadPerMinute int
	DownloadBurst     int
}

// TracingConfig holds OpenTelemetry exporter configuration.
type TracingConfig struct {
	OTLPEndpoint string // Tracing is disabled when empty
	ServiceName  string
}

// LoadConfig loads configuration from os.Args.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load loads configuration with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("inkcircle", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	logFormat := fs.String("log-format", "", "Log format (json, pretty)")
	dataPath := fs.String("data-path", "", "Directory for the database and auth key")
	storageBackend := fs.String("storage", "", "Catalog store backend (badger, sqlite)")
	blobBackend := fs.String("blob", "", "Blob backend (local, s3)")
	serverPort := fs.String("port", "", "Server port (default: 8080)")
	frontendURL := fs.String("frontend-url", "", "Allowed CORS origin")
	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// godotenv never overrides variables that are already set.
	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load env file %s: %w", *envFile, err)
	}

	port := getConfigValue(*serverPort, "SERVER_PORT", "8080")

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level:  getConfigValue(*logLevel, "LOG_LEVEL", "info"),
			Format: getConfigValue(*logFormat, "LOG_FORMAT", ""),
		},
		Server: ServerConfig{
			Port:           port,
			FrontendURL:    getConfigValue(*frontendURL, "FRONTEND_URL", "http://localhost:3000"),
			MaxUploadBytes: int64(getIntConfigValue("", "MAX_UPLOAD_BYTES", 25<<20)),
		},
		Storage: StorageConfig{
			DataPath: getConfigValue(*dataPath, "DATA_PATH", ""),
			Backend:  strings.ToLower(getConfigValue(*storageBackend, "STORAGE_BACKEND", StorageBadger)),
		},
		Blob: BlobConfig{
			Backend:        strings.ToLower(getConfigValue(*blobBackend, "BLOB_BACKEND", BlobLocal)),
			LocalPath:      getConfigValue("", "BLOB_LOCAL_PATH", ""),
			PublicBaseURL:  getConfigValue("", "BLOB_PUBLIC_BASE_URL", ""),
			S3Bucket:       getConfigValue("", "S3_BUCKET", ""),
			S3Region:       getConfigValue("", "S3_REGION", "us-east-1"),
			S3Endpoint:     getConfigValue("", "S3_ENDPOINT", ""),
			S3AccessKey:    getConfigValue("", "S3_ACCESS_KEY", ""),
			S3SecretKey:    getConfigValue("", "S3_SECRET_KEY", ""),
			S3UsePathStyle: getBoolConfigValue("", "S3_USE_PATH_STYLE", false),
		},
		Auth: AuthConfig{
			AccessTokenKey: getConfigValue("", "ACCESS_TOKEN_KEY", ""),
			CookieName:     getConfigValue("", "AUTH_COOKIE_NAME", "token"),
		},
		RateLimit: RateLimitConfig{
			AuthPerMinute:     getIntConfigValue("", "RATE_LIMIT_AUTH_PER_MINUTE", 20),
			AuthBurst:         getIntConfigValue("", "RATE_LIMIT_AUTH_BURST", 10),
			DownloadPerMinute: getIntConfigValue("", "RATE_LIMIT_DOWNLOAD_PER_MINUTE", 30),
			DownloadBurst:     getIntConfigValue("", "RATE_LIMIT_DOWNLOAD_BURST", 10),
		},
		Tracing: TracingConfig{
			OTLPEndpoint: getConfigValue("", "OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			ServiceName:  getConfigValue("", "OTEL_SERVICE_NAME", "inkcircle-server"),
		},
	}
	cfg.Auth.CookieSecure = getBoolConfigValue("", "AUTH_COOKIE_SECURE", cfg.App.Environment == "production")

	durations := []struct {
		dst      *time.Duration
		envKey   string
		fallback string
	}{
		{&cfg.Auth.AccessTokenDuration, "ACCESS_TOKEN_DURATION", "24h"},
		{&cfg.Server.ReadTimeout, "SERVER_READ_TIMEOUT", "30s"},
		{&cfg.Server.WriteTimeout, "SERVER_WRITE_TIMEOUT", "30s"},
		{&cfg.Server.IdleTimeout, "SERVER_IDLE_TIMEOUT", "60s"},
	}
	for _, d := range durations {
		v := getConfigValue("", d.envKey, d.fallback)
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", d.envKey, v, err)
		}
		*d.dst = parsed
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if !slices.Contains([]string{"development", "staging", "production"}, c.App.Environment) {
		return fmt.Errorf("invalid environment: %q (must be development, staging, or production)", c.App.Environment)
	}

	if !slices.Contains([]string{"debug", "info", "warn", "error"}, strings.ToLower(c.Logger.Level)) {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}
	if c.Logger.Format != "" && c.Logger.Format != "json" && c.Logger.Format != "pretty" {
		return fmt.Errorf("invalid log format: %s (must be json or pretty)", c.Logger.Format)
	}

	if c.Storage.DataPath == "" {
		return errors.New("data path cannot be empty after expansion")
	}
	if c.Storage.Backend != StorageBadger && c.Storage.Backend != StorageSQLite {
		return fmt.Errorf("invalid storage backend: %s (must be badger or sqlite)", c.Storage.Backend)
	}

	switch c.Blob.Backend {
	case BlobLocal:
	case BlobS3:
		if c.Blob.S3Bucket == "" {
			return errors.New("S3_BUCKET is required when BLOB_BACKEND=s3")
		}
	default:
		return fmt.Errorf("invalid blob backend: %s (must be local or s3)", c.Blob.Backend)
	}

	if c.Auth.AccessTokenDuration <= 0 {
		return errors.New("access token duration must be positive")
	}
	if c.Auth.CookieName == "" {
		return errors.New("auth cookie name cannot be empty")
	}

	if c.Server.MaxUploadBytes <= 0 {
		return errors.New("max upload bytes must be positive")
	}
	for name, v := range map[string]int{
		"auth rate":      c.RateLimit.AuthPerMinute,
		"auth burst":     c.RateLimit.AuthBurst,
		"download rate":  c.RateLimit.DownloadPerMinute,
		"download burst": c.RateLimit.DownloadBurst,
	} {
		if v <= 0 {
			return fmt.Errorf("%s limit must be positive, got %d", name, v)
		}
	}

	return nil
}

// expandPaths resolves the data directory and derived defaults.
func (c *Config) expandPaths() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	if c.Storage.DataPath, err = expandPath(c.Storage.DataPath, filepath.Join(homeDir, "InkCircle", "data")); err != nil {
		return fmt.Errorf("invalid data path: %w", err)
	}
	if c.Blob.LocalPath, err = expandPath(c.Blob.LocalPath, filepath.Join(c.Storage.DataPath, "blobs")); err != nil {
		return fmt.Errorf("invalid blob path: %w", err)
	}
	if c.Blob.PublicBaseURL == "" && c.Blob.Backend == BlobLocal {
		c.Blob.PublicBaseURL = "http://localhost:" + c.Server.Port + "/files"
	}
	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty, defaultPath is returned as is.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}
	return absPath, nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	switch strings.ToLower(strValue) {
	case "true", "1", "yes":
		return true
	default:
		return false
	}
}

// getIntConfigValue returns an int from flag, env var, or default.
// Unparseable values fall back to the default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.Atoi(strValue)
	if err != nil {
		return defaultValue
	}
	return result
}
