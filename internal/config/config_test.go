package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		App:     AppConfig{Environment: "development"},
		Logger:  LoggerConfig{Level: "info"},
		Server:  ServerConfig{Port: "8080", MaxUploadBytes: 1 << 20},
		Storage: StorageConfig{DataPath: "/data", Backend: StorageBadger},
		Blob:    BlobConfig{Backend: BlobLocal},
		Auth:    AuthConfig{AccessTokenDuration: time.Hour, CookieName: "token"},
		RateLimit: RateLimitConfig{
			AuthPerMinute: 20, AuthBurst: 10, DownloadPerMinute: 30, DownloadBurst: 10,
		},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown environment", func(c *Config) { c.App.Environment = "test" }},
		{"environment is case sensitive", func(c *Config) { c.App.Environment = "DEVELOPMENT" }},
		{"bad log level", func(c *Config) { c.Logger.Level = "verbose" }},
		{"bad log format", func(c *Config) { c.Logger.Format = "xml" }},
		{"empty data path", func(c *Config) { c.Storage.DataPath = "" }},
		{"bad storage backend", func(c *Config) { c.Storage.Backend = "postgres" }},
		{"bad blob backend", func(c *Config) { c.Blob.Backend = "ftp" }},
		{"s3 without bucket", func(c *Config) { c.Blob.Backend = BlobS3 }},
		{"zero token duration", func(c *Config) { c.Auth.AccessTokenDuration = 0 }},
		{"empty cookie name", func(c *Config) { c.Auth.CookieName = "" }},
		{"zero upload limit", func(c *Config) { c.Server.MaxUploadBytes = 0 }},
		{"zero download rate", func(c *Config) { c.RateLimit.DownloadPerMinute = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DATA_PATH", dir)

	cfg, err := Load([]string{"-env-file", filepath.Join(dir, "missing.env")})
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, StorageBadger, cfg.Storage.Backend)
	assert.Equal(t, BlobLocal, cfg.Blob.Backend)
	assert.Equal(t, filepath.Join(dir, "blobs"), cfg.Blob.LocalPath)
	assert.Equal(t, "http://localhost:8080/files", cfg.Blob.PublicBaseURL)
	assert.Equal(t, "token", cfg.Auth.CookieName)
	assert.False(t, cfg.Auth.CookieSecure)
	assert.Equal(t, 24*time.Hour, cfg.Auth.AccessTokenDuration)
	assert.Equal(t, int64(25<<20), cfg.Server.MaxUploadBytes)
	assert.Equal(t, 20, cfg.RateLimit.AuthPerMinute)
	assert.Equal(t, 30, cfg.RateLimit.DownloadPerMinute)
	assert.Empty(t, cfg.Tracing.OTLPEndpoint)
}

func TestLoad_Precedence(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(
		"SERVER_PORT=9000\nSTORAGE_BACKEND=sqlite\nLOG_LEVEL=debug\nDATA_PATH="+dir+"\n",
	), 0o600))

	// The environment beats the .env file; flags beat both.
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("ENV", "production")

	cfg, err := Load([]string{"-env-file", envFile, "-storage", "badger"})
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port, ".env value used when nothing else is set")
	assert.Equal(t, "warn", cfg.Logger.Level)
	assert.Equal(t, StorageBadger, cfg.Storage.Backend)
	assert.True(t, cfg.Auth.CookieSecure, "secure cookies default on in production")

	// godotenv sets variables for the process; clear what this test introduced.
	t.Cleanup(func() {
		os.Unsetenv("SERVER_PORT")
		os.Unsetenv("STORAGE_BACKEND")
		os.Unsetenv("DATA_PATH")
	})
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("DATA_PATH", t.TempDir())
	t.Setenv("ACCESS_TOKEN_DURATION", "forever")

	_, err := Load([]string{"-env-file", "does-not-exist.env"})
	assert.ErrorContains(t, err, "ACCESS_TOKEN_DURATION")
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := expandPath("~/books", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "books"), got)

	got, err = expandPath("", "/fallback")
	require.NoError(t, err)
	assert.Equal(t, "/fallback", got)

	got, err = expandPath("relative/dir", "")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(got))
}

func TestGetConfigValueHelpers(t *testing.T) {
	t.Setenv("INK_TEST_BOOL", "YES")
	t.Setenv("INK_TEST_INT", "abc")

	assert.True(t, getBoolConfigValue("", "INK_TEST_BOOL", false))
	assert.False(t, getBoolConfigValue("no", "INK_TEST_BOOL", true))
	assert.Equal(t, 7, getIntConfigValue("", "INK_TEST_INT", 7))
	assert.Equal(t, 3, getIntConfigValue("3", "INK_TEST_INT", 7))
	assert.Equal(t, "flag", getConfigValue("flag", "INK_TEST_BOOL", "default"))
}
