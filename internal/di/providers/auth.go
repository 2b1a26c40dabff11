package providers

import (
	"github.com/samber/do/v2"

	"github.com/inkcircle/inkcircle-server/internal/auth"
	"github.com/inkcircle/inkcircle-server/internal/config"
	"github.com/inkcircle/inkcircle-server/internal/logger"
)

// AuthKey is the hex-encoded PASETO v4 key.
type AuthKey string

// ProvideAuthKey uses the configured key, or loads or generates one under the data path.
func ProvideAuthKey(i do.Injector) (AuthKey, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Auth.AccessTokenKey != "" {
		log.Info("Authentication key taken from configuration")
		return AuthKey(cfg.Auth.AccessTokenKey), nil
	}

	key, err := auth.LoadOrGenerateKey(cfg.Storage.DataPath)
	if err != nil {
		return "", err
	}
	cfg.Auth.AccessTokenKey = key

	log.Info("Authentication key loaded",
		"access_token_duration", cfg.Auth.AccessTokenDuration,
	)

	return AuthKey(key), nil
}

// ProvideTokenService provides the PASETO token service.
func ProvideTokenService(i do.Injector) (*auth.TokenService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	key := do.MustInvoke[AuthKey](i)

	return auth.NewTokenService(string(key), cfg.Auth.AccessTokenDuration)
}
