// Package auth provides password hashing and PASETO access tokens.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// keyFileName is the file under the data directory holding the token key.
const keyFileName = "auth.key"

// LoadOrGenerateKey returns the hex-encoded PASETO v4 key stored in
// <dataPath>/auth.key, creating the file with a random key on first run.
func LoadOrGenerateKey(dataPath string) (string, error) {
	keyPath := filepath.Join(dataPath, keyFileName)

	//#nosec G304 -- path is derived from the configured data directory
	if raw, err := os.ReadFile(keyPath); err == nil {
		keyHex := strings.TrimSpace(string(raw))
		if err := validateKeyHex(keyHex); err != nil {
			return "", fmt.Errorf("invalid auth key in %s: %w", keyPath, err)
		}
		return keyHex, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to read auth key: %w", err)
	}

	key := make([]byte, keyBytesSize)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("failed to generate auth key: %w", err)
	}
	keyHex := hex.EncodeToString(key)

	if err := os.MkdirAll(dataPath, 0o700); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := os.WriteFile(keyPath, []byte(keyHex), 0o600); err != nil {
		return "", fmt.Errorf("failed to save auth key: %w", err)
	}
	return keyHex, nil
}

func validateKeyHex(keyHex string) error {
	if len(keyHex) != keyHexSize {
		return fmt.Errorf("expected %d hex chars, got %d", keyHexSize, len(keyHex))
	}
	if _, err := hex.DecodeString(keyHex); err != nil {
		return fmt.Errorf("not valid hex: %w", err)
	}
	return nil
}
