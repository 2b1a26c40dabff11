// Package id generates prefixed identifiers for aggregates and embedded records.
package id

import (
	"fmt"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Prefixes used for every identifier the server mints.
const (
	Book    = "book"
	Comment = "comment"
	User    = "user"
	Token   = "token"
)

// nanoidLength is the default go-nanoid length (21 URL-safe characters).
const nanoidLength = 21

// Generate creates an identifier of the form "<prefix>-<nanoid>".
// Returns an error only if the system entropy source fails.
func Generate(prefix string) (string, error) {
	n, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + n, nil
}

// MustGenerate is like Generate but panics on failure.
func MustGenerate(prefix string) string {
	v, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return v
}

// HasPrefix reports whether v looks like an identifier minted with prefix.
func HasPrefix(v, prefix string) bool {
	rest, ok := strings.CutPrefix(v, prefix+"-")
	return ok && len(rest) == nanoidLength
}
