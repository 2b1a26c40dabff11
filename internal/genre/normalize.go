// Package genre normalizes genre tags attached to books.
package genre

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	domainerrors "github.com/inkcircle/inkcircle-server/internal/errors"
)

var lower = cases.Lower(language.Und)

// Normalize canonicalizes a single tag.
// "Comics" -> "comic", "  Romances " -> "romance", "Chess" -> "ches".
// Only one trailing "s" is removed, so "Glass" becomes "glas".
func Normalize(tag string) string {
	s := strings.TrimSpace(tag)
	s = norm.NFC.String(s)
	s = lower.String(s)
	return strings.TrimSuffix(s, "s")
}

// NormalizeAll normalizes tags in order, preserving duplicates and position.
// Returns a validation error if the list is empty or any tag normalizes to "".
func NormalizeAll(tags []string) ([]string, error) {
	if len(tags) == 0 {
		return nil, domainerrors.Validation("at least one genre is required")
	}

	out := make([]string, 0, len(tags))
	for i, t := range tags {
		n := Normalize(t)
		if n == "" {
			return nil, domainerrors.Validationf("genre %d is empty", i)
		}
		out = append(out, n)
	}
	return out, nil
}

// ParseList splits a comma-separated value into trimmed tags without
// normalizing them. Blank entries are dropped; an empty input yields nil.
func ParseList(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	var out []string
	for part := range strings.SplitSeq(csv, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
