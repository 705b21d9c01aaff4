package assets

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

const (
	maxSlugLen = 48

	defaultUserSegment    = "user_unknown"
	defaultProductSegment = "generic"
	defaultIntentSegment  = "idea"
)

// BaseKey is the storage prefix shared by every asset of one generation:
// assets/<user>/generated/<product_type>_<intent-slug>.
func BaseKey(userID, productType, intent string) string {
	user := segment(userID, defaultUserSegment)
	pt := segment(productType, defaultProductSegment)
	return fmt.Sprintf("assets/%s/generated/%s_%s", user, pt, Slug(intent))
}

// PlaceholderKey is the key of the SVG stand-in image generated at t.
func PlaceholderKey(base string, t time.Time) string {
	return base + "_placeholder_" + t.UTC().Format("20060102T150405Z") + ".svg"
}

// Slug lowercases s and collapses every run of non-alphanumerics into one dash.
func Slug(s string) string {
	var sb strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
			dash = false
			continue
		}
		if !dash && sb.Len() > 0 {
			sb.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimRight(sb.String(), "-")
	if r := []rune(out); len(r) > maxSlugLen {
		out = strings.TrimRight(string(r[:maxSlugLen]), "-")
	}
	if out == "" {
		return defaultIntentSegment
	}
	return out
}

// segment keeps a path segment free of separators.
func segment(s, fallback string) string {
	s = strings.TrimSpace(strings.NewReplacer("/", "_", "\\", "_").Replace(s))
	if s == "" {
		return fallback
	}
	return s
}
