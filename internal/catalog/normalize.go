package catalog

import (
	"strings"
)

// NormalizeISBN strips everything except digits and X from an ISBN so
// that "978-0-441-01359-3" and "9780441013593" dedupe to the same row.
// Returns "" when nothing usable remains.
func NormalizeISBN(isbn string) string {
	var b strings.Builder
	for _, r := range isbn {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == 'X' || r == 'x':
			b.WriteRune('X')
		}
	}
	return b.String()
}

// TitleKey lowercases a title and collapses internal whitespace so the
// title fallback is insensitive to casing and stray spaces.
func TitleKey(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), " ")
}

// SplitAuthors turns a free-text comma-separated author string into a
// trimmed, deduplicated list. Order of first appearance is kept.
func SplitAuthors(raw string) []string {
	return dedupe(strings.Split(raw, ","))
}

// SplitGenres normalizes a list of category values. External sources
// deliver multi-value strings like "Fiction / Thriller"; each value is
// split on the slash, trimmed, and deduplicated.
func SplitGenres(values []string) []string {
	var parts []string
	for _, v := range values {
		parts = append(parts, strings.Split(v, "/")...)
	}
	return dedupe(parts)
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	var out []string
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		key := strings.ToLower(v)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	return out
}

// secureCoverURL rewrites plain-http cover links to https. Google
// Books thumbnails still come back as http://.
func secureCoverURL(coverURL string) string {
	if strings.HasPrefix(coverURL, "http://") {
		return "https://" + strings.TrimPrefix(coverURL, "http://")
	}
	return coverURL
}
