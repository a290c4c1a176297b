package model

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var providerStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeProvider canonicalizes a provider name for merge-key comparison:
// diacritics removed, lowercased, corporate suffixes dropped, and everything
// outside [a-z0-9] stripped.
func NormalizeProvider(name string) string {
	s, _, err := transform.String(providerStripper, name)
	if err != nil {
		s = name
	}
	s = strings.ToLower(s)

	for _, suffix := range []string{" inc", " inc.", " llc", " ltd", " ltd.", " co", " co.", " corp", " corp.", " company"} {
		s = strings.TrimSuffix(strings.TrimSpace(s), suffix)
	}

	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
