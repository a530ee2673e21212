package models

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nameSuffixes = []string{" jr", " iii", " ii", " iv", " sr"}

// NormalizeName folds a player name for cross-provider matching:
// lowercase, diacritics removed, dots, commas and apostrophes dropped, generational
// suffix stripped.
func NormalizeName(name string) string {
	folder := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(folder, strings.ToLower(name))
	if err != nil {
		folded = strings.ToLower(name)
	}

	folded = strings.NewReplacer(".", "", ",", "", "'", "", "’", "").Replace(folded)
	folded = strings.Join(strings.Fields(folded), " ")
	for _, suffix := range nameSuffixes {
		if strings.HasSuffix(folded, suffix) {
			folded = strings.TrimSuffix(folded, suffix)
		}
	}
	return strings.TrimSpace(folded)
}
