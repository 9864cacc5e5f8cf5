package catalog

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// FoldName lowercases and strips diacritics so "Horalky" matches
// "horálky" in catalog search.
func FoldName(name string) string {
	folded, _, err := transform.String(foldTransformer, name)
	if err != nil {
		folded = name
	}
	return strings.ToLower(folded)
}

// MatchesQuery reports whether the product matches a search query by
// exact barcode, barcode prefix, or accent-insensitive name substring.
func (p Product) MatchesQuery(query string) bool {
	if query == "" {
		return false
	}
	if p.Barcode != "" && strings.HasPrefix(p.Barcode, query) {
		return true
	}
	return strings.Contains(FoldName(p.Name), FoldName(query))
}
