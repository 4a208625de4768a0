// Package catalog provides the immutable, indexed drug reference catalog and
// the text normalization shared by every name comparison in the engine.
package catalog

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize folds s for name comparison: diacritics are stripped, letters
// are lowercased, every run of punctuation or whitespace becomes a single
// space and the result is trimmed. "Co-Amoxiclav\n 625 mg" becomes
// "co amoxiclav 625 mg".
func Normalize(s string) string {
	// transform.Chain keeps per-call state, so it is built per call to stay
	// safe for concurrent use.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	b.Grow(len(folded))
	pendingSpace := false
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		pendingSpace = true
	}
	return b.String()
}

// Compact removes the spaces left by Normalize, so names split by a line
// break or stray hyphen still compare equal.
func Compact(normalized string) string {
	return strings.ReplaceAll(normalized, " ", "")
}

// EqualFold reports whether two names are the same after normalization.
func EqualFold(a, b string) bool {
	return Normalize(a) == Normalize(b)
}
