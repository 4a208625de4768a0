// Package matcher resolves free text, typed or recognized from a label, to
// catalog drugs.
package matcher

import (
	"strings"
	"unicode/utf8"

	"github.com/giygas/medsafe-api/catalog"
	"github.com/giygas/medsafe-api/entities"
)

const (
	// minAliasRunes is the shortest alias that may match free text
	minAliasRunes = 3
	// minCompactRunes is the shortest alias matched across broken words
	minCompactRunes = 6
)

// Matcher searches one catalog snapshot. It holds no other state and is safe
// for concurrent use.
type Matcher struct {
	cat *catalog.Catalog
}

// New creates a matcher over cat
func New(cat *catalog.Catalog) *Matcher {
	return &Matcher{cat: cat}
}

// SearchByQuery returns the drugs whose display name or a brand name contains
// query, ignoring case and accents. A blank query matches nothing.
func (m *Matcher) SearchByQuery(query string) []entities.Drug {
	q := catalog.Normalize(query)
	if q == "" {
		return []entities.Drug{}
	}

	results := []entities.Drug{}
	for i := 0; i < m.cat.Len(); i++ {
		for _, alias := range m.cat.Aliases(i) {
			if strings.Contains(alias, q) {
				results = append(results, m.cat.At(i))
				break
			}
		}
	}
	return results
}

// FindInText returns every drug named in raw, in catalog order and at most
// once each. The text is normalized first, so case, accents, punctuation and
// line breaks do not matter.
func (m *Matcher) FindInText(raw string) []entities.Drug {
	text := catalog.Normalize(raw)
	if text == "" {
		return []entities.Drug{}
	}
	compact := catalog.Compact(text)

	results := []entities.Drug{}
	for i := 0; i < m.cat.Len(); i++ {
		if m.matchesAlias(i, text, compact) || m.matchesIngredients(i, text, compact) {
			results = append(results, m.cat.At(i))
		}
	}
	return results
}

func (m *Matcher) matchesAlias(i int, text, compact string) bool {
	for _, alias := range m.cat.Aliases(i) {
		if occurs(alias, text, compact) {
			return true
		}
	}
	return false
}

// matchesIngredients reports a combination drug whose every active
// ingredient is named in the text
func (m *Matcher) matchesIngredients(i int, text, compact string) bool {
	d := m.cat.At(i)
	ingredients := m.cat.Ingredients(i)
	if !d.IsCombination || len(ingredients) == 0 {
		return false
	}
	for _, ing := range ingredients {
		if !occurs(ing, text, compact) {
			return false
		}
	}
	return true
}

func occurs(alias, text, compact string) bool {
	n := utf8.RuneCountInString(alias)
	if n < minAliasRunes {
		return false
	}
	if atWordStart(text, alias) {
		return true
	}
	return n >= minCompactRunes && strings.Contains(compact, catalog.Compact(alias))
}

// atWordStart reports whether needle occurs in text starting at the
// beginning of a word
func atWordStart(text, needle string) bool {
	for offset := 0; offset <= len(text)-len(needle); {
		idx := strings.Index(text[offset:], needle)
		if idx < 0 {
			return false
		}
		pos := offset + idx
		if pos == 0 || text[pos-1] == ' ' {
			return true
		}
		offset = pos + 1
	}
	return false
}
