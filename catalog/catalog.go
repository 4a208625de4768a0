package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/giygas/medsafe-api/entities"
)

// ErrDuplicateID is returned by New when two records share an id.
var ErrDuplicateID = errors.New("duplicate drug id")

// Catalog is an immutable, indexed snapshot of the drug reference data.
// All methods are safe for concurrent use and safe on a nil receiver.
type Catalog struct {
	drugs       []entities.Drug
	byID        map[string]int
	aliases     [][]string // normalized display + brand names per drug
	ingredients [][]string // normalized active ingredients per drug
}

// New indexes drugs into a catalog. The slice is copied; later changes by the
// caller are not visible through the catalog.
func New(drugs []entities.Drug) (*Catalog, error) {
	c := &Catalog{
		drugs:       make([]entities.Drug, 0, len(drugs)),
		byID:        make(map[string]int, len(drugs)),
		aliases:     make([][]string, 0, len(drugs)),
		ingredients: make([][]string, 0, len(drugs)),
	}

	for _, d := range drugs {
		id := strings.TrimSpace(d.ID)
		if id == "" {
			return nil, fmt.Errorf("drug %q has no id", d.DisplayName)
		}
		if _, exists := c.byID[id]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, id)
		}
		d.ID = id

		c.byID[id] = len(c.drugs)
		c.drugs = append(c.drugs, d)
		c.aliases = append(c.aliases, normalizeAll(d.Aliases()))
		c.ingredients = append(c.ingredients, normalizeAll(d.ActiveIngredients))
	}

	return c, nil
}

func normalizeAll(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		key := Normalize(n)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, key)
	}
	return out
}

// Len returns the number of drugs in the catalog
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.drugs)
}

// At returns the drug at catalog position i.
func (c *Catalog) At(i int) entities.Drug {
	return c.drugs[i]
}

// Drugs returns the drugs in catalog order. The returned slice is a copy.
func (c *Catalog) Drugs() []entities.Drug {
	if c == nil {
		return []entities.Drug{}
	}
	out := make([]entities.Drug, len(c.drugs))
	copy(out, c.drugs)
	return out
}

// ByID looks a drug up by its stable id
func (c *Catalog) ByID(id string) (entities.Drug, bool) {
	if c == nil {
		return entities.Drug{}, false
	}
	i, ok := c.byID[id]
	if !ok {
		return entities.Drug{}, false
	}
	return c.drugs[i], true
}

// Has reports whether id is present in the catalog
func (c *Catalog) Has(id string) bool {
	if c == nil {
		return false
	}
	_, ok := c.byID[id]
	return ok
}

// Aliases returns the normalized names of the drug at position i.
func (c *Catalog) Aliases(i int) []string {
	return c.aliases[i]
}

// Ingredients returns the normalized active ingredients of the drug at
// position i.
func (c *Catalog) Ingredients(i int) []string {
	return c.ingredients[i]
}
