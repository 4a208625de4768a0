// Package catalogparser loads the drug reference catalog from its YAML file,
// optionally refreshing the file from a remote source first.
package catalogparser

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/giygas/medsafe-api/entities"
	"github.com/giygas/medsafe-api/logging"
	"golang.org/x/text/encoding/charmap"
	"gopkg.in/yaml.v3"
)

type catalogFile struct {
	Version string      `yaml:"version"`
	Drugs   []drugEntry `yaml:"drugs"`
}

type drugEntry struct {
	ID                string             `yaml:"id"`
	Name              string             `yaml:"name"`
	Brands            []string           `yaml:"brands"`
	Ingredients       []string           `yaml:"ingredients"`
	Combination       bool               `yaml:"combination"`
	Category          string             `yaml:"category"`
	AllergyTriggers   []string           `yaml:"allergy_triggers"`
	Contraindications []string           `yaml:"contraindications"`
	Interactions      []interactionEntry `yaml:"interactions"`
	Food              []foodEntry        `yaml:"food"`
	Alcohol           string             `yaml:"alcohol"`
	AlcoholNote       string             `yaml:"alcohol_note"`
}

type interactionEntry struct {
	DrugID      string `yaml:"drug_id"`
	DrugName    string `yaml:"drug_name"`
	Description string `yaml:"description"`
}

type foodEntry struct {
	Food        string `yaml:"food"`
	Severity    string `yaml:"severity"`
	Description string `yaml:"description"`
}

// ParseCatalog reads the catalog file at path. Records that cannot be
// converted are skipped with a warning; a file that cannot be read or
// decoded is an error.
func ParseCatalog(path string) ([]entities.Drug, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}

	content, err := toUTF8(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode catalog %s: %w", path, err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(content, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", path, err)
	}

	drugs := make([]entities.Drug, 0, len(file.Drugs))
	skipped := 0
	for i, entry := range file.Drugs {
		d, err := entry.toDrug()
		if err != nil {
			logging.Warn("Skipping invalid catalog record", "index", i, "id", entry.ID, "error", err)
			skipped++
			continue
		}
		drugs = append(drugs, d)
	}

	logging.Debug("Catalog parsed", "path", path, "version", file.Version, "drugs", len(drugs), "skipped", skipped)
	return drugs, nil
}

// toUTF8 passes UTF-8 content through and decodes anything else as
// ISO-8859-1, which older catalog exports use.
func toUTF8(raw []byte) ([]byte, error) {
	if utf8.Valid(raw) {
		return raw, nil
	}
	return io.ReadAll(charmap.ISO8859_1.NewDecoder().Reader(bytes.NewReader(raw)))
}

func (e drugEntry) toDrug() (entities.Drug, error) {
	id := strings.TrimSpace(e.ID)
	name := strings.TrimSpace(e.Name)
	if id == "" {
		return entities.Drug{}, fmt.Errorf("missing id")
	}
	if name == "" {
		return entities.Drug{}, fmt.Errorf("missing name")
	}

	alcohol, err := entities.ParseAlcoholRestriction(e.Alcohol)
	if err != nil {
		return entities.Drug{}, err
	}

	d := entities.Drug{
		ID:                         id,
		DisplayName:                name,
		BrandNames:                 cleanList(e.Brands),
		ActiveIngredients:          cleanList(e.Ingredients),
		IsCombination:              e.Combination,
		Category:                   strings.TrimSpace(e.Category),
		AllergyTriggers:            cleanList(e.AllergyTriggers),
		ConditionContraindications: cleanList(e.Contraindications),
		Alcohol:                    alcohol,
		AlcoholNote:                strings.TrimSpace(e.AlcoholNote),
	}

	for _, in := range e.Interactions {
		ix := entities.DrugInteraction{
			DrugID:      strings.TrimSpace(in.DrugID),
			DrugName:    strings.TrimSpace(in.DrugName),
			Description: strings.TrimSpace(in.Description),
		}
		if ix.DrugID == "" && ix.DrugName == "" {
			return entities.Drug{}, fmt.Errorf("interaction without drug_id or drug_name")
		}
		d.DrugInteractions = append(d.DrugInteractions, ix)
	}

	for _, f := range e.Food {
		sev, err := entities.ParseSeverity(f.Severity)
		if err != nil {
			return entities.Drug{}, fmt.Errorf("food interaction %q: %w", f.Food, err)
		}
		food := strings.TrimSpace(f.Food)
		if food == "" {
			return entities.Drug{}, fmt.Errorf("food interaction without food")
		}
		d.FoodInteractions = append(d.FoodInteractions, entities.FoodInteraction{
			Food:        food,
			Severity:    sev,
			Description: strings.TrimSpace(f.Description),
		})
	}

	return d, nil
}

// cleanList trims entries and drops blanks, keeping order
func cleanList(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
