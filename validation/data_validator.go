// Package validation checks catalog records and request input.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/giygas/medsafe-api/entities"
	"github.com/giygas/medsafe-api/interfaces"
)

const (
	minQueryLength   = 2
	maxQueryLength   = 50
	maxQueryWords    = 6
	maxScanTextBytes = 10000
	maxNameLength    = 200
	maxListEntries   = 100
)

// Pre-compiled patterns, shared by every validation call
var (
	// letters (any script, so accented brand names pass), digits, spaces and
	// the punctuation drug names use
	inputRegex = regexp.MustCompile(`^[\p{L}\p{N}\s\-\.\+'/]+$`)
	idRegex    = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

	// plain substring checks, lowercased input
	dangerousPatterns = []string{
		"<script", "</script>", "javascript:", "vbscript:", "onload=", "onerror=",
		"eval(", "expression(", "@import",
		"' or ", "\" or ", "union select", "drop table", "delete from", "insert into",
		"--", "/*", "*/", "exec(",
		"; ", "| ", "`", "$(", "${",
		"../", "..\\", "%2e%2e", "file://",
		"{$ne:", "{$gt:", "{$where:", "{$regex:",
	}
)

// Compile-time check to ensure DataValidatorImpl implements DataValidator interface
var _ interfaces.DataValidator = (*DataValidatorImpl)(nil)

// DataValidatorImpl implements the interfaces.DataValidator interface
type DataValidatorImpl struct{}

// NewDataValidator creates a new data validator
func NewDataValidator() interfaces.DataValidator {
	return &DataValidatorImpl{}
}

// ValidateDrug checks a single catalog record
func (v *DataValidatorImpl) ValidateDrug(d *entities.Drug) error {
	if d == nil {
		return fmt.Errorf("drug is nil")
	}

	if !idRegex.MatchString(d.ID) {
		return fmt.Errorf("invalid drug id: %q", d.ID)
	}

	if strings.TrimSpace(d.DisplayName) == "" {
		return fmt.Errorf("empty display name for drug %s", d.ID)
	}

	if len(d.DisplayName) > maxNameLength {
		return fmt.Errorf("display name too long for drug %s: %d characters", d.ID, len(d.DisplayName))
	}

	for _, name := range d.BrandNames {
		if len(name) > maxNameLength {
			return fmt.Errorf("brand name too long for drug %s: %d characters", d.ID, len(name))
		}
	}

	if d.IsCombination && len(d.ActiveIngredients) == 0 {
		return fmt.Errorf("combination drug %s has no active ingredients", d.ID)
	}

	lists := map[string]int{
		"allergy triggers":   len(d.AllergyTriggers),
		"contraindications":  len(d.ConditionContraindications),
		"drug interactions":  len(d.DrugInteractions),
		"food interactions":  len(d.FoodInteractions),
		"brand names":        len(d.BrandNames),
		"active ingredients": len(d.ActiveIngredients),
	}
	for name, n := range lists {
		if n > maxListEntries {
			return fmt.Errorf("too many %s for drug %s: %d", name, d.ID, n)
		}
	}

	for _, ix := range d.DrugInteractions {
		if ix.DrugID == "" && strings.TrimSpace(ix.DrugName) == "" {
			return fmt.Errorf("interaction without target for drug %s", d.ID)
		}
		if ix.DrugID == d.ID {
			return fmt.Errorf("drug %s lists an interaction with itself", d.ID)
		}
	}

	return nil
}

// ValidateCatalogIntegrity performs comprehensive catalog validation. It
// stops at the first problem; ReportDataQuality lists all of them.
func (v *DataValidatorImpl) ValidateCatalogIntegrity(drugs []entities.Drug) error {
	if len(drugs) == 0 {
		return fmt.Errorf("no drugs found")
	}

	ids := make(map[string]bool, len(drugs))
	for i := range drugs {
		if ids[drugs[i].ID] {
			return fmt.Errorf("duplicate drug id found: %s", drugs[i].ID)
		}
		ids[drugs[i].ID] = true

		if err := v.ValidateDrug(&drugs[i]); err != nil {
			return fmt.Errorf("invalid drug %s: %w", drugs[i].ID, err)
		}
	}

	for _, d := range drugs {
		for _, ix := range d.DrugInteractions {
			if ix.DrugID != "" && !ids[ix.DrugID] {
				return fmt.Errorf("drug %s references unknown interaction target %s", d.ID, ix.DrugID)
			}
		}
	}

	return nil
}

// ReportDataQuality collects every data problem without rejecting the catalog
func (v *DataValidatorImpl) ReportDataQuality(drugs []entities.Drug) *interfaces.DataQualityReport {
	report := &interfaces.DataQualityReport{
		DuplicateIDs:                   []string{},
		DanglingInteractions:           []string{},
		CombinationsWithoutIngredients: []string{},
	}

	// Check 1: duplicate ids, each reported once
	seen := make(map[string]int, len(drugs))
	for _, d := range drugs {
		seen[d.ID]++
		if seen[d.ID] == 2 {
			report.DuplicateIDs = append(report.DuplicateIDs, d.ID)
		}
	}

	for _, d := range drugs {
		// Check 2: interaction ids that resolve to nothing
		for _, ix := range d.DrugInteractions {
			if ix.DrugID != "" && seen[ix.DrugID] == 0 {
				report.DanglingInteractions = append(report.DanglingInteractions, d.ID+"->"+ix.DrugID)
			}
		}

		// Check 3: combinations that can never match by ingredient
		if d.IsCombination && len(d.ActiveIngredients) == 0 {
			report.CombinationsWithoutIngredients = append(report.CombinationsWithoutIngredients, d.ID)
		}

		// Check 4: sparse records
		if len(d.BrandNames) == 0 {
			report.DrugsWithoutBrandNames++
		}
		if len(d.AllergyTriggers) == 0 && len(d.ConditionContraindications) == 0 &&
			len(d.DrugInteractions) == 0 && len(d.FoodInteractions) == 0 &&
			d.Alcohol == entities.AlcoholNone {
			report.DrugsWithoutWarnings++
		}
	}

	return report
}

// DeduplicateDrugs keeps the first record of every id, preserving order
func DeduplicateDrugs(drugs []entities.Drug) []entities.Drug {
	out := make([]entities.Drug, 0, len(drugs))
	seen := make(map[string]bool, len(drugs))
	for _, d := range drugs {
		if seen[d.ID] {
			continue
		}
		seen[d.ID] = true
		out = append(out, d)
	}
	return out
}

// ValidateInput validates search queries with enhanced security
func (v *DataValidatorImpl) ValidateInput(input string) error {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return fmt.Errorf("input cannot be empty")
	}

	if utf8.RuneCountInString(trimmed) < minQueryLength {
		return fmt.Errorf("input too short: minimum %d characters", minQueryLength)
	}

	if utf8.RuneCountInString(input) > maxQueryLength {
		return fmt.Errorf("input too long: maximum %d characters", maxQueryLength)
	}

	// Word count validation to prevent DoS attacks with many short words
	if len(strings.Fields(input)) > maxQueryWords {
		return fmt.Errorf("search query too complex: maximum %d words allowed", maxQueryWords)
	}

	if err := checkDangerous(input); err != nil {
		return err
	}

	if !inputRegex.MatchString(input) {
		return fmt.Errorf("input contains invalid characters. Only letters, numbers, spaces, hyphens, apostrophes, periods, slashes and plus sign are allowed")
	}

	if hasExcessiveRepetition(input) {
		return fmt.Errorf("input contains excessive character repetition")
	}

	return nil
}

// ValidateScanText validates recognized label text. Scanner output is noisy
// so punctuation is allowed, but size and encoding are bounded.
func (v *DataValidatorImpl) ValidateScanText(text string) error {
	if len(text) > maxScanTextBytes {
		return fmt.Errorf("scan text too long: maximum %d bytes", maxScanTextBytes)
	}

	if !utf8.ValidString(text) {
		return fmt.Errorf("scan text is not valid UTF-8")
	}

	if strings.ContainsRune(text, 0) {
		return fmt.Errorf("scan text contains NUL bytes")
	}

	return nil
}

// ValidateID validates drug, user and medicine identifiers
func (v *DataValidatorImpl) ValidateID(input string) error {
	if input == "" {
		return fmt.Errorf("id cannot be empty")
	}
	if !idRegex.MatchString(input) {
		return fmt.Errorf("id contains invalid characters. Only letters, numbers, hyphens and underscores are allowed (max 64)")
	}
	return nil
}

func checkDangerous(input string) error {
	lower := strings.ToLower(input)
	for _, pattern := range dangerousPatterns {
		if strings.Contains(lower, pattern) {
			return fmt.Errorf("input contains potentially dangerous content")
		}
	}
	return nil
}

// hasExcessiveRepetition reports a rune repeated more than 10 times in a row
func hasExcessiveRepetition(input string) bool {
	var prev rune
	run := 0
	for _, r := range input {
		if r == prev {
			run++
			if run > 10 {
				return true
			}
			continue
		}
		prev = r
		run = 1
	}
	return false
}
