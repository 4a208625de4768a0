// Package entities holds the reference and user-owned records shared by the
// catalog, the risk engine and the cabinet inventory.
package entities

import (
	"fmt"
	"strings"
)

// AlcoholRestriction is the catalog guidance for drinking while on a drug.
type AlcoholRestriction int

const (
	AlcoholNone AlcoholRestriction = iota
	AlcoholCaution
	AlcoholLimit
	AlcoholAvoid
)

var alcoholNames = [...]string{"none", "caution", "limit", "avoid"}

func (a AlcoholRestriction) String() string {
	if a < 0 || int(a) >= len(alcoholNames) {
		return fmt.Sprintf("AlcoholRestriction(%d)", int(a))
	}
	return alcoholNames[a]
}

// MarshalText renders the restriction by name in JSON payloads
func (a AlcoholRestriction) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// ParseAlcoholRestriction maps a catalog value to its enum. An empty value
// means no restriction.
func ParseAlcoholRestriction(s string) (AlcoholRestriction, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return AlcoholNone, nil
	}
	for i, name := range alcoholNames {
		if s == name {
			return AlcoholRestriction(i), nil
		}
	}
	return AlcoholNone, fmt.Errorf("unknown alcohol restriction %q", s)
}

// Severity grades a food interaction.
type Severity int

const (
	SeverityMild Severity = iota
	SeverityModerate
	SeveritySevere
)

var severityNames = [...]string{"mild", "moderate", "severe"}

func (s Severity) String() string {
	if s < 0 || int(s) >= len(severityNames) {
		return fmt.Sprintf("Severity(%d)", int(s))
	}
	return severityNames[s]
}

// MarshalText renders the severity by name in JSON payloads
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ParseSeverity maps a catalog severity to its enum. "low", "medium" and
// "high" are accepted as aliases since older catalog exports use them.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mild", "low":
		return SeverityMild, nil
	case "moderate", "medium", "":
		return SeverityModerate, nil
	case "severe", "high":
		return SeveritySevere, nil
	}
	return SeverityMild, fmt.Errorf("unknown severity %q", s)
}

// DrugInteraction is a known drug-drug interaction. DrugID takes precedence
// over DrugName when both are set.
type DrugInteraction struct {
	DrugID      string `json:"drugId,omitempty"`
	DrugName    string `json:"drugName,omitempty"`
	Description string `json:"description"`
}

// FoodInteraction is a food restriction attached to a drug.
type FoodInteraction struct {
	Food        string   `json:"food"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
}

// Drug is one immutable catalog record.
type Drug struct {
	ID                         string             `json:"id"`
	DisplayName                string             `json:"displayName"`
	BrandNames                 []string           `json:"brandNames"`
	ActiveIngredients          []string           `json:"activeIngredients,omitempty"`
	IsCombination              bool               `json:"isCombination"`
	Category                   string             `json:"category"`
	AllergyTriggers            []string           `json:"allergyTriggers"`
	ConditionContraindications []string           `json:"conditionContraindications"`
	DrugInteractions           []DrugInteraction  `json:"drugInteractions"`
	FoodInteractions           []FoodInteraction  `json:"foodInteractions"`
	Alcohol                    AlcoholRestriction `json:"alcohol"`
	AlcoholNote                string             `json:"alcoholNote,omitempty"`
}

// Aliases returns every name the drug is known by: display name first, then
// brand names in catalog order.
func (d *Drug) Aliases() []string {
	aliases := make([]string, 0, len(d.BrandNames)+1)
	aliases = append(aliases, d.DisplayName)
	aliases = append(aliases, d.BrandNames...)
	return aliases
}

// Profile is the allergy and chronic-condition profile of a user. It is
// passed in on every evaluation and never stored.
type Profile struct {
	Allergies  []string `json:"allergies"`
	Conditions []string `json:"conditions"`
}
