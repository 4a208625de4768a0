// Package risk turns a drug, a user profile and the other drugs being taken
// into a safety verdict, and orders verdicts for display.
package risk

import (
	"fmt"
	"strings"

	"github.com/giygas/medsafe-api/entities"
)

// Level ranks a verdict. Lower ordinals are more severe and sort first.
type Level int

const (
	High Level = iota
	Medium
	Low
)

var levelNames = [...]string{"high", "medium", "low"}

func (l Level) String() string {
	if l < 0 || int(l) >= len(levelNames) {
		return fmt.Sprintf("Level(%d)", int(l))
	}
	return levelNames[l]
}

// MarshalText renders the level by name in JSON payloads
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// ParseLevel maps a level name back to its enum
func ParseLevel(s string) (Level, error) {
	for i, name := range levelNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return Level(i), nil
		}
	}
	return Low, fmt.Errorf("unknown risk level %q", s)
}

// Verdict is the evaluation of one drug for one profile. It is built once by
// the Evaluator and never modified.
type Verdict struct {
	Drug                    entities.Drug               `json:"drug"`
	RiskLevel               Level                       `json:"riskLevel"`
	MatchedAllergies        []string                    `json:"matchedAllergies"`
	MatchedConditions       []string                    `json:"matchedConditions"`
	MatchedDrugInteractions []entities.DrugInteraction  `json:"matchedDrugInteractions"`
	FoodInteractions        []entities.FoodInteraction  `json:"foodInteractions"`
	Alcohol                 entities.AlcoholRestriction `json:"alcohol"`
	AlcoholNote             string                      `json:"alcoholNote,omitempty"`
	HasWarnings             bool                        `json:"hasWarnings"`
}
