package risk

import (
	"github.com/giygas/medsafe-api/catalog"
	"github.com/giygas/medsafe-api/entities"
)

// Evaluator computes verdicts against one catalog snapshot. It is pure and
// safe for concurrent use.
type Evaluator struct {
	cat *catalog.Catalog
}

// NewEvaluator creates an evaluator. The catalog resolves interaction targets
// given by id.
func NewEvaluator(cat *catalog.Catalog) *Evaluator {
	return &Evaluator{cat: cat}
}

// levelRule is one entry of the ordered risk check list. The first rule that
// applies decides the level.
type levelRule struct {
	level   Level
	applies func(v *Verdict) bool
}

var levelRules = []levelRule{
	{High, func(v *Verdict) bool { return len(v.MatchedAllergies) > 0 }},
	{Medium, func(v *Verdict) bool { return len(v.MatchedConditions) > 0 }},
	{Medium, func(v *Verdict) bool { return len(v.MatchedDrugInteractions) > 0 }},
}

// Evaluate builds the verdict for drug given the user's profile and the other
// drugs being taken alongside it.
func (e *Evaluator) Evaluate(drug entities.Drug, profile entities.Profile, coAdministered []entities.Drug) Verdict {
	v := Verdict{
		Drug:                    drug,
		RiskLevel:               Low,
		MatchedAllergies:        intersect(drug.AllergyTriggers, profile.Allergies),
		MatchedConditions:       intersect(drug.ConditionContraindications, profile.Conditions),
		MatchedDrugInteractions: e.matchInteractions(drug, coAdministered),
		FoodInteractions:        append([]entities.FoodInteraction{}, drug.FoodInteractions...),
		Alcohol:                 drug.Alcohol,
		AlcoholNote:             drug.AlcoholNote,
	}

	for _, rule := range levelRules {
		if rule.applies(&v) {
			v.RiskLevel = rule.level
			break
		}
	}

	v.HasWarnings = len(v.MatchedAllergies) > 0 ||
		len(v.MatchedConditions) > 0 ||
		len(v.MatchedDrugInteractions) > 0 ||
		len(v.FoodInteractions) > 0 ||
		v.Alcohol != entities.AlcoholNone

	return v
}

// intersect returns the entries of catalogTerms that the user also lists,
// ignoring case and accents. Catalog spelling and order are kept and each
// term appears once.
func intersect(catalogTerms, userTerms []string) []string {
	matched := []string{}
	if len(catalogTerms) == 0 || len(userTerms) == 0 {
		return matched
	}

	user := make(map[string]bool, len(userTerms))
	for _, u := range userTerms {
		if key := catalog.Normalize(u); key != "" {
			user[key] = true
		}
	}

	seen := make(map[string]bool, len(catalogTerms))
	for _, term := range catalogTerms {
		key := catalog.Normalize(term)
		if key == "" || seen[key] || !user[key] {
			continue
		}
		seen[key] = true
		matched = append(matched, term)
	}
	return matched
}

func (e *Evaluator) matchInteractions(drug entities.Drug, coAdministered []entities.Drug) []entities.DrugInteraction {
	matched := []entities.DrugInteraction{}
	if len(drug.DrugInteractions) == 0 || len(coAdministered) == 0 {
		return matched
	}

	others := make([]entities.Drug, 0, len(coAdministered))
	for _, co := range coAdministered {
		if co.ID != drug.ID {
			others = append(others, co)
		}
	}

	for _, ix := range drug.DrugInteractions {
		if e.targets(ix, others) {
			matched = append(matched, ix)
		}
	}
	return matched
}

// targets reports whether ix refers to one of others. An id wins over a name;
// an id missing from the catalog never matches.
func (e *Evaluator) targets(ix entities.DrugInteraction, others []entities.Drug) bool {
	if ix.DrugID != "" {
		if !e.cat.Has(ix.DrugID) {
			return false
		}
		for _, co := range others {
			if co.ID == ix.DrugID {
				return true
			}
		}
		return false
	}

	name := catalog.Normalize(ix.DrugName)
	if name == "" {
		return false
	}
	for _, co := range others {
		for _, alias := range co.Aliases() {
			if catalog.Normalize(alias) == name {
				return true
			}
		}
		for _, ing := range co.ActiveIngredients {
			if catalog.Normalize(ing) == name {
				return true
			}
		}
	}
	return false
}
