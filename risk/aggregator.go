package risk

import (
	"cmp"
	"slices"

	"github.com/giygas/medsafe-api/entities"
	"golang.org/x/sync/errgroup"
)

// Aggregator evaluates a set of drugs taken together and orders the verdicts
// most severe first.
type Aggregator struct {
	ev          *Evaluator
	concurrency int
}

// NewAggregator creates an aggregator running at most concurrency
// evaluations at once. Values below 1 mean sequential.
func NewAggregator(ev *Evaluator, concurrency int) *Aggregator {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Aggregator{ev: ev, concurrency: concurrency}
}

// Aggregate returns one verdict per input drug. Each drug is evaluated
// against all the others; the result is sorted by risk level, keeping input
// order among equal levels.
func (a *Aggregator) Aggregate(drugs []entities.Drug, profile entities.Profile) []Verdict {
	verdicts := make([]Verdict, len(drugs))
	if len(drugs) == 0 {
		return verdicts
	}

	var g errgroup.Group
	g.SetLimit(a.concurrency)

	for i := range drugs {
		g.Go(func() error {
			verdicts[i] = a.ev.Evaluate(drugs[i], profile, without(drugs, i))
			return nil
		})
	}
	// Evaluate never fails
	_ = g.Wait()

	slices.SortStableFunc(verdicts, func(x, y Verdict) int {
		return cmp.Compare(x.RiskLevel, y.RiskLevel)
	})
	return verdicts
}

// without returns drugs minus position i, leaving drugs untouched
func without(drugs []entities.Drug, i int) []entities.Drug {
	out := make([]entities.Drug, 0, len(drugs)-1)
	out = append(out, drugs[:i]...)
	return append(out, drugs[i+1:]...)
}
