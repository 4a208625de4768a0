package handlers

import (
	"bytes"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/giygas/medsafe-api/catalog"
	"github.com/giygas/medsafe-api/entities"
)

// ============================================================================
// BENCHMARKS
// ============================================================================

func benchEnv(b *testing.B, size int) *testEnv {
	env := newTestEnv(b)

	drugs := make([]entities.Drug, 0, size)
	for i := range size {
		drugs = append(drugs, entities.Drug{
			ID:              fmt.Sprintf("drug-%d", i),
			DisplayName:     fmt.Sprintf("Testdrug %d", i),
			BrandNames:      []string{fmt.Sprintf("Brand%d", i)},
			AllergyTriggers: []string{"Penicillin"},
		})
	}
	cat, err := catalog.New(drugs)
	if err != nil {
		b.Fatalf("catalog.New failed: %v", err)
	}
	env.container.UpdateCatalog(cat, nil)
	return env
}

// BenchmarkSearchDrugs benchmarks the search endpoint over a large catalog
func BenchmarkSearchDrugs(b *testing.B) {
	env := benchEnv(b, 5000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/v1/drugs/search?q=brand42", nil)
		env.router.ServeHTTP(rr, req)
	}
}

// BenchmarkEvaluateVerdicts benchmarks a ten-drug verdict request
func BenchmarkEvaluateVerdicts(b *testing.B) {
	env := benchEnv(b, 1000)
	body := []byte(`{"drugIds":["drug-1","drug-2","drug-3","drug-4","drug-5","drug-6","drug-7","drug-8","drug-9","drug-10"],"allergies":["penicillin"]}`)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/v1/verdicts", bytes.NewReader(body))
		env.router.ServeHTTP(rr, req)
	}
}
