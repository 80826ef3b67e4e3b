package measure

import (
	"errors"
	"strings"
	"testing"
)

func pairedCollection(t *testing.T) Collection {
	t.Helper()
	c, err := NewCollection([]Sample{
		{ID: "inv-1", Group: "invaded", Assemblage: mustAssemblage(t, map[string]int{"honeysuckle": 30, "oak": 3, "ash": 2})},
		{ID: "inv-2", Group: "invaded", Assemblage: mustAssemblage(t, map[string]int{"honeysuckle": 25, "oak": 5, "elm": 1})},
		{ID: "ref-1", Group: "uninvaded", Assemblage: mustAssemblage(t, map[string]int{"oak": 12, "ash": 9, "elm": 8, "maple": 6})},
		{ID: "ref-2", Group: "uninvaded", Assemblage: mustAssemblage(t, map[string]int{"oak": 10, "ash": 11, "elm": 7, "hickory": 5})},
	})
	if err != nil {
		t.Fatalf("collection: %v", err)
	}
	return c
}

func TestAggregateRecordShape(t *testing.T) {
	c := pairedCollection(t)
	summary, err := Aggregate(c, []Index{IndexN, IndexS, IndexSPIE}, Options{})
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if got := len(summary.Alpha); got != 12 {
		t.Fatalf("expected 12 alpha records (4 samples x 3 indices), got %d", got)
	}
	if got := len(summary.Gamma); got != 6 {
		t.Fatalf("expected 6 gamma records (2 groups x 3 indices), got %d", got)
	}
	// N has no beta decomposition, so only S and S_PIE contribute.
	if got := len(summary.Beta); got != 4 {
		t.Fatalf("expected 4 beta records, got %d", got)
	}
	for _, record := range summary.Beta {
		if record.Index == IndexN {
			t.Fatalf("N must not be beta-aggregated: %+v", record)
		}
		if record.Sample != "" {
			t.Fatalf("beta records are per-group: %+v", record)
		}
	}
}

func TestAggregateDefaultEffortIsMinimumAbundance(t *testing.T) {
	c := pairedCollection(t)
	if got := MinAbundance(c); got != 31 {
		t.Fatalf("expected min abundance 31, got %d", got)
	}
	summary, err := Aggregate(c, []Index{IndexSn}, Options{})
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	for _, record := range summary.Alpha {
		if record.Effort != 31 {
			t.Fatalf("expected default effort 31 on %s, got %d", record.Sample, record.Effort)
		}
	}
}

func TestAggregateExplicitEffortTooLarge(t *testing.T) {
	c := pairedCollection(t)
	_, err := Aggregate(c, []Index{IndexSn}, Options{Effort: 100})
	if !errors.Is(err, ErrInsufficientEffort) {
		t.Fatalf("expected insufficient effort, got %v", err)
	}
	if !strings.Contains(err.Error(), "inv-") {
		t.Fatalf("expected failing sample named in error, got %v", err)
	}
}

func TestAggregateInvasionContrast(t *testing.T) {
	c := pairedCollection(t)
	summary, err := Aggregate(c, []Index{IndexSPIE}, Options{})
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	byGroup := map[string]float64{}
	for _, record := range summary.Gamma {
		byGroup[record.Group] = record.Value
	}
	if byGroup["invaded"] >= byGroup["uninvaded"] {
		t.Fatalf("expected invader dominance to depress S_PIE: invaded=%v uninvaded=%v",
			byGroup["invaded"], byGroup["uninvaded"])
	}
}

func TestBetaIsExactlyOneForIdenticalSamples(t *testing.T) {
	counts := map[string]int{"a": 4, "b": 3, "c": 2, "d": 1}
	c, err := NewCollection([]Sample{
		{ID: "s1", Group: "g", Assemblage: mustAssemblage(t, counts)},
		{ID: "s2", Group: "g", Assemblage: mustAssemblage(t, counts)},
	})
	if err != nil {
		t.Fatalf("collection: %v", err)
	}
	for _, index := range []Index{IndexS, IndexSPIE} {
		beta, err := GroupBeta(c, "g", index, Options{})
		if err != nil {
			t.Fatalf("%s: %v", index, err)
		}
		if beta != 1.0 {
			t.Fatalf("%s: pooling identical samples must give beta exactly 1.0, got %v", index, beta)
		}
	}
}

func TestGammaRichnessBounds(t *testing.T) {
	a := mustAssemblage(t, map[string]int{"a1": 5, "a2": 5})
	b := mustAssemblage(t, map[string]int{"b1": 3, "b2": 3, "b3": 3})
	pooled, err := PoolSamples([]Sample{
		{ID: "s1", Group: "g", Assemblage: a},
		{ID: "s2", Group: "g", Assemblage: b},
	})
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	gammaS := pooled.S()
	if gammaS < a.S() || gammaS < b.S() {
		t.Fatalf("gamma richness %d below an alpha richness", gammaS)
	}
	if gammaS > a.S()+b.S() {
		t.Fatalf("gamma richness %d exceeds sum of alphas", gammaS)
	}
	if gammaS != 5 {
		t.Fatalf("disjoint species must sum: expected 5, got %d", gammaS)
	}
}

func TestGroupBetaRejectsUnsupportedIndex(t *testing.T) {
	c := pairedCollection(t)
	for _, index := range []Index{IndexN, IndexPIE, IndexChao1} {
		if _, err := GroupBeta(c, "invaded", index, Options{}); !errors.Is(err, ErrUnsupportedIndexForBeta) {
			t.Fatalf("%s: expected unsupported index error, got %v", index, err)
		}
	}
}

func TestGroupBetaUnknownGroup(t *testing.T) {
	c := pairedCollection(t)
	if _, err := GroupBeta(c, "restored", IndexS, Options{}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input for unknown group, got %v", err)
	}
}

func TestAggregateRejectsEmptyRequests(t *testing.T) {
	c := pairedCollection(t)
	if _, err := Aggregate(c, nil, Options{}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input for no indices, got %v", err)
	}
	if _, err := Aggregate(Collection{}, []Index{IndexS}, Options{}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input for empty collection, got %v", err)
	}
}
