package measure

import (
	"errors"
	"testing"
)

func TestNewRejectsMalformedCounts(t *testing.T) {
	if _, err := New(map[string]int{"oak": -1}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input for negative count, got %v", err)
	}
	if _, err := New(map[string]int{"": 3}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input for empty species, got %v", err)
	}
}

func TestNewCopiesInput(t *testing.T) {
	counts := map[string]int{"oak": 4, "ash": 2}
	a, err := New(counts)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	counts["oak"] = 99
	if a.Count("oak") != 4 {
		t.Fatalf("assemblage must not alias caller map")
	}
	if a.N() != 6 || a.S() != 2 {
		t.Fatalf("unexpected totals N=%d S=%d", a.N(), a.S())
	}
}

func TestZeroCountSpeciesExcludedFromRichness(t *testing.T) {
	a, err := New(map[string]int{"oak": 3, "ash": 0})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if a.S() != 1 {
		t.Fatalf("expected richness 1, got %d", a.S())
	}
	if got := len(a.Species()); got != 2 {
		t.Fatalf("expected zero-count species retained, got %d entries", got)
	}
}

func TestFromCountsAssignsOrderedIdentifiers(t *testing.T) {
	a, err := FromCounts([]int{5, 0, 2})
	if err != nil {
		t.Fatalf("from counts: %v", err)
	}
	species := a.Species()
	if len(species) != 3 || species[0] != "sp1" || species[2] != "sp3" {
		t.Fatalf("unexpected species %v", species)
	}
	counts := a.Counts()
	if counts[0] != 5 || counts[1] != 0 || counts[2] != 2 {
		t.Fatalf("counts misaligned with species: %v", counts)
	}
}

func TestFromCountsPadsWideVectors(t *testing.T) {
	vector := make([]int, 12)
	for i := range vector {
		vector[i] = 1
	}
	a, err := FromCounts(vector)
	if err != nil {
		t.Fatalf("from counts: %v", err)
	}
	species := a.Species()
	if species[0] != "sp01" || species[11] != "sp12" {
		t.Fatalf("expected zero-padded identifiers, got %v", species)
	}
}

func TestPoolSumsUnionOfSpecies(t *testing.T) {
	a := mustAssemblage(t, map[string]int{"oak": 2, "ash": 1})
	b := mustAssemblage(t, map[string]int{"ash": 4, "elm": 3})
	pooled := a.Pool(b)
	if pooled.N() != 10 || pooled.S() != 3 {
		t.Fatalf("unexpected pooled totals N=%d S=%d", pooled.N(), pooled.S())
	}
	if pooled.Count("ash") != 5 {
		t.Fatalf("expected ash count 5, got %d", pooled.Count("ash"))
	}
	if a.Count("elm") != 0 || a.N() != 3 {
		t.Fatalf("pooling must not mutate the receiver")
	}
}

func TestNewCollectionNormalisesSpeciesUniverse(t *testing.T) {
	c, err := NewCollection([]Sample{
		{ID: "p1", Group: "invaded", Assemblage: mustAssemblage(t, map[string]int{"oak": 2})},
		{ID: "p2", Group: "invaded", Assemblage: mustAssemblage(t, map[string]int{"elm": 3})},
	})
	if err != nil {
		t.Fatalf("new collection: %v", err)
	}
	if got := c.Species(); len(got) != 2 {
		t.Fatalf("expected shared universe of 2 species, got %v", got)
	}
	for _, sample := range c.Samples() {
		if len(sample.Assemblage.Species()) != 2 {
			t.Fatalf("sample %s not normalised: %v", sample.ID, sample.Assemblage.Species())
		}
	}
	first := c.Samples()[0].Assemblage
	if first.Count("elm") != 0 || first.S() != 1 {
		t.Fatalf("absent species must be zero, not counted in richness")
	}
}

func TestNewCollectionRejectsDuplicateIDs(t *testing.T) {
	_, err := NewCollection([]Sample{
		{ID: "p1", Assemblage: mustAssemblage(t, map[string]int{"oak": 1})},
		{ID: "p1", Assemblage: mustAssemblage(t, map[string]int{"ash": 1})},
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input for duplicate ids, got %v", err)
	}
	if _, err := NewCollection([]Sample{{ID: ""}}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input for empty id, got %v", err)
	}
}

func TestCollectionGroups(t *testing.T) {
	c, err := NewCollection([]Sample{
		{ID: "p1", Group: "uninvaded", Assemblage: mustAssemblage(t, map[string]int{"oak": 1})},
		{ID: "p2", Group: "invaded", Assemblage: mustAssemblage(t, map[string]int{"oak": 2})},
		{ID: "p3", Group: "invaded", Assemblage: mustAssemblage(t, map[string]int{"ash": 1})},
	})
	if err != nil {
		t.Fatalf("new collection: %v", err)
	}
	groups := c.Groups()
	if len(groups) != 2 || groups[0] != "invaded" || groups[1] != "uninvaded" {
		t.Fatalf("unexpected groups %v", groups)
	}
	if got := len(c.Group("invaded")); got != 2 {
		t.Fatalf("expected 2 invaded samples, got %d", got)
	}
}

func TestPoolSamplesRejectsMixedGroups(t *testing.T) {
	samples := []Sample{
		{ID: "p1", Group: "invaded", Assemblage: mustAssemblage(t, map[string]int{"oak": 1})},
		{ID: "p2", Group: "uninvaded", Assemblage: mustAssemblage(t, map[string]int{"oak": 2})},
	}
	if _, err := PoolSamples(samples); !errors.Is(err, ErrGroupMismatch) {
		t.Fatalf("expected group mismatch, got %v", err)
	}
	if _, err := PoolSamples(nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input for empty pool, got %v", err)
	}
}

func mustAssemblage(t *testing.T, counts map[string]int) Assemblage {
	t.Helper()
	a, err := New(counts)
	if err != nil {
		t.Fatalf("assemblage: %v", err)
	}
	return a
}
