package measure

import (
	"errors"
	"math"
	"testing"
)

// Five equally common species, ten individuals each.
func evenAssemblage(t *testing.T) Assemblage {
	t.Helper()
	return mustAssemblage(t, map[string]int{"a": 10, "b": 10, "c": 10, "d": 10, "e": 10})
}

// One dominant species with three singletons.
func dominatedAssemblage(t *testing.T) Assemblage {
	t.Helper()
	return mustAssemblage(t, map[string]int{"a": 47, "b": 1, "c": 1, "d": 1})
}

func TestDiversityEvenAssemblage(t *testing.T) {
	a := evenAssemblage(t)

	n, err := Diversity(a, IndexN, Options{})
	if err != nil || n != 50 {
		t.Fatalf("N: got %v (%v)", n, err)
	}
	s, err := Diversity(a, IndexS, Options{})
	if err != nil || s != 5 {
		t.Fatalf("S: got %v (%v)", s, err)
	}

	// PIE = 1 − Σ (N_i/N)((N_i−1)/(N−1)) = 1 − 5(10/50)(9/49) = 40/49.
	pieValue, err := Diversity(a, IndexPIE, Options{})
	if err != nil {
		t.Fatalf("PIE: %v", err)
	}
	if math.Abs(pieValue-40.0/49.0) > 1e-12 {
		t.Fatalf("expected PIE=40/49, got %v", pieValue)
	}

	// S_PIE = 1/Σ p² = 1/(5·0.04) = 5 for a perfectly even assemblage.
	spieValue, err := Diversity(a, IndexSPIE, Options{})
	if err != nil {
		t.Fatalf("S_PIE: %v", err)
	}
	if math.Abs(spieValue-5) > 1e-9 {
		t.Fatalf("expected S_PIE=5, got %v", spieValue)
	}

	sn, err := Diversity(a, IndexSn, Options{Effort: 50})
	if err != nil || sn != 5 {
		t.Fatalf("S_n at full effort: got %v (%v)", sn, err)
	}
}

func TestDiversityDominatedAssemblage(t *testing.T) {
	a := dominatedAssemblage(t)

	pieValue, err := Diversity(a, IndexPIE, Options{})
	if err != nil {
		t.Fatalf("PIE: %v", err)
	}
	// 1 − (47/50)(46/49) = 288/2450 ≈ 0.1176: dominance crushes evenness.
	if math.Abs(pieValue-288.0/2450.0) > 1e-12 {
		t.Fatalf("expected PIE=288/2450, got %v", pieValue)
	}

	spieValue, err := Diversity(a, IndexSPIE, Options{})
	if err != nil {
		t.Fatalf("S_PIE: %v", err)
	}
	if spieValue < 1.1 || spieValue > 1.3 {
		t.Fatalf("expected S_PIE in [1.1, 1.3], got %v", spieValue)
	}
}

func TestPIEFamilySingleSpecies(t *testing.T) {
	a := mustAssemblage(t, map[string]int{"only": 9})
	pieValue, err := Diversity(a, IndexPIE, Options{})
	if err != nil || pieValue != 0 {
		t.Fatalf("expected PIE=0 for a monoculture, got %v (%v)", pieValue, err)
	}
	spieValue, err := Diversity(a, IndexSPIE, Options{})
	if err != nil || spieValue != 1 {
		t.Fatalf("expected S_PIE=1 for a monoculture, got %v (%v)", spieValue, err)
	}
}

func TestPIEFamilyDegenerateSamples(t *testing.T) {
	single := mustAssemblage(t, map[string]int{"only": 1})
	for _, index := range []Index{IndexPIE, IndexSPIE} {
		if _, err := Diversity(single, index, Options{}); !errors.Is(err, ErrDegenerateSample) {
			t.Fatalf("%s: expected degenerate sample for N=1, got %v", index, err)
		}
		if _, err := Diversity(Assemblage{}, index, Options{}); !errors.Is(err, ErrDegenerateSample) {
			t.Fatalf("%s: expected degenerate sample for N=0, got %v", index, err)
		}
	}
}

func TestSPIEApproachesRichnessForEvenAssemblages(t *testing.T) {
	// 1/Σp² equals S exactly at any per-species count when counts are equal;
	// verify numerically at small and large k.
	for _, k := range []int{2, 10, 100000} {
		a := mustAssemblage(t, map[string]int{"a": k, "b": k, "c": k, "d": k, "e": k, "f": k, "g": k})
		got, err := Diversity(a, IndexSPIE, Options{})
		if err != nil {
			t.Fatalf("k=%d: %v", k, err)
		}
		if math.Abs(got-7) > 1e-9 {
			t.Fatalf("k=%d: expected S_PIE≈7, got %v", k, got)
		}
	}
}

func TestSnRequiresPositiveEffort(t *testing.T) {
	a := evenAssemblage(t)
	if _, err := Diversity(a, IndexSn, Options{}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input for unset effort, got %v", err)
	}
}

func TestDiversityUnknownIndex(t *testing.T) {
	if _, err := Diversity(evenAssemblage(t), Index("shannon"), Options{}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input for unknown index, got %v", err)
	}
}

func TestParseIndex(t *testing.T) {
	for _, idx := range Indices() {
		parsed, err := ParseIndex(string(idx))
		if err != nil || parsed != idx {
			t.Fatalf("round trip %s: got %s (%v)", idx, parsed, err)
		}
	}
	if _, err := ParseIndex("evenness"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input for unknown name, got %v", err)
	}
}

func TestSupportsBeta(t *testing.T) {
	supported := map[Index]bool{
		IndexS: true, IndexSn: true, IndexSPIE: true,
		IndexN: false, IndexPIE: false, IndexChao1: false,
	}
	for index, want := range supported {
		if got := SupportsBeta(index); got != want {
			t.Fatalf("SupportsBeta(%s) = %v, want %v", index, got, want)
		}
	}
}
