// Package measure computes individual-based rarefaction curves and
// scale-dependent diversity indices (N, S, S_n, PIE, S_PIE, Chao1) over
// species abundance data, and aggregates them into alpha, gamma, and beta
// statistics. All functions are pure: assemblages are immutable after
// construction and derived values never mutate shared state.
package measure

import (
	"fmt"
	"sort"
)

// Assemblage maps species identifiers to non-negative individual counts.
// The zero value is an empty assemblage.
type Assemblage struct {
	counts map[string]int
	total  int
}

// New builds an assemblage from species counts. Counts must be non-negative
// and species identifiers non-empty; the input map is copied.
func New(counts map[string]int) (Assemblage, error) {
	cloned := make(map[string]int, len(counts))
	total := 0
	for species, count := range counts {
		if species == "" {
			return Assemblage{}, fmt.Errorf("%w: empty species identifier", ErrInvalidInput)
		}
		if count < 0 {
			return Assemblage{}, fmt.Errorf("%w: species %s has negative count %d", ErrInvalidInput, species, count)
		}
		cloned[species] = count
		total += count
	}
	return Assemblage{counts: cloned, total: total}, nil
}

// FromCounts builds an assemblage from an anonymous abundance vector,
// assigning zero-padded synthetic species identifiers so lexical order
// matches position.
func FromCounts(counts []int) (Assemblage, error) {
	width := len(fmt.Sprintf("%d", len(counts)))
	mapped := make(map[string]int, len(counts))
	for i, count := range counts {
		mapped[fmt.Sprintf("sp%0*d", width, i+1)] = count
	}
	return New(mapped)
}

// N returns total abundance.
func (a Assemblage) N() int { return a.total }

// S returns observed richness: the number of species with abundance > 0.
func (a Assemblage) S() int {
	s := 0
	for _, count := range a.counts {
		if count > 0 {
			s++
		}
	}
	return s
}

// Count returns the abundance recorded for a species (zero when absent).
func (a Assemblage) Count(species string) int { return a.counts[species] }

// Species returns all recorded species identifiers in sorted order,
// including zero-count entries.
func (a Assemblage) Species() []string {
	out := make([]string, 0, len(a.counts))
	for species := range a.counts {
		out = append(out, species)
	}
	sort.Strings(out)
	return out
}

// Counts returns abundances aligned with Species().
func (a Assemblage) Counts() []int {
	species := a.Species()
	out := make([]int, len(species))
	for i, sp := range species {
		out[i] = a.counts[sp]
	}
	return out
}

// abundances returns the positive counts only, in species order.
func (a Assemblage) abundances() []int {
	out := make([]int, 0, len(a.counts))
	for _, sp := range a.Species() {
		if c := a.counts[sp]; c > 0 {
			out = append(out, c)
		}
	}
	return out
}

// Pool sums this assemblage with others over the union of their species.
func (a Assemblage) Pool(others ...Assemblage) Assemblage {
	pooled := make(map[string]int, len(a.counts))
	total := a.total
	for species, count := range a.counts {
		pooled[species] = count
	}
	for _, other := range others {
		for species, count := range other.counts {
			pooled[species] += count
		}
		total += other.total
	}
	return Assemblage{counts: pooled, total: total}
}

// withSpecies returns a copy carrying every identifier in universe, absent
// species recorded as zero.
func (a Assemblage) withSpecies(universe []string) Assemblage {
	counts := make(map[string]int, len(universe))
	for _, species := range universe {
		counts[species] = a.counts[species]
	}
	return Assemblage{counts: counts, total: a.total}
}

// Sample tags an assemblage with its identity within a collection.
type Sample struct {
	ID         string
	Group      string
	X, Y       float64
	Assemblage Assemblage
}

// Collection is a set of samples sharing one species universe: every member
// assemblage records the union of species, absent species at zero.
type Collection struct {
	samples []Sample
	species []string
}

// NewCollection normalises the samples onto their shared species universe.
// Sample identifiers must be unique and non-empty.
func NewCollection(samples []Sample) (Collection, error) {
	seen := make(map[string]struct{}, len(samples))
	universe := make(map[string]struct{})
	for _, sample := range samples {
		if sample.ID == "" {
			return Collection{}, fmt.Errorf("%w: sample with empty identifier", ErrInvalidInput)
		}
		if _, dup := seen[sample.ID]; dup {
			return Collection{}, fmt.Errorf("%w: duplicate sample identifier %s", ErrInvalidInput, sample.ID)
		}
		seen[sample.ID] = struct{}{}
		for _, species := range sample.Assemblage.Species() {
			universe[species] = struct{}{}
		}
	}
	species := make([]string, 0, len(universe))
	for s := range universe {
		species = append(species, s)
	}
	sort.Strings(species)

	normalised := make([]Sample, len(samples))
	for i, sample := range samples {
		sample.Assemblage = sample.Assemblage.withSpecies(species)
		normalised[i] = sample
	}
	return Collection{samples: normalised, species: species}, nil
}

// Len returns the number of samples.
func (c Collection) Len() int { return len(c.samples) }

// Samples returns a copy of the member samples in construction order.
func (c Collection) Samples() []Sample {
	out := make([]Sample, len(c.samples))
	copy(out, c.samples)
	return out
}

// Species returns the shared species universe in sorted order.
func (c Collection) Species() []string {
	out := make([]string, len(c.species))
	copy(out, c.species)
	return out
}

// Groups returns the distinct group labels in sorted order.
func (c Collection) Groups() []string {
	set := make(map[string]struct{})
	for _, sample := range c.samples {
		set[sample.Group] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for g := range set {
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}

// Group returns the samples carrying the given group label.
func (c Collection) Group(label string) []Sample {
	var out []Sample
	for _, sample := range c.samples {
		if sample.Group == label {
			out = append(out, sample)
		}
	}
	return out
}

// PoolSamples pools explicit samples into one gamma-scale assemblage. Every
// sample must carry the same group label; mixing groups is a caller error.
func PoolSamples(samples []Sample) (Assemblage, error) {
	if len(samples) == 0 {
		return Assemblage{}, fmt.Errorf("%w: no samples to pool", ErrInvalidInput)
	}
	group := samples[0].Group
	pooled := samples[0].Assemblage
	for _, sample := range samples[1:] {
		if sample.Group != group {
			return Assemblage{}, fmt.Errorf("%w: sample %s has group %q, expected %q", ErrGroupMismatch, sample.ID, sample.Group, group)
		}
		pooled = pooled.Pool(sample.Assemblage)
	}
	return pooled, nil
}
