package measure

import "fmt"

// Index names a diversity statistic computable from one assemblage.
type Index string

// Supported diversity indices.
const (
	// IndexN is total abundance.
	IndexN Index = "N"
	// IndexS is observed species richness.
	IndexS Index = "S"
	// IndexSn is rarefied richness at a target effort.
	IndexSn Index = "S_n"
	// IndexPIE is Hurlbert's probability of interspecific encounter,
	// computed without replacement (finite-sample form).
	IndexPIE Index = "PIE"
	// IndexSPIE is the effective number of species at diversity order q=2,
	// 1/Σ p_i². This is the asymptotic (with-replacement) form; see Diversity.
	IndexSPIE Index = "S_PIE"
	// IndexChao1 is the bias-corrected Chao1 asymptotic richness estimate.
	IndexChao1 Index = "chao1"
)

// Indices returns every supported index in presentation order.
func Indices() []Index {
	return []Index{IndexN, IndexS, IndexSn, IndexPIE, IndexSPIE, IndexChao1}
}

// ParseIndex maps a string onto a supported index.
func ParseIndex(s string) (Index, error) {
	for _, idx := range Indices() {
		if string(idx) == s {
			return idx, nil
		}
	}
	return "", fmt.Errorf("%w: unknown index %q", ErrInvalidInput, s)
}

// SupportsBeta reports whether an index has a multiplicative alpha/gamma
// decomposition (beta = gamma / mean alpha). Richness-like indices qualify;
// N and PIE do not.
func SupportsBeta(index Index) bool {
	switch index {
	case IndexS, IndexSn, IndexSPIE:
		return true
	default:
		return false
	}
}

// Options parameterises index computation.
type Options struct {
	// Effort is the S_n target draw size. Zero lets aggregation pick the
	// minimum total abundance across the collection.
	Effort int
	// Extrapolate permits S_n efforts beyond the observed abundance using a
	// Chao1-based estimator. Off by default: the conventional analysis
	// rarefies down to the smallest sample, never up.
	Extrapolate bool
}

// Diversity computes one index for one assemblage.
//
// Convention note: PIE is the finite-sample (without replacement) form
// 1 − Σ (N_i/N)((N_i−1)/(N−1)), while S_PIE is the asymptotic form 1/Σ p_i².
// The pairing keeps PIE interpretable as a two-draw encounter probability and
// makes S_PIE a true effective species number that is invariant under pooling
// of proportionally identical samples.
func Diversity(a Assemblage, index Index, opts Options) (float64, error) {
	switch index {
	case IndexN:
		return float64(a.N()), nil
	case IndexS:
		return float64(a.S()), nil
	case IndexSn:
		return rarefiedRichness(a, opts)
	case IndexPIE:
		return pie(a)
	case IndexSPIE:
		return spie(a)
	case IndexChao1:
		return Chao1(a)
	default:
		return 0, fmt.Errorf("%w: unknown index %q", ErrInvalidInput, index)
	}
}

func rarefiedRichness(a Assemblage, opts Options) (float64, error) {
	effort := opts.Effort
	if effort <= 0 {
		return 0, fmt.Errorf("%w: S_n requires a positive effort", ErrInvalidInput)
	}
	if effort > a.N() && opts.Extrapolate {
		return extrapolatedRichness(a, effort)
	}
	return ExpectedSpecies(a, effort)
}

func pie(a Assemblage) (float64, error) {
	total := a.N()
	if total <= 1 {
		return 0, fmt.Errorf("%w: PIE requires at least two individuals, have %d", ErrDegenerateSample, total)
	}
	n := float64(total)
	sum := 0.0
	for _, count := range a.abundances() {
		c := float64(count)
		sum += (c / n) * ((c - 1) / (n - 1))
	}
	return 1 - sum, nil
}

func spie(a Assemblage) (float64, error) {
	total := a.N()
	if total <= 1 {
		return 0, fmt.Errorf("%w: S_PIE requires at least two individuals, have %d", ErrDegenerateSample, total)
	}
	n := float64(total)
	sum := 0.0
	for _, count := range a.abundances() {
		p := float64(count) / n
		sum += p * p
	}
	return 1 / sum, nil
}
