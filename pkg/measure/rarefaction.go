package measure

import (
	"fmt"
	"math"
)

// Curve holds expected species richness for draw sizes 0..N of one
// assemblage. It is non-decreasing, starts at zero, and ends at exactly the
// observed richness S.
type Curve struct {
	values []float64
}

// Len returns the number of curve points (N+1, including the zero draw).
func (c Curve) Len() int { return len(c.values) }

// At returns the expected richness for a draw of n individuals.
func (c Curve) At(n int) (float64, error) {
	if n < 0 {
		return 0, fmt.Errorf("%w: negative draw size %d", ErrInvalidInput, n)
	}
	if n >= len(c.values) {
		return 0, fmt.Errorf("%w: draw size %d exceeds available %d individuals", ErrInsufficientEffort, n, len(c.values)-1)
	}
	return c.values[n], nil
}

// Values returns a copy of the curve ordinates for draw sizes 0..N.
func (c Curve) Values() []float64 {
	out := make([]float64, len(c.values))
	copy(out, c.values)
	return out
}

// Rarefy computes the individual-based rarefaction curve of an assemblage:
// the expected number of species observed when drawing n individuals without
// replacement, for every n from 0 to total abundance N (Hurlbert 1971),
//
//	E[S_n] = S − Σ_i C(N−N_i, n) / C(N, n)
//
// with the binomial ratio evaluated through log-gamma so large abundances
// cannot overflow.
func Rarefy(a Assemblage) (Curve, error) {
	total := a.N()
	values := make([]float64, total+1)
	for n := 0; n <= total; n++ {
		v, err := ExpectedSpecies(a, n)
		if err != nil {
			return Curve{}, err
		}
		values[n] = v
	}
	return Curve{values: values}, nil
}

// ExpectedSpecies computes a single rarefaction point E[S_n]. A draw of zero
// yields zero and a draw of N yields exactly S; draws beyond N fail with
// ErrInsufficientEffort (use Diversity with extrapolation enabled to estimate
// past the observed effort).
func ExpectedSpecies(a Assemblage, n int) (float64, error) {
	if n < 0 {
		return 0, fmt.Errorf("%w: negative draw size %d", ErrInvalidInput, n)
	}
	if n == 0 {
		return 0, nil
	}
	total := a.N()
	if total == 0 {
		return 0, fmt.Errorf("%w: cannot draw %d individuals from an empty assemblage", ErrInvalidInput, n)
	}
	if n > total {
		return 0, fmt.Errorf("%w: draw size %d exceeds available %d individuals", ErrInsufficientEffort, n, total)
	}

	abund := a.abundances()
	expected := float64(len(abund))
	for _, count := range abund {
		remaining := total - count
		if n > remaining {
			// The species is guaranteed to appear in the draw.
			continue
		}
		expected -= math.Exp(lnChoose(remaining, n) - lnChoose(total, n))
	}
	if expected < 0 {
		expected = 0
	}
	return expected, nil
}

// lnChoose returns ln C(n, k) for 0 <= k <= n via log-gamma.
func lnChoose(n, k int) float64 {
	if k == 0 || k == n {
		return 0
	}
	ln1, _ := math.Lgamma(float64(n + 1))
	ln2, _ := math.Lgamma(float64(k + 1))
	ln3, _ := math.Lgamma(float64(n - k + 1))
	return ln1 - ln2 - ln3
}
