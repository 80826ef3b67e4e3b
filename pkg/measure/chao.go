package measure

import (
	"fmt"
	"math"
)

// Chao1 estimates asymptotic species richness from singleton and doubleton
// frequencies using the bias-corrected form
//
//	S_chao1 = S + f1(f1−1) / (2(f2+1))
//
// where f1 and f2 count species observed exactly once and twice.
func Chao1(a Assemblage) (float64, error) {
	if a.N() == 0 {
		return 0, fmt.Errorf("%w: Chao1 requires a non-empty assemblage", ErrInvalidInput)
	}
	f1, f2 := rareFrequencies(a)
	return float64(a.S()) + float64(f1)*float64(f1-1)/(2*float64(f2+1)), nil
}

// extrapolatedRichness estimates expected richness for efforts beyond the
// observed abundance by extending the rarefaction curve with the Chao1
// unseen-species estimate:
//
//	S(N+m) = S + f̂0 (1 − (1 − f1/(N f̂0 + f1))^m)
//
// With no singletons the unseen-species estimate is zero and the curve stays
// flat at S.
func extrapolatedRichness(a Assemblage, effort int) (float64, error) {
	total := a.N()
	if effort <= total {
		return ExpectedSpecies(a, effort)
	}
	observed := float64(a.S())
	f1, f2 := rareFrequencies(a)
	if f1 == 0 {
		return observed, nil
	}
	f0 := float64(f1) * float64(f1-1) / (2 * float64(f2+1))
	if f0 <= 0 {
		return observed, nil
	}
	m := float64(effort - total)
	ratio := float64(f1) / (float64(total)*f0 + float64(f1))
	return observed + f0*(1-math.Pow(1-ratio, m)), nil
}

func rareFrequencies(a Assemblage) (f1, f2 int) {
	for _, count := range a.abundances() {
		switch count {
		case 1:
			f1++
		case 2:
			f2++
		}
	}
	return f1, f2
}
