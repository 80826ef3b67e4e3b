package sim

import (
	"fmt"
	"math"
	"sort"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// SADConfig describes a lognormal species abundance distribution.
type SADConfig struct {
	// Species is the size of the species pool.
	Species int
	// Individuals is the community size to distribute over the pool.
	Individuals int
	// CVAbund is the coefficient of variation of the underlying lognormal.
	// Larger values give steeper dominance. Non-positive defaults to 1.
	CVAbund float64
	// FixRichness forces every species in the pool to receive at least one
	// individual, so realized richness equals the pool size.
	FixRichness bool
}

// LogNormalSAD draws relative abundances from a lognormal distribution and
// allocates the requested number of individuals to species in proportion.
// The returned vector has one entry per pool species; entries may be zero
// unless FixRichness is set.
func LogNormalSAD(cfg SADConfig, rng *rand.Rand) ([]int, error) {
	if rng == nil {
		return nil, fmt.Errorf("sim: nil random source")
	}
	if cfg.Species < 1 {
		return nil, fmt.Errorf("sim: species pool must be positive, got %d", cfg.Species)
	}
	if cfg.Individuals < 0 {
		return nil, fmt.Errorf("sim: community size must be non-negative, got %d", cfg.Individuals)
	}
	if cfg.FixRichness && cfg.Individuals < cfg.Species {
		return nil, fmt.Errorf("sim: cannot fix richness at %d species with only %d individuals", cfg.Species, cfg.Individuals)
	}

	cv := cfg.CVAbund
	if cv <= 0 {
		cv = 1
	}
	sigma := math.Sqrt(math.Log(1 + cv*cv))
	dist := distuv.LogNormal{Mu: 0, Sigma: sigma, Src: rng}

	weights := make([]float64, cfg.Species)
	var sum float64
	for i := range weights {
		weights[i] = dist.Rand()
		sum += weights[i]
	}

	cumulative := make([]float64, cfg.Species)
	acc := 0.0
	for i, w := range weights {
		acc += w / sum
		cumulative[i] = acc
	}
	cumulative[cfg.Species-1] = 1

	abundances := make([]int, cfg.Species)
	remaining := cfg.Individuals
	if cfg.FixRichness {
		for i := range abundances {
			abundances[i] = 1
		}
		remaining -= cfg.Species
	}
	for i := 0; i < remaining; i++ {
		j := sort.SearchFloat64s(cumulative, rng.Float64())
		abundances[j]++
	}
	return abundances, nil
}
