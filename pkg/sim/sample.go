package sim

import (
	"fmt"

	"golang.org/x/exp/rand"

	"biodivcore/pkg/measure"
)

// QuadratConfig describes square sampling plots thrown into a community.
type QuadratConfig struct {
	// Count is the number of quadrats to place.
	Count int
	// Size is the quadrat side length in extent units.
	Size float64
	// Group labels every produced sample, e.g. a treatment name.
	Group string
}

// SampleQuadrats throws Count non-aligned square quadrats into the community
// extent and tallies the individuals falling inside each. Quadrat origins are
// uniform over positions where the square fits entirely inside the extent.
// Sample coordinates are quadrat centers and sample IDs are q1..qN.
func SampleQuadrats(c Community, cfg QuadratConfig, rng *rand.Rand) ([]measure.Sample, error) {
	if rng == nil {
		return nil, fmt.Errorf("sim: nil random source")
	}
	if cfg.Count < 1 {
		return nil, fmt.Errorf("sim: quadrat count must be at least 1, got %d", cfg.Count)
	}
	if cfg.Size <= 0 {
		return nil, fmt.Errorf("sim: quadrat size must be positive, got %v", cfg.Size)
	}
	if cfg.Size > c.Extent.Width() || cfg.Size > c.Extent.Height() {
		return nil, fmt.Errorf("sim: quadrat size %v exceeds extent %vx%v", cfg.Size, c.Extent.Width(), c.Extent.Height())
	}

	width := len(fmt.Sprintf("%d", cfg.Count))
	samples := make([]measure.Sample, 0, cfg.Count)
	for q := 0; q < cfg.Count; q++ {
		x0 := c.Extent.XMin + rng.Float64()*(c.Extent.Width()-cfg.Size)
		y0 := c.Extent.YMin + rng.Float64()*(c.Extent.Height()-cfg.Size)

		counts := make(map[string]int)
		for i := range c.Species {
			if c.X[i] >= x0 && c.X[i] < x0+cfg.Size && c.Y[i] >= y0 && c.Y[i] < y0+cfg.Size {
				counts[c.Species[i]]++
			}
		}
		assemblage, err := measure.New(counts)
		if err != nil {
			return nil, fmt.Errorf("sim: quadrat %d: %w", q+1, err)
		}
		samples = append(samples, measure.Sample{
			ID:         fmt.Sprintf("q%0*d", width, q+1),
			Group:      cfg.Group,
			X:          x0 + cfg.Size/2,
			Y:          y0 + cfg.Size/2,
			Assemblage: assemblage,
		})
	}
	return samples, nil
}
