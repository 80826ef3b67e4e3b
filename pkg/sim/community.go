// Package sim generates spatially explicit model communities: a lognormal
// species abundance distribution placed into a rectangular extent either
// uniformly at random or as Thomas cluster processes, then sampled with
// square quadrats into assemblages. Every stochastic function takes an
// explicit random source; the package holds no generator state.
package sim

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Extent is the rectangular region individuals live in.
type Extent struct {
	XMin, YMin, XMax, YMax float64
}

// UnitExtent returns the conventional unit square.
func UnitExtent() Extent {
	return Extent{XMin: 0, YMin: 0, XMax: 1, YMax: 1}
}

// Width returns the horizontal span.
func (e Extent) Width() float64 { return e.XMax - e.XMin }

// Height returns the vertical span.
func (e Extent) Height() float64 { return e.YMax - e.YMin }

func (e Extent) valid() bool {
	return e.Width() > 0 && e.Height() > 0
}

// Community is a set of located individuals with species identities.
type Community struct {
	X       []float64
	Y       []float64
	Species []string
	Extent  Extent
}

// Len returns the number of individuals.
func (c Community) Len() int { return len(c.Species) }

// Abundances tallies individuals per species.
func (c Community) Abundances() map[string]int {
	counts := make(map[string]int)
	for _, species := range c.Species {
		counts[species]++
	}
	return counts
}

// RandomCommunity places the abundance vector uniformly at random in the
// extent (a homogeneous Poisson pattern conditioned on the totals).
func RandomCommunity(abundances []int, extent Extent, rng *rand.Rand) (Community, error) {
	community, err := newCommunity(abundances, extent, rng)
	if err != nil {
		return Community{}, err
	}
	for i := range community.X {
		community.X[i] = extent.XMin + rng.Float64()*extent.Width()
		community.Y[i] = extent.YMin + rng.Float64()*extent.Height()
	}
	return community, nil
}

// ThomasCommunity places each species as a Thomas cluster process: mother
// points uniform in the extent, individuals assigned to mothers uniformly and
// displaced by a normal kernel of the given sigma, wrapped torus-style so the
// intensity stays uniform near edges.
func ThomasCommunity(abundances []int, extent Extent, clusters int, sigma float64, rng *rand.Rand) (Community, error) {
	if clusters < 1 {
		return Community{}, fmt.Errorf("sim: cluster count must be at least 1, got %d", clusters)
	}
	if sigma <= 0 {
		return Community{}, fmt.Errorf("sim: cluster sigma must be positive, got %v", sigma)
	}
	community, err := newCommunity(abundances, extent, rng)
	if err != nil {
		return Community{}, err
	}
	kernel := distuv.Normal{Mu: 0, Sigma: sigma, Src: rng}

	offset := 0
	for _, count := range abundances {
		motherX := make([]float64, clusters)
		motherY := make([]float64, clusters)
		for m := 0; m < clusters; m++ {
			motherX[m] = extent.XMin + rng.Float64()*extent.Width()
			motherY[m] = extent.YMin + rng.Float64()*extent.Height()
		}
		for i := 0; i < count; i++ {
			m := rng.Intn(clusters)
			community.X[offset+i] = wrap(motherX[m]+kernel.Rand(), extent.XMin, extent.XMax)
			community.Y[offset+i] = wrap(motherY[m]+kernel.Rand(), extent.YMin, extent.YMax)
		}
		offset += count
	}
	return community, nil
}

func newCommunity(abundances []int, extent Extent, rng *rand.Rand) (Community, error) {
	if rng == nil {
		return Community{}, fmt.Errorf("sim: nil random source")
	}
	if !extent.valid() {
		return Community{}, fmt.Errorf("sim: degenerate extent %+v", extent)
	}
	total := 0
	for i, count := range abundances {
		if count < 0 {
			return Community{}, fmt.Errorf("sim: species %d has negative abundance %d", i+1, count)
		}
		total += count
	}
	community := Community{
		X:       make([]float64, total),
		Y:       make([]float64, total),
		Species: make([]string, total),
		Extent:  extent,
	}
	width := len(fmt.Sprintf("%d", len(abundances)))
	offset := 0
	for i, count := range abundances {
		name := fmt.Sprintf("sp%0*d", width, i+1)
		for j := 0; j < count; j++ {
			community.Species[offset+j] = name
		}
		offset += count
	}
	return community, nil
}

// wrap folds a coordinate back into [min, max) so cluster kernels spilling
// over an edge re-enter on the opposite side.
func wrap(v, min, max float64) float64 {
	span := max - min
	for v < min {
		v += span
	}
	for v >= max {
		v -= span
	}
	return v
}
