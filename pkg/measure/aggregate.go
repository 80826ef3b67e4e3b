package measure

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// Scale identifies the level a diversity record was computed at.
type Scale string

// Diversity record scales.
const (
	// ScaleAlpha is a single-sample statistic.
	ScaleAlpha Scale = "alpha"
	// ScaleGamma is a pooled per-group statistic.
	ScaleGamma Scale = "gamma"
	// ScaleBeta is the gamma / mean-alpha ratio of a group.
	ScaleBeta Scale = "beta"
)

// Record is one computed diversity statistic.
type Record struct {
	Scale  Scale   `json:"scale"`
	Group  string  `json:"group"`
	Sample string  `json:"sample,omitempty"`
	Index  Index   `json:"index"`
	Effort int     `json:"effort,omitempty"`
	Value  float64 `json:"value"`
}

// Summary collects the alpha, gamma, and beta records of one aggregation.
type Summary struct {
	Alpha []Record `json:"alpha"`
	Gamma []Record `json:"gamma"`
	Beta  []Record `json:"beta"`
}

// Aggregate computes the requested indices at all three scales, partitioned
// by the samples' group labels:
//
//   - alpha: each index per sample,
//   - gamma: each index on the per-group pooled assemblage,
//   - beta: gamma / mean(alpha), only for indices with a multiplicative
//     decomposition (see SupportsBeta); other requested indices simply carry
//     no beta records. Use GroupBeta to make an unsupported request fail.
//
// When options leave the S_n effort unset, the minimum total abundance across
// the whole collection is used, so every sample is rarefied, never
// extrapolated.
func Aggregate(c Collection, indices []Index, opts Options) (Summary, error) {
	if len(indices) == 0 {
		return Summary{}, fmt.Errorf("%w: no indices requested", ErrInvalidInput)
	}
	if c.Len() == 0 {
		return Summary{}, fmt.Errorf("%w: empty collection", ErrInvalidInput)
	}
	opts = withDefaultEffort(c, opts)

	var summary Summary
	for _, group := range c.Groups() {
		members := c.Group(group)
		pooled, err := PoolSamples(members)
		if err != nil {
			return Summary{}, err
		}
		for _, index := range indices {
			alphas := make([]float64, 0, len(members))
			for _, sample := range members {
				value, err := Diversity(sample.Assemblage, index, opts)
				if err != nil {
					return Summary{}, fmt.Errorf("sample %s: %w", sample.ID, err)
				}
				alphas = append(alphas, value)
				summary.Alpha = append(summary.Alpha, newRecord(ScaleAlpha, group, sample.ID, index, opts, value))
			}
			gamma, err := Diversity(pooled, index, opts)
			if err != nil {
				return Summary{}, fmt.Errorf("group %s: %w", group, err)
			}
			summary.Gamma = append(summary.Gamma, newRecord(ScaleGamma, group, "", index, opts, gamma))

			if !SupportsBeta(index) {
				continue
			}
			meanAlpha := stat.Mean(alphas, nil)
			if meanAlpha == 0 {
				return Summary{}, fmt.Errorf("group %s: %w: zero mean alpha for %s", group, ErrDegenerateSample, index)
			}
			summary.Beta = append(summary.Beta, newRecord(ScaleBeta, group, "", index, opts, gamma/meanAlpha))
		}
	}
	return summary, nil
}

// GroupBeta computes the beta diversity of one group for one index. Unlike
// Aggregate, requesting an index without a multiplicative decomposition is an
// explicit error.
func GroupBeta(c Collection, group string, index Index, opts Options) (float64, error) {
	if !SupportsBeta(index) {
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedIndexForBeta, index)
	}
	members := c.Group(group)
	if len(members) == 0 {
		return 0, fmt.Errorf("%w: no samples in group %q", ErrInvalidInput, group)
	}
	opts = withDefaultEffort(c, opts)

	alphas := make([]float64, 0, len(members))
	for _, sample := range members {
		value, err := Diversity(sample.Assemblage, index, opts)
		if err != nil {
			return 0, fmt.Errorf("sample %s: %w", sample.ID, err)
		}
		alphas = append(alphas, value)
	}
	pooled, err := PoolSamples(members)
	if err != nil {
		return 0, err
	}
	gamma, err := Diversity(pooled, index, opts)
	if err != nil {
		return 0, fmt.Errorf("group %s: %w", group, err)
	}
	meanAlpha := stat.Mean(alphas, nil)
	if meanAlpha == 0 {
		return 0, fmt.Errorf("group %s: %w: zero mean alpha for %s", group, ErrDegenerateSample, index)
	}
	return gamma / meanAlpha, nil
}

// MinAbundance returns the smallest total abundance across the collection's
// samples, the conventional common effort for rarefied richness.
func MinAbundance(c Collection) int {
	minN := 0
	for i, sample := range c.samples {
		if n := sample.Assemblage.N(); i == 0 || n < minN {
			minN = n
		}
	}
	return minN
}

func withDefaultEffort(c Collection, opts Options) Options {
	if opts.Effort <= 0 {
		opts.Effort = MinAbundance(c)
	}
	return opts
}

func newRecord(scale Scale, group, sample string, index Index, opts Options, value float64) Record {
	record := Record{Scale: scale, Group: group, Sample: sample, Index: index, Value: value}
	if index == IndexSn {
		record.Effort = opts.Effort
	}
	return record
}
