// Package table converts survey abundance data between long observation
// records and wide site-by-species tables, and reads and writes both shapes
// as CSV. It is the reshaping collaborator in front of the measurement core:
// records go in, measure.Collections come out.
package table

import (
	"fmt"
	"sort"

	"biodivcore/pkg/measure"
)

// Record is one observation in long form.
type Record struct {
	Sample  string  `json:"sample"`
	Group   string  `json:"group,omitempty"`
	X       float64 `json:"x,omitempty"`
	Y       float64 `json:"y,omitempty"`
	Species string  `json:"species"`
	Count   int     `json:"count"`
}

// Records is a long observation table.
type Records []Record

// Wide is a site-by-species abundance matrix. Species columns are sorted and
// every row carries a count for every species.
type Wide struct {
	Species []string
	Rows    []WideRow
}

// WideRow is one sample's row in a wide table. Counts align with
// Wide.Species.
type WideRow struct {
	Sample string
	Group  string
	Counts []int
}

// LongToWide pivots long records into a wide matrix. Duplicate
// (sample, species) cells are summed, species columns are sorted, and absent
// species are zero-filled. Sample order follows first appearance. Coordinates
// are dropped; the wide shape has no per-cell position. A sample recorded
// under two group labels is invalid input.
func LongToWide(records Records) (Wide, error) {
	speciesSet := make(map[string]struct{})
	groups := make(map[string]string)
	counts := make(map[string]map[string]int)
	var order []string

	for i, record := range records {
		if record.Sample == "" {
			return Wide{}, fmt.Errorf("%w: record %d has an empty sample identifier", measure.ErrInvalidInput, i)
		}
		if record.Species == "" {
			return Wide{}, fmt.Errorf("%w: record %d has an empty species identifier", measure.ErrInvalidInput, i)
		}
		if record.Count < 0 {
			return Wide{}, fmt.Errorf("%w: record %d has negative count %d", measure.ErrInvalidInput, i, record.Count)
		}
		if known, ok := groups[record.Sample]; ok {
			if known != record.Group {
				return Wide{}, fmt.Errorf("%w: sample %s recorded under groups %q and %q", measure.ErrInvalidInput, record.Sample, known, record.Group)
			}
		} else {
			groups[record.Sample] = record.Group
			counts[record.Sample] = make(map[string]int)
			order = append(order, record.Sample)
		}
		speciesSet[record.Species] = struct{}{}
		counts[record.Sample][record.Species] += record.Count
	}

	species := make([]string, 0, len(speciesSet))
	for s := range speciesSet {
		species = append(species, s)
	}
	sort.Strings(species)

	wide := Wide{Species: species, Rows: make([]WideRow, 0, len(order))}
	for _, sample := range order {
		row := WideRow{Sample: sample, Group: groups[sample], Counts: make([]int, len(species))}
		for i, s := range species {
			row.Counts[i] = counts[sample][s]
		}
		wide.Rows = append(wide.Rows, row)
	}
	return wide, nil
}

// Long pivots the wide matrix back to long records, one record per cell,
// zero counts included.
func (w Wide) Long() Records {
	records := make(Records, 0, len(w.Rows)*len(w.Species))
	for _, row := range w.Rows {
		for i, species := range w.Species {
			count := 0
			if i < len(row.Counts) {
				count = row.Counts[i]
			}
			records = append(records, Record{
				Sample:  row.Sample,
				Group:   row.Group,
				Species: species,
				Count:   count,
			})
		}
	}
	return records
}

// Collection assembles the records into a measure.Collection, one sample per
// distinct sample identifier. Counts for duplicate (sample, species) pairs
// are summed; coordinates are taken from the first record of each sample.
func (r Records) Collection() (measure.Collection, error) {
	type site struct {
		group  string
		x, y   float64
		counts map[string]int
	}
	sites := make(map[string]*site)
	var order []string

	for i, record := range r {
		if record.Sample == "" {
			return measure.Collection{}, fmt.Errorf("%w: record %d has an empty sample identifier", measure.ErrInvalidInput, i)
		}
		if record.Count < 0 {
			return measure.Collection{}, fmt.Errorf("%w: record %d has negative count %d", measure.ErrInvalidInput, i, record.Count)
		}
		s, ok := sites[record.Sample]
		if !ok {
			s = &site{group: record.Group, x: record.X, y: record.Y, counts: make(map[string]int)}
			sites[record.Sample] = s
			order = append(order, record.Sample)
		} else if s.group != record.Group {
			return measure.Collection{}, fmt.Errorf("%w: sample %s recorded under groups %q and %q", measure.ErrInvalidInput, record.Sample, s.group, record.Group)
		}
		if record.Species != "" {
			s.counts[record.Species] += record.Count
		}
	}

	samples := make([]measure.Sample, 0, len(order))
	for _, id := range order {
		s := sites[id]
		assemblage, err := measure.New(s.counts)
		if err != nil {
			return measure.Collection{}, fmt.Errorf("sample %s: %w", id, err)
		}
		samples = append(samples, measure.Sample{
			ID:         id,
			Group:      s.group,
			X:          s.x,
			Y:          s.y,
			Assemblage: assemblage,
		})
	}
	return measure.NewCollection(samples)
}

// Collection assembles the wide matrix into a measure.Collection.
func (w Wide) Collection() (measure.Collection, error) {
	return w.Long().Collection()
}
