package core

import (
	"context"
	"time"

	"biodivcore/pkg/domain"
	"biodivcore/pkg/measure"
)

// runView executes a read-only query against a store snapshot under the named
// operation, recording trace span and metrics. Queries produce no audit entries.
func (s *Service) runView(ctx context.Context, operation string, fn func(domain.TransactionView) error) error {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, operation)
	err := s.store.View(ctx, fn)
	duration := time.Since(start)
	span.End(err)
	s.metrics.Observe(ctx, operation, err == nil, duration)
	if err != nil {
		s.logger.Error("query failed", "operation", operation, "error", err)
	}
	return err
}

// PlotAssemblage builds the species abundance assemblage of one plot, keyed
// by scientific name. Counts of repeated observations of a taxon are summed.
func (s *Service) PlotAssemblage(ctx context.Context, plotID string) (measure.Assemblage, error) {
	var assemblage measure.Assemblage
	err := s.runView(ctx, "plot_assemblage", func(view domain.TransactionView) error {
		if _, ok := view.FindPlot(plotID); !ok {
			return ErrNotFound{Entity: EntityPlot, ID: plotID}
		}
		counts, err := plotCounts(view, plotID)
		if err != nil {
			return err
		}
		assemblage, err = measure.New(counts)
		return err
	})
	return assemblage, err
}

// SurveyCollection assembles one sample per plot of the survey, labelled with
// the plot's group and coordinates, normalised onto a shared species universe.
func (s *Service) SurveyCollection(ctx context.Context, surveyID string) (measure.Collection, error) {
	var collection measure.Collection
	err := s.runView(ctx, "survey_collection", func(view domain.TransactionView) error {
		var err error
		collection, err = surveyCollection(view, surveyID)
		return err
	})
	return collection, err
}

// SurveyDiversity computes the requested diversity indices for a survey at
// alpha, gamma, and beta scales, partitioned by plot group.
func (s *Service) SurveyDiversity(ctx context.Context, surveyID string, indices []measure.Index, opts measure.Options) (measure.Summary, error) {
	var summary measure.Summary
	err := s.runView(ctx, "survey_diversity", func(view domain.TransactionView) error {
		collection, err := surveyCollection(view, surveyID)
		if err != nil {
			return err
		}
		summary, err = measure.Aggregate(collection, indices, opts)
		return err
	})
	return summary, err
}

// PlotRarefaction computes the individual-based rarefaction curve of one plot.
func (s *Service) PlotRarefaction(ctx context.Context, plotID string) (measure.Curve, error) {
	var curve measure.Curve
	err := s.runView(ctx, "plot_rarefaction", func(view domain.TransactionView) error {
		if _, ok := view.FindPlot(plotID); !ok {
			return ErrNotFound{Entity: EntityPlot, ID: plotID}
		}
		counts, err := plotCounts(view, plotID)
		if err != nil {
			return err
		}
		assemblage, err := measure.New(counts)
		if err != nil {
			return err
		}
		curve, err = measure.Rarefy(assemblage)
		return err
	})
	return curve, err
}

func surveyCollection(view domain.TransactionView, surveyID string) (measure.Collection, error) {
	if _, ok := view.FindSurvey(surveyID); !ok {
		return measure.Collection{}, ErrNotFound{Entity: EntitySurvey, ID: surveyID}
	}
	var samples []measure.Sample
	for _, plot := range view.ListPlots() {
		if plot.SurveyID != surveyID {
			continue
		}
		counts, err := plotCounts(view, plot.ID)
		if err != nil {
			return measure.Collection{}, err
		}
		assemblage, err := measure.New(counts)
		if err != nil {
			return measure.Collection{}, err
		}
		samples = append(samples, measure.Sample{
			ID:         plot.ID,
			Group:      plot.Group,
			X:          plot.X,
			Y:          plot.Y,
			Assemblage: assemblage,
		})
	}
	return measure.NewCollection(samples)
}

func plotCounts(view domain.TransactionView, plotID string) (map[string]int, error) {
	counts := make(map[string]int)
	for _, observation := range view.ListObservations() {
		if observation.PlotID != plotID {
			continue
		}
		taxon, ok := view.FindTaxon(observation.TaxonID)
		if !ok {
			return nil, ErrNotFound{Entity: EntityTaxon, ID: observation.TaxonID}
		}
		counts[taxon.ScientificName] += observation.Count
	}
	return counts, nil
}
