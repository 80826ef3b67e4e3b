package core

import (
	"context"
	"fmt"

	"biodivcore/pkg/domain"
)

// NewObservationIntegrityRule returns the default in-transaction rule blocking
// observations with negative counts or dangling survey/plot/taxon references,
// and plots referencing a missing survey.
func NewObservationIntegrityRule() domain.Rule {
	return observationIntegrityRule{}
}

type observationIntegrityRule struct{}

func (observationIntegrityRule) Name() string { return "observation_integrity" }

func (observationIntegrityRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}

	for _, plot := range view.ListPlots() {
		if _, ok := view.FindSurvey(plot.SurveyID); !ok {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "observation_integrity",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("plot %s (%s) references missing survey %q", plot.Name, plot.ID, plot.SurveyID),
				Entity:   domain.EntityPlot,
				EntityID: plot.ID,
			})
		}
	}

	for _, observation := range view.ListObservations() {
		if observation.Count < 0 {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "observation_integrity",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("observation %s has negative count %d", observation.ID, observation.Count),
				Entity:   domain.EntityObservation,
				EntityID: observation.ID,
			})
		}
		if _, ok := view.FindSurvey(observation.SurveyID); !ok {
			res.Violations = append(res.Violations, violationForMissingRef(observation.ID, "survey", observation.SurveyID))
		}
		if _, ok := view.FindPlot(observation.PlotID); !ok {
			res.Violations = append(res.Violations, violationForMissingRef(observation.ID, "plot", observation.PlotID))
		}
		if _, ok := view.FindTaxon(observation.TaxonID); !ok {
			res.Violations = append(res.Violations, violationForMissingRef(observation.ID, "taxon", observation.TaxonID))
		}
	}
	return res, nil
}

func violationForMissingRef(observationID, kind, refID string) domain.Violation {
	return domain.Violation{
		Rule:     "observation_integrity",
		Severity: domain.SeverityBlock,
		Message:  fmt.Sprintf("observation %s references missing %s %q", observationID, kind, refID),
		Entity:   domain.EntityObservation,
		EntityID: observationID,
	}
}
