package core

import (
	"context"
	"fmt"

	"biodivcore/pkg/domain"
)

// NewPlotEffortRule returns the rule warning on plots whose recorded sampling
// effort is negative. Zero means "not recorded" and passes; diversity queries
// that need a common effort fall back to minimum abundance in that case.
func NewPlotEffortRule() domain.Rule {
	return plotEffortRule{}
}

type plotEffortRule struct{}

func (plotEffortRule) Name() string { return "plot_effort_positive" }

func (plotEffortRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, plot := range view.ListPlots() {
		if plot.Effort < 0 {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "plot_effort_positive",
				Severity: domain.SeverityWarn,
				Message:  fmt.Sprintf("plot %s (%s) has negative sampling effort %d", plot.Name, plot.ID, plot.Effort),
				Entity:   domain.EntityPlot,
				EntityID: plot.ID,
			})
		}
	}
	return res, nil
}
