package pluginapi

import "context"

// Rule defines a plugin-contributed validation routine executed within a transaction.
type Rule interface {
	Name() string
	Evaluate(ctx context.Context, view RuleView, changes []Change) (Result, error)
}

// RuleView exposes read-only access to core entities during rule evaluation.
type RuleView interface {
	ListSurveys() []SurveyView
	ListPlots() []PlotView
	ListTaxa() []TaxonView
	ListObservations() []ObservationView
	FindSurvey(id string) (SurveyView, bool)
	FindPlot(id string) (PlotView, bool)
	FindTaxon(id string) (TaxonView, bool)
	FindObservation(id string) (ObservationView, bool)
	FindTaxonByName(scientificName string) (TaxonView, bool)
}
