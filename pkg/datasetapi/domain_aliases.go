package datasetapi

import (
	"context"

	"biodivcore/pkg/domain"
)

// Entity aliases keep template binders off a direct pkg/domain import.
type (
	// Survey is an alias of domain.Survey.
	Survey = domain.Survey
	// Plot is an alias of domain.Plot.
	Plot = domain.Plot
	// Taxon is an alias of domain.Taxon.
	Taxon = domain.Taxon
	// Observation is an alias of domain.Observation.
	Observation = domain.Observation
	// TaxonOrigin is an alias of domain.TaxonOrigin.
	TaxonOrigin = domain.TaxonOrigin
	// TransactionView is an alias of domain.TransactionView.
	TransactionView = domain.TransactionView
)

// Taxon origin aliases.
const (
	OriginNative   = domain.OriginNative
	OriginInvasive = domain.OriginInvasive
	OriginUnknown  = domain.OriginUnknown
)

// PersistentStore is the read-only store subset handed to template binders.
// Any domain.PersistentStore satisfies it.
type PersistentStore interface {
	View(ctx context.Context, fn func(TransactionView) error) error
	GetSurvey(id string) (Survey, bool)
	ListSurveys() []Survey
	GetPlot(id string) (Plot, bool)
	ListPlots() []Plot
	GetTaxon(id string) (Taxon, bool)
	ListTaxa() []Taxon
	GetObservation(id string) (Observation, bool)
	ListObservations() []Observation
}
