package domain

import "context"

// Transaction exposes the domain operations that a persistence implementation
// must support within an atomic scope.
type Transaction interface {
	Snapshot() TransactionView
	CreateSurvey(Survey) (Survey, error)
	UpdateSurvey(id string, mutator func(*Survey) error) (Survey, error)
	DeleteSurvey(id string) error
	CreatePlot(Plot) (Plot, error)
	UpdatePlot(id string, mutator func(*Plot) error) (Plot, error)
	DeletePlot(id string) error
	CreateTaxon(Taxon) (Taxon, error)
	UpdateTaxon(id string, mutator func(*Taxon) error) (Taxon, error)
	DeleteTaxon(id string) error
	CreateObservation(Observation) (Observation, error)
	UpdateObservation(id string, mutator func(*Observation) error) (Observation, error)
	DeleteObservation(id string) error
	FindSurvey(id string) (Survey, bool)
	FindPlot(id string) (Plot, bool)
	FindTaxonByName(scientificName string) (Taxon, bool)
}

// TransactionView provides read-only access to snapshot data for rules and
// measurement queries.
type TransactionView interface {
	ListSurveys() []Survey
	ListPlots() []Plot
	ListTaxa() []Taxon
	ListObservations() []Observation
	FindSurvey(id string) (Survey, bool)
	FindPlot(id string) (Plot, bool)
	FindTaxon(id string) (Taxon, bool)
	FindObservation(id string) (Observation, bool)
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
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
