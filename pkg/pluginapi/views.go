package pluginapi

import "time"

// BaseView exposes shared metadata available on all core entities.
type BaseView interface {
	ID() string
	CreatedAt() time.Time
	UpdatedAt() time.Time
}

// SurveyView is a read-only projection of a survey record provided to rules.
type SurveyView interface {
	BaseView
	Code() string
	Name() string
	Region() string
	Protocol() string
	Season() string
	Attributes() map[string]any
}

// PlotView is a read-only projection of a plot record.
type PlotView interface {
	BaseView
	SurveyID() string
	Name() string
	Group() string
	Coordinates() (x, y float64)
	AreaM2() float64
	Effort() int
	Attributes() map[string]any

	// HasGroup reports whether the plot carries a treatment label used for
	// grouped aggregation.
	HasGroup() bool
}

// TaxonView is a read-only projection of a taxon record.
type TaxonView interface {
	BaseView
	ScientificName() string
	CommonName() string
	Rank() string
	Family() string
	Genus() string
	Attributes() map[string]any

	// Contextual origin accessors
	GetOrigin() TaxonOriginRef
	IsInvasive() bool
	IsNative() bool
}

// ObservationView is a read-only projection of an observation record.
type ObservationView interface {
	BaseView
	SurveyID() string
	PlotID() string
	TaxonID() string
	Count() int
	ObservedAt() time.Time
	Recorder() string
	Attributes() map[string]any

	// Contextual abundance accessors
	GetAbundanceClass() AbundanceClassRef
	IsSingleton() bool
	IsAbsent() bool
}
