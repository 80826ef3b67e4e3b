// Package domain defines the core persistent entities, value types, and
// rule evaluation primitives used by biodivcore.
package domain

import "time"

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntitySurvey identifies a sampling campaign record.
	EntitySurvey EntityType = "survey"
	// EntityPlot identifies a sample plot record.
	EntityPlot EntityType = "plot"
	// EntityTaxon identifies a taxon record.
	EntityTaxon EntityType = "taxon"
	// EntityObservation identifies an abundance observation record.
	EntityObservation EntityType = "observation"
)

// TaxonOrigin classifies a taxon relative to the surveyed region.
type TaxonOrigin string

// Canonical taxon origins used by survey protocols and plugin rules.
const (
	OriginNative   TaxonOrigin = "native"
	OriginInvasive TaxonOrigin = "invasive"
	OriginUnknown  TaxonOrigin = "unknown"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Base carries identity and audit timestamps shared by all entities.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Survey represents one sampling campaign: a set of plots visited under a
// shared field protocol, e.g. paired invaded/uninvaded woodland plots.
type Survey struct {
	Base
	Code       string         `json:"code"`
	Name       string         `json:"name"`
	Region     string         `json:"region"`
	Protocol   string         `json:"protocol"`
	Season     string         `json:"season,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// Plot is the physical sample unit of a survey. Its observations form one
// assemblage; Group carries the treatment label used for scale aggregation.
type Plot struct {
	Base
	SurveyID   string         `json:"survey_id"`
	Name       string         `json:"name"`
	Group      string         `json:"group"`
	X          float64        `json:"x"`
	Y          float64        `json:"y"`
	AreaM2     float64        `json:"area_m2"`
	Effort     int            `json:"effort"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// Taxon is a named species (or higher rank) that observations reference.
type Taxon struct {
	Base
	ScientificName string         `json:"scientific_name"`
	CommonName     string         `json:"common_name,omitempty"`
	Rank           string         `json:"rank"`
	Family         string         `json:"family,omitempty"`
	Genus          string         `json:"genus,omitempty"`
	Origin         TaxonOrigin    `json:"origin"`
	Attributes     map[string]any `json:"attributes,omitempty"`
}

// Observation is the atomic abundance datum: a count of one taxon on one plot.
type Observation struct {
	Base
	SurveyID   string         `json:"survey_id"`
	PlotID     string         `json:"plot_id"`
	TaxonID    string         `json:"taxon_id"`
	Count      int            `json:"count"`
	ObservedAt time.Time      `json:"observed_at"`
	Recorder   string         `json:"recorder,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// Change records a single entity mutation inside a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported CRUD operations captured in audit trail.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	return "transaction blocked by rules"
}
