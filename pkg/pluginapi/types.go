package pluginapi

// EntityType identifies the kind of record a change or violation refers to.
// Values mirror the core entity identifiers. Plugins obtain opaque references
// through EntityContext instead of comparing raw values.
type EntityType string

const (
	entitySurvey      EntityType = "survey"
	entityPlot        EntityType = "plot"
	entityTaxon       EntityType = "taxon"
	entityObservation EntityType = "observation"
)

// Severity grades rule violations. Blocking severity aborts the enclosing
// transaction.
type Severity string

const (
	severityBlock Severity = "block"
	severityWarn  Severity = "warn"
	severityLog   Severity = "log"
)

// Action identifies the kind of mutation a change describes.
type Action string

const (
	actionCreate Action = "create"
	actionUpdate Action = "update"
	actionDelete Action = "delete"
)

// TaxonOrigin classifies a taxon relative to the surveyed region.
type TaxonOrigin string

const (
	originNative   TaxonOrigin = "native"
	originInvasive TaxonOrigin = "invasive"
	originUnknown  TaxonOrigin = "unknown"
)
