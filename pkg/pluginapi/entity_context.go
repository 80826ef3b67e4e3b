package pluginapi

// EntityContext provides contextual access to entity type identifiers
// without exposing raw constants. Rules stay decoupled from the string
// representation the host uses for persistence and audit records.
type EntityContext interface {
	// Survey returns an opaque reference to a survey entity type.
	Survey() EntityTypeRef
	// Plot returns an opaque reference to a plot entity type.
	Plot() EntityTypeRef
	// Taxon returns an opaque reference to a taxon entity type.
	Taxon() EntityTypeRef
	// Observation returns an opaque reference to an observation entity type.
	Observation() EntityTypeRef
}

// EntityTypeRef represents an opaque reference to an entity type.
// Plugin rules should not inspect or manipulate the underlying value directly.
type EntityTypeRef interface {
	// String returns the string representation for debugging/logging purposes only.
	// Do not use this value for business logic comparisons.
	String() string
	// IsCore reports whether this entity type belongs to the core survey data model.
	IsCore() bool
	// Equals compares two EntityTypeRef instances for equality.
	Equals(other EntityTypeRef) bool
	// Value returns the underlying EntityType value - INTERNAL USE ONLY
	Value() EntityType
	// internal marker to prevent external implementations
	isEntityTypeRef()
}

// entityTypeRef is the internal implementation of EntityTypeRef.
type entityTypeRef struct {
	value EntityType
}

func (e entityTypeRef) String() string {
	return string(e.value)
}

func (e entityTypeRef) IsCore() bool {
	switch e.value {
	case entitySurvey, entityPlot, entityTaxon, entityObservation:
		return true
	default:
		return false
	}
}

func (e entityTypeRef) Equals(other EntityTypeRef) bool {
	if otherRef, ok := other.(entityTypeRef); ok {
		return e.value == otherRef.value
	}
	return false
}

func (e entityTypeRef) Value() EntityType {
	return e.value
}

func (e entityTypeRef) isEntityTypeRef() {}

func newEntityTypeRef(entityType EntityType) EntityTypeRef {
	return entityTypeRef{value: entityType}
}

// entityContext is the default implementation of EntityContext.
type entityContext struct{}

func (entityContext) Survey() EntityTypeRef      { return newEntityTypeRef(entitySurvey) }
func (entityContext) Plot() EntityTypeRef        { return newEntityTypeRef(entityPlot) }
func (entityContext) Taxon() EntityTypeRef       { return newEntityTypeRef(entityTaxon) }
func (entityContext) Observation() EntityTypeRef { return newEntityTypeRef(entityObservation) }

// NewEntityContext creates a new entity context for accessing entity type references.
func NewEntityContext() EntityContext {
	return entityContext{}
}

// ConvertEntityType wraps a raw entity type value in an opaque reference. It
// exists for host adapters translating change records; plugins should use
// EntityContext instead.
func ConvertEntityType(value EntityType) EntityTypeRef {
	return newEntityTypeRef(value)
}
