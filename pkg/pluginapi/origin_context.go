package pluginapi

// OriginContext provides contextual access to taxon origin classifications
// without exposing raw constants.
type OriginContext interface {
	// Native returns an opaque reference to the native origin.
	Native() TaxonOriginRef
	// Invasive returns an opaque reference to the invasive origin.
	Invasive() TaxonOriginRef
	// Unknown returns an opaque reference to the unknown origin.
	Unknown() TaxonOriginRef
}

// TaxonOriginRef represents an opaque reference to a taxon origin.
// Plugin rules should not inspect or manipulate the underlying value directly.
type TaxonOriginRef interface {
	// String returns the string representation for debugging/logging purposes only.
	String() string
	// IsInvasive reports whether the origin marks a taxon as invasive.
	IsInvasive() bool
	// IsNative reports whether the origin marks a taxon as native.
	IsNative() bool
	// IsKnown reports whether the origin has been classified at all.
	IsKnown() bool
	// Equals compares two TaxonOriginRef instances for equality.
	Equals(other TaxonOriginRef) bool
	// internal marker to prevent external implementations
	isTaxonOriginRef()
}

// taxonOriginRef is the internal implementation of TaxonOriginRef.
type taxonOriginRef struct {
	value TaxonOrigin
}

func (o taxonOriginRef) String() string {
	return string(o.value)
}

func (o taxonOriginRef) IsInvasive() bool {
	return o.value == originInvasive
}

func (o taxonOriginRef) IsNative() bool {
	return o.value == originNative
}

func (o taxonOriginRef) IsKnown() bool {
	return o.value == originNative || o.value == originInvasive
}

func (o taxonOriginRef) Equals(other TaxonOriginRef) bool {
	if otherRef, ok := other.(taxonOriginRef); ok {
		return o.value == otherRef.value
	}
	return false
}

func (o taxonOriginRef) isTaxonOriginRef() {}

func newTaxonOriginRef(origin TaxonOrigin) TaxonOriginRef {
	return taxonOriginRef{value: origin}
}

// originContext is the default implementation of OriginContext.
type originContext struct{}

func (originContext) Native() TaxonOriginRef   { return newTaxonOriginRef(originNative) }
func (originContext) Invasive() TaxonOriginRef { return newTaxonOriginRef(originInvasive) }
func (originContext) Unknown() TaxonOriginRef  { return newTaxonOriginRef(originUnknown) }

// NewOriginContext creates a new origin context for accessing taxon origin references.
func NewOriginContext() OriginContext {
	return originContext{}
}

// ConvertTaxonOrigin wraps a raw origin value in an opaque reference for host
// adapters. Unclassified values map to the unknown origin.
func ConvertTaxonOrigin(value TaxonOrigin) TaxonOriginRef {
	switch value {
	case originNative, originInvasive:
		return newTaxonOriginRef(value)
	default:
		return newTaxonOriginRef(originUnknown)
	}
}
