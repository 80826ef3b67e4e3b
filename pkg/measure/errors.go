package measure

import "errors"

// Sentinel failure kinds for the numerical core. Callers match with
// errors.Is; wrapped messages carry the offending sample or parameter.
var (
	// ErrInvalidInput reports a negative or malformed abundance vector.
	ErrInvalidInput = errors.New("measure: invalid input")
	// ErrInsufficientEffort reports a rarefaction effort beyond the
	// individuals available in the assemblage.
	ErrInsufficientEffort = errors.New("measure: insufficient effort")
	// ErrDegenerateSample reports fewer than two individuals where a
	// PIE-family index is undefined.
	ErrDegenerateSample = errors.New("measure: degenerate sample")
	// ErrUnsupportedIndexForBeta reports an index with no multiplicative
	// alpha/gamma decomposition.
	ErrUnsupportedIndexForBeta = errors.New("measure: index has no beta decomposition")
	// ErrGroupMismatch reports an attempt to pool samples across groups.
	ErrGroupMismatch = errors.New("measure: sample group mismatch")
)
