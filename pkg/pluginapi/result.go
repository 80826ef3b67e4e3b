package pluginapi

import "fmt"

// Violation details a single rule outcome. Instances are immutable; construct
// them with NewViolation or a ViolationBuilder.
type Violation struct {
	rule     string
	severity Severity
	message  string
	entity   EntityType
	entityID string
}

// NewViolation constructs a violation from contextual references.
func NewViolation(rule string, severity SeverityRef, message string, entity EntityTypeRef, entityID string) Violation {
	v := Violation{rule: rule, message: message, entityID: entityID}
	if ref, ok := severity.(severityRef); ok {
		v.severity = ref.value
	}
	if entity != nil {
		v.entity = entity.Value()
	}
	return v
}

// Rule returns the name of the rule that produced the violation.
func (v Violation) Rule() string { return v.rule }

// Severity returns the violation severity.
func (v Violation) Severity() Severity { return v.severity }

// Message returns the human-readable explanation.
func (v Violation) Message() string { return v.message }

// Entity returns the entity type the violation refers to.
func (v Violation) Entity() EntityType { return v.entity }

// EntityID returns the identifier of the offending record, if known.
func (v Violation) EntityID() string { return v.entityID }

// Result aggregates rule violations. The zero value is an empty result.
type Result struct {
	violations []Violation
}

// NewResult constructs a result from the provided violations.
func NewResult(violations ...Violation) Result {
	if len(violations) == 0 {
		return Result{}
	}
	vs := make([]Violation, len(violations))
	copy(vs, violations)
	return Result{violations: vs}
}

// Violations returns a defensive copy of the accumulated violations. Nil is
// returned for an empty result.
func (r Result) Violations() []Violation {
	if len(r.violations) == 0 {
		return nil
	}
	out := make([]Violation, len(r.violations))
	copy(out, r.violations)
	return out
}

// HasBlocking reports whether any violation carries blocking severity.
func (r Result) HasBlocking() bool {
	for _, v := range r.violations {
		if v.severity == severityBlock {
			return true
		}
	}
	return false
}

// AddViolation returns a new result with the violation appended.
func (r Result) AddViolation(v Violation) Result {
	out := make([]Violation, 0, len(r.violations)+1)
	out = append(out, r.violations...)
	out = append(out, v)
	return Result{violations: out}
}

// Merge returns a new result combining both operands.
func (r Result) Merge(other Result) Result {
	if len(other.violations) == 0 {
		return r
	}
	out := make([]Violation, 0, len(r.violations)+len(other.violations))
	out = append(out, r.violations...)
	out = append(out, other.violations...)
	return Result{violations: out}
}

// RuleViolationError wraps a result whose blocking violations aborted a
// transaction.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	return fmt.Sprintf("rule violations: %d", len(e.Result.violations))
}
