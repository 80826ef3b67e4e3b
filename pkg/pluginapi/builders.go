package pluginapi

import "errors"

// ViolationBuilder assembles a violation step by step. Builders are single
// use: Build consumes the builder and any later mutation panics.
type ViolationBuilder struct {
	violation Violation
	used      bool
}

// NewViolationBuilder returns an empty violation builder.
func NewViolationBuilder() *ViolationBuilder {
	return &ViolationBuilder{}
}

// WithRule sets the producing rule name.
func (b *ViolationBuilder) WithRule(rule string) *ViolationBuilder {
	b.ensureUsable()
	b.violation.rule = rule
	return b
}

// WithSeverity sets the severity from a contextual reference.
func (b *ViolationBuilder) WithSeverity(severity SeverityRef) *ViolationBuilder {
	b.ensureUsable()
	if ref, ok := severity.(severityRef); ok {
		b.violation.severity = ref.value
	}
	return b
}

// WithMessage sets the human-readable explanation.
func (b *ViolationBuilder) WithMessage(message string) *ViolationBuilder {
	b.ensureUsable()
	b.violation.message = message
	return b
}

// WithEntity sets the entity type from a contextual reference.
func (b *ViolationBuilder) WithEntity(entity EntityTypeRef) *ViolationBuilder {
	b.ensureUsable()
	if entity != nil {
		b.violation.entity = entity.Value()
	}
	return b
}

// WithEntityID sets the identifier of the offending record.
func (b *ViolationBuilder) WithEntityID(id string) *ViolationBuilder {
	b.ensureUsable()
	b.violation.entityID = id
	return b
}

// Build validates the accumulated state and returns the violation.
func (b *ViolationBuilder) Build() (Violation, error) {
	if b.used {
		return Violation{}, errors.New("builder already used")
	}
	if b.violation.rule == "" {
		return Violation{}, errors.New("rule is required")
	}
	if b.violation.severity == "" {
		return Violation{}, errors.New("severity is required")
	}
	if b.violation.entity == "" {
		return Violation{}, errors.New("entity is required")
	}
	b.used = true
	return b.violation, nil
}

// BuildWarning builds with warning severity regardless of WithSeverity calls.
func (b *ViolationBuilder) BuildWarning() (Violation, error) {
	if b.used {
		return Violation{}, errors.New("builder already used")
	}
	b.violation.severity = severityWarn
	return b.Build()
}

// BuildBlocking builds with blocking severity regardless of WithSeverity calls.
func (b *ViolationBuilder) BuildBlocking() (Violation, error) {
	if b.used {
		return Violation{}, errors.New("builder already used")
	}
	b.violation.severity = severityBlock
	return b.Build()
}

// BuildLog builds with log severity regardless of WithSeverity calls.
func (b *ViolationBuilder) BuildLog() (Violation, error) {
	if b.used {
		return Violation{}, errors.New("builder already used")
	}
	b.violation.severity = severityLog
	return b.Build()
}

func (b *ViolationBuilder) ensureUsable() {
	if b.used {
		panic("pluginapi: violation builder already used")
	}
}

// ChangeBuilder assembles a change record. Builders are single use.
type ChangeBuilder struct {
	entity EntityType
	action Action
	before any
	after  any
	used   bool
}

// NewChangeBuilder returns an empty change builder.
func NewChangeBuilder() *ChangeBuilder {
	return &ChangeBuilder{}
}

// WithEntity sets the entity type from a contextual reference.
func (b *ChangeBuilder) WithEntity(entity EntityTypeRef) *ChangeBuilder {
	b.ensureUsable()
	if entity != nil {
		b.entity = entity.Value()
	}
	return b
}

// WithAction sets the action from a contextual reference.
func (b *ChangeBuilder) WithAction(action ActionRef) *ChangeBuilder {
	b.ensureUsable()
	if action != nil {
		b.action = action.Value()
	}
	return b
}

// WithBefore records the state prior to the change.
func (b *ChangeBuilder) WithBefore(before any) *ChangeBuilder {
	b.ensureUsable()
	b.before = before
	return b
}

// WithAfter records the state after the change.
func (b *ChangeBuilder) WithAfter(after any) *ChangeBuilder {
	b.ensureUsable()
	b.after = after
	return b
}

// Build validates the accumulated state and returns the change with before
// and after snapshots taken at this point.
func (b *ChangeBuilder) Build() (Change, error) {
	if b.used {
		return Change{}, errors.New("builder already used")
	}
	if b.entity == "" {
		return Change{}, errors.New("entity is required")
	}
	if b.action == "" {
		return Change{}, errors.New("action is required")
	}
	b.used = true
	return Change{
		entity: b.entity,
		action: b.action,
		before: snapshotValue(b.before),
		after:  snapshotValue(b.after),
	}, nil
}

func (b *ChangeBuilder) ensureUsable() {
	if b.used {
		panic("pluginapi: change builder already used")
	}
}

// ResultBuilder accumulates violations into a result. Mutations after Build
// panic; Build itself is idempotent.
type ResultBuilder struct {
	violations []Violation
	used       bool
}

// NewResultBuilder returns an empty result builder.
func NewResultBuilder() *ResultBuilder {
	return &ResultBuilder{}
}

// AddViolation appends a single violation.
func (b *ResultBuilder) AddViolation(v Violation) *ResultBuilder {
	b.ensureUsable()
	b.violations = append(b.violations, v)
	return b
}

// AddViolations appends multiple violations.
func (b *ResultBuilder) AddViolations(violations ...Violation) *ResultBuilder {
	b.ensureUsable()
	b.violations = append(b.violations, violations...)
	return b
}

// FromBuilder builds the violation and appends it. Construction failures
// panic; use AddViolation with a checked Build when errors must be handled.
func (b *ResultBuilder) FromBuilder(vb *ViolationBuilder) *ResultBuilder {
	b.ensureUsable()
	v, err := vb.Build()
	if err != nil {
		panic("pluginapi: from builder: " + err.Error())
	}
	b.violations = append(b.violations, v)
	return b
}

// MergeResult appends all violations from an existing result.
func (b *ResultBuilder) MergeResult(r Result) *ResultBuilder {
	b.ensureUsable()
	b.violations = append(b.violations, r.violations...)
	return b
}

// Build returns the accumulated result and seals the builder.
func (b *ResultBuilder) Build() Result {
	b.used = true
	return NewResult(b.violations...)
}

func (b *ResultBuilder) ensureUsable() {
	if b.used {
		panic("pluginapi: result builder already used")
	}
}
