package pluginapi

// ActionContext provides contextual access to action type identifiers
// without exposing raw constants.
type ActionContext interface {
	// Create returns an opaque reference to a create action.
	Create() ActionRef
	// Update returns an opaque reference to an update action.
	Update() ActionRef
	// Delete returns an opaque reference to a delete action.
	Delete() ActionRef
}

// ActionRef represents an opaque reference to an action type.
// Plugin rules should not inspect or manipulate the underlying value directly.
type ActionRef interface {
	// String returns the string representation for debugging/logging purposes only.
	// Do not use this value for business logic comparisons.
	String() string
	// IsMutation returns true if this action modifies state.
	IsMutation() bool
	// IsDestructive returns true if this action removes data.
	IsDestructive() bool
	// Equals compares two ActionRef instances for equality.
	Equals(other ActionRef) bool
	// Value returns the underlying Action value - INTERNAL USE ONLY
	Value() Action
	// internal marker to prevent external implementations
	isActionRef()
}

// actionRef is the internal implementation of ActionRef.
type actionRef struct {
	value Action
}

func (a actionRef) String() string {
	return string(a.value)
}

func (a actionRef) IsMutation() bool {
	// All currently defined actions are mutations.
	return a.value == actionCreate || a.value == actionUpdate || a.value == actionDelete
}

func (a actionRef) IsDestructive() bool {
	return a.value == actionDelete
}

func (a actionRef) Equals(other ActionRef) bool {
	if otherRef, ok := other.(actionRef); ok {
		return a.value == otherRef.value
	}
	return false
}

func (a actionRef) Value() Action {
	return a.value
}

func (a actionRef) isActionRef() {}

func newActionRef(action Action) ActionRef {
	return actionRef{value: action}
}

// actionContext is the default implementation of ActionContext.
type actionContext struct{}

func (actionContext) Create() ActionRef { return newActionRef(actionCreate) }
func (actionContext) Update() ActionRef { return newActionRef(actionUpdate) }
func (actionContext) Delete() ActionRef { return newActionRef(actionDelete) }

// NewActionContext creates a new action context for accessing action references.
func NewActionContext() ActionContext {
	return actionContext{}
}

// ConvertAction wraps a raw action value in an opaque reference. It exists for
// host adapters translating change records; plugins should use ActionContext.
func ConvertAction(value Action) ActionRef {
	return newActionRef(value)
}
