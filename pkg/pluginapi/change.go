package pluginapi

import "encoding/json"

// Change describes a single entity mutation considered by rules. Before and
// after states are JSON snapshots taken at construction time, so later
// mutation of the originals cannot leak into rule evaluation.
type Change struct {
	entity EntityType
	action Action
	before ChangePayload
	after  ChangePayload
}

// NewChange constructs a change from contextual references and raw state
// values. Nil states produce undefined payloads.
func NewChange(entity EntityTypeRef, action ActionRef, before, after any) Change {
	c := Change{before: snapshotValue(before), after: snapshotValue(after)}
	if entity != nil {
		c.entity = entity.Value()
	}
	if action != nil {
		c.action = action.Value()
	}
	return c
}

func newChange(entity EntityType, action Action, before, after ChangePayload) Change {
	return Change{
		entity: entity,
		action: action,
		before: cloneChangePayload(before),
		after:  cloneChangePayload(after),
	}
}

// Entity returns the entity type the change applies to.
func (c Change) Entity() EntityType { return c.entity }

// Action returns the change action.
func (c Change) Action() Action { return c.action }

// Before returns the JSON snapshot of the state prior to the change.
func (c Change) Before() ChangePayload { return cloneChangePayload(c.before) }

// After returns the JSON snapshot of the state after the change.
func (c Change) After() ChangePayload { return cloneChangePayload(c.after) }

// snapshotValue renders an arbitrary value into an immutable JSON payload.
// Marshal failures degrade to an empty defined payload rather than failing
// rule evaluation.
func snapshotValue(value any) ChangePayload {
	if value == nil {
		return UndefinedChangePayload()
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return NewChangePayload(nil)
	}
	return NewChangePayload(raw)
}
