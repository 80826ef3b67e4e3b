package pluginapi

import "encoding/json"

// ChangePayload wraps a JSON snapshot of a change's before or after state.
// Callers unmarshal the raw bytes into typed structures as needed.
type ChangePayload struct {
	defined bool
	raw     json.RawMessage
}

// NewChangePayload creates a defined payload from the provided JSON snapshot.
// The bytes are cloned to prevent external mutation. A nil slice yields a
// defined-but-empty payload; use UndefinedChangePayload to represent "not set".
func NewChangePayload(raw json.RawMessage) ChangePayload {
	payload := ChangePayload{defined: true}
	if raw != nil {
		payload.raw = cloneRawMessage(raw)
	}
	return payload
}

// UndefinedChangePayload returns the zero payload representing a state that
// was not provided.
func UndefinedChangePayload() ChangePayload {
	return ChangePayload{}
}

// Defined reports whether the payload was provided, including the
// defined-but-empty case.
func (p ChangePayload) Defined() bool {
	return p.defined
}

// IsEmpty reports whether the payload contains no bytes. This holds for both
// undefined and defined-but-empty payloads; use Defined to distinguish them.
func (p ChangePayload) IsEmpty() bool {
	if !p.defined {
		return true
	}
	return len(p.raw) == 0
}

// Raw returns a cloned copy of the underlying JSON bytes. Nil is returned
// when the payload is undefined or empty.
func (p ChangePayload) Raw() json.RawMessage {
	if !p.defined || len(p.raw) == 0 {
		return nil
	}
	return cloneRawMessage(p.raw)
}

func cloneRawMessage(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	cloned := make(json.RawMessage, len(raw))
	copy(cloned, raw)
	return cloned
}

func cloneChangePayload(payload ChangePayload) ChangePayload {
	if !payload.defined {
		return ChangePayload{}
	}
	return ChangePayload{defined: true, raw: cloneRawMessage(payload.raw)}
}
