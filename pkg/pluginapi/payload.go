package pluginapi

// ObjectPayload exposes a defensive view over structured JSON-like payloads
// such as entity attributes. Callers receive cloned maps so the underlying
// state cannot be mutated.
type ObjectPayload struct {
	defined bool
	values  map[string]any
}

// NewObjectPayload constructs a payload wrapper from the provided values. The
// input map is cloned to prevent callers from mutating shared state. Passing a
// nil map produces an initialised, empty payload.
func NewObjectPayload(values map[string]any) ObjectPayload {
	payload := ObjectPayload{defined: true}
	if values != nil {
		payload.values = cloneObjectMap(values)
	}
	return payload
}

// UndefinedPayload returns a zero-value payload for use when no data was
// recorded.
func UndefinedPayload() ObjectPayload {
	return ObjectPayload{}
}

// Defined reports whether the payload is initialised.
func (p ObjectPayload) Defined() bool {
	return p.defined
}

// IsEmpty reports whether the payload carries any data.
func (p ObjectPayload) IsEmpty() bool {
	if !p.defined {
		return true
	}
	return len(p.values) == 0
}

// Map returns a cloned representation of the payload. Nil is returned when
// the payload is undefined or empty.
func (p ObjectPayload) Map() map[string]any {
	if !p.defined || p.values == nil {
		return nil
	}
	return cloneObjectMap(p.values)
}

func cloneObjectMap(values map[string]any) map[string]any {
	if values == nil {
		return nil
	}
	cloned, _ := cloneValue(values).(map[string]any)
	return cloned
}

// cloneValue performs a best-effort recursive clone of the container shapes
// that appear in entity attributes: map[string]any, []any, []string, and
// []map[string]any. Primitive and unrecognized values are returned as-is.
// Cycles are not supported.
func cloneValue(value any) any {
	switch tv := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(tv))
		for k, v := range tv {
			out[k] = cloneValue(v)
		}
		return out
	case []any:
		out := make([]any, len(tv))
		for i, v := range tv {
			out[i] = cloneValue(v)
		}
		return out
	case []string:
		out := make([]string, len(tv))
		copy(out, tv)
		return out
	case []map[string]any:
		out := make([]map[string]any, len(tv))
		for i, m := range tv {
			if m == nil {
				continue
			}
			cloned, _ := cloneValue(m).(map[string]any)
			out[i] = cloned
		}
		return out
	default:
		return value
	}
}
