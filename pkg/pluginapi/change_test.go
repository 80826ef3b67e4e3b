package pluginapi

import "testing"

func newChangeForTest(entity EntityType, action Action, before, after ChangePayload) Change {
	return newChange(entity, action, before, after)
}

func TestChangeAccessors(t *testing.T) {
	before := map[string]any{"count": 1}
	after := map[string]any{"count": 2}
	ch := newChangeForTest(entityObservation, actionUpdate, newPayload(t, before), newPayload(t, after))
	if ch.Entity() != entityObservation {
		t.Fatalf("unexpected entity: %v", ch.Entity())
	}
	if ch.Action() != actionUpdate {
		t.Fatalf("unexpected action: %v", ch.Action())
	}

	// mutate originals after construction; snapshots should be stable
	before["count"] = 99
	after["count"] = 99
	var beforeSnap map[string]any
	unmarshalPayload(t, ch.Before(), &beforeSnap)
	if b := beforeSnap["count"].(float64); b != 1 {
		t.Fatalf("before snapshot mutated: %v", b)
	}
	var afterSnap map[string]any
	unmarshalPayload(t, ch.After(), &afterSnap)
	if a := afterSnap["count"].(float64); a != 2 {
		t.Fatalf("after snapshot mutated: %v", a)
	}

	// mutate returned maps; internal snapshots must remain unchanged
	beforeSnap["count"] = -1
	afterSnap["count"] = -1
	var beforeAgain map[string]any
	unmarshalPayload(t, ch.Before(), &beforeAgain)
	if b := beforeAgain["count"].(float64); b != 1 {
		t.Fatalf("before accessor not defensive: %v", b)
	}
	var afterAgain map[string]any
	unmarshalPayload(t, ch.After(), &afterAgain)
	if a := afterAgain["count"].(float64); a != 2 {
		t.Fatalf("after accessor not defensive: %v", a)
	}
}

func TestChangeSnapshotSlicesAndMaps(t *testing.T) {
	beforeSlice := []string{"x", "y"}
	afterSlice := []map[string]any{{"k": "v"}}
	ch := newChangeForTest(entityPlot, actionUpdate, newPayload(t, beforeSlice), newPayload(t, afterSlice))

	// mutate originals
	beforeSlice[0] = "z"
	afterSlice[0]["k"] = "w"

	var bs []string
	unmarshalPayload(t, ch.Before(), &bs)
	if bs[0] != "x" {
		t.Fatalf("expected cloned []string with first element 'x', got %v", bs)
	}
	var am []map[string]any
	unmarshalPayload(t, ch.After(), &am)
	if am[0]["k"] != "v" {
		t.Fatalf("expected cloned []map with value 'v', got %v", am)
	}
}

func TestChangeSnapshotStructFallback(t *testing.T) {
	type simple struct {
		N int `json:"n"`
	}
	ch := newChangeForTest(entitySurvey, actionCreate, newPayload(t, simple{N: 5}), UndefinedChangePayload())

	// JSON round-trip yields map[string]any representation
	var m map[string]any
	unmarshalPayload(t, ch.Before(), &m)
	if m["n"].(float64) != 5 {
		t.Fatalf("expected 5, got %v", m["n"])
	}
	if ch.After().Defined() {
		t.Fatalf("expected undefined after payload")
	}
}

func TestNewChangeNilStates(t *testing.T) {
	ch := NewChange(NewEntityContext().Taxon(), NewActionContext().Delete(), map[string]any{"rank": "species"}, nil)
	if !ch.Before().Defined() {
		t.Fatalf("expected defined before payload")
	}
	if ch.After().Defined() {
		t.Fatalf("expected undefined after payload for nil state")
	}
	if !ConvertAction(ch.Action()).IsDestructive() {
		t.Fatalf("expected delete to be destructive")
	}
}
