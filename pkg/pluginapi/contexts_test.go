package pluginapi

import "testing"

// TestContextualReferenceImmutability ensures repeated context lookups yield
// equal references.
func TestContextualReferenceImmutability(t *testing.T) {
	entityCtx := NewEntityContext()
	severityCtx := NewSeverityContext()
	actionCtx := NewActionContext()
	originCtx := NewOriginContext()

	if !entityCtx.Survey().Equals(entityCtx.Survey()) {
		t.Error("entity references should be immutable and equal")
	}
	if !severityCtx.Warn().Equals(severityCtx.Warn()) {
		t.Error("severity references should be immutable and equal")
	}
	if !actionCtx.Create().Equals(actionCtx.Create()) {
		t.Error("action references should be immutable and equal")
	}
	if !originCtx.Native().Equals(originCtx.Native()) {
		t.Error("origin references should be immutable and equal")
	}
	if entityCtx.Survey().Equals(entityCtx.Plot()) {
		t.Error("distinct entity references should not be equal")
	}
}

// TestContextualReferenceSemantics ensures the behavioral predicates carried
// by each reference family hold.
func TestContextualReferenceSemantics(t *testing.T) {
	t.Run("entities", func(t *testing.T) {
		ctx := NewEntityContext()
		for _, ref := range []EntityTypeRef{ctx.Survey(), ctx.Plot(), ctx.Taxon(), ctx.Observation()} {
			if !ref.IsCore() {
				t.Errorf("%s should be a core entity", ref.String())
			}
		}
	})

	t.Run("severities", func(t *testing.T) {
		ctx := NewSeverityContext()
		if ctx.Log().IsBlocking() || ctx.Warn().IsBlocking() {
			t.Error("log and warn should not be blocking")
		}
		if !ctx.Block().IsBlocking() {
			t.Error("block should be blocking")
		}
	})

	t.Run("actions", func(t *testing.T) {
		ctx := NewActionContext()
		if !ctx.Create().IsMutation() || !ctx.Update().IsMutation() || !ctx.Delete().IsMutation() {
			t.Error("all actions should be mutations")
		}
		if ctx.Create().IsDestructive() || ctx.Update().IsDestructive() {
			t.Error("create and update should not be destructive")
		}
		if !ctx.Delete().IsDestructive() {
			t.Error("delete should be destructive")
		}
	})

	t.Run("origins", func(t *testing.T) {
		ctx := NewOriginContext()
		if !ctx.Invasive().IsInvasive() || ctx.Invasive().IsNative() {
			t.Error("invasive origin predicates inconsistent")
		}
		if !ctx.Native().IsNative() || ctx.Native().IsInvasive() {
			t.Error("native origin predicates inconsistent")
		}
		if ctx.Unknown().IsKnown() {
			t.Error("unknown origin should not be known")
		}
		if !ctx.Native().IsKnown() || !ctx.Invasive().IsKnown() {
			t.Error("classified origins should be known")
		}
	})

	t.Run("abundance classes", func(t *testing.T) {
		classes := NewAbundanceContext().Classes()
		if !classes.Singleton().IsRare() || !classes.Doubleton().IsRare() {
			t.Error("singletons and doubletons are the rare classes")
		}
		if classes.Common().IsRare() || classes.Absent().IsRare() {
			t.Error("common and absent classes are not rare")
		}
		if !classes.Absent().IsAbsent() {
			t.Error("absent class should report absent")
		}
	})
}

func TestClassifyCount(t *testing.T) {
	cases := []struct {
		count int
		want  AbundanceClassRef
	}{
		{-1, NewAbundanceContext().Classes().Absent()},
		{0, NewAbundanceContext().Classes().Absent()},
		{1, NewAbundanceContext().Classes().Singleton()},
		{2, NewAbundanceContext().Classes().Doubleton()},
		{3, NewAbundanceContext().Classes().Common()},
		{250, NewAbundanceContext().Classes().Common()},
	}
	for _, c := range cases {
		if got := ClassifyCount(c.count); !got.Equals(c.want) {
			t.Errorf("ClassifyCount(%d)=%s want %s", c.count, got.String(), c.want.String())
		}
	}
}
