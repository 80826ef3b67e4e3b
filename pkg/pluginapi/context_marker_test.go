package pluginapi

import "testing"

func TestContextMarkerMethodsAreCallable(t *testing.T) {
	t.Run("ActionRef", func(t *testing.T) {
		ref := NewActionContext().Create()
		ref.isActionRef()
		if ref.Equals(&actionRef{value: actionCreate}) {
			t.Fatal("action equality should reject pointer types")
		}
	})

	t.Run("EntityTypeRef", func(t *testing.T) {
		ref := NewEntityContext().Survey()
		ref.isEntityTypeRef()
		if ref.Equals(&entityTypeRef{value: entitySurvey}) {
			t.Fatal("entity equality should reject pointer types")
		}
	})

	t.Run("SeverityRef", func(t *testing.T) {
		ref := NewSeverityContext().Warn()
		ref.isSeverityRef()
		if ref.Equals(&severityRef{value: severityWarn}) {
			t.Fatal("severity equality should reject pointer types")
		}
	})

	t.Run("TaxonOriginRef", func(t *testing.T) {
		ref := NewOriginContext().Invasive()
		ref.isTaxonOriginRef()
		if ref.Equals(&taxonOriginRef{value: originInvasive}) {
			t.Fatal("origin equality should reject pointer types")
		}
	})

	t.Run("AbundanceClassRef", func(t *testing.T) {
		ref := NewAbundanceContext().Classes().Singleton()
		ref.isAbundanceClassRef()
		if ref.Equals(&abundanceClassRef{value: abundanceSingleton}) {
			t.Fatal("abundance equality should reject pointer types")
		}
	})
}
