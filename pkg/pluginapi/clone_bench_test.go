package pluginapi

import "testing"

var benchmarkCloneSink any

var benchmarkPayload = map[string]any{
	"cover_percent": 42.5,
	"notes":         "north transect",
	"strata":        []string{"herb", "shrub", "canopy"},
	"metrics":       []any{1, 2.5, "stable", true},
	"nested": map[string]any{
		"visits": 2,
		"flags":  []any{true, false, "revisit"},
		"quadrats": []map[string]any{
			{"name": "q1", "stems": 14},
			{"name": "q2", "stems": 9, "window": []string{"pre", "post"}},
		},
		"soil": map[string]any{
			"unit": "ph",
			"vals": []any{6.1, 6.4, 6.2},
		},
	},
}

func BenchmarkCloneValueNested(b *testing.B) {
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		benchmarkCloneSink = cloneValue(benchmarkPayload)
	}
}

func BenchmarkObjectPayloadMap(b *testing.B) {
	payload := NewObjectPayload(benchmarkPayload)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		benchmarkCloneSink = payload.Map()
	}
}

func BenchmarkChangeSnapshot(b *testing.B) {
	entity := NewEntityContext().Observation()
	action := NewActionContext().Update()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		benchmarkCloneSink = NewChange(entity, action, benchmarkPayload, benchmarkPayload)
	}
}
