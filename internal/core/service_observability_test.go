package core

import (
	"bytes"
	"context"
	"expvar"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"biodivcore/pkg/domain"
)

type captureAuditRecorder struct {
	entries []AuditEntry
}

func (c *captureAuditRecorder) Record(_ context.Context, entry AuditEntry) {
	c.entries = append(c.entries, entry)
}

func (c *captureAuditRecorder) has(op string, status AuditStatus, predicate func(AuditEntry) bool) bool {
	for _, entry := range c.entries {
		if entry.Operation == op && entry.Status == status {
			if predicate == nil || predicate(entry) {
				return true
			}
		}
	}
	return false
}

type metricsCall struct {
	op       string
	success  bool
	duration time.Duration
}

type captureMetricsRecorder struct {
	calls []metricsCall
}

func (c *captureMetricsRecorder) Observe(_ context.Context, op string, success bool, duration time.Duration) {
	c.calls = append(c.calls, metricsCall{op: op, success: success, duration: duration})
}

func (c *captureMetricsRecorder) has(op string, success bool) bool {
	for _, call := range c.calls {
		if call.op == op && call.success == success {
			return true
		}
	}
	return false
}

type captureTracer struct {
	started []string
	ended   []spanRecord
}

type spanRecord struct {
	op  string
	err error
}

func (c *captureTracer) Start(ctx context.Context, op string) (context.Context, TraceSpan) {
	c.started = append(c.started, op)
	return ctx, &captureSpan{tracer: c, op: op}
}

func (c *captureTracer) has(op string, success bool) bool {
	for _, record := range c.ended {
		if record.op == op {
			if success && record.err == nil {
				return true
			}
			if !success && record.err != nil {
				return true
			}
		}
	}
	return false
}

type captureSpan struct {
	tracer *captureTracer
	op     string
}

func (s *captureSpan) End(err error) {
	s.tracer.ended = append(s.tracer.ended, spanRecord{op: s.op, err: err})
}

func TestServiceObservabilityAcrossEntities(t *testing.T) {
	ctx := context.Background()
	audit := &captureAuditRecorder{}
	metrics := &captureMetricsRecorder{}
	tracer := &captureTracer{}

	svc := NewInMemoryService(NewRulesEngine(),
		WithAuditRecorder(audit),
		WithMetricsRecorder(metrics),
		WithTracer(tracer),
	)

	survey, _, err := svc.CreateSurvey(ctx, domain.Survey{Code: "INV-2024", Name: "Invasion survey"})
	if err != nil {
		t.Fatalf("create survey: %v", err)
	}
	if !audit.has("create_survey", AuditStatusSuccess, func(entry AuditEntry) bool { return entry.EntityID == survey.ID }) {
		t.Fatalf("expected audit entry for create_survey success")
	}

	if _, _, err := svc.UpdateSurvey(ctx, survey.ID, func(s *domain.Survey) error {
		s.Region = "coastal woodland"
		return nil
	}); err != nil {
		t.Fatalf("update survey: %v", err)
	}
	if !audit.has("update_survey", AuditStatusSuccess, nil) {
		t.Fatalf("expected audit entry for update_survey success")
	}

	if _, err := svc.DeletePlot(ctx, "missing-plot"); err == nil {
		t.Fatalf("expected delete_plot error for missing id")
	}
	if !audit.has("delete_plot", AuditStatusError, nil) {
		t.Fatalf("expected audit error entry for delete_plot")
	}
	if !metrics.has("delete_plot", false) {
		t.Fatalf("expected metrics entry for failed delete_plot")
	}
	if !tracer.has("delete_plot", false) {
		t.Fatalf("expected trace span for failed delete_plot")
	}

	plot, _, err := svc.CreatePlot(ctx, domain.Plot{SurveyID: survey.ID, Name: "invaded-01", Group: "invaded"})
	if err != nil {
		t.Fatalf("create plot: %v", err)
	}
	if _, _, err := svc.UpdatePlot(ctx, plot.ID, func(p *domain.Plot) error {
		p.Effort = 50
		return nil
	}); err != nil {
		t.Fatalf("update plot: %v", err)
	}

	taxon, _, err := svc.CreateTaxon(ctx, domain.Taxon{ScientificName: "Impatiens glandulifera", Origin: domain.OriginInvasive})
	if err != nil {
		t.Fatalf("create taxon: %v", err)
	}
	if _, _, err := svc.UpdateTaxon(ctx, taxon.ID, func(tx *domain.Taxon) error {
		tx.CommonName = "Himalayan balsam"
		return nil
	}); err != nil {
		t.Fatalf("update taxon: %v", err)
	}

	obs, _, err := svc.CreateObservation(ctx, domain.Observation{
		SurveyID: survey.ID,
		PlotID:   plot.ID,
		TaxonID:  taxon.ID,
		Count:    12,
	})
	if err != nil {
		t.Fatalf("create observation: %v", err)
	}
	if !audit.has("create_observation", AuditStatusSuccess, func(entry AuditEntry) bool { return entry.EntityID == obs.ID }) {
		t.Fatalf("expected audit entry for create_observation")
	}
	if _, _, err := svc.UpdateObservation(ctx, obs.ID, func(o *domain.Observation) error {
		o.Count = 15
		return nil
	}); err != nil {
		t.Fatalf("update observation: %v", err)
	}

	if _, err := svc.DeleteObservation(ctx, obs.ID); err != nil {
		t.Fatalf("delete observation: %v", err)
	}
	if _, err := svc.DeleteTaxon(ctx, taxon.ID); err != nil {
		t.Fatalf("delete taxon: %v", err)
	}
	if _, err := svc.DeletePlot(ctx, plot.ID); err != nil {
		t.Fatalf("delete plot: %v", err)
	}
	if _, err := svc.DeleteSurvey(ctx, survey.ID); err != nil {
		t.Fatalf("delete survey: %v", err)
	}

	successOps := []string{
		"create_survey",
		"update_survey",
		"delete_survey",
		"create_plot",
		"update_plot",
		"delete_plot",
		"create_taxon",
		"update_taxon",
		"delete_taxon",
		"create_observation",
		"update_observation",
		"delete_observation",
	}

	for _, op := range successOps {
		if !metrics.has(op, true) {
			t.Fatalf("expected metrics success entry for %s", op)
		}
		if !tracer.has(op, true) {
			t.Fatalf("expected finished span for %s", op)
		}
		if !audit.has(op, AuditStatusSuccess, nil) {
			t.Fatalf("expected audit success entry for %s", op)
		}
	}
}

const entryStatusSuccess = "success"
const entryStatusError = "error"

func TestExpvarMetricsRecorderExports(t *testing.T) {
	recorder := NewExpvarMetricsRecorder("")
	if recorder.Name() == "" {
		t.Fatalf("expected recorder to have export name")
	}
	recorder.Observe(context.Background(), "test_op", true, 10*time.Millisecond)
	recorder.Observe(context.Background(), "test_op", false, 5*time.Millisecond)

	snapshot := recorder.Snapshot()
	if snapshot.DurationsMS["test_op"] <= 0 {
		t.Fatalf("expected positive duration, snapshot=%+v", snapshot)
	}
	if snapshot.Results["test_op"][entryStatusSuccess] != 1 || snapshot.Results["test_op"][entryStatusError] != 1 {
		t.Fatalf("unexpected results snapshot=%+v", snapshot)
	}

	if v := expvar.Get(recorder.Name()); v == nil {
		t.Fatalf("expected expvar export to be registered")
	} else if !strings.Contains(v.String(), "test_op") {
		t.Fatalf("expected expvar output to contain operation: %s", v.String())
	}
}

func TestPrometheusMetricsRecorderExports(t *testing.T) {
	recorder := NewPrometheusMetricsRecorder()
	recorder.Observe(context.Background(), "test_op", true, 10*time.Millisecond)
	recorder.Observe(context.Background(), "test_op", false, 5*time.Millisecond)
	recorder.Observe(context.Background(), "", true, time.Millisecond)

	families, err := recorder.Registry().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	names := make(map[string]bool, len(families))
	for _, family := range families {
		names[family.GetName()] = true
	}
	if !names["biodivcore_service_operation_duration_seconds"] {
		t.Fatalf("expected duration histogram, have %v", names)
	}
	if !names["biodivcore_service_operations_total"] {
		t.Fatalf("expected operations counter, have %v", names)
	}

	srv := httptest.NewServer(recorder.Handler())
	defer srv.Close()
	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	exposition := string(body)
	if !strings.Contains(exposition, `biodivcore_service_operations_total{operation="test_op",status="success"} 1`) {
		t.Fatalf("expected success counter in exposition:\n%s", exposition)
	}
	if !strings.Contains(exposition, `biodivcore_service_operations_total{operation="test_op",status="error"} 1`) {
		t.Fatalf("expected error counter in exposition:\n%s", exposition)
	}
}

func TestJSONTraceTracerExports(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewJSONTracer(&buf)
	_, span := tracer.Start(context.Background(), "trace_op")
	span.End(nil)

	entries := tracer.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected single span entry, got %d", len(entries))
	}
	if entries[0].Operation != "trace_op" || entries[0].Status != entryStatusSuccess {
		t.Fatalf("unexpected span entry: %+v", entries[0])
	}
	if !strings.Contains(buf.String(), "\"operation\":\"trace_op\"") {
		t.Fatalf("expected JSON output to contain operation: %q", buf.String())
	}
}

func TestJSONAuditRecorderExports(t *testing.T) {
	var buf bytes.Buffer
	recorder := NewJSONAuditRecorder(&buf)
	recorder.Record(context.Background(), AuditEntry{
		Operation: "create_survey",
		Entity:    EntitySurvey,
		Action:    ActionCreate,
		EntityID:  "svy-1",
		Status:    AuditStatusSuccess,
	})

	entries := recorder.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected single audit entry, got %d", len(entries))
	}
	if entries[0].Operation != "create_survey" || entries[0].EntityID != "svy-1" {
		t.Fatalf("unexpected audit entry: %+v", entries[0])
	}
	if !strings.Contains(buf.String(), "\"operation\":\"create_survey\"") {
		t.Fatalf("expected JSON output to contain operation: %q", buf.String())
	}
}
