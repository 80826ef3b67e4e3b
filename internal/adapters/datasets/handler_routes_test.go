package datasets

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"biodivcore/pkg/datasetapi"
)

func newRouteHandler(tpl datasetapi.TemplateRuntime) *Handler {
	h := NewHandler(stubCatalog{tpl: tpl})
	h.Exports = NewWorker(stubCatalog{tpl: tpl}, NewMemoryObjectStore(), nil)
	return h
}

func TestHandlerListTemplates(t *testing.T) {
	tpl := buildAbundanceRuntime()
	h := newRouteHandler(tpl)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/datasets/templates", nil)
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.Code)
	}

	var body struct {
		Templates []datasetapi.TemplateDescriptor `json:"templates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Templates) != 1 || body.Templates[0].Slug != tpl.Slug() {
		t.Fatalf("unexpected templates: %+v", body.Templates)
	}
}

func TestHandlerGetTemplate(t *testing.T) {
	tpl := buildAbundanceRuntime()
	h := newRouteHandler(tpl)
	desc := tpl.Descriptor()

	url := "/api/v1/datasets/templates/" + desc.Plugin + "/" + desc.Key + "/" + desc.Version
	req := httptest.NewRequest(http.MethodGet, url, nil)
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.Code)
	}

	var body struct {
		Template datasetapi.TemplateDescriptor `json:"template"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Template.Slug != desc.Slug {
		t.Fatalf("unexpected slug: %s", body.Template.Slug)
	}
}

func TestHandlerTemplateNotFoundAndBadPaths(t *testing.T) {
	h := newRouteHandler(buildAbundanceRuntime())

	for _, path := range []string{
		"/api/v1/datasets/templates/invasives/unknown/9",
		"/api/v1/datasets/templates/short",
		"/api/v1/datasets/templates/invasives/abundance/1/run/extra",
		"/api/v1/datasets/ping",
	} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		resp := httptest.NewRecorder()
		h.ServeHTTP(resp, req)
		if resp.Code != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d", path, resp.Code)
		}
	}
}

func TestHandlerValidate(t *testing.T) {
	tpl := buildAbundanceRuntime()
	h := newRouteHandler(tpl)
	desc := tpl.Descriptor()
	url := "/api/v1/datasets/templates/" + desc.Plugin + "/" + desc.Key + "/" + desc.Version + "/validate"

	req := httptest.NewRequest(http.MethodPost, url, strings.NewReader(`{"parameters":{"effort":"lots"}}`))
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.Code)
	}
	var validation struct {
		Valid  bool                        `json:"valid"`
		Errors []datasetapi.ParameterError `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&validation); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if validation.Valid || len(validation.Errors) == 0 {
		t.Fatalf("expected validation errors, got %+v", validation)
	}

	// Empty body is tolerated.
	req = httptest.NewRequest(http.MethodPost, url, nil)
	resp = httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("empty body: unexpected status %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodPost, url, strings.NewReader("{invalid"))
	resp = httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("invalid json: expected 400, got %d", resp.Code)
	}
}

func TestHandlerRunJSON(t *testing.T) {
	tpl := buildAbundanceRuntime()
	h := newRouteHandler(tpl)
	desc := tpl.Descriptor()
	url := "/api/v1/datasets/templates/" + desc.Plugin + "/" + desc.Key + "/" + desc.Version + "/run"

	payload := `{"scope":{"requestor":"ecologist","survey_ids":["survey-1"]},"parameters":{"effort":5}}`
	req := httptest.NewRequest(http.MethodPost, url, strings.NewReader(payload))
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body=%s", resp.Code, resp.Body.String())
	}

	var body struct {
		Scope  datasetapi.Scope `json:"scope"`
		Result struct {
			Rows []map[string]any `json:"rows"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Result.Rows) != 1 {
		t.Fatalf("expected one row, got %d", len(body.Result.Rows))
	}
	if len(body.Scope.SurveyIDs) != 1 || body.Scope.SurveyIDs[0] != "survey-1" {
		t.Fatalf("scope not echoed: %+v", body.Scope)
	}
}

func TestHandlerRunCSV(t *testing.T) {
	tpl := buildAbundanceRuntime()
	h := newRouteHandler(tpl)
	desc := tpl.Descriptor()
	url := "/api/v1/datasets/templates/" + desc.Plugin + "/" + desc.Key + "/" + desc.Version + "/run?format=csv"

	req := httptest.NewRequest(http.MethodPost, url, strings.NewReader(`{}`))
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.Code)
	}
	if got := resp.Header().Get("Content-Type"); got != "text/csv" {
		t.Fatalf("unexpected content type: %s", got)
	}
	if cd := resp.Header().Get("Content-Disposition"); !strings.Contains(cd, desc.Key) {
		t.Fatalf("unexpected content disposition: %s", cd)
	}
	rows, err := csv.NewReader(resp.Body).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header plus one row, got %d", len(rows))
	}
	if rows[0][0] != "species" || rows[0][1] != "abundance" {
		t.Fatalf("unexpected header: %v", rows[0])
	}
}

func TestHandlerRunAcceptHeaderNegotiation(t *testing.T) {
	tpl := buildAbundanceRuntime()
	h := newRouteHandler(tpl)
	desc := tpl.Descriptor()
	url := "/api/v1/datasets/templates/" + desc.Plugin + "/" + desc.Key + "/" + desc.Version + "/run"

	req := httptest.NewRequest(http.MethodPost, url, strings.NewReader(`{}`))
	req.Header.Set("Accept", "text/csv")
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.Code)
	}
	if got := resp.Header().Get("Content-Type"); got != "text/csv" {
		t.Fatalf("accept negotiation failed, content type %s", got)
	}
}

func TestHandlerRunUnsupportedFormat(t *testing.T) {
	tpl := buildAbundanceRuntime()
	h := newRouteHandler(tpl)
	desc := tpl.Descriptor()
	url := "/api/v1/datasets/templates/" + desc.Plugin + "/" + desc.Key + "/" + desc.Version + "/run?format=parquet"

	req := httptest.NewRequest(http.MethodPost, url, strings.NewReader(`{}`))
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotAcceptable {
		t.Fatalf("expected 406, got %d", resp.Code)
	}
}

func TestHandlerRunParameterErrors(t *testing.T) {
	tpl := buildAbundanceRuntime()
	h := newRouteHandler(tpl)
	desc := tpl.Descriptor()
	url := "/api/v1/datasets/templates/" + desc.Plugin + "/" + desc.Key + "/" + desc.Version + "/run"

	req := httptest.NewRequest(http.MethodPost, url, strings.NewReader(`{"parameters":{"effort":true}}`))
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestHandlerMethodNotAllowed(t *testing.T) {
	tpl := buildAbundanceRuntime()
	h := newRouteHandler(tpl)
	desc := tpl.Descriptor()
	base := "/api/v1/datasets/templates/" + desc.Plugin + "/" + desc.Key + "/" + desc.Version

	cases := []struct {
		method string
		path   string
	}{
		{http.MethodPost, base},
		{http.MethodGet, base + "/run"},
		{http.MethodGet, base + "/validate"},
		{http.MethodDelete, "/api/v1/datasets/exports"},
		{http.MethodPut, "/api/v1/datasets/exports/some-id"},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(`{}`))
		resp := httptest.NewRecorder()
		h.ServeHTTP(resp, req)
		if resp.Code != http.StatusMethodNotAllowed {
			t.Fatalf("%s %s: expected 405, got %d", tc.method, tc.path, resp.Code)
		}
	}
}

func TestHandlerExportLifecycleOverHTTP(t *testing.T) {
	tpl := buildAbundanceRuntime()
	store := NewMemoryObjectStore()
	worker := NewWorker(stubCatalog{tpl: tpl}, store, nil)
	worker.Start()
	t.Cleanup(func() { _ = worker.Stop(context.Background()) })

	h := NewHandler(stubCatalog{tpl: tpl})
	h.Exports = worker

	payload := `{"template":{"slug":"` + tpl.Slug() + `"},"scope":{"requestor":"ecologist","survey_ids":["survey-1"]},"formats":["json","csv"],"requested_by":"ecologist","survey_id":"survey-1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/datasets/exports", strings.NewReader(payload))
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	if resp.Code != http.StatusAccepted {
		t.Fatalf("unexpected status: %d body=%s", resp.Code, resp.Body.String())
	}

	var created struct {
		Export ExportRecord `json:"export"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode export create: %v", err)
	}
	if created.Export.ID == "" || created.Export.SurveyID != "survey-1" {
		t.Fatalf("unexpected record: %+v", created.Export)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		record, _ := worker.GetExport(created.Export.ID)
		if record.Status == ExportStatusSucceeded {
			break
		}
		if record.Status == ExportStatusFailed {
			t.Fatalf("export failed: %s", record.Error)
		}
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for export (status=%s)", record.Status)
		}
		time.Sleep(20 * time.Millisecond)
	}

	statusReq := httptest.NewRequest(http.MethodGet, "/api/v1/datasets/exports/"+created.Export.ID, nil)
	statusResp := httptest.NewRecorder()
	h.ServeHTTP(statusResp, statusReq)
	if statusResp.Code != http.StatusOK {
		t.Fatalf("status route: %d", statusResp.Code)
	}

	listReq := httptest.NewRequest(http.MethodGet, "/api/v1/datasets/exports", nil)
	listResp := httptest.NewRecorder()
	h.ServeHTTP(listResp, listReq)
	if listResp.Code != http.StatusOK {
		t.Fatalf("list route: %d", listResp.Code)
	}
	var listing struct {
		Exports []ExportRecord `json:"exports"`
	}
	if err := json.NewDecoder(listResp.Body).Decode(&listing); err != nil {
		t.Fatalf("decode listing: %v", err)
	}
	if len(listing.Exports) != 1 || listing.Exports[0].ID != created.Export.ID {
		t.Fatalf("unexpected listing: %+v", listing.Exports)
	}

	if objects := store.Objects(); len(objects) != 2 {
		t.Fatalf("expected 2 stored artifacts, got %d", len(objects))
	}
}

func TestHandlerExportCreateErrors(t *testing.T) {
	tpl := buildAbundanceRuntime()
	h := newRouteHandler(tpl)

	cases := []struct {
		name    string
		payload string
		want    int
	}{
		{"missing template", `{}`, http.StatusBadRequest},
		{"bad json", `{invalid`, http.StatusBadRequest},
		{"unsupported format", `{"template":{"slug":"` + tpl.Slug() + `"},"formats":["parquet"]}`, http.StatusBadRequest},
		{"unknown slug", `{"template":{"slug":"missing/x@1"}}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/datasets/exports", strings.NewReader(tc.payload))
		resp := httptest.NewRecorder()
		h.ServeHTTP(resp, req)
		if resp.Code != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, resp.Code)
		}
	}

	// plugin/key/version fall back when slug is absent.
	desc := tpl.Descriptor()
	payload := `{"template":{"plugin":"` + desc.Plugin + `","key":"` + desc.Key + `","version":"` + desc.Version + `"},"formats":["json"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/datasets/exports", strings.NewReader(payload))
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	if resp.Code != http.StatusAccepted {
		t.Fatalf("plugin/key/version form: expected 202, got %d body=%s", resp.Code, resp.Body.String())
	}
}

func TestHandlerExportGetNotFound(t *testing.T) {
	h := newRouteHandler(buildAbundanceRuntime())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/datasets/exports/missing", nil)
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestHandlerExportsWithoutScheduler(t *testing.T) {
	h := NewHandler(stubCatalog{tpl: buildAbundanceRuntime()})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/datasets/exports", nil)
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without scheduler, got %d", resp.Code)
	}
}

func TestHandlerNilCatalog(t *testing.T) {
	h := &Handler{}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/datasets/templates", nil)
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
}

func TestFormatValue(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	cases := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{ts, "2026-03-14T09:00:00Z"},
		{3.5, "3.5"},
		{float32(2), "2"},
		{int(7), "7"},
		{int64(8), "8"},
		{"plain", "plain"},
		{true, "true"},
	}
	for _, tc := range cases {
		if got := formatValue(tc.in); got != tc.want {
			t.Errorf("formatValue(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
