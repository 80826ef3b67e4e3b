package datasets

import (
	"context"
	"strings"
	"testing"

	"biodivcore/internal/blob"
)

func TestMemoryObjectStorePutGetListDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryObjectStore()

	meta := map[string]any{"rows": 12}
	a1, err := store.Put(ctx, "exp1/richness.csv", []byte("species,n\n"), "text/csv", meta)
	if err != nil {
		t.Fatalf("put a1: %v", err)
	}
	if a1.ID != "exp1/richness.csv" || a1.SizeBytes != 10 {
		t.Fatalf("unexpected artifact metadata: %+v", a1)
	}
	if a1.URL == "" {
		t.Fatalf("expected stub URL")
	}

	meta["mutated"] = true
	got, payload, err := store.Get(ctx, "exp1/richness.csv")
	if err != nil {
		t.Fatalf("get a1: %v", err)
	}
	if string(payload) != "species,n\n" {
		t.Fatalf("unexpected payload %q", string(payload))
	}
	if _, ok := got.Metadata["mutated"]; ok {
		t.Fatalf("store metadata mutated via caller map")
	}

	if _, err := store.Put(ctx, "exp1/richness.csv", []byte("again"), "text/csv", nil); err == nil {
		t.Fatalf("expected duplicate key error")
	}
	if _, err := store.Put(ctx, "exp1/pie.json", []byte("{}"), "application/json", nil); err != nil {
		t.Fatalf("put a2: %v", err)
	}

	list, err := store.List(ctx, "exp1/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 artifacts, got %d", len(list))
	}

	existed, err := store.Delete(ctx, "exp1/richness.csv")
	if err != nil || !existed {
		t.Fatalf("delete existing: existed=%v err=%v", existed, err)
	}
	existed, err = store.Delete(ctx, "exp1/richness.csv")
	if err != nil || existed {
		t.Fatalf("idempotent delete expected false,nil got %v,%v", existed, err)
	}
	if _, _, err := store.Get(ctx, "exp1/richness.csv"); err == nil {
		t.Fatalf("expected error on deleted object")
	}
}

func TestBlobObjectStoreRoundtrip(t *testing.T) {
	ctx := context.Background()
	store := NewBlobObjectStore(blob.NewMemory(), "")

	artifact, err := store.Put(ctx, "run-1/abundance.json", []byte(`{"rows":[]}`), "application/json", map[string]any{"rows": 0})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if artifact.ID != "run-1/abundance.json" {
		t.Fatalf("unexpected id %s", artifact.ID)
	}
	if artifact.SizeBytes != int64(len(`{"rows":[]}`)) {
		t.Fatalf("unexpected size %d", artifact.SizeBytes)
	}
	if artifact.Metadata["rows"] != "0" {
		t.Fatalf("expected stringified metadata, got %#v", artifact.Metadata)
	}

	got, payload, err := store.Get(ctx, "run-1/abundance.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(payload) != `{"rows":[]}` {
		t.Fatalf("unexpected payload %q", string(payload))
	}
	if got.ContentType != "application/json" {
		t.Fatalf("unexpected content type %s", got.ContentType)
	}

	if _, err := store.Put(ctx, "run-1/abundance.json", []byte("x"), "", nil); err == nil {
		t.Fatalf("expected create-only failure on duplicate key")
	}

	list, err := store.List(ctx, "run-1/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].ID != "run-1/abundance.json" {
		t.Fatalf("unexpected list %+v", list)
	}

	existed, err := store.Delete(ctx, "run-1/abundance.json")
	if err != nil || !existed {
		t.Fatalf("delete: existed=%v err=%v", existed, err)
	}
	existed, err = store.Delete(ctx, "run-1/abundance.json")
	if err != nil || existed {
		t.Fatalf("second delete: existed=%v err=%v", existed, err)
	}
}

func TestBlobObjectStorePrefixIsolation(t *testing.T) {
	ctx := context.Background()
	backend := blob.NewMemory()
	store := NewBlobObjectStore(backend, "datasets")

	if _, err := store.Put(ctx, "a.csv", []byte("x"), "text/csv", nil); err != nil {
		t.Fatalf("put: %v", err)
	}

	infos, err := backend.List(ctx, "datasets/")
	if err != nil {
		t.Fatalf("backend list: %v", err)
	}
	if len(infos) != 1 || infos[0].Key != "datasets/a.csv" {
		t.Fatalf("expected prefixed backend key, got %+v", infos)
	}

	list, err := store.List(ctx, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].ID != "a.csv" {
		t.Fatalf("expected prefix stripped from ID, got %+v", list)
	}
}

func TestBlobObjectStorePresignedURLs(t *testing.T) {
	ctx := context.Background()
	store := NewBlobObjectStore(blob.NewMockS3ForTests(), "exports/")

	artifact, err := store.Put(ctx, "run-2/summary.csv", []byte("species,n\nfallopia,3\n"), "text/csv", nil)
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if !strings.Contains(artifact.URL, "run-2/summary.csv") {
		t.Fatalf("expected presigned URL referencing key, got %s", artifact.URL)
	}
	if !strings.Contains(artifact.URL, "X-Amz-") {
		t.Fatalf("expected signed query parameters, got %s", artifact.URL)
	}
}

func TestWorkerWithBlobBackedStore(t *testing.T) {
	tpl := buildAbundanceRuntime()
	store := NewBlobObjectStore(blob.NewMemory(), "exports/")
	w := NewWorker(stubCatalog{tpl: tpl}, store, nil)
	w.Start()
	defer func() { _ = w.Stop(context.Background()) }()

	rec, err := w.EnqueueExport(context.Background(), ExportInput{TemplateSlug: tpl.Slug()})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	done := waitForStatus(t, w, rec.ID, ExportStatusSucceeded)
	if len(done.Artifacts) != 2 {
		t.Fatalf("expected 2 artifacts, got %d", len(done.Artifacts))
	}

	list, err := store.List(context.Background(), "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 stored artifacts, got %d", len(list))
	}
}
