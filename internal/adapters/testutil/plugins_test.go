package testutil

import (
	"testing"

	"biodivcore/internal/core"
)

func TestInstallInvasivesPlugin(t *testing.T) {
	svc := core.NewInMemoryService(core.NewRulesEngine())
	metadata, err := InstallInvasivesPlugin(svc)
	if err != nil {
		t.Fatalf("install invasives plugin: %v", err)
	}

	if metadata.Name != "invasives" {
		t.Errorf("expected plugin name invasives, got %q", metadata.Name)
	}
	if metadata.Version == "" {
		t.Error("expected plugin metadata to carry a version")
	}
	if len(metadata.Datasets) != 2 {
		t.Errorf("expected two dataset templates, got %d", len(metadata.Datasets))
	}
}
