package core

import (
	"os"
	"path/filepath"
	"testing"

	memory "biodivcore/internal/infra/persistence/memory"
	sqlite "biodivcore/internal/infra/persistence/sqlite"
)

// withEnv sets or unsets an env var for the duration of fn.
func withEnv(key, value string, fn func()) {
	orig, had := os.LookupEnv(key)
	if value == "" {
		_ = os.Unsetenv(key)
	} else {
		_ = os.Setenv(key, value)
	}
	defer func() {
		if had {
			_ = os.Setenv(key, orig)
		} else {
			_ = os.Unsetenv(key)
		}
	}()
	fn()
}

func TestOpenPersistentStoreDefaultSQLite(t *testing.T) {
	withEnv("BIODIVCORE_STORAGE_DRIVER", "", func() {
		path := filepath.Join(t.TempDir(), "default.db")
		withEnv("BIODIVCORE_SQLITE_PATH", path, func() {
			store, err := OpenPersistentStore(NewDefaultRulesEngine())
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			s, ok := store.(*sqlite.Store)
			if !ok {
				t.Fatalf("expected *sqlite.Store, got %T", store)
			}
			defer func() { _ = s.Close() }()
			if s.Path() != path {
				t.Fatalf("expected path %s, got %s", path, s.Path())
			}
		})
	})
}

func TestOpenPersistentStoreMemory(t *testing.T) {
	withEnv("BIODIVCORE_STORAGE_DRIVER", "memory", func() {
		store, err := OpenPersistentStore(NewDefaultRulesEngine())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if _, ok := store.(*memory.Store); !ok {
			t.Fatalf("expected *memory.Store, got %T", store)
		}
	})
}

func TestOpenPersistentStoreCustomSQLitePath(t *testing.T) {
	withEnv("BIODIVCORE_STORAGE_DRIVER", "sqlite", func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "nested", "custom.db")
		withEnv("BIODIVCORE_SQLITE_PATH", path, func() {
			store, err := OpenPersistentStore(NewDefaultRulesEngine())
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			s, ok := store.(*sqlite.Store)
			if !ok {
				t.Fatalf("expected *sqlite.Store, got %T", store)
			}
			defer func() { _ = s.Close() }()
			if s.Path() != path {
				t.Fatalf("expected path %s, got %s", path, s.Path())
			}
			if _, err := os.Stat(filepath.Dir(path)); err != nil {
				t.Fatalf("expected parent directory to be created: %v", err)
			}
		})
	})
}

func TestOpenPersistentStorePostgresUnreachable(t *testing.T) {
	withEnv("BIODIVCORE_STORAGE_DRIVER", "postgres", func() {
		withEnv("BIODIVCORE_POSTGRES_DSN", "postgres://127.0.0.1:1/biodivcore?sslmode=disable", func() {
			if _, err := OpenPersistentStore(NewDefaultRulesEngine()); err == nil {
				t.Fatalf("expected connection error for unreachable postgres")
			}
		})
	})
}

func TestOpenPersistentStoreUnknownDriver(t *testing.T) {
	withEnv("BIODIVCORE_STORAGE_DRIVER", "gibberish", func() {
		store, err := OpenPersistentStore(NewDefaultRulesEngine())
		if err == nil || store != nil {
			t.Fatalf("expected error for unknown driver, got store=%v err=%v", store, err)
		}
	})
}
