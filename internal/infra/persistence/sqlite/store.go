// Package sqlite provides a SQLite-backed persistent store. Transactions run
// against the embedded in-memory store; after every successful commit the
// full state is snapshotted into a single table as per-entity JSON buckets.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"biodivcore/internal/infra/persistence/memory"
	"biodivcore/pkg/domain"
)

// Compile-time contract assertion for the domain persistence interface.
var _ domain.PersistentStore = (*Store)(nil)

// DefaultPath is used when no database path is configured.
const DefaultPath = "biodivcore.db"

// Store persists the in-memory state to a single SQLite table as JSON blobs.
type Store struct {
	*memory.Store
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// NewStore opens (creating if necessary) a snapshotting SQLite-backed store
// at the given path and hydrates the in-memory state from any existing
// snapshot rows.
func NewStore(path string, engine *domain.RulesEngine) (*Store, error) {
	if path == "" {
		path = DefaultPath
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS snapshots (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("create snapshots table: %w", err)
	}
	s := &Store{Store: memory.NewStore(engine), db: db, path: path}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

var buckets = []string{"surveys", "plots", "taxa", "observations"}

func (s *Store) load() error {
	rows, err := s.db.Query(`SELECT bucket, payload FROM snapshots`)
	if err != nil {
		return fmt.Errorf("select snapshots: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var snapshot memory.Snapshot
	found := false
	for rows.Next() {
		var bucket string
		var payload []byte
		if err := rows.Scan(&bucket, &payload); err != nil {
			return fmt.Errorf("scan snapshot row: %w", err)
		}
		if len(payload) == 0 {
			continue
		}
		found = true
		switch bucket {
		case "surveys":
			if err := json.Unmarshal(payload, &snapshot.Surveys); err != nil {
				return fmt.Errorf("decode surveys: %w", err)
			}
		case "plots":
			if err := json.Unmarshal(payload, &snapshot.Plots); err != nil {
				return fmt.Errorf("decode plots: %w", err)
			}
		case "taxa":
			if err := json.Unmarshal(payload, &snapshot.Taxa); err != nil {
				return fmt.Errorf("decode taxa: %w", err)
			}
		case "observations":
			if err := json.Unmarshal(payload, &snapshot.Observations); err != nil {
				return fmt.Errorf("decode observations: %w", err)
			}
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate snapshots: %w", err)
	}
	if found {
		s.ImportState(snapshot)
	}
	return nil
}

func (s *Store) persist() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.ExportState()
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	for _, bucket := range buckets {
		var data []byte
		switch bucket {
		case "surveys":
			data, err = json.Marshal(snapshot.Surveys)
		case "plots":
			data, err = json.Marshal(snapshot.Plots)
		case "taxa":
			data, err = json.Marshal(snapshot.Taxa)
		case "observations":
			data, err = json.Marshal(snapshot.Observations)
		}
		if err != nil {
			return err
		}
		if _, err := tx.Exec(`INSERT INTO snapshots(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`, bucket, data); err != nil {
			return fmt.Errorf("upsert %s: %w", bucket, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

// RunInTransaction applies fn in memory, then snapshots state to SQLite on
// success.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx domain.Transaction) error) (domain.Result, error) {
	res, err := s.Store.RunInTransaction(ctx, fn)
	if err != nil {
		return res, err
	}
	if pErr := s.persist(); pErr != nil {
		return res, pErr
	}
	return res, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }
