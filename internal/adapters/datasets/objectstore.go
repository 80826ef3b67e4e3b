package datasets

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"biodivcore/internal/blob"
)

// BlobObjectStore persists export artifacts in a blob.Store under a fixed
// key prefix. URLs come from the driver's presigner when available and fall
// back to the stored object URL otherwise.
type BlobObjectStore struct {
	store  blob.Store
	prefix string
}

// NewBlobObjectStore wraps a blob store. An empty prefix defaults to
// "exports/".
func NewBlobObjectStore(store blob.Store, prefix string) *BlobObjectStore {
	if prefix == "" {
		prefix = "exports/"
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &BlobObjectStore{store: store, prefix: prefix}
}

func (s *BlobObjectStore) key(id string) string { return s.prefix + id }

func (s *BlobObjectStore) id(key string) string { return strings.TrimPrefix(key, s.prefix) }

// Put stores a new immutable artifact payload.
func (s *BlobObjectStore) Put(ctx context.Context, key string, payload []byte, contentType string, metadata map[string]any) (ExportArtifact, error) {
	info, err := s.store.Put(ctx, s.key(key), bytes.NewReader(payload), blob.PutOptions{
		ContentType: contentType,
		Metadata:    stringifyMetadata(metadata),
	})
	if err != nil {
		return ExportArtifact{}, err
	}
	return s.artifactFor(ctx, key, info), nil
}

// Get returns the artifact metadata and payload bytes.
func (s *BlobObjectStore) Get(ctx context.Context, key string) (ExportArtifact, []byte, error) {
	info, rc, err := s.store.Get(ctx, s.key(key))
	if err != nil {
		return ExportArtifact{}, nil, err
	}
	defer func() { _ = rc.Close() }()
	payload, err := io.ReadAll(rc)
	if err != nil {
		return ExportArtifact{}, nil, err
	}
	return s.artifactFor(ctx, key, info), payload, nil
}

// Delete removes the artifact; idempotent.
func (s *BlobObjectStore) Delete(ctx context.Context, key string) (bool, error) {
	return s.store.Delete(ctx, s.key(key))
}

// List returns artifacts whose keys start with prefix.
func (s *BlobObjectStore) List(ctx context.Context, prefix string) ([]ExportArtifact, error) {
	infos, err := s.store.List(ctx, s.prefix+prefix)
	if err != nil {
		return nil, err
	}
	out := make([]ExportArtifact, 0, len(infos))
	for _, info := range infos {
		out = append(out, s.artifactFor(ctx, s.id(info.Key), info))
	}
	return out, nil
}

func (s *BlobObjectStore) artifactFor(ctx context.Context, id string, info blob.Info) ExportArtifact {
	// Presign failures (including ErrUnsupported on drivers without signing)
	// fall back to the stored object URL.
	url := info.URL
	if signed, err := s.store.PresignURL(ctx, info.Key, blob.SignedURLOptions{}); err == nil && signed != "" {
		url = signed
	}
	artifact := ExportArtifact{
		ID:          id,
		ContentType: info.ContentType,
		SizeBytes:   info.Size,
		URL:         url,
		CreatedAt:   info.LastModified,
	}
	if len(info.Metadata) > 0 {
		artifact.Metadata = make(map[string]any, len(info.Metadata))
		for k, v := range info.Metadata {
			artifact.Metadata[k] = v
		}
	}
	return artifact
}

// stringifyMetadata flattens arbitrary metadata values for backends that
// store flat string maps.
func stringifyMetadata(in map[string]any) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = fmt.Sprint(v)
	}
	return out
}

// MemoryObjectStore is an in-memory ObjectStore for tests.
type MemoryObjectStore struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
}

type memoryObject struct {
	artifact ExportArtifact
	payload  []byte
}

// NewMemoryObjectStore constructs an empty in-memory object store.
func NewMemoryObjectStore() *MemoryObjectStore {
	return &MemoryObjectStore{objects: make(map[string]memoryObject)}
}

// Put stores the payload and returns stub artifact metadata.
func (s *MemoryObjectStore) Put(ctx context.Context, key string, payload []byte, contentType string, metadata map[string]any) (ExportArtifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.objects[key]; exists {
		return ExportArtifact{}, fmt.Errorf("object %s already exists", key)
	}
	artifact := ExportArtifact{
		ID:          key,
		ContentType: contentType,
		SizeBytes:   int64(len(payload)),
		Metadata:    cloneParams(metadata),
		CreatedAt:   time.Now().UTC(),
		URL:         fmt.Sprintf("https://object-store.local/%s?token=stub", key),
	}
	cp := make([]byte, len(payload))
	copy(cp, payload)
	s.objects[key] = memoryObject{artifact: artifact, payload: cp}
	return artifact, nil
}

func (s *MemoryObjectStore) Get(ctx context.Context, key string) (ExportArtifact, []byte, error) {
	s.mu.RLock()
	obj, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return ExportArtifact{}, nil, fmt.Errorf("object %s not found", key)
	}
	payload := make([]byte, len(obj.payload))
	copy(payload, obj.payload)
	artifact := obj.artifact
	artifact.Metadata = cloneParams(artifact.Metadata)
	return artifact, payload, nil
}

func (s *MemoryObjectStore) Delete(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, existed := s.objects[key]
	if existed {
		delete(s.objects, key)
	}
	return existed, nil
}

func (s *MemoryObjectStore) List(ctx context.Context, prefix string) ([]ExportArtifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ExportArtifact, 0, len(s.objects))
	for key, obj := range s.objects {
		if prefix == "" || strings.HasPrefix(key, prefix) {
			artifact := obj.artifact
			artifact.Metadata = cloneParams(artifact.Metadata)
			out = append(out, artifact)
		}
	}
	return out, nil
}

// Objects returns stored artifacts for inspection in tests.
func (s *MemoryObjectStore) Objects() []ExportArtifact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ExportArtifact, 0, len(s.objects))
	for _, obj := range s.objects {
		artifact := obj.artifact
		artifact.Metadata = cloneParams(artifact.Metadata)
		out = append(out, artifact)
	}
	return out
}

// MemoryAuditLog captures audit entries in memory for assertions.
type MemoryAuditLog struct {
	mu      sync.Mutex
	entries []AuditEntry
}

// Record stores an audit entry.
func (l *MemoryAuditLog) Record(ctx context.Context, entry AuditEntry) {
	l.mu.Lock()
	l.entries = append(l.entries, entry)
	l.mu.Unlock()
}

// Entries returns a copy of recorded audit entries.
func (l *MemoryAuditLog) Entries() []AuditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]AuditEntry, len(l.entries))
	copy(out, l.entries)
	return out
}
