package pipeline

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/radium-io/atelier-assets/fingerprint"
	"github.com/radium-io/atelier-assets/types"
)

// Meta is the per-source persistence envelope the pipeline threads across
// import runs: the last-seen fingerprint, the self-describing Options and
// State blobs, and the identities the last successful run produced.
type Meta struct {
	Fingerprint fingerprint.Fingerprint `json:"fingerprint"`
	OptionsBlob []byte                  `json:"options_blob,omitempty"`
	StateBlob   []byte                  `json:"state_blob,omitempty"`
	Assets      []types.AssetID         `json:"assets,omitempty"`
	ImportedAt  time.Time               `json:"imported_at"`
}

// MetaStore is the pluggable backend persisting Meta per source path. The
// production store lives with the host daemon; implementations must be safe
// for concurrent use, though the pipeline never issues concurrent operations
// for the same path.
type MetaStore interface {
	// Load returns the persisted meta for a path. The boolean reports
	// whether an entry existed.
	Load(ctx context.Context, path string) (Meta, bool, error)

	// Save persists the meta for a path, replacing any previous entry.
	Save(ctx context.Context, path string, meta Meta) error

	// Delete removes the entry for a path. Deleting a missing entry is not
	// an error.
	Delete(ctx context.Context, path string) error
}

// MemoryStore is an in-memory MetaStore for tests and single-run tooling.
type MemoryStore struct {
	mu    sync.RWMutex
	metas map[string]Meta
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{metas: make(map[string]Meta)}
}

// Load implements MetaStore.
func (s *MemoryStore) Load(_ context.Context, path string) (Meta, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	meta, found := s.metas[path]
	return meta, found, nil
}

// Save implements MetaStore.
func (s *MemoryStore) Save(_ context.Context, path string, meta Meta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metas[path] = meta
	return nil
}

// Delete implements MetaStore.
func (s *MemoryStore) Delete(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.metas, path)
	return nil
}

// Snapshot returns a copy of all entries, for inspection in tests.
func (s *MemoryStore) Snapshot() map[string]Meta {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Meta, len(s.metas))
	maps.Copy(out, s.metas)
	return out
}
