// Package memory provides the in-memory snapshot store used by tests and
// by sessions that opt out of persistence.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"canvascore/pkg/domain"
)

// Compile-time contract assertion.
var _ domain.SnapshotStore = (*Store)(nil)

// Store keeps the latest snapshot as raw JSON in process memory.
type Store struct {
	mu  sync.RWMutex
	raw []byte
}

// NewStore returns an empty in-memory snapshot store.
func NewStore() *Store { return &Store{} }

// Save replaces the stored snapshot.
func (s *Store) Save(_ context.Context, snap domain.Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	s.mu.Lock()
	s.raw = raw
	s.mu.Unlock()
	return nil
}

// Load returns the stored snapshot bytes, or ok=false when nothing has been
// saved yet.
func (s *Store) Load(context.Context) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.raw == nil {
		return nil, false, nil
	}
	out := make([]byte, len(s.raw))
	copy(out, s.raw)
	return out, true, nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

// SeedRaw installs raw snapshot bytes directly, bypassing encoding. Tests
// use it to stage old-schema documents.
func (s *Store) SeedRaw(raw []byte) {
	s.mu.Lock()
	s.raw = append([]byte(nil), raw...)
	s.mu.Unlock()
}
