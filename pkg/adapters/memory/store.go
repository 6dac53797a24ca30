// Package memory implements ports.SnapshotStore in memory.
package memory

import (
	"context"
	"sync"

	"github.com/aretw0/espalier/pkg/chart"
)

// Store implements ports.SnapshotStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*chart.Snapshot
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*chart.Snapshot),
	}
}

// Save persists the snapshot in memory.
func (s *Store) Save(ctx context.Context, sessionID string, snap *chart.Snapshot) error {
	copied := cloneSnapshot(snap)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[sessionID] = copied
	return nil
}

// Load retrieves the snapshot from memory.
func (s *Store) Load(ctx context.Context, sessionID string) (*chart.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.data[sessionID]
	if !ok {
		return nil, chart.ErrSessionNotFound
	}
	// Copy on read so the caller can't mutate stored state by pointer.
	return cloneSnapshot(snap), nil
}

// Delete removes the snapshot.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
	return nil
}

// List returns sessions with a stored snapshot.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]string, 0, len(s.data))
	for id := range s.data {
		sessions = append(sessions, id)
	}
	return sessions, nil
}

func cloneSnapshot(snap *chart.Snapshot) *chart.Snapshot {
	copied := *snap
	copied.Configuration = append([]string(nil), snap.Configuration...)
	return &copied
}
