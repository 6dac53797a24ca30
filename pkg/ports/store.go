// Package ports defines the outward-facing interfaces of the engine, so
// adapters (memory, Redis, HTTP) stay decoupled from the core.
package ports

import (
	"context"

	"github.com/aretw0/espalier/pkg/chart"
)

// SnapshotStore persists active-configuration snapshots keyed by session
// ID. It enables "stop and resume" embeddings: an adapter saves the
// stabilized snapshot after each event and can surface it to clients
// that reconnect later.
type SnapshotStore interface {
	// Save persists the snapshot for a given session ID.
	Save(ctx context.Context, sessionID string, snap *chart.Snapshot) error

	// Load retrieves the snapshot for a given session ID.
	// Returns chart.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, sessionID string) (*chart.Snapshot, error)

	// Delete removes the snapshot for a given session ID.
	Delete(ctx context.Context, sessionID string) error

	// List returns the session IDs with a stored snapshot.
	List(ctx context.Context) ([]string, error)
}
