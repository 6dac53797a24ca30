// Package httpapi exposes interpreter sessions over a JSON HTTP API.
// Each session owns one interpreter built from a caller-supplied
// factory; an optional SnapshotStore persists the stabilized
// configuration after every processed event.
package httpapi

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/aretw0/espalier"
	"github.com/aretw0/espalier/internal/logging"
	"github.com/aretw0/espalier/pkg/chart"
	"github.com/aretw0/espalier/pkg/ports"
)

// Factory builds a fresh interpreter for a new session. Implementations
// typically close over a shared compiled chart and registry.
type Factory func(sessionID string) (*espalier.Interpreter, error)

// Manager owns the live sessions behind the HTTP handler.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*espalier.Interpreter

	factory Factory
	store   ports.SnapshotStore
	log     *slog.Logger
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithStore persists snapshots after session creation, each processed
// event, and stop.
func WithStore(store ports.SnapshotStore) ManagerOption {
	return func(m *Manager) {
		m.store = store
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(log *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.log = log
	}
}

// NewManager creates a session manager around the factory.
func NewManager(factory Factory, opts ...ManagerOption) *Manager {
	m := &Manager{
		sessions: make(map[string]*espalier.Interpreter),
		factory:  factory,
		log:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create builds and starts a new session.
func (m *Manager) Create(ctx context.Context) (string, *espalier.Interpreter, error) {
	id := uuid.NewString()
	interp, err := m.factory(id)
	if err != nil {
		return "", nil, fmt.Errorf("build interpreter: %w", err)
	}
	if err := interp.Start(ctx); err != nil {
		return "", nil, err
	}

	m.mu.Lock()
	m.sessions[id] = interp
	m.mu.Unlock()

	m.persist(ctx, id, interp)
	m.log.Info("session created", "session", id, "chart", interp.Chart().ID())
	return id, interp, nil
}

// Get returns the interpreter for a session.
func (m *Manager) Get(id string) (*espalier.Interpreter, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	interp, ok := m.sessions[id]
	if !ok {
		return nil, chart.ErrSessionNotFound
	}
	return interp, nil
}

// Send delivers an event to a session and returns the stabilized
// configuration.
func (m *Manager) Send(ctx context.Context, id string, ev chart.Event) ([]string, error) {
	interp, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	if err := interp.SendEvent(ctx, ev); err != nil {
		return nil, err
	}
	m.persist(ctx, id, interp)
	return interp.CurrentStates(), nil
}

// Stop disposes a session. The final snapshot (marked stopped) is
// persisted before the session is dropped.
func (m *Manager) Stop(ctx context.Context, id string) error {
	interp, err := m.Get(id)
	if err != nil {
		return err
	}
	if err := interp.Stop(ctx); err != nil {
		return err
	}
	m.persist(ctx, id, interp)

	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()

	m.log.Info("session stopped", "session", id)
	return nil
}

func (m *Manager) persist(ctx context.Context, id string, interp *espalier.Interpreter) {
	if m.store == nil {
		return
	}
	snap := interp.Snapshot()
	if err := m.store.Save(ctx, id, &snap); err != nil {
		// Persistence is best-effort for the live session; the
		// interpreter itself stays authoritative.
		m.log.Error("snapshot save failed", "session", id, "err", err)
	}
}
