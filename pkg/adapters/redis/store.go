// Package redis implements ports.SnapshotStore on Redis, enabling
// resumable interpreter sessions shared across processes.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/espalier/pkg/chart"
)

const defaultPrefix = "espalier:session:"

// Store implements ports.SnapshotStore backed by Redis. Snapshots are
// stored as JSON under prefix+sessionID; a sorted set under
// prefix+"index" tracks session IDs, scored by expiry time so List can
// lazily drop expired entries.
type Store struct {
	client backend.UniversalClient
	prefix string
	ttl    time.Duration
}

// Option configures the store.
type Option func(*Store)

// WithTTL expires snapshots after d. Zero (the default) keeps them
// until deleted.
func WithTTL(d time.Duration) Option {
	return func(s *Store) {
		s.ttl = d
	}
}

// WithPrefix overrides the key prefix (default "espalier:session:").
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// NewFromClient wraps an existing Redis client.
func NewFromClient(client backend.UniversalClient, opts ...Option) *Store {
	s := &Store{
		client: client,
		prefix: defaultPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// New connects to addr and wraps the resulting client.
func New(addr string, opts ...Option) *Store {
	return NewFromClient(backend.NewClient(&backend.Options{Addr: addr}), opts...)
}

func (s *Store) key(sessionID string) string { return s.prefix + sessionID }
func (s *Store) indexKey() string            { return s.prefix + "index" }

// Save persists the snapshot, refreshing its TTL.
func (s *Store) Save(ctx context.Context, sessionID string, snap *chart.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	score := float64(noExpiry)
	if s.ttl > 0 {
		score = float64(time.Now().Add(s.ttl).Unix())
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(sessionID), payload, s.ttl)
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{Score: score, Member: sessionID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save session %s: %w", sessionID, err)
	}
	return nil
}

// Load retrieves the snapshot, returning chart.ErrSessionNotFound for
// missing or expired sessions.
func (s *Store) Load(ctx context.Context, sessionID string) (*chart.Snapshot, error) {
	payload, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if errors.Is(err, backend.Nil) {
		return nil, chart.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}

	var snap chart.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal session %s: %w", sessionID, err)
	}
	return &snap, nil
}

// Delete removes the snapshot and its index entry.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key(sessionID))
	pipe.ZRem(ctx, s.indexKey(), sessionID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete session %s: %w", sessionID, err)
	}
	return nil
}

// List returns the live session IDs, dropping index entries whose score
// (expiry time) has passed. Redis expires the snapshot keys itself; the
// index is cleaned up lazily here.
func (s *Store) List(ctx context.Context) ([]string, error) {
	now := strconv.FormatInt(time.Now().Unix(), 10)
	if err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "0", now).Err(); err != nil {
		return nil, fmt.Errorf("prune session index: %w", err)
	}

	sessions, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// noExpiry sorts persistent sessions above any realistic expiry stamp.
const noExpiry = int64(1) << 62
