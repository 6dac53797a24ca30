package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/espalier/pkg/adapters/redis"
	"github.com/aretw0/espalier/pkg/chart"
	"github.com/aretw0/espalier/pkg/ports/tests"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	return mr, backend.NewClient(&backend.Options{Addr: mr.Addr()})
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := newTestClient(t)
	tests.RunSnapshotStoreContract(t, redis.NewFromClient(client))
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	mr, client := newTestClient(t)

	store := redis.NewFromClient(client, redis.WithTTL(1*time.Second))
	ctx := context.Background()
	sessionID := "session-ttl"
	snap := &chart.Snapshot{Configuration: []string{"searching"}}

	require.NoError(t, store.Save(ctx, sessionID, snap))

	sessions, err := store.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, sessions, sessionID)

	// Fast forward past the TTL so the snapshot key expires.
	mr.FastForward(2 * time.Second)

	_, err = store.Load(ctx, sessionID)
	assert.ErrorIs(t, err, chart.ErrSessionNotFound)

	// Index cleanup relies on time.Now() exceeding the stored expiry
	// score, so wait out the 1s TTL in wall-clock time too.
	time.Sleep(1200 * time.Millisecond)

	sessions, err = store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, client := newTestClient(t)

	store := redis.NewFromClient(client, redis.WithPrefix("custom:app:"))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "my-session", &chart.Snapshot{Configuration: []string{"initial"}}))

	assert.True(t, mr.Exists("custom:app:my-session"), "expected key with custom prefix to exist")
	assert.False(t, mr.Exists("espalier:session:my-session"))
}

func TestRedisStore_PersistentSessionsSurviveListPrune(t *testing.T) {
	_, client := newTestClient(t)

	store := redis.NewFromClient(client) // no TTL
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "durable", &chart.Snapshot{Configuration: []string{"zoomed_in"}}))

	sessions, err := store.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, sessions, "durable")
}
