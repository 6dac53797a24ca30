// Package tests holds reusable contract suites for ports implementations.
package tests

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/espalier/pkg/chart"
	"github.com/aretw0/espalier/pkg/ports"
)

// RunSnapshotStoreContract verifies that a store complies with
// ports.SnapshotStore. Adapters call it from their own tests.
func RunSnapshotStoreContract(t *testing.T, store ports.SnapshotStore) {
	t.Helper()
	ctx := context.Background()

	snap := &chart.Snapshot{Configuration: []string{"displaying_results", "searching"}}

	t.Run("SaveAndLoad", func(t *testing.T) {
		if err := store.Save(ctx, "session-1", snap); err != nil {
			t.Fatalf("unexpected error saving snapshot: %v", err)
		}
		got, err := store.Load(ctx, "session-1")
		if err != nil {
			t.Fatalf("unexpected error loading snapshot: %v", err)
		}
		if len(got.Configuration) != len(snap.Configuration) {
			t.Fatalf("configuration mismatch: got %v, want %v", got.Configuration, snap.Configuration)
		}
		for i, id := range snap.Configuration {
			if got.Configuration[i] != id {
				t.Errorf("configuration[%d]: got %q, want %q", i, got.Configuration[i], id)
			}
		}
	})

	t.Run("LoadIsolation", func(t *testing.T) {
		got, err := store.Load(ctx, "session-1")
		if err != nil {
			t.Fatal(err)
		}
		if len(got.Configuration) > 0 {
			got.Configuration[0] = "mutated"
		}
		again, err := store.Load(ctx, "session-1")
		if err != nil {
			t.Fatal(err)
		}
		if len(again.Configuration) > 0 && again.Configuration[0] == "mutated" {
			t.Error("store returned a shared slice; loads must be isolated")
		}
	})

	t.Run("LoadNotFound", func(t *testing.T) {
		_, err := store.Load(ctx, "no-such-session")
		if !errors.Is(err, chart.ErrSessionNotFound) {
			t.Errorf("expected chart.ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("List", func(t *testing.T) {
		if err := store.Save(ctx, "session-2", &chart.Snapshot{Configuration: []string{"initial"}}); err != nil {
			t.Fatal(err)
		}
		sessions, err := store.List(ctx)
		if err != nil {
			t.Fatalf("unexpected error listing sessions: %v", err)
		}
		lookup := make(map[string]bool, len(sessions))
		for _, id := range sessions {
			lookup[id] = true
		}
		for _, id := range []string{"session-1", "session-2"} {
			if !lookup[id] {
				t.Errorf("session %s missing from list", id)
			}
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := store.Delete(ctx, "session-1"); err != nil {
			t.Fatalf("unexpected error deleting session: %v", err)
		}
		if _, err := store.Load(ctx, "session-1"); !errors.Is(err, chart.ErrSessionNotFound) {
			t.Errorf("expected chart.ErrSessionNotFound after delete, got %v", err)
		}
		// Deleting a missing session is not an error.
		if err := store.Delete(ctx, "session-1"); err != nil {
			t.Errorf("second delete should be a no-op, got %v", err)
		}
	})
}
