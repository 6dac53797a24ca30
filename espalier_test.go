package espalier_test

import (
	"context"
	"reflect"
	"sync"
	"testing"

	"github.com/aretw0/espalier"
	"github.com/aretw0/espalier/pkg/chart"
	"github.com/aretw0/espalier/pkg/registry"
)

// searchUIDefinition is the search box walkthrough: an initial state, a
// searching state wrapping an in-flight HTTP request, and zoomable
// results. The chart deliberately has no transition from
// displaying_results back to searching.
func searchUIDefinition() chart.Definition {
	return chart.Definition{
		ID:      "search-ui",
		Initial: "initial",
		States: []chart.State{
			{ID: "initial", Transitions: []chart.Transition{
				{Event: "search", Target: "searching"},
			}},
			{ID: "searching",
				Entry: []string{"startHttpRequest"},
				Exit:  []string{"cancelHttpRequest"},
				Transitions: []chart.Transition{
					{Event: "results", Target: "displaying_results"},
				},
			},
			{ID: "displaying_results",
				Entry: []string{"showResults"},
				Transitions: []chart.Transition{
					{Event: "zoom", Target: "zoomed_in"},
				},
			},
			{ID: "zoomed_in",
				Entry: []string{"zoomIn"},
				Exit:  []string{"zoomOut"},
				Transitions: []chart.Transition{
					{Event: "zoom_out", Target: "displaying_results"},
				},
			},
		},
	}
}

func recordingRegistry(names []string, log *[]string) *registry.Registry {
	reg := registry.New()
	for _, name := range names {
		name := name
		reg.RegisterAction(name, func(ctx context.Context, ev chart.Event) error {
			*log = append(*log, name)
			return nil
		})
	}
	return reg
}

func wantStates(t *testing.T, i *espalier.Interpreter, want ...string) {
	t.Helper()
	if got := i.CurrentStates(); !reflect.DeepEqual(got, want) {
		t.Errorf("CurrentStates = %v, want %v", got, want)
	}
}

func TestSearchUI_EndToEnd(t *testing.T) {
	var log []string
	reg := recordingRegistry([]string{
		"startHttpRequest", "cancelHttpRequest", "showResults", "zoomIn", "zoomOut",
	}, &log)

	i, err := espalier.New(searchUIDefinition(), reg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx := context.Background()
	if err := i.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	wantStates(t, i, "initial")

	steps := []struct {
		event   string
		states  []string
		actions []string
	}{
		{"search", []string{"searching"}, []string{"startHttpRequest"}},
		{"results", []string{"displaying_results"}, []string{"cancelHttpRequest", "showResults"}},
		{"zoom", []string{"zoomed_in"}, []string{"zoomIn"}},
		// zoom_out re-enters displaying_results, so its entry action
		// showResults runs again: entry actions fire on every entry,
		// not just the first.
		{"zoom_out", []string{"displaying_results"}, []string{"zoomOut", "showResults"}},
	}
	for _, step := range steps {
		log = nil
		if err := i.Send(ctx, step.event); err != nil {
			t.Fatalf("Send(%q) failed: %v", step.event, err)
		}
		wantStates(t, i, step.states...)
		if !reflect.DeepEqual(log, step.actions) {
			t.Errorf("Send(%q) actions = %v, want %v", step.event, log, step.actions)
		}
	}
}

// TestSearchUI_RepeatSearchWhileDisplayingResults pins down a known gap
// in the search UI chart: there is no transition from displaying_results
// back to searching, so a second "search" event is discarded. The event
// must be a clean no-op, with no actions fired and the configuration
// unchanged.
func TestSearchUI_RepeatSearchWhileDisplayingResults(t *testing.T) {
	var log []string
	reg := recordingRegistry([]string{
		"startHttpRequest", "cancelHttpRequest", "showResults", "zoomIn", "zoomOut",
	}, &log)

	i, err := espalier.New(searchUIDefinition(), reg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx := context.Background()
	if err := i.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	for _, ev := range []string{"search", "results"} {
		if err := i.Send(ctx, ev); err != nil {
			t.Fatalf("Send(%q) failed: %v", ev, err)
		}
	}
	wantStates(t, i, "displaying_results")

	log = nil
	if err := i.Send(ctx, "search"); err != nil {
		t.Fatalf("discarded Send returned error: %v", err)
	}
	wantStates(t, i, "displaying_results")
	if len(log) != 0 {
		t.Errorf("discarded event fired actions %v, want none", log)
	}
}

func TestNew_ReturnsValidationError(t *testing.T) {
	def := chart.Definition{ID: "bad", Initial: "ghost", States: []chart.State{{ID: "a"}}}
	_, err := espalier.New(def, registry.New())
	if err == nil {
		t.Fatal("New accepted an invalid definition")
	}
	verr := chart.AsValidationError(err)
	if verr == nil {
		t.Fatalf("error = %v, want *chart.ValidationError", err)
	}
	if len(verr.Issues) == 0 {
		t.Error("validation error carries no issues")
	}
}

func TestSend_PayloadReachesActions(t *testing.T) {
	type searchQuery struct {
		Term string `json:"term"`
	}

	def := chart.Definition{
		ID: "c", Initial: "idle",
		States: []chart.State{
			{ID: "idle", Transitions: []chart.Transition{
				{Event: "search", Target: "busy", Actions: []string{"capture"}},
			}},
			{ID: "busy"},
		},
	}

	var got searchQuery
	reg := registry.New().RegisterAction("capture", func(ctx context.Context, ev chart.Event) error {
		return registry.DecodePayload(ev, &got)
	})

	i, err := espalier.New(def, reg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx := context.Background()
	if err := i.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := i.Send(ctx, "search", map[string]any{"term": "pruning"}); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if got.Term != "pruning" {
		t.Errorf("decoded term = %q, want %q", got.Term, "pruning")
	}
}

func TestSend_ConcurrentProducersAreSerialized(t *testing.T) {
	def := chart.Definition{
		ID: "counter", Initial: "on",
		States: []chart.State{
			{ID: "on", Transitions: []chart.Transition{
				{Event: "inc", Actions: []string{"bump"}},
			}},
		},
	}

	// Run-to-completion means actions never overlap, so a plain int is
	// safe here; the race detector will catch it if that guarantee breaks.
	count := 0
	reg := registry.New().RegisterAction("bump", func(ctx context.Context, ev chart.Event) error {
		count++
		return nil
	})

	i, err := espalier.New(def, reg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx := context.Background()
	if err := i.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	const producers, perProducer = 8, 25
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for k := 0; k < perProducer; k++ {
				if err := i.Send(ctx, "inc"); err != nil {
					t.Errorf("Send failed: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	// All events have been drained once every Send has returned: a Send
	// either processed its own event or handed it to an active drainer
	// that empties the queue before releasing the run-to-completion lock.
	if err := i.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if count != producers*perProducer {
		t.Errorf("count = %d, want %d", count, producers*perProducer)
	}
}

func TestHierarchyInvariant(t *testing.T) {
	def := chart.Definition{
		ID: "deep", Initial: "a",
		States: []chart.State{
			{ID: "a", Initial: "a1", Children: []chart.State{
				{ID: "a1", Transitions: []chart.Transition{{Event: "dive", Target: "b2"}}},
			}},
			{ID: "b", Initial: "b1", Children: []chart.State{
				{ID: "b1"},
				{ID: "b2", Initial: "b21", Children: []chart.State{
					{ID: "b21", Transitions: []chart.Transition{{Event: "back", Target: "a"}}},
				}},
			}},
		},
	}
	i, err := espalier.New(def, registry.New())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx := context.Background()
	if err := i.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	assertClosedUnderAncestors := func() {
		t.Helper()
		active := map[string]bool{}
		for _, id := range i.CurrentStates() {
			active[id] = true
		}
		for id := range active {
			for n := i.Chart().Node(id).Parent(); n != nil; n = n.Parent() {
				if !active[n.ID] {
					t.Fatalf("state %s active but ancestor %s is not (configuration %v)",
						id, n.ID, i.CurrentStates())
				}
			}
		}
	}

	assertClosedUnderAncestors()
	for _, ev := range []string{"dive", "back", "dive"} {
		if err := i.Send(ctx, ev); err != nil {
			t.Fatalf("Send(%q) failed: %v", ev, err)
		}
		assertClosedUnderAncestors()
	}
	wantStates(t, i, "b", "b2", "b21")
}

func TestSubscribe_DeliversStableSnapshots(t *testing.T) {
	def := chart.Definition{
		ID: "c", Initial: "a",
		States: []chart.State{
			{ID: "a", Transitions: []chart.Transition{{Event: "go", Target: "b"}}},
			{ID: "b"},
		},
	}
	i, err := espalier.New(def, registry.New())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	snaps, cancel := i.Subscribe(4)
	defer cancel()

	ctx := context.Background()
	if err := i.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := i.Send(ctx, "go"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	first := <-snaps
	if !reflect.DeepEqual(first.Configuration, []string{"a"}) {
		t.Errorf("first snapshot = %v, want [a]", first.Configuration)
	}
	second := <-snaps
	if !reflect.DeepEqual(second.Configuration, []string{"b"}) {
		t.Errorf("second snapshot = %v, want [b]", second.Configuration)
	}

	if err := i.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	final, ok := <-snaps
	if !ok || !final.Stopped {
		t.Errorf("final snapshot = %+v (ok=%v), want a stopped marker before close", final, ok)
	}
	if _, ok := <-snaps; ok {
		t.Error("channel still open after Stop")
	}
}

func TestSubscribe_CancelStopsDelivery(t *testing.T) {
	def := chart.Definition{ID: "c", Initial: "a", States: []chart.State{{ID: "a"}}}
	i, err := espalier.New(def, registry.New())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	snaps, cancel := i.Subscribe(1)
	cancel()
	if _, ok := <-snaps; ok {
		t.Error("cancelled subscription channel should be closed")
	}

	ctx := context.Background()
	if err := i.Start(ctx); err != nil {
		t.Fatalf("Start after cancel failed: %v", err)
	}
}

func TestWithStabilizationLimit(t *testing.T) {
	def := chart.Definition{
		ID: "loop", Initial: "idle",
		States: []chart.State{
			{ID: "idle", Transitions: []chart.Transition{{Event: "go", Target: "ping"}}},
			{ID: "ping", Transitions: []chart.Transition{{Target: "pong"}}},
			{ID: "pong", Transitions: []chart.Transition{{Target: "ping"}}},
		},
	}
	i, err := espalier.New(def, registry.New(), espalier.WithStabilizationLimit(3))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx := context.Background()
	if err := i.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := i.Send(ctx, "go"); err == nil {
		t.Fatal("Send should fail once the microstep limit is exceeded")
	}
	wantStates(t, i, "idle")
}
