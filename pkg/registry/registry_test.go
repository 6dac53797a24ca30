package registry

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aretw0/espalier/pkg/chart"
)

func TestRegisterAndLookup(t *testing.T) {
	reg := New().
		RegisterAction("greet", func(ctx context.Context, ev chart.Event) error { return nil }).
		RegisterGuard("always", func(ev chart.Event) bool { return true })

	if reg.Action("greet") == nil {
		t.Error("registered action not found")
	}
	if reg.Guard("always") == nil {
		t.Error("registered guard not found")
	}
	if reg.Action("missing") != nil || reg.Guard("missing") != nil {
		t.Error("lookup of unregistered name should return nil")
	}
}

func TestRegister_Overwrites(t *testing.T) {
	var hit string
	reg := New()
	reg.RegisterAction("a", func(ctx context.Context, ev chart.Event) error {
		hit = "first"
		return nil
	})
	reg.RegisterAction("a", func(ctx context.Context, ev chart.Event) error {
		hit = "second"
		return nil
	})

	if err := reg.Action("a")(context.Background(), chart.Event{}); err != nil {
		t.Fatal(err)
	}
	if hit != "second" {
		t.Errorf("later registration did not win, ran %q", hit)
	}
}

func bindTestChart(t *testing.T) *chart.Chart {
	t.Helper()
	def := chart.Definition{
		ID: "c", Initial: "a",
		States: []chart.State{
			{ID: "a",
				Entry: []string{"onEnter"},
				Transitions: []chart.Transition{
					{Event: "go", Target: "b", Guard: "ready", Actions: []string{"record"}},
				},
			},
			{ID: "b"},
		},
	}
	c, err := def.Compile()
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	return c
}

func TestBind_ReportsEveryMissingName(t *testing.T) {
	c := bindTestChart(t)

	err := New().Bind(c)
	if !errors.Is(err, chart.ErrUnresolvedReference) {
		t.Fatalf("Bind error = %v, want ErrUnresolvedReference", err)
	}
	for _, name := range []string{"onEnter", "record", "ready"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("Bind error %q does not name missing binding %q", err.Error(), name)
		}
	}
}

func TestBind_Complete(t *testing.T) {
	c := bindTestChart(t)

	noop := func(ctx context.Context, ev chart.Event) error { return nil }
	reg := New().
		RegisterAction("onEnter", noop).
		RegisterAction("record", noop).
		RegisterGuard("ready", func(ev chart.Event) bool { return true })

	if err := reg.Bind(c); err != nil {
		t.Fatalf("Bind failed: %v", err)
	}
}

func TestDecodePayload(t *testing.T) {
	type query struct {
		Term  string `json:"term"`
		Limit int    `json:"limit"`
	}

	ev := chart.Event{Name: "search", Payload: map[string]any{
		"term":  "espalier",
		"limit": 10,
	}}

	var q query
	if err := DecodePayload(ev, &q); err != nil {
		t.Fatalf("DecodePayload failed: %v", err)
	}
	if q.Term != "espalier" || q.Limit != 10 {
		t.Errorf("decoded %+v, want term=espalier limit=10", q)
	}
}

func TestDecodePayload_NoPayload(t *testing.T) {
	var dst struct{}
	if err := DecodePayload(chart.Event{Name: "bare"}, &dst); err == nil {
		t.Error("expected an error for an event without payload")
	}
}
