package chart

import (
	"context"
	"reflect"
	"testing"
)

func TestMergeHooks_RunsAllInOrder(t *testing.T) {
	var calls []string

	a := LifecycleHooks{
		OnStateEnter: func(ctx context.Context, e *StateEvent) {
			calls = append(calls, "a:"+e.StateID)
		},
		OnStabilized: func(ctx context.Context, e *StabilizedEvent) {
			calls = append(calls, "a:stabilized")
		},
	}
	b := LifecycleHooks{
		OnStateEnter: func(ctx context.Context, e *StateEvent) {
			calls = append(calls, "b:"+e.StateID)
		},
	}

	merged := MergeHooks(a, b)
	merged.OnStateEnter(context.Background(), &StateEvent{StateID: "s"})
	merged.OnStabilized(context.Background(), &StabilizedEvent{})

	want := []string{"a:s", "b:s", "a:stabilized"}
	if !reflect.DeepEqual(calls, want) {
		t.Errorf("calls = %v, want %v", calls, want)
	}
	if merged.OnStateExit != nil {
		t.Error("merging hooks without OnStateExit produced a non-nil callback")
	}
}

func TestMergeHooks_Empty(t *testing.T) {
	merged := MergeHooks()
	if merged.OnStateEnter != nil || merged.OnTransition != nil || merged.OnStabilized != nil {
		t.Error("merging nothing should leave every callback nil")
	}
}
