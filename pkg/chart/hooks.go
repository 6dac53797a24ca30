package chart

import (
	"context"
	"time"
)

// StateEvent reports entry into or exit from a single state.
type StateEvent struct {
	Timestamp time.Time `json:"timestamp"`
	StateID   string    `json:"state_id"`
	// Cause is the external event being processed, zero for Start/Stop.
	Cause Event `json:"cause"`
}

// TransitionEvent reports a fired transition.
type TransitionEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
	Target    string    `json:"target,omitempty"`
	Cause     Event     `json:"cause"`
	// Internal is true when the transition ran actions without leaving
	// its source state.
	Internal bool `json:"internal,omitempty"`
	// Eventless is true for transitions taken during stabilization.
	Eventless bool `json:"eventless,omitempty"`
}

// DiscardEvent reports an event no active state had a transition for.
// Discards are deliberate no-ops, reported for observability only.
type DiscardEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Event     Event     `json:"event"`
}

// StabilizedEvent reports that an event's cascade has fully settled.
// It is the only hook guaranteed to observe a consistent configuration.
type StabilizedEvent struct {
	Timestamp     time.Time `json:"timestamp"`
	Configuration []string  `json:"configuration"`
	// Microsteps counts the transitions taken for the event, including
	// eventless follow-ups. Zero means the event was discarded.
	Microsteps int `json:"microsteps"`
}

// LifecycleHooks are optional callbacks for engine observability. Enter,
// exit and transition hooks fire mid-cascade and must treat the
// configuration as in flux; OnStabilized fires once per processed event,
// after the configuration has settled. Hooks run synchronously on the
// interpreter's processing path and must not call back into Send.
type LifecycleHooks struct {
	OnStateEnter     func(context.Context, *StateEvent)
	OnStateExit      func(context.Context, *StateEvent)
	OnTransition     func(context.Context, *TransitionEvent)
	OnEventDiscarded func(context.Context, *DiscardEvent)
	OnStabilized     func(context.Context, *StabilizedEvent)
}

// MergeHooks combines hook sets; for each callback, every non-nil
// implementation runs in argument order. Useful for stacking metrics on
// top of application hooks.
func MergeHooks(hooks ...LifecycleHooks) LifecycleHooks {
	var merged LifecycleHooks
	for _, h := range hooks {
		h := h
		if h.OnStateEnter != nil {
			prev := merged.OnStateEnter
			merged.OnStateEnter = func(ctx context.Context, e *StateEvent) {
				if prev != nil {
					prev(ctx, e)
				}
				h.OnStateEnter(ctx, e)
			}
		}
		if h.OnStateExit != nil {
			prev := merged.OnStateExit
			merged.OnStateExit = func(ctx context.Context, e *StateEvent) {
				if prev != nil {
					prev(ctx, e)
				}
				h.OnStateExit(ctx, e)
			}
		}
		if h.OnTransition != nil {
			prev := merged.OnTransition
			merged.OnTransition = func(ctx context.Context, e *TransitionEvent) {
				if prev != nil {
					prev(ctx, e)
				}
				h.OnTransition(ctx, e)
			}
		}
		if h.OnEventDiscarded != nil {
			prev := merged.OnEventDiscarded
			merged.OnEventDiscarded = func(ctx context.Context, e *DiscardEvent) {
				if prev != nil {
					prev(ctx, e)
				}
				h.OnEventDiscarded(ctx, e)
			}
		}
		if h.OnStabilized != nil {
			prev := merged.OnStabilized
			merged.OnStabilized = func(ctx context.Context, e *StabilizedEvent) {
				if prev != nil {
					prev(ctx, e)
				}
				h.OnStabilized(ctx, e)
			}
		}
	}
	return merged
}
