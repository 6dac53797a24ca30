// Package registry binds the symbolic guard and action names a chart
// references to caller-supplied Go functions. Bindings are checked
// eagerly against a compiled chart at interpreter start, so a missing
// binding surfaces immediately instead of mid-event.
package registry

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/mitchellh/mapstructure"

	"github.com/aretw0/espalier/pkg/chart"
)

// Action is a side-effecting operation invoked by the interpreter on
// state entry, state exit, or during a transition. A returned error
// aborts processing of the current event and propagates to Send.
type Action func(ctx context.Context, ev chart.Event) error

// Guard is a pure predicate consulted to decide whether a transition may
// fire. Guards run synchronously on the processing path and must not
// block or cause side effects.
type Guard func(ev chart.Event) bool

// Registry manages the guard and action bindings for a chart.
// Safe for concurrent use, though bindings are normally registered up front.
type Registry struct {
	mu      sync.RWMutex
	actions map[string]Action
	guards  map[string]Guard
}

// New creates a new empty registry.
func New() *Registry {
	return &Registry{
		actions: make(map[string]Action),
		guards:  make(map[string]Guard),
	}
}

// RegisterAction binds name to fn.
// If an action with the same name exists, it is overwritten.
func (r *Registry) RegisterAction(name string, fn Action) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions[name] = fn
	return r
}

// RegisterGuard binds name to fn.
// If a guard with the same name exists, it is overwritten.
func (r *Registry) RegisterGuard(name string, fn Guard) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.guards[name] = fn
	return r
}

// Action returns the binding for name, or nil.
func (r *Registry) Action(name string) Action {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.actions[name]
}

// Guard returns the binding for name, or nil.
func (r *Registry) Guard(name string) Guard {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.guards[name]
}

// Bind verifies that every guard and action the chart references has a
// binding. It reports all missing names at once, wrapped around
// chart.ErrUnresolvedReference.
func (r *Registry) Bind(c *chart.Chart) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var missing []string
	for _, name := range c.ActionNames() {
		if r.actions[name] == nil {
			missing = append(missing, "action "+name)
		}
	}
	for _, name := range c.GuardNames() {
		if r.guards[name] == nil {
			missing = append(missing, "guard "+name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: chart %q needs %s",
			chart.ErrUnresolvedReference, c.ID(), strings.Join(missing, ", "))
	}
	return nil
}

// DecodePayload decodes a map-shaped event payload (as produced by JSON
// or YAML transports) into dst, which must be a pointer to a struct.
func DecodePayload(ev chart.Event, dst any) error {
	if ev.Payload == nil {
		return fmt.Errorf("event %q carries no payload", ev.Name)
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  dst,
		TagName: "json",
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(ev.Payload); err != nil {
		return fmt.Errorf("decode payload of event %q: %w", ev.Name, err)
	}
	return nil
}
