package runtime

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aretw0/espalier/pkg/chart"
)

// findEnabled selects the transition to fire for the given cause, or nil
// when the event is unhandled. Selection order: innermost active state
// first (active leaves by depth, then document order), bubbling up
// through ancestors; within a state, declared order; first match wins.
// With eventless set, only transitions without a trigger are considered.
func (i *Interpreter) findEnabled(cause chart.Event, eventless bool) (*chart.Node, *chart.Transition) {
	scanned := make(map[*chart.Node]bool)

	for _, leaf := range i.activeLeaves() {
		for n := leaf; n != nil; n = n.Parent() {
			if scanned[n] {
				// Shared ancestor already considered via an earlier
				// (deeper or earlier-declared) leaf.
				break
			}
			scanned[n] = true

			for ti := range n.Transitions {
				t := &n.Transitions[ti]
				if eventless {
					if t.Event != "" {
						continue
					}
				} else if t.Event != cause.Name {
					continue
				}
				if t.Guard != "" && !i.reg.Guard(t.Guard)(cause) {
					continue
				}
				return n, t
			}
		}
	}
	return nil, nil
}

// fire executes one microstep: exits up to the transition's domain, runs
// its actions, and enters down to the target (entering default initial
// descendants, and every region of a parallel state).
func (i *Interpreter) fire(ctx context.Context, src *chart.Node, t *chart.Transition, cause chart.Event, eventless bool) error {
	if t.Target == "" {
		// Internal transition: actions only, configuration untouched.
		if err := i.runActions(ctx, t.Actions, cause); err != nil {
			return err
		}
		i.emitTransition(ctx, src.ID, "", cause, true, eventless)
		return nil
	}

	target := i.chart.Node(t.Target)

	// The transition domain is everything below the lowest common
	// ancestor. A self external transition exits and re-enters its
	// source; a transition to an ancestor exits and re-enters the
	// target, so in both cases the domain moves one level up.
	var lca *chart.Node
	switch {
	case target == src:
		lca = src.Parent()
	case i.chart.IsDescendant(src, target):
		lca = target.Parent()
	default:
		lca = i.chart.LCA(src, target)
	}

	// The domain must not be a parallel state: exiting below one would
	// leave its sibling regions empty. Widen to the nearest non-parallel
	// ancestor so the whole parallel state exits and every region
	// re-enters (the target's via the path, the others via defaults).
	for lca != nil && lca.Parallel {
		lca = lca.Parent()
	}

	for _, n := range i.exitSet(lca) {
		if err := i.exitState(ctx, n, cause); err != nil {
			return err
		}
	}

	if err := i.runActions(ctx, t.Actions, cause); err != nil {
		return err
	}
	i.emitTransition(ctx, src.ID, target.ID, cause, false, eventless)

	path := i.chart.Path(target)
	if lca != nil {
		for idx, p := range path {
			if p == lca {
				path = path[idx+1:]
				break
			}
		}
	}
	return i.enterAlong(ctx, path, cause)
}

// enterAlong enters the states on path outermost-first. When the path
// crosses a parallel state, siblings of the path's continuation enter
// their defaults in document order; past the end of the path, default
// initial descendants are entered down to the leaves.
func (i *Interpreter) enterAlong(ctx context.Context, path []*chart.Node, cause chart.Event) error {
	if len(path) == 0 {
		return nil
	}
	n := path[0]
	if err := i.enterState(ctx, n, cause); err != nil {
		return err
	}
	if n.Parallel {
		for _, child := range n.Children() {
			if len(path) > 1 && child == path[1] {
				if err := i.enterAlong(ctx, path[1:], cause); err != nil {
					return err
				}
			} else if err := i.enterDefaults(ctx, child, cause); err != nil {
				return err
			}
		}
		return nil
	}
	if len(path) > 1 {
		return i.enterAlong(ctx, path[1:], cause)
	}
	return i.enterChildren(ctx, n, cause)
}

// enterDefaults enters n and then its default initial descendants.
func (i *Interpreter) enterDefaults(ctx context.Context, n *chart.Node, cause chart.Event) error {
	if err := i.enterState(ctx, n, cause); err != nil {
		return err
	}
	return i.enterChildren(ctx, n, cause)
}

func (i *Interpreter) enterChildren(ctx context.Context, n *chart.Node, cause chart.Event) error {
	if n.IsLeaf() {
		return nil
	}
	if n.Parallel {
		for _, child := range n.Children() {
			if err := i.enterDefaults(ctx, child, cause); err != nil {
				return err
			}
		}
		return nil
	}
	return i.enterDefaults(ctx, i.chart.Node(n.Initial), cause)
}

func (i *Interpreter) enterState(ctx context.Context, n *chart.Node, cause chart.Event) error {
	i.stateMu.Lock()
	i.active[n.ID] = n
	i.stateMu.Unlock()

	i.log.Debug("state entered", "chart", i.chart.ID(), "state", n.ID)
	if i.hooks.OnStateEnter != nil {
		i.hooks.OnStateEnter(ctx, &chart.StateEvent{Timestamp: time.Now(), StateID: n.ID, Cause: cause})
	}
	return i.runActions(ctx, n.Entry, cause)
}

// exitState runs the state's exit actions, then removes it from the
// configuration. Exit actions run exactly once per activation; this is
// where embedding components cancel in-flight side effects.
func (i *Interpreter) exitState(ctx context.Context, n *chart.Node, cause chart.Event) error {
	err := i.runActions(ctx, n.Exit, cause)

	i.stateMu.Lock()
	delete(i.active, n.ID)
	i.stateMu.Unlock()

	i.log.Debug("state exited", "chart", i.chart.ID(), "state", n.ID)
	if i.hooks.OnStateExit != nil {
		i.hooks.OnStateExit(ctx, &chart.StateEvent{Timestamp: time.Now(), StateID: n.ID, Cause: cause})
	}
	return err
}

func (i *Interpreter) runActions(ctx context.Context, names []string, cause chart.Event) error {
	for _, name := range names {
		if err := i.reg.Action(name)(ctx, cause); err != nil {
			return fmt.Errorf("action %q: %w", name, err)
		}
	}
	return nil
}

func (i *Interpreter) emitTransition(ctx context.Context, source, target string, cause chart.Event, internal, eventless bool) {
	i.log.Debug("transition fired",
		"chart", i.chart.ID(), "source", source, "target", target, "event", cause.Name)
	if i.hooks.OnTransition != nil {
		i.hooks.OnTransition(ctx, &chart.TransitionEvent{
			Timestamp: time.Now(),
			Source:    source,
			Target:    target,
			Cause:     cause,
			Internal:  internal,
			Eventless: eventless,
		})
	}
}

// activeLeaves returns the active states without active descendants,
// deepest first and in document order within a depth.
func (i *Interpreter) activeLeaves() []*chart.Node {
	i.stateMu.RLock()
	var leaves []*chart.Node
	for _, n := range i.chart.Nodes() {
		if i.active[n.ID] != nil && n.IsLeaf() {
			leaves = append(leaves, n)
		}
	}
	i.stateMu.RUnlock()

	sort.SliceStable(leaves, func(a, b int) bool {
		return leaves[a].Depth() > leaves[b].Depth()
	})
	return leaves
}

// exitSet returns the active strict descendants of lca (every active
// state when lca is nil), innermost-first.
func (i *Interpreter) exitSet(lca *chart.Node) []*chart.Node {
	i.stateMu.RLock()
	var out []*chart.Node
	for _, n := range i.chart.Nodes() {
		if i.active[n.ID] == nil {
			continue
		}
		if lca == nil || i.chart.IsDescendant(n, lca) {
			out = append(out, n)
		}
	}
	i.stateMu.RUnlock()

	sort.SliceStable(out, func(a, b int) bool {
		if out[a].Depth() != out[b].Depth() {
			return out[a].Depth() > out[b].Depth()
		}
		return out[a].DocIndex() > out[b].DocIndex()
	})
	return out
}

func (i *Interpreter) copyActive() map[string]*chart.Node {
	i.stateMu.RLock()
	defer i.stateMu.RUnlock()
	cp := make(map[string]*chart.Node, len(i.active))
	for id, n := range i.active {
		cp[id] = n
	}
	return cp
}

func (i *Interpreter) restore(active map[string]*chart.Node) {
	i.stateMu.Lock()
	i.active = active
	i.stateMu.Unlock()
}
