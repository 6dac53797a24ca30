package dsl

import "github.com/aretw0/espalier/pkg/chart"

// StateBuilder provides a fluent API for configuring a state.
type StateBuilder struct {
	state    chart.State
	children []*StateBuilder
	byID     map[string]*StateBuilder
}

// Initial designates the default child entered with this compound state.
func (s *StateBuilder) Initial(id string) *StateBuilder {
	s.state.Initial = id
	return s
}

// Parallel marks the state as an orthogonal region container: every
// child is active at once and no initial child is declared.
func (s *StateBuilder) Parallel() *StateBuilder {
	s.state.Parallel = true
	return s
}

// Entry appends named entry actions, run in declared order.
func (s *StateBuilder) Entry(actions ...string) *StateBuilder {
	s.state.Entry = append(s.state.Entry, actions...)
	return s
}

// Exit appends named exit actions, run in declared order.
func (s *StateBuilder) Exit(actions ...string) *StateBuilder {
	s.state.Exit = append(s.state.Exit, actions...)
	return s
}

// On adds an unguarded transition for the event.
func (s *StateBuilder) On(event, target string, actions ...string) *StateBuilder {
	s.state.Transitions = append(s.state.Transitions, chart.Transition{
		Event:   event,
		Target:  target,
		Actions: actions,
	})
	return s
}

// When adds a guarded transition for the event.
func (s *StateBuilder) When(event, guard, target string, actions ...string) *StateBuilder {
	s.state.Transitions = append(s.state.Transitions, chart.Transition{
		Event:   event,
		Guard:   guard,
		Target:  target,
		Actions: actions,
	})
	return s
}

// Always adds a guarded eventless transition, evaluated whenever the
// configuration changes.
func (s *StateBuilder) Always(guard, target string, actions ...string) *StateBuilder {
	s.state.Transitions = append(s.state.Transitions, chart.Transition{
		Guard:   guard,
		Target:  target,
		Actions: actions,
	})
	return s
}

// Internal adds an internal transition: the actions run without exiting
// or entering any state.
func (s *StateBuilder) Internal(event string, actions ...string) *StateBuilder {
	s.state.Transitions = append(s.state.Transitions, chart.Transition{
		Event:   event,
		Actions: actions,
	})
	return s
}

// State creates a child state, turning this state into a compound one.
// If the child already exists, it returns the existing builder.
func (s *StateBuilder) State(id string) *StateBuilder {
	if s.byID == nil {
		s.byID = make(map[string]*StateBuilder)
	}
	if sb, ok := s.byID[id]; ok {
		return sb
	}
	sb := &StateBuilder{state: chart.State{ID: id}}
	s.children = append(s.children, sb)
	s.byID[id] = sb
	return sb
}

func (s *StateBuilder) build() chart.State {
	out := s.state
	for _, child := range s.children {
		out.Children = append(out.Children, child.build())
	}
	return out
}
