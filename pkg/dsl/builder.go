package dsl

import (
	"github.com/aretw0/espalier/pkg/chart"
)

// Builder manages the chart construction.
type Builder struct {
	id      string
	initial string
	states  []*StateBuilder
	byID    map[string]*StateBuilder
}

// New creates a new chart builder.
func New(id string) *Builder {
	return &Builder{
		id:   id,
		byID: make(map[string]*StateBuilder),
	}
}

// Initial designates the top-level state entered on Start.
func (b *Builder) Initial(id string) *Builder {
	b.initial = id
	return b
}

// State creates a new top-level state.
// If the state already exists, it returns the existing builder.
func (b *Builder) State(id string) *StateBuilder {
	if sb, ok := b.byID[id]; ok {
		return sb
	}
	sb := &StateBuilder{state: chart.State{ID: id}}
	b.states = append(b.states, sb)
	b.byID[id] = sb
	return sb
}

// Definition assembles the declarative definition. Use Build to also
// validate and compile it.
func (b *Builder) Definition() chart.Definition {
	def := chart.Definition{
		ID:      b.id,
		Initial: b.initial,
	}
	for _, sb := range b.states {
		def.States = append(def.States, sb.build())
	}
	return def
}

// Build compiles the definition. Structural problems surface as a
// *chart.ValidationError, exactly as with a hand-written Definition.
func (b *Builder) Build() (*chart.Chart, error) {
	return b.Definition().Compile()
}
