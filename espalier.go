package espalier

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/aretw0/espalier/internal/logging"
	"github.com/aretw0/espalier/internal/runtime"
	"github.com/aretw0/espalier/pkg/chart"
	"github.com/aretw0/espalier/pkg/registry"
	"github.com/aretw0/espalier/pkg/telemetry"
)

// DefaultStabilizationLimit bounds the microsteps a single event may
// cause before the cascade is declared cyclic.
const DefaultStabilizationLimit = 100

// Interpreter is the high-level entry point for the Espalier library.
// It wraps the internal runtime and drives a compiled statechart: one
// event at a time, run to completion.
type Interpreter struct {
	core *runtime.Interpreter
}

// Option defines a functional option for configuring the Interpreter.
type Option func(*settings)

type settings struct {
	id     string
	logger *slog.Logger
	hooks  []chart.LifecycleHooks
	tracer trace.TracerProvider
	limit  int
}

// WithID sets the interpreter's instance identifier (default: a UUID).
func WithID(id string) Option {
	return func(s *settings) {
		s.id = id
	}
}

// WithLogger sets a custom structured logger for the interpreter.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithHooks registers observability hooks. May be given multiple times;
// hook sets are merged in registration order.
func WithHooks(hooks chart.LifecycleHooks) Option {
	return func(s *settings) {
		s.hooks = append(s.hooks, hooks)
	}
}

// WithTracerProvider routes interpreter spans to the given provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *settings) {
		s.tracer = tp
	}
}

// WithStabilizationLimit overrides DefaultStabilizationLimit.
func WithStabilizationLimit(limit int) Option {
	return func(s *settings) {
		if limit > 0 {
			s.limit = limit
		}
	}
}

// New compiles the definition and builds an interpreter bound to the
// given registry. Compilation errors surface here as
// *chart.ValidationError; missing registry bindings surface later, at
// Start.
func New(def chart.Definition, reg *registry.Registry, opts ...Option) (*Interpreter, error) {
	compiled, err := def.Compile()
	if err != nil {
		return nil, err
	}
	return NewFromChart(compiled, reg, opts...), nil
}

// NewFromChart builds an interpreter for an already compiled chart,
// sharing it across interpreter instances (a Chart is immutable).
func NewFromChart(compiled *chart.Chart, reg *registry.Registry, opts ...Option) *Interpreter {
	s := &settings{
		limit: DefaultStabilizationLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.id == "" {
		s.id = uuid.NewString()
	}
	if s.logger == nil {
		s.logger = logging.NewNop()
	}
	if s.tracer == nil {
		s.tracer = telemetry.NewProvider()
	}

	core := runtime.New(compiled, reg, runtime.Config{
		ID:     s.id,
		Logger: s.logger.With("interpreter", s.id),
		Hooks:  chart.MergeHooks(s.hooks...),
		Tracer: s.tracer.Tracer("github.com/aretw0/espalier"),
		Limit:  s.limit,
	})
	return &Interpreter{core: core}
}

// ID returns the interpreter's instance identifier.
func (i *Interpreter) ID() string { return i.core.ID() }

// Chart returns the compiled chart this interpreter runs.
func (i *Interpreter) Chart() *chart.Chart { return i.core.Chart() }

// Start enters the initial configuration, running entry actions
// outermost-first, and settles any immediately enabled eventless
// transitions. Registry bindings are checked eagerly here. Calling Start
// twice fails with chart.ErrAlreadyStarted.
func (i *Interpreter) Start(ctx context.Context) error {
	return i.core.Start(ctx)
}

// Send delivers a named event with an optional payload. Events are
// processed strictly one at a time in arrival order; Send is safe to
// call from concurrent producers. See chart.ErrStopped,
// chart.ErrNotStarted and chart.ErrUnstable for the failure modes;
// events no active state handles are silently discarded.
func (i *Interpreter) Send(ctx context.Context, name string, payload ...any) error {
	ev := chart.Event{Name: name}
	if len(payload) > 0 {
		ev.Payload = payload[0]
	}
	return i.core.Send(ctx, ev)
}

// SendEvent is Send for a pre-built event value.
func (i *Interpreter) SendEvent(ctx context.Context, ev chart.Event) error {
	return i.core.Send(ctx, ev)
}

// CurrentStates returns the active configuration as a sorted set of
// state identifiers. Safe to call at any time, concurrently with Send.
func (i *Interpreter) CurrentStates() []string {
	return i.core.CurrentStates()
}

// Snapshot returns the active configuration plus lifecycle status,
// suitable for persistence through a ports.SnapshotStore.
func (i *Interpreter) Snapshot() chart.Snapshot {
	return i.core.Snapshot()
}

// Subscribe returns a channel receiving a snapshot after each event's
// cascade has fully stabilized (never mid-cascade), and a cancel func.
// Slow subscribers miss notifications instead of blocking processing.
func (i *Interpreter) Subscribe(buf int) (<-chan chart.Snapshot, func()) {
	return i.core.Subscribe(buf)
}

// Stop runs exit actions for every active state innermost-first and
// marks the interpreter terminal.
func (i *Interpreter) Stop(ctx context.Context) error {
	return i.core.Stop(ctx)
}
