// Package runtime is the statechart interpreter core. It owns the active
// configuration and processes events one at a time, run to completion:
// no two events are ever evaluated concurrently against the same
// configuration, and a cascade of eventless transitions settles before
// the next queued event is looked at.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/aretw0/espalier/pkg/chart"
	"github.com/aretw0/espalier/pkg/registry"
)

type status int

const (
	statusIdle status = iota
	statusRunning
	statusStopped
)

// Config carries the resolved interpreter settings. The facade builds it
// from functional options.
type Config struct {
	ID     string
	Logger *slog.Logger
	Hooks  chart.LifecycleHooks
	Tracer trace.Tracer
	// Limit bounds the number of microsteps (the triggering transition
	// plus eventless follow-ups) a single event may cause.
	Limit int
}

// Interpreter executes a compiled chart against a registry.
type Interpreter struct {
	chart  *chart.Chart
	reg    *registry.Registry
	id     string
	log    *slog.Logger
	hooks  chart.LifecycleHooks
	tracer trace.Tracer
	limit  int

	// mu guards queue, draining and status. procMu is the
	// run-to-completion lock: held for the whole of Start, Stop and the
	// processing of each event.
	mu       sync.Mutex
	queue    []chart.Event
	draining bool
	status   status
	procMu   sync.Mutex

	stateMu sync.RWMutex
	active  map[string]*chart.Node

	subMu   sync.Mutex
	subs    map[int]chan chart.Snapshot
	nextSub int
}

// New creates an interpreter. The chart must already be compiled; the
// registry is bound eagerly on Start.
func New(c *chart.Chart, reg *registry.Registry, cfg Config) *Interpreter {
	return &Interpreter{
		chart:  c,
		reg:    reg,
		id:     cfg.ID,
		log:    cfg.Logger,
		hooks:  cfg.Hooks,
		tracer: cfg.Tracer,
		limit:  cfg.Limit,
		active: make(map[string]*chart.Node),
		subs:   make(map[int]chan chart.Snapshot),
	}
}

// ID returns the interpreter's instance identifier.
func (i *Interpreter) ID() string { return i.id }

// Chart returns the compiled chart this interpreter runs.
func (i *Interpreter) Chart() *chart.Chart { return i.chart }

// Start binds the registry, enters the initial configuration (entry
// actions outermost-first) and stabilizes any eventless transitions that
// are immediately enabled. It may be called once; a failed Start reverts
// the interpreter to idle so it can be retried.
func (i *Interpreter) Start(ctx context.Context) error {
	i.mu.Lock()
	switch i.status {
	case statusRunning:
		i.mu.Unlock()
		return chart.ErrAlreadyStarted
	case statusStopped:
		i.mu.Unlock()
		return chart.ErrStopped
	}
	i.status = statusRunning
	i.mu.Unlock()

	if err := i.reg.Bind(i.chart); err != nil {
		// Binding failed: the interpreter never ran, allow a retry
		// after the caller registers the missing names.
		i.mu.Lock()
		i.status = statusIdle
		i.mu.Unlock()
		return err
	}

	i.procMu.Lock()
	defer i.procMu.Unlock()

	ctx, span := i.tracer.Start(ctx, "espalier.start",
		trace.WithAttributes(attribute.String("chart.id", i.chart.ID())))
	defer span.End()

	err := i.enterDefaults(ctx, i.chart.Initial(), chart.Event{})
	var steps int
	if err == nil {
		steps, err = i.stabilize(ctx, chart.Event{}, 0)
	}
	if err != nil {
		// Revert to idle so the caller can fix the failing action and
		// retry; entry actions already run are not undone.
		i.restore(make(map[string]*chart.Node))
		i.mu.Lock()
		i.status = statusIdle
		i.mu.Unlock()
		return i.fail(span, err)
	}

	i.log.Debug("interpreter started",
		"chart", i.chart.ID(), "id", i.id, "configuration", i.CurrentStates())
	i.notifyStabilized(ctx, steps)
	return nil
}

// Send enqueues the event. The calling goroutine drains the FIFO queue
// unless another goroutine is already doing so, which keeps processing
// strictly serialized while Send itself never blocks behind a running
// cascade's queue slot. Errors from actions raised while this call is
// draining propagate to this caller; events handed off to an already
// draining goroutine surface their errors there (and in the log).
func (i *Interpreter) Send(ctx context.Context, ev chart.Event) error {
	if ev.Name == "" {
		return fmt.Errorf("event name must not be empty")
	}

	i.mu.Lock()
	switch i.status {
	case statusIdle:
		i.mu.Unlock()
		return chart.ErrNotStarted
	case statusStopped:
		i.mu.Unlock()
		return chart.ErrStopped
	}
	i.queue = append(i.queue, ev)
	if i.draining {
		i.mu.Unlock()
		return nil
	}
	i.draining = true
	i.mu.Unlock()

	return i.drain(ctx)
}

func (i *Interpreter) drain(ctx context.Context) error {
	i.procMu.Lock()
	defer i.procMu.Unlock()

	var firstErr error
	for {
		i.mu.Lock()
		if i.status != statusRunning || len(i.queue) == 0 {
			i.draining = false
			i.mu.Unlock()
			return firstErr
		}
		ev := i.queue[0]
		i.queue = i.queue[1:]
		i.mu.Unlock()

		if err := i.process(ctx, ev); err != nil {
			i.log.Error("event processing failed", "chart", i.chart.ID(), "event", ev.Name, "err", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
}

// process runs one event to completion: select a transition, fire it,
// then settle eventless transitions. Unmatched events are discarded
// without error.
func (i *Interpreter) process(ctx context.Context, ev chart.Event) error {
	ctx, span := i.tracer.Start(ctx, "espalier.event", trace.WithAttributes(
		attribute.String("chart.id", i.chart.ID()),
		attribute.String("event.name", ev.Name),
	))
	defer span.End()

	src, tr := i.findEnabled(ev, false)
	if src == nil {
		span.AddEvent("discarded")
		i.log.Debug("event discarded", "chart", i.chart.ID(), "event", ev.Name)
		if i.hooks.OnEventDiscarded != nil {
			i.hooks.OnEventDiscarded(ctx, &chart.DiscardEvent{Timestamp: time.Now(), Event: ev})
		}
		i.notifyStabilized(ctx, 0)
		return nil
	}

	// Keep the stable configuration so a runaway eventless cascade can
	// be rolled back (actions already run are not undone).
	before := i.copyActive()

	if err := i.fire(ctx, src, tr, ev, false); err != nil {
		return i.fail(span, err)
	}
	steps, err := i.stabilize(ctx, ev, 1)
	if err != nil {
		if errors.Is(err, chart.ErrUnstable) {
			i.restore(before)
		}
		return i.fail(span, err)
	}

	span.SetAttributes(attribute.Int("event.microsteps", 1+steps))
	i.notifyStabilized(ctx, 1+steps)
	return nil
}

// stabilize fires enabled eventless transitions until none remain.
// taken counts microsteps already spent on the current event.
func (i *Interpreter) stabilize(ctx context.Context, cause chart.Event, taken int) (int, error) {
	added := 0
	for {
		src, tr := i.findEnabled(cause, true)
		if src == nil {
			return added, nil
		}
		if taken+added >= i.limit {
			return added, fmt.Errorf("%w: chart %q exceeded %d microsteps processing %q",
				chart.ErrUnstable, i.chart.ID(), i.limit, cause.Name)
		}
		if err := i.fire(ctx, src, tr, cause, true); err != nil {
			return added, err
		}
		added++
	}
}

// CurrentStates returns the active configuration as a sorted set of
// state identifiers: every active leaf plus its ancestors. Safe to call
// concurrently with Send.
func (i *Interpreter) CurrentStates() []string {
	i.stateMu.RLock()
	defer i.stateMu.RUnlock()
	ids := make([]string, 0, len(i.active))
	for id := range i.active {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Snapshot returns the configuration plus lifecycle status.
func (i *Interpreter) Snapshot() chart.Snapshot {
	i.mu.Lock()
	stopped := i.status == statusStopped
	i.mu.Unlock()
	return chart.Snapshot{Configuration: i.CurrentStates(), Stopped: stopped}
}

// Stop exits every active state innermost-first and marks the
// interpreter terminal. Further Send or Stop calls fail with
// chart.ErrStopped. Queued but unprocessed events are dropped.
func (i *Interpreter) Stop(ctx context.Context) error {
	i.mu.Lock()
	switch i.status {
	case statusIdle:
		i.mu.Unlock()
		return chart.ErrNotStarted
	case statusStopped:
		i.mu.Unlock()
		return chart.ErrStopped
	}
	i.status = statusStopped
	i.mu.Unlock()

	// Wait for an in-flight cascade to settle before tearing down.
	i.procMu.Lock()
	defer i.procMu.Unlock()

	ctx, span := i.tracer.Start(ctx, "espalier.stop",
		trace.WithAttributes(attribute.String("chart.id", i.chart.ID())))
	defer span.End()

	var firstErr error
	for _, n := range i.exitSet(nil) {
		if err := i.exitState(ctx, n, chart.Event{}); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	i.log.Debug("interpreter stopped", "chart", i.chart.ID(), "id", i.id)
	i.closeSubs()
	if firstErr != nil {
		return i.fail(span, firstErr)
	}
	return nil
}

// Subscribe registers a change-notification channel. A snapshot is
// delivered after each event's cascade stabilizes, never mid-cascade; if
// the channel's buffer is full the notification is dropped rather than
// blocking the interpreter. The returned func cancels the subscription.
func (i *Interpreter) Subscribe(buf int) (<-chan chart.Snapshot, func()) {
	if buf < 1 {
		buf = 1
	}
	ch := make(chan chart.Snapshot, buf)

	i.subMu.Lock()
	id := i.nextSub
	i.nextSub++
	i.subs[id] = ch
	i.subMu.Unlock()

	cancel := func() {
		i.subMu.Lock()
		defer i.subMu.Unlock()
		if c, ok := i.subs[id]; ok {
			delete(i.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

func (i *Interpreter) notifyStabilized(ctx context.Context, microsteps int) {
	cfg := i.CurrentStates()
	if i.hooks.OnStabilized != nil {
		i.hooks.OnStabilized(ctx, &chart.StabilizedEvent{
			Timestamp:     time.Now(),
			Configuration: cfg,
			Microsteps:    microsteps,
		})
	}

	i.subMu.Lock()
	defer i.subMu.Unlock()
	for _, ch := range i.subs {
		select {
		case ch <- chart.Snapshot{Configuration: cfg}:
		default:
		}
	}
}

func (i *Interpreter) closeSubs() {
	i.subMu.Lock()
	defer i.subMu.Unlock()
	for id, ch := range i.subs {
		select {
		case ch <- chart.Snapshot{Stopped: true}:
		default:
		}
		close(ch)
		delete(i.subs, id)
	}
}

func (i *Interpreter) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
