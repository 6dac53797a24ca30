// Package metrics publishes interpreter activity as Prometheus metrics.
// A Recorder plugs into the engine through lifecycle hooks:
//
//	rec, _ := metrics.NewRecorder(prometheus.DefaultRegisterer)
//	interp, _ := espalier.New(def, reg, espalier.WithHooks(rec.Hooks()))
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/espalier/pkg/chart"
)

// Recorder holds the engine's Prometheus collectors.
type Recorder struct {
	transitions *prometheus.CounterVec
	discarded   *prometheus.CounterVec
	stateEnters *prometheus.CounterVec
	microsteps  prometheus.Histogram
	activeSize  prometheus.Gauge
}

// NewRecorder creates and registers the collectors. Pass
// prometheus.DefaultRegisterer or a private registry in tests.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "espalier_transitions_total",
				Help: "Total number of fired transitions",
			},
			[]string{"source", "target"},
		),
		discarded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "espalier_events_discarded_total",
				Help: "Total number of events no active state handled",
			},
			[]string{"event"},
		),
		stateEnters: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "espalier_state_entries_total",
				Help: "Total number of state entries",
			},
			[]string{"state"},
		),
		microsteps: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "espalier_event_microsteps",
				Help:    "Microsteps taken per processed event",
				Buckets: prometheus.LinearBuckets(0, 1, 10),
			},
		),
		activeSize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "espalier_active_states",
				Help: "Size of the current active configuration",
			},
		),
	}

	for _, c := range []prometheus.Collector{
		r.transitions, r.discarded, r.stateEnters, r.microsteps, r.activeSize,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Hooks returns the lifecycle hooks feeding the collectors. Combine with
// application hooks via chart.MergeHooks.
func (r *Recorder) Hooks() chart.LifecycleHooks {
	return chart.LifecycleHooks{
		OnStateEnter: func(_ context.Context, e *chart.StateEvent) {
			r.stateEnters.WithLabelValues(e.StateID).Inc()
		},
		OnTransition: func(_ context.Context, e *chart.TransitionEvent) {
			r.transitions.WithLabelValues(e.Source, e.Target).Inc()
		},
		OnEventDiscarded: func(_ context.Context, e *chart.DiscardEvent) {
			r.discarded.WithLabelValues(e.Event.Name).Inc()
		},
		OnStabilized: func(_ context.Context, e *chart.StabilizedEvent) {
			r.microsteps.Observe(float64(e.Microsteps))
			r.activeSize.Set(float64(len(e.Configuration)))
		},
	}
}
