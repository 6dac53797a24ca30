/*
Package espalier is a hierarchical statechart execution engine. It takes
a declarative state-machine definition and a stream of named events, and
drives caller-supplied actions and guards in response while reporting
the set of currently active states.

The engine separates three concerns: the immutable chart definition
(pkg/chart), the bindings from symbolic guard/action names to Go
functions (pkg/registry), and the interpreter that processes events run
to completion. Producers may send events from arbitrary goroutines; the
interpreter serializes them so guard and action code never observes
reentrant processing.

# Usage

	def := chart.Definition{
		ID:      "player",
		Initial: "stopped",
		States: []chart.State{
			{ID: "stopped", Transitions: []chart.Transition{{Event: "play", Target: "playing"}}},
			{ID: "playing",
				Entry:       []string{"startPlayback"},
				Exit:        []string{"stopPlayback"},
				Transitions: []chart.Transition{{Event: "stop", Target: "stopped"}},
			},
		},
	}

	reg := registry.New().
		RegisterAction("startPlayback", func(ctx context.Context, ev chart.Event) error { ... }).
		RegisterAction("stopPlayback", func(ctx context.Context, ev chart.Event) error { ... })

	interp, err := espalier.New(def, reg)
	if err != nil {
		log.Fatal(err)
	}
	if err := interp.Start(ctx); err != nil {
		log.Fatal(err)
	}
	_ = interp.Send(ctx, "play")
	fmt.Println(interp.CurrentStates()) // [playing]

States nest: a compound state declares children and an initial child;
a parallel state activates every child region at once. Transitions may
carry guards (pure predicates) and actions, may be eventless (taken
whenever enabled, until the configuration stabilizes), internal (no
target: actions without exit/entry), or external self-transitions.

Embedders choose between coupled usage (polling CurrentStates) and
decoupled usage (reacting only to actions, lifecycle hooks, or Subscribe
notifications); both are configuration decisions, not structural ones.
*/
package espalier
