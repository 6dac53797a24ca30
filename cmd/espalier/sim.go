package main

import (
	"context"
	"fmt"

	"github.com/muesli/termenv"

	"github.com/aretw0/espalier/pkg/chart"
	"github.com/aretw0/espalier/pkg/registry"
)

// simRegistry binds every guard and action the chart references to
// simulation stubs: actions announce themselves on stdout, guards always
// pass. Good enough to walk a chart without the embedding component.
func simRegistry(c *chart.Chart) *registry.Registry {
	p := termenv.ColorProfile()
	reg := registry.New()

	for _, name := range c.ActionNames() {
		name := name
		reg.RegisterAction(name, func(ctx context.Context, ev chart.Event) error {
			fmt.Printf("  %s %s\n",
				termenv.String("action").Foreground(p.Color("#a78bfa")),
				name)
			return nil
		})
	}
	for _, name := range c.GuardNames() {
		name := name
		reg.RegisterGuard(name, func(ev chart.Event) bool {
			fmt.Printf("  %s %s -> true\n",
				termenv.String("guard").Foreground(p.Color("#818cf8")),
				name)
			return true
		})
	}
	return reg
}

func printConfiguration(states []string) {
	p := termenv.ColorProfile()
	fmt.Print("active:")
	for _, id := range states {
		fmt.Printf(" %s", termenv.String(id).Foreground(p.Color("#34d399")).Bold())
	}
	fmt.Println()
}
