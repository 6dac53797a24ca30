/*
Package dsl provides a fluent builder for constructing chart definitions
programmatically.

It allows developers to define statecharts using a type-safe builder
instead of relying on external YAML or JSON files. This is particularly
useful for dynamic chart generation, unit testing, and leveraging IDE
autocompletion/type-checking.

Example usage:

	package main

	import (
		"github.com/aretw0/espalier/pkg/dsl"
	)

	func main() {
		b := dsl.New("traffic-light").Initial("red")

		b.State("red").
			Entry("lightRed").
			On("timer", "green")

		b.State("green").
			Entry("lightGreen").
			On("timer", "yellow")

		b.State("yellow").
			Entry("lightYellow").
			On("timer", "red")

		// The compiled chart can be passed to espalier.NewFromChart.
		compiled, err := b.Build()
		// ...
	}
*/
package dsl
