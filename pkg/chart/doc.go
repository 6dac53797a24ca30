// Package chart holds the statechart domain model: the declarative
// Definition, its compiled immutable form, validation, runtime events
// and lifecycle hooks. The model is pure data; execution lives in the
// root espalier package.
package chart
