package chart

import (
	"errors"
	"fmt"
	"strings"
)

// Lifecycle and runtime sentinels. Callers match them with errors.Is.
var (
	// ErrAlreadyStarted is returned by Start when called twice.
	ErrAlreadyStarted = errors.New("interpreter already started")

	// ErrNotStarted is returned by Send and Stop before Start.
	ErrNotStarted = errors.New("interpreter not started")

	// ErrStopped is returned by Send, Stop and Start once the
	// interpreter has been disposed.
	ErrStopped = errors.New("interpreter stopped")

	// ErrUnstable is returned when a cascade of eventless transitions
	// exceeds the stabilization limit. The configuration is rolled back
	// to the last stable one before the offending event.
	ErrUnstable = errors.New("eventless transitions did not stabilize")

	// ErrUnresolvedReference is returned at Start when the chart names
	// a guard or action the registry has no binding for.
	ErrUnresolvedReference = errors.New("unresolved reference")

	// ErrSessionNotFound is returned by snapshot stores when a session
	// ID cannot be found.
	ErrSessionNotFound = errors.New("session not found")
)

// Issue is a single problem found while compiling a Definition.
type Issue struct {
	Code    string // machine-readable, e.g. "INVALID_TARGET"
	Message string
	StateID string // offending state, empty for chart-level issues
}

func (i Issue) String() string {
	if i.StateID != "" {
		return fmt.Sprintf("[%s] state %q: %s", i.Code, i.StateID, i.Message)
	}
	return fmt.Sprintf("[%s] %s", i.Code, i.Message)
}

// ValidationError aggregates every issue found during Compile, so a
// broken definition surfaces all of its problems at once.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	switch len(e.Issues) {
	case 0:
		return "invalid chart definition"
	case 1:
		return "invalid chart definition: " + e.Issues[0].String()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "invalid chart definition: %d issues:\n", len(e.Issues))
	for i, issue := range e.Issues {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, issue.String())
	}
	return b.String()
}

// Add records an issue.
func (e *ValidationError) Add(code, message, stateID string) {
	e.Issues = append(e.Issues, Issue{Code: code, Message: message, StateID: stateID})
}

// HasIssues reports whether any issue was recorded.
func (e *ValidationError) HasIssues() bool { return len(e.Issues) > 0 }

// AsValidationError unwraps err into a *ValidationError, or nil.
func AsValidationError(err error) *ValidationError {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr
	}
	return nil
}
