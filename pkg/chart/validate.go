package chart

import "fmt"

// Issue codes reported by Compile.
const (
	CodeEmptyID             = "EMPTY_ID"
	CodeDuplicateState      = "DUPLICATE_STATE"
	CodeNoStates            = "NO_STATES"
	CodeInitialMissing      = "INITIAL_MISSING"
	CodeInitialNotFound     = "INITIAL_NOT_FOUND"
	CodeInitialNotChild     = "INITIAL_NOT_CHILD"
	CodeParallelInitial     = "PARALLEL_INITIAL"
	CodeInvalidTarget       = "INVALID_TARGET"
	CodeAmbiguousTransition = "AMBIGUOUS_TRANSITION"
	CodeUnstableTransition  = "UNSTABLE_TRANSITION"
)

// validate checks structural invariants on the indexed tree. Duplicate
// and empty identifiers are caught earlier, during indexing.
func (c *Chart) validate(initial string, verr *ValidationError) {
	if len(c.order) == 0 {
		verr.Add(CodeNoStates, "chart declares no states", "")
		return
	}

	if initial == "" {
		verr.Add(CodeInitialMissing, "chart declares no initial state", "")
	} else if n, ok := c.nodes[initial]; !ok {
		verr.Add(CodeInitialNotFound, fmt.Sprintf("initial state %q does not exist", initial), "")
	} else if n.parent != c.root {
		verr.Add(CodeInitialNotFound, fmt.Sprintf("initial state %q is not a top-level state", initial), "")
	} else {
		c.rootInitial = initial
	}

	for _, n := range c.order {
		c.validateInitial(n, verr)
		c.validateTransitions(n, verr)
	}
}

func (c *Chart) validateInitial(n *Node, verr *ValidationError) {
	if n.Parallel {
		// Parallel regions all enter together; a designated initial
		// child is meaningless and almost certainly a mistake.
		if n.Initial != "" {
			verr.Add(CodeParallelInitial, "parallel state must not declare an initial child", n.ID)
		}
		return
	}
	if len(n.children) == 0 {
		if n.Initial != "" {
			verr.Add(CodeInitialNotChild, "leaf state declares an initial child", n.ID)
		}
		return
	}
	if n.Initial == "" {
		verr.Add(CodeInitialMissing, "compound state declares no initial child", n.ID)
		return
	}
	for _, child := range n.children {
		if child.ID == n.Initial {
			return
		}
	}
	verr.Add(CodeInitialNotChild, fmt.Sprintf("initial %q is not a child of this state", n.Initial), n.ID)
}

func (c *Chart) validateTransitions(n *Node, verr *ValidationError) {
	// unguarded[event] is set once an unconditional transition for that
	// event has been seen; any later transition on the same event can
	// never fire and the definition is rejected as ambiguous.
	unguarded := map[string]bool{}

	for i, t := range n.Transitions {
		if t.Target != "" {
			if _, ok := c.nodes[t.Target]; !ok {
				verr.Add(CodeInvalidTarget,
					fmt.Sprintf("transition %d targets unknown state %q", i, t.Target), n.ID)
			}
		}

		if unguarded[t.Event] {
			verr.Add(CodeAmbiguousTransition,
				fmt.Sprintf("transition %d on event %q is unreachable: an earlier unguarded transition always wins", i, t.Event), n.ID)
		}
		if t.Guard == "" {
			unguarded[t.Event] = true
		}

		// An unguarded eventless transition that lands back where it
		// started can never stabilize.
		if t.Event == "" && t.Guard == "" && (t.Target == "" || t.Target == n.ID) {
			verr.Add(CodeUnstableTransition,
				fmt.Sprintf("eventless transition %d has no guard and no effective target", i), n.ID)
		}
	}
}
