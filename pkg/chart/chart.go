package chart

import "sort"

// Definition is the declarative description of a statechart.
// It is plain data: construct it in Go, or decode it from YAML/JSON
// through an external loader (see pkg/adapters/yamlchart).
type Definition struct {
	// ID names the chart. Used in logs, metrics and traces.
	ID string `json:"id" yaml:"id"`

	// Initial is the identifier of the top-level state entered on Start.
	Initial string `json:"initial" yaml:"initial"`

	// States are the top-level states, in document order.
	States []State `json:"states" yaml:"states"`
}

// State describes a single state node. A state with children is a
// compound state; with Parallel set, every child region is active at once.
type State struct {
	ID string `json:"id" yaml:"id"`

	// Parallel marks this state as an orthogonal region container.
	Parallel bool `json:"parallel,omitempty" yaml:"parallel,omitempty"`

	// Initial names the default child entered when this compound state
	// is entered without an explicit deeper target. Required when the
	// state has children and is not parallel.
	Initial string `json:"initial,omitempty" yaml:"initial,omitempty"`

	// Entry and Exit are named actions resolved against the registry,
	// executed in declared order.
	Entry []string `json:"entry,omitempty" yaml:"entry,omitempty"`
	Exit  []string `json:"exit,omitempty" yaml:"exit,omitempty"`

	Transitions []Transition `json:"transitions,omitempty" yaml:"transitions,omitempty"`

	Children []State `json:"states,omitempty" yaml:"states,omitempty"`
}

// Transition describes an outgoing edge of a state.
type Transition struct {
	// Event is the triggering event name. Empty means eventless: the
	// transition is evaluated whenever the configuration changes.
	Event string `json:"event,omitempty" yaml:"event,omitempty"`

	// Target is the identifier of the destination state. Empty makes
	// this an internal transition: actions run, nothing is exited or
	// entered. Naming the source state itself forces an external
	// self-transition (exit and re-enter).
	Target string `json:"target,omitempty" yaml:"target,omitempty"`

	// Guard is a named predicate resolved against the registry. Empty
	// means the transition is always enabled for its event.
	Guard string `json:"guard,omitempty" yaml:"guard,omitempty"`

	// Actions run between the exit and entry phases of the transition.
	Actions []string `json:"actions,omitempty" yaml:"actions,omitempty"`
}

// Event is a named occurrence delivered to the interpreter, with an
// optional opaque payload.
type Event struct {
	Name    string `json:"name" yaml:"name"`
	Payload any    `json:"payload,omitempty" yaml:"payload,omitempty"`
}

// Snapshot is a read-only projection of an interpreter's active
// configuration, suitable for persistence and change notifications.
type Snapshot struct {
	// Configuration holds every active state identifier (leaves and
	// their ancestors), sorted lexicographically.
	Configuration []string `json:"configuration"`

	// Stopped is true once the interpreter has been disposed.
	Stopped bool `json:"stopped,omitempty"`
}

// Chart is the compiled, immutable form of a Definition. All lookups the
// interpreter needs (parent links, document order, initial resolution)
// are precomputed here. A Chart is safe for concurrent use.
type Chart struct {
	id          string
	root        *Node
	rootInitial string
	nodes       map[string]*Node
	order       []*Node
}

// Node is a compiled state. It is addressable by ID and carries its
// position in the hierarchy.
type Node struct {
	ID          string
	Parallel    bool
	Initial     string
	Entry       []string
	Exit        []string
	Transitions []Transition

	parent   *Node
	children []*Node
	depth    int
	docIndex int
}

// Compile validates the definition and builds its indexed form.
// It returns a *ValidationError aggregating every problem found.
func (d Definition) Compile() (*Chart, error) {
	c := &Chart{
		id:    d.ID,
		nodes: make(map[string]*Node),
	}
	c.root = &Node{depth: -1}

	verr := &ValidationError{}
	for i := range d.States {
		c.index(&d.States[i], c.root, verr)
	}
	c.validate(d.Initial, verr)

	if verr.HasIssues() {
		return nil, verr
	}
	return c, nil
}

// index builds the node tree in document order, recording duplicates.
func (c *Chart) index(s *State, parent *Node, verr *ValidationError) {
	n := &Node{
		ID:          s.ID,
		Parallel:    s.Parallel,
		Initial:     s.Initial,
		Entry:       s.Entry,
		Exit:        s.Exit,
		Transitions: s.Transitions,
		parent:      parent,
		depth:       parent.depth + 1,
		docIndex:    len(c.order),
	}

	if s.ID == "" {
		verr.Add(CodeEmptyID, "state has an empty identifier", parentID(parent))
		return
	}
	if _, dup := c.nodes[s.ID]; dup {
		verr.Add(CodeDuplicateState, "state identifier declared more than once", s.ID)
		return
	}
	c.nodes[s.ID] = n
	c.order = append(c.order, n)
	parent.children = append(parent.children, n)

	for i := range s.Children {
		c.index(&s.Children[i], n, verr)
	}
}

func parentID(n *Node) string {
	if n == nil || n.ID == "" {
		return "<root>"
	}
	return n.ID
}

// ID returns the chart identifier.
func (c *Chart) ID() string { return c.id }

// Node returns the state with the given identifier, or nil.
func (c *Chart) Node(id string) *Node { return c.nodes[id] }

// Nodes returns every state in document order.
func (c *Chart) Nodes() []*Node { return c.order }

// Initial returns the top-level state entered on Start.
func (c *Chart) Initial() *Node { return c.nodes[c.rootInitial] }

// Path returns the states from the top level down to n, inclusive.
func (c *Chart) Path(n *Node) []*Node {
	var rev []*Node
	for cur := n; cur != nil && cur != c.root; cur = cur.parent {
		rev = append(rev, cur)
	}
	path := make([]*Node, len(rev))
	for i, p := range rev {
		path[len(rev)-1-i] = p
	}
	return path
}

// LCA returns the lowest common ancestor of a and b, or nil when the
// only shared ancestor is the chart root.
func (c *Chart) LCA(a, b *Node) *Node {
	pa, pb := c.Path(a), c.Path(b)
	var lca *Node
	for i := 0; i < len(pa) && i < len(pb); i++ {
		if pa[i] != pb[i] {
			break
		}
		lca = pa[i]
	}
	return lca
}

// IsDescendant reports whether n is a strict descendant of ancestor.
func (c *Chart) IsDescendant(n, ancestor *Node) bool {
	for cur := n.parent; cur != nil && cur != c.root; cur = cur.parent {
		if cur == ancestor {
			return true
		}
	}
	return false
}

// ActionNames returns every action name the chart references, sorted
// and deduplicated. Used for eager registry binding.
func (c *Chart) ActionNames() []string {
	seen := map[string]bool{}
	for _, n := range c.order {
		for _, a := range n.Entry {
			seen[a] = true
		}
		for _, a := range n.Exit {
			seen[a] = true
		}
		for _, t := range n.Transitions {
			for _, a := range t.Actions {
				seen[a] = true
			}
		}
	}
	return sortedKeys(seen)
}

// GuardNames returns every guard name the chart references, sorted and
// deduplicated.
func (c *Chart) GuardNames() []string {
	seen := map[string]bool{}
	for _, n := range c.order {
		for _, t := range n.Transitions {
			if t.Guard != "" {
				seen[t.Guard] = true
			}
		}
	}
	return sortedKeys(seen)
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Parent returns the enclosing state, or nil for a top-level state.
func (n *Node) Parent() *Node {
	if n.parent == nil || n.parent.depth < 0 {
		return nil
	}
	return n.parent
}

// Children returns the child states in document order.
func (n *Node) Children() []*Node { return n.children }

// IsLeaf reports whether the state has no children.
func (n *Node) IsLeaf() bool { return len(n.children) == 0 }

// Depth returns the nesting depth; top-level states are at depth 0.
func (n *Node) Depth() int { return n.depth }

// DocIndex returns the state's position in document order.
func (n *Node) DocIndex() int { return n.docIndex }
