// Package graph renders compiled charts as Mermaid state diagrams.
package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/espalier/pkg/chart"
)

// Overlay contains dynamic interpreter state to visualize on the graph.
type Overlay struct {
	Active []string
}

// Generate produces Mermaid stateDiagram-v2 syntax for the chart.
// Compound states render as nested blocks, parallel states as concurrent
// regions. If an overlay is provided, the active states are highlighted.
func Generate(c *chart.Chart, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("stateDiagram-v2\n")

	if init := c.Initial(); init != nil {
		fmt.Fprintf(&sb, "    [*] --> %s\n", sanitizeID(init.ID))
	}
	for _, n := range c.Nodes() {
		if n.Parent() == nil {
			writeState(&sb, n, 1)
		}
	}
	for _, n := range c.Nodes() {
		writeTransitions(&sb, n)
	}

	if overlay != nil && len(overlay.Active) > 0 {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text for high-contrast on light and dark themes.
		sb.WriteString("    classDef active fill:#ffeb3b,stroke:#fbc02d,stroke-width:2px,color:#000\n")
		seen := make(map[string]bool)
		for _, id := range overlay.Active {
			safeID := sanitizeID(id)
			if safeID == "" || seen[safeID] || c.Node(id) == nil {
				continue
			}
			seen[safeID] = true
			fmt.Fprintf(&sb, "    class %s active\n", safeID)
		}
	}

	return sb.String()
}

func writeState(sb *strings.Builder, n *chart.Node, depth int) {
	pad := strings.Repeat("    ", depth)
	safeID := sanitizeID(n.ID)

	if n.IsLeaf() {
		fmt.Fprintf(sb, "%sstate \"%s\" as %s\n", pad, n.ID, safeID)
		return
	}

	fmt.Fprintf(sb, "%sstate %s {\n", pad, safeID)
	if n.Parallel {
		for i, child := range n.Children() {
			if i > 0 {
				fmt.Fprintf(sb, "%s    --\n", pad)
			}
			writeState(sb, child, depth+1)
		}
	} else {
		if n.Initial != "" {
			fmt.Fprintf(sb, "%s    [*] --> %s\n", pad, sanitizeID(n.Initial))
		}
		for _, child := range n.Children() {
			writeState(sb, child, depth+1)
		}
	}
	fmt.Fprintf(sb, "%s}\n", pad)
}

func writeTransitions(sb *strings.Builder, n *chart.Node) {
	safeID := sanitizeID(n.ID)
	for _, t := range n.Transitions {
		target := t.Target
		label := t.Event
		if target == "" {
			// Internal transition: no exit or entry, drawn as a self
			// edge so the handled event still shows up.
			target = n.ID
			label += " (internal)"
		}
		if t.Guard != "" {
			label = strings.TrimSpace(label + " [" + t.Guard + "]")
		}
		if label == "" {
			fmt.Fprintf(sb, "    %s --> %s\n", safeID, sanitizeID(target))
			continue
		}
		fmt.Fprintf(sb, "    %s --> %s : %s\n", safeID, sanitizeID(target), label)
	}
}

func sanitizeID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
