package graph

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// Exporter provides methods to export graphs in different formats
type Exporter[S any] struct {
	graph *StateGraph[S]
}

// NewExporter creates a new graph exporter for the given graph
func NewExporter[S any](graph *StateGraph[S]) *Exporter[S] {
	return &Exporter[S]{graph: graph}
}

// MermaidOptions defines configuration for Mermaid diagram generation
type MermaidOptions struct {
	// Direction of the flowchart (e.g., "TD", "LR")
	Direction string
}

// DrawMermaid generates a Mermaid diagram representation of the graph
func (ge *Exporter[S]) DrawMermaid() string {
	return ge.DrawMermaidWithOptions(MermaidOptions{Direction: "TD"})
}

// DrawMermaidWithOptions generates a Mermaid diagram with custom options.
// Conditional edges with declared targets are drawn as dotted arrows to each
// target; undeclared ones as a single "?" decision node.
func (ge *Exporter[S]) DrawMermaidWithOptions(opts MermaidOptions) string {
	var sb strings.Builder

	direction := opts.Direction
	if direction == "" {
		direction = "TD"
	}
	fmt.Fprintf(&sb, "flowchart %s\n", direction)

	entry := ge.graph.entryPoint
	if entry != "" {
		sb.WriteString("    START([\"START\"])\n")
		fmt.Fprintf(&sb, "    %s[[\"%s\"]]\n", entry, entry)
	}
	for _, name := range ge.sortedNodeNames() {
		fmt.Fprintf(&sb, "    %s[\"%s\"]\n", name, name)
	}
	if ge.referencesEnd() {
		sb.WriteString("    END([\"END\"])\n")
	}

	if entry != "" {
		fmt.Fprintf(&sb, "    START --> %s\n", entry)
	}
	for _, edge := range ge.graph.edges {
		if _, conditional := ge.graph.conditionalEdges[edge.From]; conditional {
			continue
		}
		fmt.Fprintf(&sb, "    %s --> %s\n", edge.From, edge.To)
	}
	for _, from := range ge.conditionalSources() {
		targets := ge.graph.conditionalEdges[from].targets
		if len(targets) == 0 {
			fmt.Fprintf(&sb, "    %s -.-> %s_condition((?))\n", from, from)
			fmt.Fprintf(&sb, "    style %s_condition fill:#FFFFE0,stroke:#333,stroke-dasharray: 5 5\n", from)
			continue
		}
		for _, to := range targets {
			fmt.Fprintf(&sb, "    %s -.-> %s\n", from, to)
		}
	}

	if entry != "" {
		sb.WriteString("    style START fill:#90EE90\n")
		fmt.Fprintf(&sb, "    style %s fill:#87CEEB\n", entry)
	}
	if ge.referencesEnd() {
		sb.WriteString("    style END fill:#FFB6C1\n")
	}

	return sb.String()
}

// DrawDOT generates a DOT (Graphviz) representation of the graph
func (ge *Exporter[S]) DrawDOT() string {
	var sb strings.Builder

	sb.WriteString("digraph G {\n")
	sb.WriteString("    rankdir=TD;\n")
	sb.WriteString("    node [shape=box];\n")

	if entry := ge.graph.entryPoint; entry != "" {
		sb.WriteString("    START [label=\"START\", shape=ellipse, style=filled, fillcolor=lightgreen];\n")
		fmt.Fprintf(&sb, "    %s [style=filled, fillcolor=lightblue];\n", entry)
		fmt.Fprintf(&sb, "    START -> %s;\n", entry)
	}
	if ge.referencesEnd() {
		sb.WriteString("    END [label=\"END\", shape=ellipse, style=filled, fillcolor=lightpink];\n")
	}

	for _, edge := range ge.graph.edges {
		if _, conditional := ge.graph.conditionalEdges[edge.From]; conditional {
			continue
		}
		fmt.Fprintf(&sb, "    %s -> %s;\n", edge.From, edge.To)
	}
	for _, from := range ge.conditionalSources() {
		targets := ge.graph.conditionalEdges[from].targets
		if len(targets) == 0 {
			fmt.Fprintf(&sb, "    %s -> %s_condition [style=dashed, label=\"?\"];\n", from, from)
			fmt.Fprintf(&sb, "    %s_condition [label=\"?\", shape=diamond, style=filled, fillcolor=lightyellow];\n", from)
			continue
		}
		for _, to := range targets {
			fmt.Fprintf(&sb, "    %s -> %s [style=dashed];\n", from, to)
		}
	}

	sb.WriteString("}\n")
	return sb.String()
}

func (ge *Exporter[S]) sortedNodeNames() []string {
	names := make([]string, 0, len(ge.graph.nodes))
	for name := range ge.graph.nodes {
		if name != ge.graph.entryPoint && name != END {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func (ge *Exporter[S]) conditionalSources() []string {
	sources := make([]string, 0, len(ge.graph.conditionalEdges))
	for from := range ge.graph.conditionalEdges {
		sources = append(sources, from)
	}
	sort.Strings(sources)
	return sources
}

func (ge *Exporter[S]) referencesEnd() bool {
	for _, edge := range ge.graph.edges {
		if edge.To == END {
			return true
		}
	}
	for _, ce := range ge.graph.conditionalEdges {
		if slices.Contains(ce.targets, END) {
			return true
		}
	}
	return false
}
