package graph

import (
	"fmt"
	"slices"
)

// DefaultMaxSteps bounds the number of nodes a single invocation may run.
const DefaultMaxSteps = 64

// StateGraph is a directed graph of typed nodes that are executed one at a
// time. Each node receives the state returned by its predecessor; the next
// node is chosen by a conditional edge if one is registered, otherwise by the
// node's single static edge.
//
//	g := graph.NewStateGraph[MyState]()
//	g.AddNode("count", "Increment counter", func(ctx context.Context, s MyState) (MyState, error) {
//	    s.Count++
//	    return s, nil
//	})
//	g.SetEntryPoint("count")
//	g.AddEdge("count", graph.END)
type StateGraph[S any] struct {
	nodes            map[string]TypedNode[S]
	order            []string
	edges            []Edge
	conditionalEdges map[string]conditionalEdge[S]
	entryPoint       string
	maxSteps         int
}

// NewStateGraph creates a new instance of StateGraph.
func NewStateGraph[S any]() *StateGraph[S] {
	return &StateGraph[S]{
		nodes:            make(map[string]TypedNode[S]),
		conditionalEdges: make(map[string]conditionalEdge[S]),
		maxSteps:         DefaultMaxSteps,
	}
}

// AddNode adds a node. Adding a node under an existing name replaces it.
func (g *StateGraph[S]) AddNode(name string, description string, fn NodeFunc[S]) {
	if _, exists := g.nodes[name]; !exists {
		g.order = append(g.order, name)
	}
	g.nodes[name] = TypedNode[S]{
		Name:        name,
		Description: description,
		Function:    fn,
	}
}

// AddEdge adds a static edge between the "from" and "to" nodes.
func (g *StateGraph[S]) AddEdge(from, to string) {
	g.edges = append(g.edges, Edge{From: from, To: to})
}

// AddConditionalEdge registers a runtime routing function for "from". A
// conditional edge takes precedence over static edges of the same node.
// targets lists the nodes the condition may return; when given, Compile
// checks that they exist and Invoke rejects any other destination.
func (g *StateGraph[S]) AddConditionalEdge(from string, condition ConditionFunc[S], targets ...string) {
	g.conditionalEdges[from] = conditionalEdge[S]{
		condition: condition,
		targets:   slices.Clone(targets),
	}
}

// SetEntryPoint sets the entry point node name for the state graph.
func (g *StateGraph[S]) SetEntryPoint(name string) {
	g.entryPoint = name
}

// SetMaxSteps overrides DefaultMaxSteps. Values below 1 are ignored.
func (g *StateGraph[S]) SetMaxSteps(n int) {
	if n > 0 {
		g.maxSteps = n
	}
}

// Nodes returns the nodes in insertion order.
func (g *StateGraph[S]) Nodes() []TypedNode[S] {
	out := make([]TypedNode[S], 0, len(g.order))
	for _, name := range g.order {
		out = append(out, g.nodes[name])
	}
	return out
}

// Compile validates the graph and returns a StateRunnable.
func (g *StateGraph[S]) Compile() (*StateRunnable[S], error) {
	if g.entryPoint == "" {
		return nil, ErrEntryPointNotSet
	}
	if _, ok := g.nodes[g.entryPoint]; !ok {
		return nil, fmt.Errorf("%w: entry point %s", ErrNodeNotFound, g.entryPoint)
	}

	outgoing := make(map[string]int)
	for _, e := range g.edges {
		if _, ok := g.nodes[e.From]; !ok {
			return nil, fmt.Errorf("%w: edge source %s", ErrNodeNotFound, e.From)
		}
		if e.To != END {
			if _, ok := g.nodes[e.To]; !ok {
				return nil, fmt.Errorf("%w: edge target %s", ErrNodeNotFound, e.To)
			}
		}
		outgoing[e.From]++
	}

	for from, ce := range g.conditionalEdges {
		if _, ok := g.nodes[from]; !ok {
			return nil, fmt.Errorf("%w: conditional edge source %s", ErrNodeNotFound, from)
		}
		for _, to := range ce.targets {
			if to == END {
				continue
			}
			if _, ok := g.nodes[to]; !ok {
				return nil, fmt.Errorf("%w: conditional edge target %s", ErrNodeNotFound, to)
			}
		}
	}

	for from, n := range outgoing {
		if _, conditional := g.conditionalEdges[from]; conditional {
			continue
		}
		if n > 1 {
			return nil, fmt.Errorf("%w: %s", ErrAmbiguousEdge, from)
		}
	}

	return &StateRunnable[S]{graph: g}, nil
}
