package graph

import (
	"context"
	"errors"
)

// END is a special constant used to represent the end node in the graph.
const END = "END"

var (
	// ErrEntryPointNotSet is returned when the entry point of the graph is not set.
	ErrEntryPointNotSet = errors.New("entry point not set")

	// ErrNodeNotFound is returned when a node is not found in the graph.
	ErrNodeNotFound = errors.New("node not found")

	// ErrNoOutgoingEdge is returned when no outgoing edge is found for a node.
	ErrNoOutgoingEdge = errors.New("no outgoing edge found for node")

	// ErrAmbiguousEdge is returned when a node has more than one static
	// outgoing edge. Execution is strictly sequential, so fan-out is rejected.
	ErrAmbiguousEdge = errors.New("more than one outgoing edge for node")

	// ErrMaxStepsExceeded is returned when an invocation runs more nodes than
	// the configured step limit, which usually means the graph has a cycle.
	ErrMaxStepsExceeded = errors.New("maximum number of steps exceeded")
)

// NodeFunc is the function executed by a node. It receives the current state
// and returns the updated state.
type NodeFunc[S any] func(ctx context.Context, state S) (S, error)

// ConditionFunc picks the next node from the state produced by a node.
type ConditionFunc[S any] func(ctx context.Context, state S) string

// TypedNode represents a typed node in the graph.
type TypedNode[S any] struct {
	Name        string
	Description string
	Function    NodeFunc[S]
}

// Edge represents an edge in the graph.
type Edge struct {
	// From is the name of the node from which the edge originates.
	From string

	// To is the name of the node to which the edge points.
	To string
}

// conditionalEdge routes from a node at runtime. Targets is the declared set
// of destinations, used for validation and visualization only.
type conditionalEdge[S any] struct {
	condition ConditionFunc[S]
	targets   []string
}
