package graph

import (
	"context"
	"fmt"
	"slices"
)

// StateRunnable is a compiled StateGraph.
type StateRunnable[S any] struct {
	graph  *StateGraph[S]
	tracer *Tracer
}

// SetTracer sets a tracer for observability.
func (r *StateRunnable[S]) SetTracer(tracer *Tracer) {
	r.tracer = tracer
}

// GetTracer returns the current tracer.
func (r *StateRunnable[S]) GetTracer() *Tracer {
	return r.tracer
}

// WithTracer returns a copy of the runnable that reports to tracer.
func (r *StateRunnable[S]) WithTracer(tracer *Tracer) *StateRunnable[S] {
	return &StateRunnable[S]{
		graph:  r.graph,
		tracer: tracer,
	}
}

// Invoke runs the graph from the entry point until END is reached.
//
// A node error stops execution and is returned together with the last state
// that was successfully produced. Panics inside a node are converted into
// errors.
func (r *StateRunnable[S]) Invoke(ctx context.Context, initialState S) (S, error) {
	state := initialState

	var graphSpan *TraceSpan
	if r.tracer != nil {
		graphSpan = r.tracer.StartSpan(ctx, TraceEventGraphStart, "graph")
		graphSpan.State = initialState
		ctx = ContextWithSpan(ctx, graphSpan)
	}

	current := r.graph.entryPoint
	steps := 0
	for current != END {
		if err := ctx.Err(); err != nil {
			return r.finish(ctx, graphSpan, state, err)
		}
		if steps >= r.graph.maxSteps {
			return r.finish(ctx, graphSpan, state, fmt.Errorf("%w (%d)", ErrMaxStepsExceeded, r.graph.maxSteps))
		}
		steps++

		node, ok := r.graph.nodes[current]
		if !ok {
			return r.finish(ctx, graphSpan, state, fmt.Errorf("%w: %s", ErrNodeNotFound, current))
		}

		next, err := r.runNode(ctx, node, state)
		if err != nil {
			return r.finish(ctx, graphSpan, state, fmt.Errorf("error in node %s: %w", current, err))
		}
		state = next

		to, err := r.nextNode(ctx, current, state)
		if err != nil {
			return r.finish(ctx, graphSpan, state, err)
		}
		if r.tracer != nil {
			r.tracer.TraceEdgeTraversal(ctx, current, to)
		}
		current = to
	}

	return r.finish(ctx, graphSpan, state, nil)
}

func (r *StateRunnable[S]) finish(ctx context.Context, span *TraceSpan, state S, err error) (S, error) {
	if r.tracer != nil && span != nil {
		r.tracer.EndSpan(ctx, span, state, err)
	}
	return state, err
}

func (r *StateRunnable[S]) runNode(ctx context.Context, node TypedNode[S], state S) (result S, err error) {
	var span *TraceSpan
	if r.tracer != nil {
		span = r.tracer.StartSpan(ctx, TraceEventNodeStart, node.Name)
		span.State = state
		ctx = ContextWithSpan(ctx, span)
	}

	defer func() {
		if p := recover(); p != nil {
			result = state
			err = fmt.Errorf("panic: %v", p)
		}
		if span != nil {
			r.tracer.EndSpan(ctx, span, result, err)
		}
	}()

	return node.Function(ctx, state)
}

func (r *StateRunnable[S]) nextNode(ctx context.Context, from string, state S) (string, error) {
	if ce, ok := r.graph.conditionalEdges[from]; ok {
		to := ce.condition(ctx, state)
		if to == "" {
			return "", fmt.Errorf("conditional edge returned empty next node from %s", from)
		}
		if len(ce.targets) > 0 && !slices.Contains(ce.targets, to) {
			return "", fmt.Errorf("conditional edge from %s returned undeclared node %s", from, to)
		}
		return to, nil
	}

	for _, e := range r.graph.edges {
		if e.From == from {
			return e.To, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNoOutgoingEdge, from)
}
