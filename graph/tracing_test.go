package graph

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateRunnable_WithTracer(t *testing.T) {
	g := NewStateGraph[counterState]()
	g.AddNode("node1", "First node", step("node1"))
	g.AddNode("node2", "Second node", step("node2"))
	g.AddEdge("node1", "node2")
	g.AddEdge("node2", END)
	g.SetEntryPoint("node1")

	runnable, err := g.Compile()
	require.NoError(t, err)

	tracer := NewTracer()
	runnable.SetTracer(tracer)
	assert.Same(t, tracer, runnable.GetTracer())

	other := NewTracer()
	traced := runnable.WithTracer(other)
	assert.Same(t, other, traced.GetTracer())
	assert.Same(t, tracer, runnable.GetTracer())

	_, err = runnable.Invoke(context.Background(), counterState{})
	require.NoError(t, err)

	var graphEnd, node1End, node2End, edges int
	var graphID string
	for _, span := range tracer.GetSpans() {
		switch {
		case span.Event == TraceEventGraphEnd && span.NodeName == "graph":
			graphEnd++
			graphID = span.ID
		case span.Event == TraceEventNodeEnd && span.NodeName == "node1":
			node1End++
		case span.Event == TraceEventNodeEnd && span.NodeName == "node2":
			node2End++
		case span.Event == TraceEventEdgeTraversal:
			edges++
		}
	}
	assert.Equal(t, 1, graphEnd)
	assert.Equal(t, 1, node1End)
	assert.Equal(t, 1, node2End)
	assert.Equal(t, 2, edges)

	for _, span := range tracer.GetSpans() {
		if span.NodeName != "graph" {
			assert.Equal(t, graphID, span.ParentID)
		}
	}
	assert.Empty(t, other.GetSpans())
}

func TestTracer_NodeErrorEvent(t *testing.T) {
	g := NewStateGraph[counterState]()
	g.AddNode("bad", "fails", func(ctx context.Context, s counterState) (counterState, error) {
		return s, errors.New("nope")
	})
	g.AddEdge("bad", END)
	g.SetEntryPoint("bad")

	runnable, err := g.Compile()
	require.NoError(t, err)

	tracer := NewTracer()
	var mu sync.Mutex
	var events []TraceEvent
	tracer.AddHook(TraceHookFunc(func(ctx context.Context, span *TraceSpan) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, span.Event)
	}))

	_, err = runnable.WithTracer(tracer).Invoke(context.Background(), counterState{})
	require.Error(t, err)

	assert.Equal(t, []TraceEvent{
		TraceEventGraphStart,
		TraceEventNodeStart,
		TraceEventNodeError,
		TraceEventGraphEnd,
	}, events)
}

func TestTracer_Clear(t *testing.T) {
	tracer := NewTracer()
	span := tracer.StartSpan(context.Background(), TraceEventNodeStart, "n")
	tracer.EndSpan(context.Background(), span, nil, nil)
	tracer.TraceEdgeTraversal(context.Background(), "n", END)
	assert.Len(t, tracer.GetSpans(), 2)
	assert.Equal(t, TraceEventNodeEnd, span.Event)
	assert.GreaterOrEqual(t, span.Duration.Nanoseconds(), int64(0))

	tracer.Clear()
	assert.Empty(t, tracer.GetSpans())
}

func TestSpanContext(t *testing.T) {
	assert.Nil(t, SpanFromContext(context.Background()))

	span := &TraceSpan{ID: "abc"}
	ctx := ContextWithSpan(context.Background(), span)
	assert.Same(t, span, SpanFromContext(ctx))
}
