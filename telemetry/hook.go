package telemetry

import (
	"context"
	"errors"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/smallnest/researchgraph/graph"
	"github.com/smallnest/researchgraph/research"
)

// InstrumentationName names the OpenTelemetry tracer used by TraceHook.
const InstrumentationName = "github.com/smallnest/researchgraph"

// TraceHook mirrors graph spans as OpenTelemetry spans. Node spans become
// children of the graph span; edge traversals become events on it.
type TraceHook struct {
	tracer trace.Tracer

	mu    sync.Mutex
	spans map[string]trace.Span
}

var _ graph.TraceHook = (*TraceHook)(nil)

// NewTraceHook creates a hook reporting to tp, or to the global provider
// when tp is nil.
func NewTraceHook(tp trace.TracerProvider) *TraceHook {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &TraceHook{
		tracer: tp.Tracer(InstrumentationName),
		spans:  make(map[string]trace.Span),
	}
}

// OnEvent implements graph.TraceHook.
func (h *TraceHook) OnEvent(ctx context.Context, span *graph.TraceSpan) {
	switch span.Event {
	case graph.TraceEventGraphStart, graph.TraceEventNodeStart:
		h.start(ctx, span)
	case graph.TraceEventGraphEnd, graph.TraceEventNodeEnd, graph.TraceEventNodeError:
		h.end(span)
	case graph.TraceEventEdgeTraversal:
		if parent := h.lookup(span.ParentID); parent != nil {
			parent.AddEvent("edge", trace.WithAttributes(
				attribute.String("graph.from", span.FromNode),
				attribute.String("graph.to", span.ToNode),
			))
		}
	}
}

func (h *TraceHook) start(ctx context.Context, span *graph.TraceSpan) {
	if parent := h.lookup(span.ParentID); parent != nil {
		ctx = trace.ContextWithSpan(ctx, parent)
	}
	name := "research." + span.NodeName
	_, otelSpan := h.tracer.Start(ctx, name,
		trace.WithTimestamp(span.StartTime),
		trace.WithAttributes(attribute.String("graph.node", span.NodeName)),
	)

	h.mu.Lock()
	h.spans[span.ID] = otelSpan
	h.mu.Unlock()
}

func (h *TraceHook) end(span *graph.TraceSpan) {
	h.mu.Lock()
	otelSpan, ok := h.spans[span.ID]
	delete(h.spans, span.ID)
	h.mu.Unlock()
	if !ok {
		return
	}

	err := span.Error
	if s, ok := span.State.(research.State); ok {
		if s.RunID != "" {
			otelSpan.SetAttributes(attribute.String("research.run_id", s.RunID))
		}
		if err == nil && s.Failed() {
			err = errors.New(s.Error)
		}
	}
	if err != nil {
		otelSpan.RecordError(err)
		otelSpan.SetStatus(codes.Error, err.Error())
	} else {
		otelSpan.SetStatus(codes.Ok, "")
	}
	otelSpan.End(trace.WithTimestamp(span.EndTime))
}

func (h *TraceHook) lookup(id string) trace.Span {
	if id == "" {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.spans[id]
}

// Open returns the number of spans started but not yet ended.
func (h *TraceHook) Open() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.spans)
}
