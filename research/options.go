package research

import (
	"github.com/smallnest/researchgraph/activity"
	"github.com/smallnest/researchgraph/graph"
	"github.com/smallnest/researchgraph/log"
)

// Default result bounds.
const (
	DefaultRetrieveTopK = 5
	DefaultRerankTopK   = 3
)

// Options configures a Pipeline.
type Options struct {
	// RetrieveTopK bounds the number of documents requested from the searcher.
	RetrieveTopK int
	// RerankTopK bounds the number of documents kept after reranking.
	RerankTopK int
	// Logger receives diagnostic messages.
	Logger log.Logger
	// Tracer, when set, receives graph, node and edge spans for every run.
	Tracer *graph.Tracer
	// Sink receives the activity of every run, in addition to the sink
	// passed to Run.
	Sink activity.Sink
	// Checkpoints, when set, receives a snapshot of the state after every
	// stage.
	Checkpoints CheckpointStore
}

// DefaultOptions returns the default pipeline options.
func DefaultOptions() Options {
	return Options{
		RetrieveTopK: DefaultRetrieveTopK,
		RerankTopK:   DefaultRerankTopK,
	}
}

// Option configures Options.
type Option func(*Options)

// WithRetrieveTopK sets the retrieval bound. Values below 1 are ignored.
func WithRetrieveTopK(k int) Option {
	return func(o *Options) {
		if k > 0 {
			o.RetrieveTopK = k
		}
	}
}

// WithRerankTopK sets the rerank bound. Values below 1 are ignored.
func WithRerankTopK(k int) Option {
	return func(o *Options) {
		if k > 0 {
			o.RerankTopK = k
		}
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(logger log.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithTracer attaches a graph tracer.
func WithTracer(tracer *graph.Tracer) Option {
	return func(o *Options) {
		o.Tracer = tracer
	}
}

// WithSink adds a pipeline-wide activity sink.
func WithSink(sink activity.Sink) Option {
	return func(o *Options) {
		o.Sink = sink
	}
}

// WithCheckpointStore saves a checkpoint after every stage.
func WithCheckpointStore(store CheckpointStore) Option {
	return func(o *Options) {
		o.Checkpoints = store
	}
}

// WithOptions replaces all options at once, e.g. with values from a config
// file. Zero bounds fall back to the defaults.
func WithOptions(opts Options) Option {
	return func(o *Options) {
		*o = opts
		if o.RetrieveTopK <= 0 {
			o.RetrieveTopK = DefaultRetrieveTopK
		}
		if o.RerankTopK <= 0 {
			o.RerankTopK = DefaultRerankTopK
		}
	}
}
