package research

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/smallnest/researchgraph/activity"
	"github.com/smallnest/researchgraph/graph"
	"github.com/smallnest/researchgraph/log"
	"github.com/smallnest/researchgraph/rag"
)

// ErrMissingCollaborator is returned by New when a required collaborator is
// nil.
var ErrMissingCollaborator = errors.New("research: missing collaborator")

// Collaborators are the external services a pipeline calls. Refiner is
// optional and defaults to an LLMRefiner over Completer.
type Collaborators struct {
	Refiner   rag.Refiner
	Searcher  rag.Searcher
	Scorer    rag.Scorer
	Completer rag.Completer
}

// Pipeline runs the research graph. A Pipeline is safe for concurrent use;
// every Run gets its own state and activity log.
type Pipeline struct {
	refiner   rag.Refiner
	searcher  rag.Searcher
	scorer    rag.Scorer
	completer rag.Completer

	opts     Options
	logger   log.Logger
	graph    *graph.StateGraph[State]
	runnable *graph.StateRunnable[State]
}

// Result is the outcome of a run: the final state plus the activity
// recorded for that run only.
type Result struct {
	State
	Logs []activity.Entry `json:"logs"`
}

// New builds and compiles the research graph.
func New(c Collaborators, opts ...Option) (*Pipeline, error) {
	switch {
	case c.Searcher == nil:
		return nil, fmt.Errorf("%w: searcher", ErrMissingCollaborator)
	case c.Scorer == nil:
		return nil, fmt.Errorf("%w: scorer", ErrMissingCollaborator)
	case c.Completer == nil:
		return nil, fmt.Errorf("%w: completer", ErrMissingCollaborator)
	}

	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.Logger == nil {
		o.Logger = log.GetDefaultLogger()
	}
	if o.Sink == nil {
		o.Sink = activity.Discard
	}

	p := &Pipeline{
		refiner:   c.Refiner,
		searcher:  c.Searcher,
		scorer:    c.Scorer,
		completer: c.Completer,
		opts:      o,
		logger:    log.WithComponent(o.Logger, "research"),
	}
	if p.refiner == nil {
		p.refiner = NewLLMRefiner(c.Completer)
	}

	if err := p.build(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Pipeline) build() error {
	g := graph.NewStateGraph[State]()

	stages := map[StageName]stageFunc{
		StageQueryRefine:        p.queryRefine,
		StageRetrieve:           p.retrieve,
		StageRerank:             p.rerank,
		StageDraft:              p.draft,
		StageExtractClaims:      p.extractClaims,
		StageVerifyClaims:       p.verifyClaims,
		StageComposeFinalAnswer: p.composeFinalAnswer,
		StageErrorHandler:       p.errorHandler,
	}
	for _, name := range append(slices.Clone(Stages), StageErrorHandler) {
		g.AddNode(string(name), stageDescription[name], p.node(name, stages[name]))
	}

	g.SetEntryPoint(string(StageQueryRefine))
	for i, name := range Stages {
		next := graph.END
		if i+1 < len(Stages) {
			next = string(Stages[i+1])
		}
		g.AddConditionalEdge(string(name), routeAfter(next), next, string(StageErrorHandler))
	}
	g.AddEdge(string(StageErrorHandler), graph.END)

	runnable, err := g.Compile()
	if err != nil {
		return fmt.Errorf("compile research graph: %w", err)
	}
	if p.opts.Tracer != nil {
		runnable.SetTracer(p.opts.Tracer)
	}
	p.graph = g
	p.runnable = runnable
	return nil
}

// Run answers query. It always returns a populated result: stage failures
// produce an error-shaped final answer and the Error field is set. sink, if
// not nil, receives the run's activity as it happens.
func (p *Pipeline) Run(ctx context.Context, query string, sink activity.Sink) (res *Result) {
	runID := uuid.NewString()
	rec := activity.NewRecorder()
	sc := &runScope{
		id:     runID,
		sink:   activity.Multi(rec, activity.Safe(p.opts.Sink), activity.Safe(sink)),
		logger: p.logger,
	}
	ctx = withScope(ctx, sc)

	initial := NewState(runID, query)
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("run %s panicked: %v", runID, r)
			res = p.critical(sc, rec, initial, fmt.Errorf("panic: %v", r))
		}
	}()

	sc.emit(stagePipeline, activity.LevelInfo, "Starting research for: %s", query)
	p.logger.Info("run %s started", runID)

	final, err := p.runnable.Invoke(ctx, initial)
	if err != nil {
		p.logger.Error("run %s aborted: %v", runID, err)
		return p.critical(sc, rec, final, err)
	}

	if final.Failed() {
		sc.emit(stagePipeline, activity.LevelError, "Research finished with errors")
	} else {
		sc.emit(stagePipeline, activity.LevelSuccess, "Research complete, confidence %.2f%%", final.FinalAnswer.ConfidenceScore)
	}
	p.logger.Info("run %s finished", runID)
	return &Result{State: final, Logs: rec.Entries()}
}

// critical shapes the result of a run that could not finish inside the graph,
// e.g. because the context was canceled.
func (p *Pipeline) critical(sc *runScope, rec *activity.Recorder, s State, err error) *Result {
	s = completeVerifications(s)
	s.Error = fmt.Sprintf("Critical error: %v", err)
	s.FinalAnswer = rag.ErrorAnswer(fmt.Sprintf("System Error: %v", err), LimitationsCritical)
	s.FinalAnswer.ClaimBreakdown = rag.Tally(s.VerifiedClaims)
	sc.emit(stagePipeline, activity.LevelError, "%s", s.Error)
	return &Result{State: s, Logs: rec.Entries()}
}

// Mermaid renders the research graph as a Mermaid flowchart.
func (p *Pipeline) Mermaid() string {
	return graph.NewExporter(p.graph).DrawMermaid()
}

// DOT renders the research graph in Graphviz DOT format.
func (p *Pipeline) DOT() string {
	return graph.NewExporter(p.graph).DrawDOT()
}
