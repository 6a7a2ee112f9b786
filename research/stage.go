package research

import (
	"context"
	"fmt"
	"time"

	"github.com/smallnest/researchgraph/activity"
	"github.com/smallnest/researchgraph/graph"
	"github.com/smallnest/researchgraph/log"
)

// StageName identifies a node of the research graph.
type StageName string

const (
	StageQueryRefine        StageName = "query_refine"
	StageRetrieve           StageName = "retrieve"
	StageRerank             StageName = "rerank"
	StageDraft              StageName = "draft"
	StageExtractClaims      StageName = "extract_claims"
	StageVerifyClaims       StageName = "verify_claims"
	StageComposeFinalAnswer StageName = "compose_final_answer"
	StageErrorHandler       StageName = "error_handler"

	// stagePipeline tags run-level activity entries.
	stagePipeline StageName = "pipeline"
)

// Stages lists the normal stages in execution order.
var Stages = []StageName{
	StageQueryRefine,
	StageRetrieve,
	StageRerank,
	StageDraft,
	StageExtractClaims,
	StageVerifyClaims,
	StageComposeFinalAnswer,
}

// failureLabel prefixes the error recorded when a stage fails.
var failureLabel = map[StageName]string{
	StageQueryRefine:        "Query understanding failed",
	StageRetrieve:           "Retrieval failed",
	StageRerank:             "Reranking failed",
	StageDraft:              "Reasoning failed",
	StageExtractClaims:      "Claim extraction failed",
	StageVerifyClaims:       "Fact checking failed",
	StageComposeFinalAnswer: "Final answer generation failed",
}

var stageDescription = map[StageName]string{
	StageQueryRefine:        "Rewrite the user query into a clear search question",
	StageRetrieve:           "Search the corpus for candidate documents",
	StageRerank:             "Score candidates against the query and keep the best",
	StageDraft:              "Draft an answer from the context documents",
	StageExtractClaims:      "Split the draft into atomic factual claims",
	StageVerifyClaims:       "Check every claim against the context documents",
	StageComposeFinalAnswer: "Write the final cited answer",
	StageErrorHandler:       "Turn a stage failure into an error-shaped answer",
}

type stageFunc func(ctx context.Context, s State) State

// runScope carries the per-run activity sink and logger to the stages.
type runScope struct {
	id     string
	sink   activity.Sink
	logger log.Logger
	step   int
}

type scopeKey struct{}

func withScope(ctx context.Context, sc *runScope) context.Context {
	return context.WithValue(ctx, scopeKey{}, sc)
}

func scopeFrom(ctx context.Context) *runScope {
	if sc, ok := ctx.Value(scopeKey{}).(*runScope); ok {
		return sc
	}
	return &runScope{sink: activity.Discard, logger: log.NoOpLogger{}}
}

func (sc *runScope) emit(stage StageName, level activity.Level, format string, args ...any) {
	sc.sink.Append(activity.Entry{
		RunID:   sc.id,
		Stage:   string(stage),
		Level:   level,
		Message: fmt.Sprintf(format, args...),
		Time:    time.Now(),
	})
}

// node adapts a stage to a graph node and checkpoints its output.
func (p *Pipeline) node(name StageName, fn stageFunc) graph.NodeFunc[State] {
	return func(ctx context.Context, in State) (State, error) {
		sc := scopeFrom(ctx)
		out := runStage(ctx, sc, name, fn, in)
		p.checkpoint(ctx, sc, name, out)
		return out, nil
	}
}

// runStage runs fn. A failure recorded by the stage is logged once here; a
// panic is recovered and recorded as a stage failure so the run still
// reaches the error handler.
func runStage(ctx context.Context, sc *runScope, name StageName, fn stageFunc, in State) (out State) {
	defer func() {
		if p := recover(); p != nil {
			label := failureLabel[name]
			if label == "" {
				label = string(name) + " failed"
			}
			out = in.fail("%s: panic: %v", label, p)
			if name == StageErrorHandler {
				out = handleError(out)
			}
			sc.logger.Error("stage %s panicked: %v", name, p)
			sc.emit(name, activity.LevelError, "%s", out.Error)
		}
	}()

	out = fn(ctx, in)
	if out.Failed() && !in.Failed() {
		sc.logger.Warn("stage %s failed: %s", name, out.Error)
		sc.emit(name, activity.LevelError, "%s", out.Error)
	}
	return out
}

// routeAfter sends a failed state to the error handler and a healthy one to
// next.
func routeAfter(next string) graph.ConditionFunc[State] {
	return func(ctx context.Context, s State) string {
		if s.Failed() {
			return string(StageErrorHandler)
		}
		return next
	}
}
