package research

import (
	"context"
	"fmt"

	"github.com/smallnest/researchgraph/activity"
	"github.com/smallnest/researchgraph/rag"
)

const limitationsGenerationError = "System error during answer generation"

func (p *Pipeline) composeFinalAnswer(ctx context.Context, s State) State {
	sc := scopeFrom(ctx)
	sc.emit(StageComposeFinalAnswer, activity.LevelAgent, "Final answer agent working")

	docs := s.ContextDocuments()
	breakdown := rag.Tally(s.VerifiedClaims)
	confidence := rag.AggregateConfidence(s.VerifiedClaims)
	sources := rag.SourceSet(docs)

	template := composeLimitedPrompt
	if breakdown.Supported > 0 {
		template = composeSupportedPrompt
	}
	prompt := fmt.Sprintf(template, s.OriginalQuery, breakdownLines(breakdown), sourceTaggedContext(docs), confidence)

	answer := rag.FinalAnswer{
		ConfidenceScore: confidence,
		VerifiedSources: sources,
		Limitations:     breakdown.Summary(),
		ClaimBreakdown:  breakdown,
	}

	out, err := p.completer.Complete(ctx, prompt)
	if err != nil {
		answer.Answer = fmt.Sprintf("I encountered an error while generating the final answer: %v", err)
		answer.Limitations = limitationsGenerationError
		sc.emit(StageComposeFinalAnswer, activity.LevelWarning, "Final answer call failed: %v", err)
	} else {
		answer.Answer = out
		sc.emit(StageComposeFinalAnswer, activity.LevelSuccess, "Final answer ready, confidence %.2f%%", confidence)
	}

	s.FinalAnswer = answer
	return s
}
