package research

import (
	"context"

	"github.com/smallnest/researchgraph/activity"
	"github.com/smallnest/researchgraph/rag"
)

// Limitations texts of error-shaped answers.
const (
	LimitationsPipelineError = "System error prevented complete processing"
	LimitationsCritical      = "Critical system failure"
)

func (p *Pipeline) errorHandler(ctx context.Context, s State) State {
	sc := scopeFrom(ctx)
	s = handleError(s)
	sc.emit(StageErrorHandler, activity.LevelError, "Pipeline error: %s", s.Error)
	return s
}

// handleError replaces the final answer with the error-shaped one. Claims
// that never reached verification are recorded as unverified so every
// extracted claim keeps exactly one entry.
func handleError(s State) State {
	msg := s.Error
	if msg == "" {
		msg = "Unknown error occurred"
	}
	s = completeVerifications(s)
	s.FinalAnswer = rag.ErrorAnswer("Pipeline Error: "+msg, LimitationsPipelineError)
	s.FinalAnswer.ClaimBreakdown = rag.Tally(s.VerifiedClaims)
	return s
}

func completeVerifications(s State) State {
	missing := false
	for _, c := range s.ExtractedClaims {
		if _, ok := s.VerifiedClaims[c]; !ok {
			missing = true
			break
		}
	}
	if !missing {
		return s
	}

	verified := make(map[string]rag.ClaimVerification, len(s.ExtractedClaims))
	for _, c := range s.ExtractedClaims {
		if cv, ok := s.VerifiedClaims[c]; ok {
			verified[c] = cv
			continue
		}
		verified[c] = rag.NewUnverified("Verification did not run", "Pipeline halted before this claim was verified")
	}
	s.VerifiedClaims = verified
	return s
}
