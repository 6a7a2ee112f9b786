package research

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/smallnest/researchgraph/activity"
	"github.com/smallnest/researchgraph/rag"
	"github.com/smallnest/researchgraph/structured"
)

// Evidence and explanation texts of synthetic verification entries.
const (
	evidenceNoDocuments    = "No documents available for verification"
	explanationNoDocuments = "Cannot verify claims without source documents"

	evidenceNotFound    = "Claim not found in verification results"
	explanationNotFound = "Verification system did not process this claim"

	explanationUnparsable = "Verification result for this claim could not be parsed"

	explanationSystemError = "Fact checking failed due to system error"
)

func (p *Pipeline) verifyClaims(ctx context.Context, s State) State {
	sc := scopeFrom(ctx)
	sc.emit(StageVerifyClaims, activity.LevelAgent, "Fact checker working")

	docs := s.ContextDocuments()
	if len(s.RerankedDocs) == 0 && len(s.RetrievedDocs) > 0 {
		sc.emit(StageVerifyClaims, activity.LevelWarning, "Using retrieved documents for fact checking")
	}

	switch {
	case len(s.ExtractedClaims) == 0:
		s.VerifiedClaims = map[string]rag.ClaimVerification{}
		sc.emit(StageVerifyClaims, activity.LevelWarning, "No claims to verify")
		return s
	case len(docs) == 0:
		s.VerifiedClaims = unverifiedAll(s.ExtractedClaims, evidenceNoDocuments, explanationNoDocuments)
		sc.emit(StageVerifyClaims, activity.LevelWarning, "No documents available, %d claims left unverified", len(s.ExtractedClaims))
		return s
	}

	prompt := fmt.Sprintf(verifyClaimsPrompt, plainContext(docs), numberedClaims(s.ExtractedClaims))
	out, err := p.completer.Complete(ctx, prompt)
	if err != nil {
		s.VerifiedClaims = unverifiedAll(s.ExtractedClaims, "System error: "+err.Error(), explanationSystemError)
		sc.emit(StageVerifyClaims, activity.LevelWarning, "Fact checking call failed: %v", err)
		return s
	}
	p.logger.Debug("fact checker response: %s", preview(out, responsePreviewLength))

	entries, ok := structured.ExtractEntries(out)
	if !ok {
		sc.emit(StageVerifyClaims, activity.LevelWarning, "Could not parse verification results")
	}
	s.VerifiedClaims = ReconcileVerifications(s.ExtractedClaims, entries)

	b := rag.Tally(s.VerifiedClaims)
	sc.emit(StageVerifyClaims, activity.LevelSuccess, "Verified %d claims: %d supported, %d partially supported, %d not supported, %d contradicted",
		b.Total(), b.Supported, b.PartiallySupported, b.NotSupported, b.Contradicted)
	return s
}

// ReconcileVerifications assigns every claim exactly one verification.
//
// A result entry matches claim i when its key contains the claim text or
// the label "Claim i" (1-based) not followed by another digit, so "Claim 1"
// does not match "Claim 10". The first matching entry in response order
// wins. Claims without a match get a NOT_SUPPORTED placeholder.
func ReconcileVerifications(claims []string, entries []structured.Entry) map[string]rag.ClaimVerification {
	out := make(map[string]rag.ClaimVerification, len(claims))
	for i, claim := range claims {
		label := regexp.MustCompile(fmt.Sprintf(`Claim %d(\D|$)`, i+1))
		cv := rag.NewUnverified(evidenceNotFound, explanationNotFound)
		for _, e := range entries {
			if !strings.Contains(e.Key, claim) && !label.MatchString(e.Key) {
				continue
			}
			if m, ok := e.Value.(map[string]any); ok {
				cv = rag.ClaimVerificationFromMap(m)
			} else {
				cv = rag.NewUnverified(fmt.Sprint(e.Value), explanationUnparsable)
			}
			break
		}
		out[claim] = cv
	}
	return out
}

func unverifiedAll(claims []string, evidence, explanation string) map[string]rag.ClaimVerification {
	out := make(map[string]rag.ClaimVerification, len(claims))
	for _, c := range claims {
		out[c] = rag.NewUnverified(evidence, explanation)
	}
	return out
}
