package research

import (
	"context"
	"fmt"
	"strings"

	"github.com/smallnest/researchgraph/rag"
)

// LLMRefiner rewrites queries with a completion model.
type LLMRefiner struct {
	completer rag.Completer
}

// NewLLMRefiner creates a refiner backed by completer.
func NewLLMRefiner(completer rag.Completer) *LLMRefiner {
	return &LLMRefiner{completer: completer}
}

// Refine returns the model's rewrite of query, trimmed.
func (r *LLMRefiner) Refine(ctx context.Context, query string) (string, error) {
	out, err := r.completer.Complete(ctx, fmt.Sprintf(refinePrompt, query))
	if err != nil {
		return "", err
	}
	return strings.Trim(strings.TrimSpace(out), `"`), nil
}
