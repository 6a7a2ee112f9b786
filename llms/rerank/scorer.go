package rerank

import (
	"context"
	"fmt"

	"github.com/smallnest/researchgraph/rag"
)

// Scorer scores passages with a remote cross-encoder.
type Scorer struct {
	client   *Client
	rawScore bool
}

var _ rag.Scorer = (*Scorer)(nil)

// NewScorer returns a Scorer backed by client. With rawScores the service's
// logits are used instead of sigmoid-normalized scores.
func NewScorer(client *Client, rawScores bool) *Scorer {
	return &Scorer{client: client, rawScore: rawScores}
}

// Score returns one score per passage, in passage order.
func (s *Scorer) Score(ctx context.Context, query string, passages []string) ([]float64, error) {
	if len(passages) == 0 {
		return []float64{}, nil
	}

	results, err := s.client.Rerank(ctx, &Request{
		Query:     query,
		Texts:     passages,
		RawScores: s.rawScore,
		Truncate:  true,
	})
	if err != nil {
		return nil, err
	}

	scores := make([]float64, len(passages))
	seen := make([]bool, len(passages))
	for _, r := range results {
		if r.Index < 0 || r.Index >= len(passages) {
			return nil, fmt.Errorf("%w: index %d out of range", ErrInvalidResponse, r.Index)
		}
		scores[r.Index] = r.Score
		seen[r.Index] = true
	}
	for i, ok := range seen {
		if !ok {
			return nil, fmt.Errorf("%w: no score for passage %d", ErrInvalidResponse, i)
		}
	}
	return scores, nil
}
