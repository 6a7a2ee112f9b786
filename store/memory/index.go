package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/smallnest/researchgraph/rag"
)

// Index is an in-memory TF-IDF keyword index over documents. It is safe for
// concurrent use.
type Index struct {
	mu     sync.RWMutex
	docs   []rag.Document
	tokens [][]string
	df     map[string]int
}

var _ rag.Searcher = (*Index)(nil)

// NewIndex creates an index holding docs.
func NewIndex(docs ...rag.Document) *Index {
	ix := &Index{df: make(map[string]int)}
	ix.Add(docs...)
	return ix
}

// Add indexes copies of docs.
func (ix *Index) Add(docs ...rag.Document) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	for _, d := range docs {
		ix.docs = append(ix.docs, d.Clone())
		ix.tokens = append(ix.tokens, tokenize(d.Content))
	}
	ix.df = documentFrequencies(ix.tokens)
}

// Len returns the number of indexed documents.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.docs)
}

// Search returns up to k documents sharing terms with query, best first.
// Documents with no overlap are never returned. The similarity is recorded
// in the rag.MetadataSearchScore metadata key.
func (ix *Index) Search(ctx context.Context, query string, k int) ([]rag.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	q := weigh(tokenize(query), ix.df, len(ix.docs))
	if len(q) == 0 || k <= 0 {
		return []rag.Document{}, nil
	}

	type hit struct {
		pos   int
		score float64
	}
	hits := make([]hit, 0, len(ix.docs))
	for i, tokens := range ix.tokens {
		score := q.dot(weigh(tokens, ix.df, len(ix.docs)))
		if score > 0 {
			hits = append(hits, hit{pos: i, score: score})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	if len(hits) > k {
		hits = hits[:k]
	}

	out := make([]rag.Document, len(hits))
	for i, h := range hits {
		d := ix.docs[h.pos].Clone()
		if d.Metadata == nil {
			d.Metadata = make(map[string]any)
		}
		d.Metadata[rag.MetadataSearchScore] = h.score
		out[i] = d
	}
	return out, nil
}

// KeywordScorer scores passages by TF-IDF cosine similarity to the query,
// with term statistics taken from the passages being scored.
type KeywordScorer struct{}

var _ rag.Scorer = KeywordScorer{}

// Score returns one score in [0, 1] per passage.
func (KeywordScorer) Score(ctx context.Context, query string, passages []string) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tokens := make([][]string, len(passages))
	for i, p := range passages {
		tokens[i] = tokenize(p)
	}
	df := documentFrequencies(tokens)
	q := weigh(tokenize(query), df, len(passages))

	scores := make([]float64, len(passages))
	for i := range passages {
		scores[i] = q.dot(weigh(tokens[i], df, len(passages)))
	}
	return scores, nil
}
