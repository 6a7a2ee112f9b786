package research

import (
	"context"
	"math"
	"sort"

	"github.com/smallnest/researchgraph/activity"
	"github.com/smallnest/researchgraph/rag"
)

// ScoredPassage is a passage and its relevance score, as returned by a
// cross-encoder. It carries no metadata.
type ScoredPassage struct {
	Content string
	Score   float64
}

func (p *Pipeline) rerank(ctx context.Context, s State) State {
	sc := scopeFrom(ctx)
	sc.emit(StageRerank, activity.LevelAgent, "Reranker agent working")

	if len(s.RetrievedDocs) == 0 {
		sc.emit(StageRerank, activity.LevelWarning, "No documents to rerank")
		s.RerankedDocs = []rag.Document{}
		return s
	}

	passages := make([]string, len(s.RetrievedDocs))
	for i, d := range s.RetrievedDocs {
		passages[i] = d.Content
	}
	scores, err := p.scorer.Score(ctx, s.Query(), passages)
	if err != nil {
		return s.fail("%s: %v", failureLabel[StageRerank], err)
	}
	if len(scores) != len(passages) {
		return s.fail("%s: scorer returned %d scores for %d passages", failureLabel[StageRerank], len(scores), len(passages))
	}

	ranked := RankPassages(passages, scores, p.opts.RerankTopK)
	docs, dropped := JoinByContent(ranked, s.RetrievedDocs)
	for _, d := range dropped {
		sc.emit(StageRerank, activity.LevelWarning, "Dropped ranked passage with no matching document: %s", preview(d.Content, previewLength))
	}

	s.RerankedDocs = docs
	sc.emit(StageRerank, activity.LevelSuccess, "Reranked top %d of %d documents", len(docs), len(passages))
	return s
}

// RankPassages pairs passages with scores, sorts them by descending score and
// keeps the first topK. Ties keep their input order. NaN scores rank last.
func RankPassages(passages []string, scores []float64, topK int) []ScoredPassage {
	n := min(len(passages), len(scores))
	ranked := make([]ScoredPassage, n)
	for i := range n {
		score := scores[i]
		if math.IsNaN(score) {
			score = math.Inf(-1)
		}
		ranked[i] = ScoredPassage{Content: passages[i], Score: score}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	if topK >= 0 && len(ranked) > topK {
		ranked = ranked[:topK]
	}
	return ranked
}

// JoinByContent maps ranked passages back to the original documents by exact
// content equality and returns copies carrying the ranked score.
//
// When several originals share the same content, ranked passages take them
// in original order, so each original is used at most once. Passages with no
// unused match are returned in dropped.
func JoinByContent(ranked []ScoredPassage, originals []rag.Document) (joined []rag.Document, dropped []ScoredPassage) {
	byContent := make(map[string][]int, len(originals))
	for i, d := range originals {
		byContent[d.Content] = append(byContent[d.Content], i)
	}

	joined = make([]rag.Document, 0, len(ranked))
	for _, r := range ranked {
		positions := byContent[r.Content]
		if len(positions) == 0 {
			dropped = append(dropped, r)
			continue
		}
		byContent[r.Content] = positions[1:]
		joined = append(joined, originals[positions[0]].WithScore(r.Score))
	}
	return joined, dropped
}
