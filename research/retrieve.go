package research

import (
	"context"

	"github.com/smallnest/researchgraph/activity"
	"github.com/smallnest/researchgraph/rag"
)

const previewLength = 100

func (p *Pipeline) retrieve(ctx context.Context, s State) State {
	sc := scopeFrom(ctx)
	sc.emit(StageRetrieve, activity.LevelAgent, "Retrieval agent working")

	docs, err := p.searcher.Search(ctx, s.Query(), p.opts.RetrieveTopK)
	if err != nil {
		return s.fail("%s: %v", failureLabel[StageRetrieve], err)
	}

	s.RetrievedDocs = rag.CloneDocuments(docs)
	if s.RetrievedDocs == nil {
		s.RetrievedDocs = []rag.Document{}
	}

	if len(s.RetrievedDocs) == 0 {
		sc.emit(StageRetrieve, activity.LevelWarning, "No documents matched the query")
		return s
	}
	sc.emit(StageRetrieve, activity.LevelSuccess, "Retrieved %d documents", len(s.RetrievedDocs))
	for i, d := range s.RetrievedDocs {
		sc.emit(StageRetrieve, activity.LevelInfo, "%d. [%s] %s", i+1, d.SourceOr(i), preview(d.Content, previewLength))
	}
	return s
}

// preview returns at most n runes of s, marking truncation with "...".
func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
