package research

import (
	"context"
	"fmt"

	"github.com/smallnest/researchgraph/activity"
)

// NoDocumentsAnswer is the draft used when there is no context to reason
// over.
const NoDocumentsAnswer = "No relevant documents found to answer the query."

func (p *Pipeline) draft(ctx context.Context, s State) State {
	sc := scopeFrom(ctx)
	sc.emit(StageDraft, activity.LevelAgent, "Reasoning agent working")

	docs := s.ContextDocuments()
	if len(s.RerankedDocs) == 0 && len(s.RetrievedDocs) > 0 {
		sc.emit(StageDraft, activity.LevelWarning, "Using retrieved documents as fallback for reasoning")
	}
	if len(docs) == 0 {
		sc.emit(StageDraft, activity.LevelWarning, "No context documents, skipping the model call")
		s.DraftAnswer = NoDocumentsAnswer
		return s
	}

	prompt := fmt.Sprintf(draftPrompt, sourceTaggedContext(docs), s.Query())
	out, err := p.completer.Complete(ctx, prompt)
	if err != nil {
		return s.fail("%s: %v", failureLabel[StageDraft], err)
	}

	s.DraftAnswer = out
	sc.emit(StageDraft, activity.LevelSuccess, "Drafted answer from %d documents", len(docs))
	return s
}
