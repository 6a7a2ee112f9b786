package research

import (
	"fmt"
	"maps"
	"slices"

	"github.com/smallnest/researchgraph/rag"
)

// State is threaded through every stage of a run. Stages return an updated
// copy; they never modify slices or maps held by the state they received.
type State struct {
	RunID           string                           `json:"run_id"`
	OriginalQuery   string                           `json:"original_query"`
	RefinedQuery    string                           `json:"refined_query"`
	RetrievedDocs   []rag.Document                   `json:"retrieved_docs"`
	RerankedDocs    []rag.Document                   `json:"reranked_docs"`
	DraftAnswer     string                           `json:"draft_answer"`
	ExtractedClaims []string                         `json:"extracted_claims"`
	VerifiedClaims  map[string]rag.ClaimVerification `json:"verified_claims"`
	FinalAnswer     rag.FinalAnswer                  `json:"final_answer"`
	Error           string                           `json:"error,omitempty"`
}

// NewState creates the initial state for query.
func NewState(runID, query string) State {
	return State{
		RunID:           runID,
		OriginalQuery:   query,
		RetrievedDocs:   []rag.Document{},
		RerankedDocs:    []rag.Document{},
		ExtractedClaims: []string{},
		VerifiedClaims:  map[string]rag.ClaimVerification{},
	}
}

// Query returns the refined query, or the original one when refinement
// produced nothing.
func (s State) Query() string {
	if s.RefinedQuery != "" {
		return s.RefinedQuery
	}
	return s.OriginalQuery
}

// ContextDocuments returns the reranked documents, falling back to the
// retrieved ones when reranking produced none.
func (s State) ContextDocuments() []rag.Document {
	if len(s.RerankedDocs) > 0 {
		return s.RerankedDocs
	}
	return s.RetrievedDocs
}

// Failed reports whether a stage has recorded an error.
func (s State) Failed() bool {
	return s.Error != ""
}

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	out := s
	out.RetrievedDocs = rag.CloneDocuments(s.RetrievedDocs)
	out.RerankedDocs = rag.CloneDocuments(s.RerankedDocs)
	out.ExtractedClaims = slices.Clone(s.ExtractedClaims)
	out.VerifiedClaims = maps.Clone(s.VerifiedClaims)
	out.FinalAnswer.VerifiedSources = slices.Clone(s.FinalAnswer.VerifiedSources)
	return out
}

func (s State) fail(format string, args ...any) State {
	s.Error = fmt.Sprintf(format, args...)
	return s
}
