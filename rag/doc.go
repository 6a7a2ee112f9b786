// Package rag defines the records and collaborator contracts shared by the
// research pipeline.
//
// # Records
//
// Document is a retrieved text unit with source metadata and an optional
// relevance score set by reranking. ClaimVerification records how one claim
// fared against the context documents, and FinalAnswer is the terminal
// output of a run with its ClaimBreakdown.
//
// AggregateConfidence folds a set of claim verifications into a single score
// in [0, 100]:
//
//	verified := map[string]rag.ClaimVerification{
//		"Paris is the capital of France": {Status: rag.StatusSupported, Confidence: 90},
//		"Paris has two million people":   {Status: rag.StatusContradicted, Confidence: 80},
//	}
//	score := rag.AggregateConfidence(verified) // 45
//
// # Collaborators
//
// The pipeline talks to the outside world through four small interfaces:
//
//	type Refiner interface   { Refine(ctx, query) (string, error) }
//	type Searcher interface  { Search(ctx, query, k) ([]Document, error) }
//	type Scorer interface    { Score(ctx, query, passages) ([]float64, error) }
//	type Completer interface { Complete(ctx, prompt) (string, error) }
//
// Each has a Func adapter for tests and small closures. The langchaingo
// adapters in this package connect llms.Model, vectorstores.VectorStore and
// embeddings.Embedder implementations:
//
//	completer := rag.NewLangChainCompleter(llm)
//	searcher := rag.NewLangChainSearcher(store)
//	scorer := rag.NewLangChainEmbeddingScorer(embedder)
//
// # Ingestion
//
// The loader and splitter subpackages turn plain-text files into documents
// for the in-memory searcher.
package rag // import "github.com/smallnest/researchgraph/rag"
