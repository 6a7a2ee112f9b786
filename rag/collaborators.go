package rag

import "context"

// Refiner rewrites a user query into a clearer search question.
type Refiner interface {
	Refine(ctx context.Context, query string) (string, error)
}

// Searcher returns up to k documents for a query, best match first.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]Document, error)
}

// Scorer scores each passage against the query. The result has the same
// length and order as passages.
type Scorer interface {
	Score(ctx context.Context, query string, passages []string) ([]float64, error)
}

// Completer performs a single free-form text completion.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// RefinerFunc adapts a function to the Refiner interface.
type RefinerFunc func(ctx context.Context, query string) (string, error)

// Refine calls f(ctx, query).
func (f RefinerFunc) Refine(ctx context.Context, query string) (string, error) {
	return f(ctx, query)
}

// SearcherFunc adapts a function to the Searcher interface.
type SearcherFunc func(ctx context.Context, query string, k int) ([]Document, error)

// Search calls f(ctx, query, k).
func (f SearcherFunc) Search(ctx context.Context, query string, k int) ([]Document, error) {
	return f(ctx, query, k)
}

// ScorerFunc adapts a function to the Scorer interface.
type ScorerFunc func(ctx context.Context, query string, passages []string) ([]float64, error)

// Score calls f(ctx, query, passages).
func (f ScorerFunc) Score(ctx context.Context, query string, passages []string) ([]float64, error) {
	return f(ctx, query, passages)
}

// CompleterFunc adapts a function to the Completer interface.
type CompleterFunc func(ctx context.Context, prompt string) (string, error)

// Complete calls f(ctx, prompt).
func (f CompleterFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
