package rag

import (
	"context"
	"fmt"
	"maps"
	"math"

	"github.com/tmc/langchaingo/documentloaders"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/vectorstores"
)

// MetadataSearchScore is the metadata key under which search-backend
// similarity scores are kept.
const MetadataSearchScore = "_score"

// LangChainCompleter adapts a langchaingo llms.Model to the Completer interface
type LangChainCompleter struct {
	model   llms.Model
	options []llms.CallOption
}

// NewLangChainCompleter creates a Completer backed by model. The call options
// are applied to every completion.
func NewLangChainCompleter(model llms.Model, options ...llms.CallOption) *LangChainCompleter {
	return &LangChainCompleter{model: model, options: options}
}

// Complete sends prompt as a single human message.
func (c *LangChainCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	out, err := llms.GenerateFromSinglePrompt(ctx, c.model, prompt, c.options...)
	if err != nil {
		return "", fmt.Errorf("langchain completion: %w", err)
	}
	return out, nil
}

// LangChainSearcher adapts langchaingo's vectorstores.VectorStore to the
// Searcher interface
type LangChainSearcher struct {
	store   vectorstores.VectorStore
	options []vectorstores.Option
}

// NewLangChainSearcher creates a Searcher over store.
func NewLangChainSearcher(store vectorstores.VectorStore, options ...vectorstores.Option) *LangChainSearcher {
	return &LangChainSearcher{store: store, options: options}
}

// Search runs a similarity search and converts the results.
func (s *LangChainSearcher) Search(ctx context.Context, query string, k int) ([]Document, error) {
	docs, err := s.store.SimilaritySearch(ctx, query, k, s.options...)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	return convertSchemaDocuments(docs), nil
}

// LangChainEmbeddingScorer scores passages by cosine similarity between the
// query embedding and each passage embedding.
type LangChainEmbeddingScorer struct {
	embedder embeddings.Embedder
}

// NewLangChainEmbeddingScorer creates a Scorer backed by embedder.
func NewLangChainEmbeddingScorer(embedder embeddings.Embedder) *LangChainEmbeddingScorer {
	return &LangChainEmbeddingScorer{embedder: embedder}
}

// Score embeds the query and passages and returns their cosine similarities.
func (s *LangChainEmbeddingScorer) Score(ctx context.Context, query string, passages []string) ([]float64, error) {
	if len(passages) == 0 {
		return []float64{}, nil
	}
	q, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	vecs, err := s.embedder.EmbedDocuments(ctx, passages)
	if err != nil {
		return nil, fmt.Errorf("embed passages: %w", err)
	}
	if len(vecs) != len(passages) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d passages", len(vecs), len(passages))
	}
	scores := make([]float64, len(vecs))
	for i, v := range vecs {
		scores[i] = CosineSimilarity(q, v)
	}
	return scores, nil
}

// CosineSimilarity returns the cosine of the angle between a and b, or 0 when
// the vectors differ in length or either is zero.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// LoadLangChainDocuments loads documents through a langchaingo loader. When
// extra is non-nil its entries are merged into every document's metadata.
func LoadLangChainDocuments(ctx context.Context, loader documentloaders.Loader, extra map[string]any) ([]Document, error) {
	schemaDocs, err := loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	docs := convertSchemaDocuments(schemaDocs)
	if extra != nil {
		for i := range docs {
			maps.Copy(docs[i].Metadata, extra)
		}
	}
	return docs, nil
}

// ToSchemaDocuments converts documents for a langchaingo vector store.
func ToSchemaDocuments(docs []Document) []schema.Document {
	out := make([]schema.Document, len(docs))
	for i, d := range docs {
		out[i] = schema.Document{
			PageContent: d.Content,
			Metadata:    maps.Clone(d.Metadata),
		}
	}
	return out
}

// convertSchemaDocuments converts langchaingo schema.Document to our Document type
func convertSchemaDocuments(schemaDocs []schema.Document) []Document {
	docs := make([]Document, 0, len(schemaDocs))
	for _, sd := range schemaDocs {
		md := make(map[string]any, len(sd.Metadata)+1)
		maps.Copy(md, sd.Metadata)
		if sd.Score != 0 {
			md[MetadataSearchScore] = float64(sd.Score)
		}
		docs = append(docs, Document{Content: sd.PageContent, Metadata: md})
	}
	return docs
}
