package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/smallnest/researchgraph/rag"
)

var (
	ErrNotSetAuth    = errors.New("openai: API key not set")
	ErrEmptyResponse = errors.New("openai: empty response")
)

// Completer implements rag.Completer with the chat completions API.
type Completer struct {
	client *goopenai.Client
	opts   *options
}

var _ rag.Completer = (*Completer)(nil)

// NewCompleter returns a chat completer.
//
//	c, err := openai.NewCompleter(openai.WithModel("gpt-4o"))
func NewCompleter(opts ...Option) (*Completer, error) {
	o := newOptions(opts)
	client, err := o.client()
	if err != nil {
		return nil, err
	}
	return &Completer{client: client, opts: o}, nil
}

// Complete sends prompt as a single user message and returns the first
// choice.
func (c *Completer) Complete(ctx context.Context, prompt string) (string, error) {
	messages := make([]goopenai.ChatCompletionMessage, 0, 2)
	if c.opts.systemPrompt != "" {
		messages = append(messages, goopenai.ChatCompletionMessage{
			Role:    goopenai.ChatMessageRoleSystem,
			Content: c.opts.systemPrompt,
		})
	}
	messages = append(messages, goopenai.ChatCompletionMessage{
		Role:    goopenai.ChatMessageRoleUser,
		Content: prompt,
	})

	resp, err := c.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:       c.opts.model,
		Messages:    messages,
		Temperature: c.opts.temperature,
		MaxTokens:   c.opts.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// EmbeddingScorer implements rag.Scorer by cosine similarity of OpenAI
// embeddings. The query and all passages are embedded in one request.
type EmbeddingScorer struct {
	client *goopenai.Client
	model  goopenai.EmbeddingModel
}

var _ rag.Scorer = (*EmbeddingScorer)(nil)

// NewEmbeddingScorer returns an embedding based scorer.
func NewEmbeddingScorer(opts ...Option) (*EmbeddingScorer, error) {
	o := newOptions(opts)
	client, err := o.client()
	if err != nil {
		return nil, err
	}
	return &EmbeddingScorer{client: client, model: o.embeddingModel}, nil
}

// Score returns the cosine similarity of every passage to query.
func (s *EmbeddingScorer) Score(ctx context.Context, query string, passages []string) ([]float64, error) {
	if len(passages) == 0 {
		return []float64{}, nil
	}

	input := append([]string{query}, passages...)
	resp, err := s.client.CreateEmbeddings(ctx, goopenai.EmbeddingRequest{
		Input: input,
		Model: s.model,
	})
	if err != nil {
		return nil, fmt.Errorf("create embeddings: %w", err)
	}
	if len(resp.Data) != len(input) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d inputs", ErrEmptyResponse, len(resp.Data), len(input))
	}

	vectors := make([][]float32, len(input))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(input) {
			return nil, fmt.Errorf("%w: embedding index %d out of range", ErrEmptyResponse, d.Index)
		}
		vectors[d.Index] = d.Embedding
	}

	scores := make([]float64, len(passages))
	for i := range passages {
		scores[i] = rag.CosineSimilarity(vectors[0], vectors[i+1])
	}
	return scores, nil
}
