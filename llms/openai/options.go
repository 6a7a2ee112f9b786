package openai

import (
	"os"

	goopenai "github.com/sashabaranov/go-openai"
)

// Default model names.
const (
	DefaultChatModel      = goopenai.GPT4oMini
	DefaultEmbeddingModel = goopenai.SmallEmbedding3
)

type options struct {
	apiKey         string
	baseURL        string
	model          string
	embeddingModel goopenai.EmbeddingModel
	temperature    float32
	maxTokens      int
	systemPrompt   string
}

// Option is a function that configures the OpenAI adapters.
type Option func(*options)

// WithAPIKey sets the API key. Defaults to the OPENAI_API_KEY environment
// variable.
func WithAPIKey(apiKey string) Option {
	return func(opts *options) {
		opts.apiKey = apiKey
	}
}

// WithBaseURL points the client at an OpenAI compatible server.
func WithBaseURL(baseURL string) Option {
	return func(opts *options) {
		opts.baseURL = baseURL
	}
}

// WithModel sets the chat model.
func WithModel(model string) Option {
	return func(opts *options) {
		opts.model = model
	}
}

// WithEmbeddingModel sets the embedding model used by EmbeddingScorer.
func WithEmbeddingModel(model string) Option {
	return func(opts *options) {
		opts.embeddingModel = goopenai.EmbeddingModel(model)
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float32) Option {
	return func(opts *options) {
		opts.temperature = t
	}
}

// WithMaxTokens bounds the completion length.
func WithMaxTokens(n int) Option {
	return func(opts *options) {
		opts.maxTokens = n
	}
}

// WithSystemPrompt sends a system message ahead of every prompt.
func WithSystemPrompt(prompt string) Option {
	return func(opts *options) {
		opts.systemPrompt = prompt
	}
}

func newOptions(opts []Option) *options {
	o := &options{
		apiKey:         os.Getenv("OPENAI_API_KEY"),
		baseURL:        os.Getenv("OPENAI_BASE_URL"),
		model:          DefaultChatModel,
		embeddingModel: DefaultEmbeddingModel,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *options) client() (*goopenai.Client, error) {
	if o.apiKey == "" {
		return nil, ErrNotSetAuth
	}
	config := goopenai.DefaultConfig(o.apiKey)
	if o.baseURL != "" {
		config.BaseURL = o.baseURL
	}
	return goopenai.NewClientWithConfig(config), nil
}
