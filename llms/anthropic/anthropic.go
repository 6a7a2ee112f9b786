package anthropic

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"

	"github.com/smallnest/researchgraph/rag"
)

var (
	ErrNotSetAuth    = errors.New("anthropic: API key not set")
	ErrEmptyResponse = errors.New("anthropic: empty response")
)

// Default request settings.
const (
	DefaultModel     = "claude-sonnet-4-5-20250929"
	DefaultMaxTokens = 4096
)

// Config holds Anthropic completer configuration.
type Config struct {
	APIKey       string
	BaseURL      string
	Model        string
	MaxTokens    int64
	Temperature  float64
	SystemPrompt string
	// MaxRetries overrides the SDK retry count when non-negative.
	MaxRetries int
}

// DefaultConfig returns the default configuration, reading the API key from
// ANTHROPIC_API_KEY.
func DefaultConfig() Config {
	return Config{
		APIKey:     os.Getenv("ANTHROPIC_API_KEY"),
		Model:      DefaultModel,
		MaxTokens:  DefaultMaxTokens,
		MaxRetries: -1,
	}
}

// Completer implements rag.Completer with the Messages API.
type Completer struct {
	config Config
	client anthropic.Client
}

var _ rag.Completer = (*Completer)(nil)

// NewCompleter creates a completer from config.
func NewCompleter(config Config) (*Completer, error) {
	if config.APIKey == "" {
		return nil, ErrNotSetAuth
	}
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = DefaultMaxTokens
	}

	opts := []option.RequestOption{option.WithAPIKey(config.APIKey)}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}
	if config.MaxRetries >= 0 {
		opts = append(opts, option.WithMaxRetries(config.MaxRetries))
	}

	return &Completer{
		config: config,
		client: anthropic.NewClient(opts...),
	}, nil
}

// Complete sends prompt as a single user turn and joins the text blocks of
// the reply.
func (c *Completer) Complete(ctx context.Context, prompt string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.config.Model),
		MaxTokens: c.config.MaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if c.config.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: c.config.SystemPrompt}}
	}
	if c.config.Temperature > 0 {
		params.Temperature = param.NewOpt(c.config.Temperature)
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("create message: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return strings.TrimSpace(sb.String()), nil
}
