package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/smallnest/researchgraph/log"
)

var (
	ErrNoBaseURL       = errors.New("rerank: base URL not set")
	ErrEmptyResponse   = errors.New("rerank: empty response")
	ErrInvalidResponse = errors.New("rerank: invalid response")
)

const defaultRerankEndpoint = "/rerank"

// Client talks to a cross-encoder service exposing a text-embeddings-inference
// style "/rerank" endpoint. Requests are retried on connection errors and 5xx
// responses.
type Client struct {
	apiKey     string
	baseURL    string
	endpoint   string
	httpClient *retryablehttp.Client
}

// Option is a function that configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	apiKey     string
	baseURL    string
	endpoint   string
	retryMax   int
	timeout    time.Duration
	logger     log.Logger
	httpClient *retryablehttp.Client
}

// WithAPIKey sets a bearer token sent with every request.
func WithAPIKey(apiKey string) Option {
	return func(opts *clientOptions) {
		opts.apiKey = apiKey
	}
}

// WithBaseURL sets the base URL of the service.
func WithBaseURL(baseURL string) Option {
	return func(opts *clientOptions) {
		opts.baseURL = baseURL
	}
}

// WithEndpoint overrides the "/rerank" path.
func WithEndpoint(endpoint string) Option {
	return func(opts *clientOptions) {
		opts.endpoint = endpoint
	}
}

// WithRetryMax sets the maximum number of retries.
func WithRetryMax(n int) Option {
	return func(opts *clientOptions) {
		opts.retryMax = n
	}
}

// WithTimeout sets the per-attempt HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(opts *clientOptions) {
		opts.timeout = d
	}
}

// WithLogger routes retry diagnostics to logger.
func WithLogger(logger log.Logger) Option {
	return func(opts *clientOptions) {
		opts.logger = logger
	}
}

// WithHTTPClient replaces the retrying HTTP client. The retry and timeout
// options are ignored when it is set.
func WithHTTPClient(client *retryablehttp.Client) Option {
	return func(opts *clientOptions) {
		opts.httpClient = client
	}
}

// New creates a new Client with the given options.
func New(opts ...Option) (*Client, error) {
	options := &clientOptions{
		endpoint: defaultRerankEndpoint,
		retryMax: 3,
		timeout:  30 * time.Second,
		logger:   log.NoOpLogger{},
	}
	for _, opt := range opts {
		opt(options)
	}

	if options.baseURL == "" {
		return nil, ErrNoBaseURL
	}

	httpClient := options.httpClient
	if httpClient == nil {
		httpClient = retryablehttp.NewClient()
		httpClient.RetryMax = options.retryMax
		httpClient.HTTPClient.Timeout = options.timeout
		httpClient.Logger = leveledLogger{options.logger}
	}

	return &Client{
		apiKey:     options.apiKey,
		baseURL:    strings.TrimSuffix(options.baseURL, "/"),
		endpoint:   options.endpoint,
		httpClient: httpClient,
	}, nil
}

// Request is the body of a rerank call.
type Request struct {
	Query     string   `json:"query"`
	Texts     []string `json:"texts"`
	RawScores bool     `json:"raw_scores"`
	Truncate  bool     `json:"truncate"`
}

// Result is the score of the text at Index in the request.
type Result struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// errorResponse is returned by the service on failure.
type errorResponse struct {
	Error     string `json:"error"`
	ErrorType string `json:"error_type"`
}

// Rerank scores texts against query. Results come back in the order the
// service returns them, usually best first.
func (c *Client) Rerank(ctx context.Context, req *Request) ([]Result, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var er errorResponse
		if json.Unmarshal(respBody, &er) == nil && er.Error != "" {
			return nil, fmt.Errorf("unexpected status code: %d: %s", resp.StatusCode, er.Error)
		}
		return nil, fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, string(respBody))
	}

	var results []Result
	if err := json.Unmarshal(respBody, &results); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if len(results) == 0 && len(req.Texts) > 0 {
		return nil, ErrEmptyResponse
	}
	return results, nil
}

func (c *Client) setHeaders(req *retryablehttp.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

// leveledLogger adapts log.Logger to retryablehttp.LeveledLogger.
type leveledLogger struct {
	logger log.Logger
}

func (l leveledLogger) Error(msg string, kv ...any) { l.logger.Error("%s %v", msg, kv) }
func (l leveledLogger) Info(msg string, kv ...any)  { l.logger.Debug("%s %v", msg, kv) }
func (l leveledLogger) Debug(msg string, kv ...any) { l.logger.Debug("%s %v", msg, kv) }
func (l leveledLogger) Warn(msg string, kv ...any)  { l.logger.Warn("%s %v", msg, kv) }
