package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, handler http.HandlerFunc) string {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server.URL + "/v1"
}

func TestNewCompleter_RequiresAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, err := NewCompleter()
	assert.ErrorIs(t, err, ErrNotSetAuth)

	_, err = NewEmbeddingScorer()
	assert.ErrorIs(t, err, ErrNotSetAuth)
}

func TestCompleter_Complete(t *testing.T) {
	baseURL := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-test", body.Model)
		if assert.Len(t, body.Messages, 2) {
			assert.Equal(t, "system", body.Messages[0].Role)
			assert.Equal(t, "user", body.Messages[1].Role)
			assert.Equal(t, "Why are approvals delayed?", body.Messages[1].Content)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"chatcmpl-1","object":"chat.completion","created":1,"model":"gpt-test",
			"choices":[{"index":0,"message":{"role":"assistant","content":"  Waiting on sign-off.\n"},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":3,"completion_tokens":4,"total_tokens":7}}`))
	})

	c, err := NewCompleter(
		WithAPIKey("test-key"),
		WithBaseURL(baseURL),
		WithModel("gpt-test"),
		WithSystemPrompt("Be terse."),
	)
	require.NoError(t, err)

	out, err := c.Complete(context.Background(), "Why are approvals delayed?")
	require.NoError(t, err)
	assert.Equal(t, "Waiting on sign-off.", out)
}

func TestCompleter_NoChoices(t *testing.T) {
	baseURL := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"chatcmpl-1","object":"chat.completion","choices":[]}`))
	})

	c, err := NewCompleter(WithAPIKey("test-key"), WithBaseURL(baseURL))
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), "q")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestCompleter_APIError(t *testing.T) {
	baseURL := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	})

	c, err := NewCompleter(WithAPIKey("test-key"), WithBaseURL(baseURL))
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad key")
}

func TestEmbeddingScorer_Score(t *testing.T) {
	baseURL := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)

		var body struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []string{"query", "same direction", "orthogonal"}, body.Input)
		assert.Equal(t, "embed-test", body.Model)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"object":"list","model":"embed-test","data":[
			{"object":"embedding","index":2,"embedding":[0,1]},
			{"object":"embedding","index":0,"embedding":[1,0]},
			{"object":"embedding","index":1,"embedding":[2,0]}]}`))
	})

	s, err := NewEmbeddingScorer(WithAPIKey("test-key"), WithBaseURL(baseURL), WithEmbeddingModel("embed-test"))
	require.NoError(t, err)

	scores, err := s.Score(context.Background(), "query", []string{"same direction", "orthogonal"})
	require.NoError(t, err)
	require.Len(t, scores, 2)
	assert.InDelta(t, 1.0, scores[0], 1e-6)
	assert.InDelta(t, 0.0, scores[1], 1e-6)
}

func TestEmbeddingScorer_NoPassages(t *testing.T) {
	s, err := NewEmbeddingScorer(WithAPIKey("test-key"), WithBaseURL("http://127.0.0.1:1/v1"))
	require.NoError(t, err)

	scores, err := s.Score(context.Background(), "query", nil)
	require.NoError(t, err)
	assert.Empty(t, scores)
}
