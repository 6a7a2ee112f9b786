package rerank

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientNew(t *testing.T) {
	tests := []struct {
		name    string
		opts    []Option
		wantErr error
	}{
		{
			name:    "no base url",
			opts:    []Option{WithAPIKey("k")},
			wantErr: ErrNoBaseURL,
		},
		{
			name: "with base url",
			opts: []Option{WithBaseURL("http://localhost:8080/")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.opts...)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "http://localhost:8080", c.baseURL)
		})
	}
}

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c, err := New(
		WithBaseURL(server.URL),
		WithAPIKey("test-key"),
		WithRetryMax(2),
		WithTimeout(5*time.Second),
	)
	require.NoError(t, err)
	c.httpClient.RetryWaitMin = time.Millisecond
	c.httpClient.RetryWaitMax = time.Millisecond
	return c
}

func TestClientRerank(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rerank", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req Request
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "approval delays", req.Query)
		assert.Equal(t, []string{"a", "b"}, req.Texts)

		w.Write([]byte(`[{"index":1,"score":0.9},{"index":0,"score":0.2}]`))
	})

	results, err := c.Rerank(context.Background(), &Request{Query: "approval delays", Texts: []string{"a", "b"}})
	require.NoError(t, err)
	assert.Equal(t, []Result{{Index: 1, Score: 0.9}, {Index: 0, Score: 0.2}}, results)
}

func TestClientRerank_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`[{"index":0,"score":0.5}]`))
	})

	results, err := c.Rerank(context.Background(), &Request{Query: "q", Texts: []string{"a"}})
	require.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClientRerank_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
		wantMsg string
	}{
		{name: "bad request", status: http.StatusBadRequest, body: `{"error":"texts too long","error_type":"validation"}`, wantMsg: "texts too long"},
		{name: "invalid json", status: http.StatusOK, body: `{"index":`, wantErr: ErrInvalidResponse},
		{name: "empty", status: http.StatusOK, body: `[]`, wantErr: ErrEmptyResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := c.Rerank(context.Background(), &Request{Query: "q", Texts: []string{"a"}})
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestScorer(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"index":2,"score":0.7},{"index":0,"score":0.4},{"index":1,"score":0.1}]`))
	})

	scores, err := NewScorer(c, false).Score(context.Background(), "q", []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, []float64{0.4, 0.1, 0.7}, scores)
}

func TestScorer_MissingIndex(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"index":0,"score":0.4}]`))
	})

	_, err := NewScorer(c, false).Score(context.Background(), "q", []string{"a", "b"})
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestScorer_NoPassages(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("service must not be called")
	})

	scores, err := NewScorer(c, false).Score(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Empty(t, scores)
}
