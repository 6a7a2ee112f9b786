package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/smallnest/researchgraph/log"
	"github.com/smallnest/researchgraph/rag"
)

// CachedCompleter memoizes completions in Redis, keyed by a hash of the
// namespace and the prompt. Cache failures are logged and fall through to the
// wrapped completer; errors from the completer are never cached.
type CachedCompleter struct {
	next      rag.Completer
	client    *redis.Client
	prefix    string
	namespace string
	ttl       time.Duration
	logger    log.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

var _ rag.Completer = (*CachedCompleter)(nil)

// CacheOption configures a CachedCompleter.
type CacheOption func(*CachedCompleter)

// WithNamespace separates cache entries, e.g. per model name. Completions
// from different models must not share a namespace.
func WithNamespace(ns string) CacheOption {
	return func(c *CachedCompleter) {
		c.namespace = ns
	}
}

// WithCacheLogger sets the logger for cache failures.
func WithCacheLogger(logger log.Logger) CacheOption {
	return func(c *CachedCompleter) {
		c.logger = logger
	}
}

// NewCachedCompleter wraps next with a cache stored through opts.
func NewCachedCompleter(next rag.Completer, opts Options, cacheOpts ...CacheOption) *CachedCompleter {
	return NewCachedCompleterWithClient(next, opts.client(), opts, cacheOpts...)
}

// NewCachedCompleterWithClient wraps next with a cache over an existing
// client. The connection fields of opts are ignored.
func NewCachedCompleterWithClient(next rag.Completer, client *redis.Client, opts Options, cacheOpts ...CacheOption) *CachedCompleter {
	c := &CachedCompleter{
		next:   next,
		client: client,
		prefix: opts.prefix(),
		ttl:    opts.TTL,
		logger: log.NoOpLogger{},
	}
	for _, opt := range cacheOpts {
		opt(c)
	}
	return c
}

func (c *CachedCompleter) key(prompt string) string {
	sum := sha256.Sum256([]byte(c.namespace + "\x00" + prompt))
	return c.prefix + "completion:" + hex.EncodeToString(sum[:])
}

// Complete returns the cached completion for prompt, calling the wrapped
// completer on a miss.
func (c *CachedCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	key := c.key(prompt)

	cached, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		c.hits.Add(1)
		return cached, nil
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("completion cache read failed: %v", err)
	}
	c.misses.Add(1)

	out, err := c.next.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}
	if err := c.client.Set(ctx, key, out, c.ttl).Err(); err != nil {
		c.logger.Warn("completion cache write failed: %v", err)
	}
	return out, nil
}

// Stats returns the number of cache hits and misses so far.
func (c *CachedCompleter) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
