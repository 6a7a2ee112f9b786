package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/smallnest/researchgraph/research"
	"github.com/smallnest/researchgraph/store"
)

// DefaultPrefix is prepended to every key.
const DefaultPrefix = "researchgraph:"

// Options configures the Redis connection and key layout.
type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string        // Key prefix, default DefaultPrefix
	TTL      time.Duration // Expiration for stored values, default 0 (no expiration)
}

func (o Options) client() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     o.Addr,
		Password: o.Password,
		DB:       o.DB,
	})
}

func (o Options) prefix() string {
	if o.Prefix == "" {
		return DefaultPrefix
	}
	return o.Prefix
}

// CheckpointStore implements research.CheckpointStore using Redis. The
// checkpoints of a run are indexed in a sorted set scored by step.
type CheckpointStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

var _ research.CheckpointStore = (*CheckpointStore)(nil)

// NewCheckpointStore creates a new Redis checkpoint store.
func NewCheckpointStore(opts Options) *CheckpointStore {
	return NewCheckpointStoreWithClient(opts.client(), opts)
}

// NewCheckpointStoreWithClient creates a store over an existing client. The
// connection fields of opts are ignored.
func NewCheckpointStoreWithClient(client *redis.Client, opts Options) *CheckpointStore {
	return &CheckpointStore{
		client: client,
		prefix: opts.prefix(),
		ttl:    opts.TTL,
	}
}

func (s *CheckpointStore) checkpointKey(id string) string {
	return fmt.Sprintf("%scheckpoint:%s", s.prefix, id)
}

func (s *CheckpointStore) runKey(id string) string {
	return fmt.Sprintf("%srun:%s:checkpoints", s.prefix, id)
}

// Save stores a checkpoint and indexes it under its run.
func (s *CheckpointStore) Save(ctx context.Context, checkpoint *research.Checkpoint) error {
	data, err := json.Marshal(checkpoint)
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	runKey := s.runKey(checkpoint.RunID)
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.checkpointKey(checkpoint.ID), data, s.ttl)
	pipe.ZAdd(ctx, runKey, redis.Z{Score: float64(checkpoint.Step), Member: checkpoint.ID})
	if s.ttl > 0 {
		pipe.Expire(ctx, runKey, s.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save checkpoint to redis: %w", err)
	}
	return nil
}

// Load retrieves a checkpoint by ID.
func (s *CheckpointStore) Load(ctx context.Context, checkpointID string) (*research.Checkpoint, error) {
	data, err := s.client.Get(ctx, s.checkpointKey(checkpointID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, store.NotFound(checkpointID)
		}
		return nil, fmt.Errorf("failed to load checkpoint from redis: %w", err)
	}

	var cp research.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkpoint: %w", err)
	}
	return &cp, nil
}

// List returns the checkpoints of a run ordered by step. Index entries whose
// checkpoint has expired are skipped.
func (s *CheckpointStore) List(ctx context.Context, runID string) ([]*research.Checkpoint, error) {
	ids, err := s.client.ZRange(ctx, s.runKey(runID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints for run %s: %w", runID, err)
	}
	if len(ids) == 0 {
		return []*research.Checkpoint{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.checkpointKey(id)
	}
	results, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch checkpoints: %w", err)
	}

	checkpoints := make([]*research.Checkpoint, 0, len(results))
	for i, result := range results {
		data, ok := result.(string)
		if !ok {
			continue
		}
		var cp research.Checkpoint
		if err := json.Unmarshal([]byte(data), &cp); err != nil {
			return nil, fmt.Errorf("failed to unmarshal checkpoint %s: %w", ids[i], err)
		}
		checkpoints = append(checkpoints, &cp)
	}
	store.SortByStep(checkpoints)
	return checkpoints, nil
}

// Delete removes a checkpoint. Deleting a missing checkpoint is not an error.
func (s *CheckpointStore) Delete(ctx context.Context, checkpointID string) error {
	cp, err := s.Load(ctx, checkpointID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.checkpointKey(checkpointID))
	pipe.ZRem(ctx, s.runKey(cp.RunID), checkpointID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}

// Clear removes all checkpoints of a run.
func (s *CheckpointStore) Clear(ctx context.Context, runID string) error {
	runKey := s.runKey(runID)
	ids, err := s.client.ZRange(ctx, runKey, 0, -1).Result()
	if err != nil {
		return fmt.Errorf("failed to get checkpoints for clearing: %w", err)
	}

	pipe := s.client.TxPipeline()
	for _, id := range ids {
		pipe.Del(ctx, s.checkpointKey(id))
	}
	pipe.Del(ctx, runKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to clear checkpoints: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (s *CheckpointStore) Close() error {
	return s.client.Close()
}
