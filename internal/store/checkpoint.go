package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/amirhamza8927/aiseo-ai-backend/internal/model"
)

var ErrNoCheckpoint = errors.New("no checkpoint for job")

// MemoryCheckpoints keeps one encoded pipeline snapshot per job id.
type MemoryCheckpoints struct {
	mu     sync.RWMutex
	states map[string][]byte
}

func NewMemoryCheckpoints() *MemoryCheckpoints {
	return &MemoryCheckpoints{states: make(map[string][]byte)}
}

// Save replaces the snapshot for jobID.
func (c *MemoryCheckpoints) Save(_ context.Context, jobID string, state *model.PipelineState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}
	c.mu.Lock()
	c.states[jobID] = data
	c.mu.Unlock()
	return nil
}

// Load returns the last snapshot saved for jobID.
func (c *MemoryCheckpoints) Load(_ context.Context, jobID string) (*model.PipelineState, error) {
	c.mu.RLock()
	data, ok := c.states[jobID]
	c.mu.RUnlock()
	if !ok {
		return nil, ErrNoCheckpoint
	}
	return decodeState(data)
}

// Delete drops the snapshot for jobID, if any.
func (c *MemoryCheckpoints) Delete(_ context.Context, jobID string) error {
	c.mu.Lock()
	delete(c.states, jobID)
	c.mu.Unlock()
	return nil
}

// RedisCheckpoints keeps snapshots under checkpoint:<id>.
type RedisCheckpoints struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewRedisCheckpoints(redisClient *redis.Client, ttl time.Duration) *RedisCheckpoints {
	return &RedisCheckpoints{redis: redisClient, ttl: ttl}
}

func checkpointKey(jobID string) string {
	return fmt.Sprintf("checkpoint:%s", jobID)
}

func (c *RedisCheckpoints) Save(ctx context.Context, jobID string, state *model.PipelineState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}
	return c.redis.Set(ctx, checkpointKey(jobID), data, c.ttl).Err()
}

func (c *RedisCheckpoints) Load(ctx context.Context, jobID string) (*model.PipelineState, error) {
	data, err := c.redis.Get(ctx, checkpointKey(jobID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNoCheckpoint
		}
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	return decodeState(data)
}

func (c *RedisCheckpoints) Delete(ctx context.Context, jobID string) error {
	return c.redis.Del(ctx, checkpointKey(jobID)).Err()
}

func decodeState(data []byte) (*model.PipelineState, error) {
	var state model.PipelineState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkpoint: %w", err)
	}
	return &state, nil
}
