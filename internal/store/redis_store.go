package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/amirhamza8927/aiseo-ai-backend/internal/model"
)

const maxWatchRetries = 5

type redisBackend struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewRedisStore returns a store that keeps records under job:<id>. A zero
// ttl keeps records until they are deleted.
func NewRedisStore(redisClient *redis.Client, ttl time.Duration) *Store {
	return newStore(&redisBackend{redis: redisClient, ttl: ttl})
}

func jobKey(id string) string {
	return fmt.Sprintf("job:%s", id)
}

func (r *redisBackend) get(ctx context.Context, id string) (*model.JobRecord, error) {
	data, err := r.redis.Get(ctx, jobKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load job: %w", err)
	}
	return decodeRecord(data)
}

func (r *redisBackend) create(ctx context.Context, rec *model.JobRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	ok, err := r.redis.SetNX(ctx, jobKey(rec.ID), data, r.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}
	if !ok {
		return ErrAlreadyExists
	}
	return nil
}

func (r *redisBackend) update(ctx context.Context, id string, fn func(rec *model.JobRecord) error) (*model.JobRecord, error) {
	key := jobKey(id)
	var updated *model.JobRecord

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return ErrNotFound
			}
			return err
		}
		rec, err := decodeRecord(data)
		if err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
		out, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, redis.KeepTTL)
			return nil
		})
		if err == nil {
			updated = rec
		}
		return err
	}

	for i := 0; i < maxWatchRetries; i++ {
		err := r.redis.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return updated, nil
	}
	return nil, fmt.Errorf("failed to update job %s: too much contention", id)
}

func (r *redisBackend) delete(ctx context.Context, id string) error {
	return r.redis.Del(ctx, jobKey(id)).Err()
}

func decodeRecord(data []byte) (*model.JobRecord, error) {
	var rec model.JobRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	return &rec, nil
}
