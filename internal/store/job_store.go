package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/amirhamza8927/aiseo-ai-backend/internal/model"
)

var (
	ErrNotFound         = errors.New("job not found")
	ErrAlreadyExists    = errors.New("job already exists")
	ErrAlreadyRunning   = errors.New("job already running")
	ErrAlreadyCompleted = errors.New("job already completed")
)

// JobStore is the concurrency-safe registry of job records
type JobStore interface {
	Create(ctx context.Context, id string, input model.JobInput) (*model.JobRecord, error)
	Get(ctx context.Context, id string) (*model.JobRecord, error)
	SetStatus(ctx context.Context, id string, status model.JobStatus, stage string) (*model.JobRecord, error)
	SetStage(ctx context.Context, id, stage string) (*model.JobRecord, error)
	SetError(ctx context.Context, id, message string) (*model.JobRecord, error)
	SetResult(ctx context.Context, id string, result *model.ArticleOutput) (*model.JobRecord, error)
	Claim(ctx context.Context, id, stage string) (*model.JobRecord, error)
	Delete(ctx context.Context, id string) error
}

type backend interface {
	get(ctx context.Context, id string) (*model.JobRecord, error)
	create(ctx context.Context, rec *model.JobRecord) error
	update(ctx context.Context, id string, fn func(rec *model.JobRecord) error) (*model.JobRecord, error)
	delete(ctx context.Context, id string) error
}

// Store implements JobStore on top of a record backend. Every mutation
// runs under one mutex as a load, copy, modify, store cycle, so concurrent
// writers never observe a half-applied update. The last writer wins.
type Store struct {
	mu      sync.Mutex
	backend backend
	now     func() time.Time
}

func newStore(b backend) *Store {
	return &Store{backend: b, now: time.Now}
}

// Create inserts a new pending record.
func (s *Store) Create(ctx context.Context, id string, input model.JobInput) (*model.JobRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	rec := &model.JobRecord{
		ID:        id,
		Status:    model.JobStatusPending,
		Input:     input,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.backend.create(ctx, rec); err != nil {
		return nil, err
	}
	return rec.Clone(), nil
}

// Get returns a copy of the record.
func (s *Store) Get(ctx context.Context, id string) (*model.JobRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backend.get(ctx, id)
}

// SetStatus sets the status and, when stage is not empty, the current stage.
// Any status other than completed drops the result.
func (s *Store) SetStatus(ctx context.Context, id string, status model.JobStatus, stage string) (*model.JobRecord, error) {
	return s.update(ctx, id, func(rec *model.JobRecord) error {
		rec.Status = status
		if status != model.JobStatusCompleted {
			rec.Result = nil
		}
		if stage != "" {
			rec.CurrentStage = stage
		}
		return nil
	})
}

// SetStage records the stage a running job is in.
func (s *Store) SetStage(ctx context.Context, id, stage string) (*model.JobRecord, error) {
	return s.update(ctx, id, func(rec *model.JobRecord) error {
		rec.CurrentStage = stage
		return nil
	})
}

// SetError marks the job failed with message and drops any result.
func (s *Store) SetError(ctx context.Context, id, message string) (*model.JobRecord, error) {
	return s.update(ctx, id, func(rec *model.JobRecord) error {
		rec.Status = model.JobStatusFailed
		rec.Error = &message
		rec.Result = nil
		return nil
	})
}

// SetResult stores the final article, marks the job completed and clears any error.
func (s *Store) SetResult(ctx context.Context, id string, result *model.ArticleOutput) (*model.JobRecord, error) {
	return s.update(ctx, id, func(rec *model.JobRecord) error {
		rec.Status = model.JobStatusCompleted
		rec.Result = result
		rec.Error = nil
		return nil
	})
}

// Claim moves a pending or failed job to running so that exactly one run
// can own it. A previous failure is cleared.
func (s *Store) Claim(ctx context.Context, id, stage string) (*model.JobRecord, error) {
	return s.update(ctx, id, func(rec *model.JobRecord) error {
		switch rec.Status {
		case model.JobStatusRunning:
			return ErrAlreadyRunning
		case model.JobStatusCompleted:
			return ErrAlreadyCompleted
		}
		rec.Status = model.JobStatusRunning
		rec.CurrentStage = stage
		rec.Error = nil
		return nil
	})
}

// Delete removes the record. Deleting an unknown id is a no-op.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backend.delete(ctx, id)
}

func (s *Store) update(ctx context.Context, id string, fn func(rec *model.JobRecord) error) (*model.JobRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.backend.update(ctx, id, func(rec *model.JobRecord) error {
		if err := fn(rec); err != nil {
			return err
		}
		rec.UpdatedAt = s.now()
		return nil
	})
}
