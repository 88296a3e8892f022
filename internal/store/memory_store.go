package store

import (
	"context"

	"github.com/amirhamza8927/aiseo-ai-backend/internal/model"
)

type memoryBackend struct {
	jobs map[string]*model.JobRecord
}

// NewMemoryStore returns a store that keeps records for the process lifetime.
func NewMemoryStore() *Store {
	return newStore(&memoryBackend{jobs: make(map[string]*model.JobRecord)})
}

func (m *memoryBackend) get(_ context.Context, id string) (*model.JobRecord, error) {
	rec, ok := m.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return rec.Clone(), nil
}

func (m *memoryBackend) create(_ context.Context, rec *model.JobRecord) error {
	if _, exists := m.jobs[rec.ID]; exists {
		return ErrAlreadyExists
	}
	m.jobs[rec.ID] = rec.Clone()
	return nil
}

func (m *memoryBackend) update(_ context.Context, id string, fn func(rec *model.JobRecord) error) (*model.JobRecord, error) {
	current, ok := m.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	next := current.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	m.jobs[id] = next
	return next.Clone(), nil
}

func (m *memoryBackend) delete(_ context.Context, id string) error {
	delete(m.jobs, id)
	return nil
}
