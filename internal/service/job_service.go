package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/amirhamza8927/aiseo-ai-backend/internal/config"
	"github.com/amirhamza8927/aiseo-ai-backend/internal/markdown"
	"github.com/amirhamza8927/aiseo-ai-backend/internal/model"
	"github.com/amirhamza8927/aiseo-ai-backend/internal/pipeline"
	"github.com/amirhamza8927/aiseo-ai-backend/internal/store"
)

const (
	TaskTypeRunPipeline = "pipeline:run"
	QueuePipeline       = "pipeline"
)

var (
	ErrInvalidInput = errors.New("invalid job input")
	ErrNotCompleted = errors.New("job not completed")
	ErrJobFailed    = errors.New("job failed")
)

// CheckpointStore is the checkpoint view the service needs on top of what
// the orchestrator writes.
type CheckpointStore interface {
	pipeline.Checkpointer
	Delete(ctx context.Context, jobID string) error
}

// Runner executes one pipeline run
type Runner interface {
	Run(ctx context.Context, state *model.PipelineState) (*model.PipelineState, error)
}

// JobService handles the article job lifecycle
type JobService struct {
	jobs        store.JobStore
	checkpoints CheckpointStore
	runner      Runner
	asynqClient *asynq.Client
	cfg         config.PipelineConfig
}

// NewJobService wires the use-case layer. With a nil asynqClient every run
// executes inline on the caller's goroutine.
func NewJobService(jobs store.JobStore, checkpoints CheckpointStore, runner Runner, asynqClient *asynq.Client, cfg config.PipelineConfig) *JobService {
	return &JobService{
		jobs:        jobs,
		checkpoints: checkpoints,
		runner:      runner,
		asynqClient: asynqClient,
		cfg:         cfg,
	}
}

// Async reports whether runs are dispatched to the worker queue.
func (s *JobService) Async() bool {
	return s.asynqClient != nil
}

// CreateJob stores a new pending job. Missing word count and language fall
// back to the configured defaults.
func (s *JobService) CreateJob(ctx context.Context, req *model.CreateJobRequest) (*model.JobRecord, error) {
	input, err := s.normalizeInput(req)
	if err != nil {
		return nil, err
	}

	rec, err := s.jobs.Create(ctx, uuid.New().String(), input)
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}
	log.Printf("Created job %s for topic %q", rec.ID, input.Topic)
	return rec, nil
}

func (s *JobService) normalizeInput(req *model.CreateJobRequest) (model.JobInput, error) {
	topic := markdown.NormalizeSpace(req.Topic)
	if topic == "" {
		return model.JobInput{}, fmt.Errorf("%w: topic must not be empty", ErrInvalidInput)
	}
	if req.TargetWordCount < 0 {
		return model.JobInput{}, fmt.Errorf("%w: targetWordCount must be positive", ErrInvalidInput)
	}

	input := model.JobInput{
		Topic:           topic,
		TargetWordCount: req.TargetWordCount,
		Language:        strings.TrimSpace(req.Language),
	}
	if input.TargetWordCount == 0 {
		input.TargetWordCount = s.cfg.DefaultWordCount
	}
	if input.Language == "" {
		input.Language = s.cfg.DefaultLanguage
	}
	return input, nil
}

// StartJob claims the job and runs it, inline or through the queue.
// queued reports whether the run was handed to a worker; an inline run has
// already finished when StartJob returns and rec reflects its outcome.
func (s *JobService) StartJob(ctx context.Context, jobID string) (rec *model.JobRecord, queued bool, err error) {
	rec, err = s.jobs.Claim(ctx, jobID, string(pipeline.FirstStage))
	if err != nil {
		return nil, false, err
	}

	if s.asynqClient != nil {
		if err := s.enqueue(jobID); err != nil {
			msg := fmt.Sprintf("Error: failed to dispatch run: %v", err)
			if _, setErr := s.jobs.SetError(ctx, jobID, msg); setErr != nil {
				log.Printf("Failed to mark job %s as failed: %v", jobID, setErr)
			}
			return nil, false, err
		}
		log.Printf("Queued pipeline run for job %s", jobID)
		return rec, true, nil
	}

	if _, err := s.RunJob(ctx, jobID); err != nil {
		// the outcome is already on the record
		log.Printf("Pipeline run for job %s ended with error: %v", jobID, err)
	}
	rec, err = s.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, false, err
	}
	return rec, false, nil
}

// RunJob executes the pipeline for a claimed job. It is what the worker
// calls for queued runs.
func (s *JobService) RunJob(ctx context.Context, jobID string) (*model.PipelineState, error) {
	rec, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if rec.Status != model.JobStatusRunning {
		return nil, fmt.Errorf("job %s is %s, not running", jobID, rec.Status)
	}

	state := pipeline.NewInitialState(jobID, rec.Input, s.cfg.MaxRevisions)
	start := time.Now()
	state, err = s.runner.Run(ctx, state)
	log.Printf("Pipeline run for job %s finished in %s at stage %s", jobID, time.Since(start).Round(time.Millisecond), state.CurrentStage)
	return state, err
}

// GetJob returns the job record.
func (s *JobService) GetJob(ctx context.Context, jobID string) (*model.JobRecord, error) {
	return s.jobs.Get(ctx, jobID)
}

// GetResult returns the record of a completed job.
func (s *JobService) GetResult(ctx context.Context, jobID string) (*model.JobRecord, error) {
	rec, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	switch rec.Status {
	case model.JobStatusCompleted:
		return rec, nil
	case model.JobStatusFailed:
		return rec, ErrJobFailed
	default:
		return rec, ErrNotCompleted
	}
}

// GetCheckpoint returns the last pipeline snapshot saved for the job.
func (s *JobService) GetCheckpoint(ctx context.Context, jobID string) (*model.PipelineState, error) {
	if _, err := s.jobs.Get(ctx, jobID); err != nil {
		return nil, err
	}
	if s.checkpoints == nil {
		return nil, store.ErrNoCheckpoint
	}
	return s.checkpoints.Load(ctx, jobID)
}

// DeleteJob removes the job and its checkpoint.
func (s *JobService) DeleteJob(ctx context.Context, jobID string) error {
	if err := s.jobs.Delete(ctx, jobID); err != nil {
		return err
	}
	if s.checkpoints != nil {
		if err := s.checkpoints.Delete(ctx, jobID); err != nil {
			log.Printf("Failed to delete checkpoint for job %s: %v", jobID, err)
		}
	}
	return nil
}

func (s *JobService) enqueue(jobID string) error {
	task, err := newRunTask(jobID)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	_, err = s.asynqClient.Enqueue(task,
		asynq.Queue(QueuePipeline),
		asynq.MaxRetry(0),
		asynq.Retention(24*time.Hour),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}
	return nil
}

func newRunTask(jobID string) (*asynq.Task, error) {
	data, err := json.Marshal(model.RunTaskPayload{JobID: jobID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeRunPipeline, data), nil
}
