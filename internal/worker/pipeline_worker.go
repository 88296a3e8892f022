package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/hibiken/asynq"

	"github.com/amirhamza8927/aiseo-ai-backend/internal/model"
	"github.com/amirhamza8927/aiseo-ai-backend/internal/service"
)

// PipelineWorker runs queued pipeline jobs
type PipelineWorker struct {
	jobService *service.JobService
}

// NewPipelineWorker creates a new pipeline worker
func NewPipelineWorker(jobService *service.JobService) *PipelineWorker {
	return &PipelineWorker{jobService: jobService}
}

// ProcessTask handles one pipeline run. The orchestrator has already put
// any failure on the job record, so errors are never retried.
func (w *PipelineWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload model.RunTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.JobID == "" {
		return fmt.Errorf("task payload has no job id: %w", asynq.SkipRetry)
	}

	log.Printf("Starting pipeline job: %s", payload.JobID)
	state, err := w.jobService.RunJob(ctx, payload.JobID)
	if err != nil {
		return fmt.Errorf("pipeline job %s: %v: %w", payload.JobID, err, asynq.SkipRetry)
	}
	log.Printf("Pipeline job %s finished (revisions left %d)", payload.JobID, state.RevisionsLeft)
	return nil
}

// Register binds the worker to its task type on mux.
func (w *PipelineWorker) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(service.TaskTypeRunPipeline, w.ProcessTask)
}
