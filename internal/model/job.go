package model

import "time"

// JobInput holds the immutable parameters a job was created with
type JobInput struct {
	Topic           string `json:"topic" validate:"required"`
	TargetWordCount int    `json:"targetWordCount" validate:"gt=0"`
	Language        string `json:"language" validate:"required"`
}

// JobRecord is the externally visible state of a pipeline run.
// Result is set only once the job is completed; Error only matters when it failed.
type JobRecord struct {
	ID           string         `json:"id"`
	Status       JobStatus      `json:"status"`
	CurrentStage string         `json:"currentStage,omitempty"`
	Error        *string        `json:"error,omitempty"`
	Result       *ArticleOutput `json:"result,omitempty"`
	Input        JobInput       `json:"input"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// Clone returns a copy that can be mutated without touching the original.
// The result document is shared; it is never modified after it is stored.
func (r *JobRecord) Clone() *JobRecord {
	cp := *r
	if r.Error != nil {
		msg := *r.Error
		cp.Error = &msg
	}
	return &cp
}

// RunTaskPayload is the asynq payload for a deferred pipeline run
type RunTaskPayload struct {
	JobID string `json:"jobId"`
}
