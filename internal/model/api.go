package model

import "time"

// CreateJobRequest represents the request to create an article job
type CreateJobRequest struct {
	Topic           string `json:"topic" validate:"required,max=200"`
	TargetWordCount int    `json:"targetWordCount" validate:"omitempty,gt=0,lte=20000"`
	Language        string `json:"language" validate:"omitempty,min=2,max=16"`
	RunImmediately  *bool  `json:"runImmediately"`
}

// ShouldRunImmediately defaults to true when the field is omitted.
func (r *CreateJobRequest) ShouldRunImmediately() bool {
	return r.RunImmediately == nil || *r.RunImmediately
}

// JobSummary is the API view of a job record
type JobSummary struct {
	JobID        string    `json:"jobId"`
	Status       JobStatus `json:"status"`
	CurrentStage string    `json:"currentStage,omitempty"`
	Error        *string   `json:"error,omitempty"`
	Input        JobInput  `json:"input"`
	HasResult    bool      `json:"hasResult"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// NewJobSummary builds the API view of rec.
func NewJobSummary(rec *JobRecord) JobSummary {
	return JobSummary{
		JobID:        rec.ID,
		Status:       rec.Status,
		CurrentStage: rec.CurrentStage,
		Error:        rec.Error,
		Input:        rec.Input,
		HasResult:    rec.Result != nil,
		CreatedAt:    rec.CreatedAt,
		UpdatedAt:    rec.UpdatedAt,
	}
}

// JobResponse wraps a job summary
type JobResponse struct {
	Job JobSummary `json:"job"`
}

// JobResultResponse carries the final article of a completed job
type JobResultResponse struct {
	JobID  string         `json:"jobId"`
	Status JobStatus      `json:"status"`
	Result *ArticleOutput `json:"result"`
}

// CheckpointResponse exposes the last saved pipeline snapshot
type CheckpointResponse struct {
	JobID         string            `json:"jobId"`
	CurrentStage  string            `json:"currentStage"`
	RevisionsLeft int               `json:"revisionsLeft"`
	LastError     string            `json:"lastError,omitempty"`
	Report        *ValidationReport `json:"report,omitempty"`
	RepairSpec    *RepairSpec       `json:"repairSpec,omitempty"`
	Outline       *Outline          `json:"outline,omitempty"`
	KeywordPlan   *KeywordPlan      `json:"keywordPlan,omitempty"`
}
