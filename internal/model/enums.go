package model

// Job status types
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

var ValidJobStatuses = []JobStatus{
	JobStatusPending, JobStatusRunning, JobStatusCompleted, JobStatusFailed,
}

// IsTerminal reports whether no further pipeline work happens for the status.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Reserved section ids used as repair targets
const (
	SectionSeoMeta = "__seo_meta__"
	SectionIntro   = "__intro__"
)
