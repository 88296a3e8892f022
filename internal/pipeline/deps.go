package pipeline

import (
	"context"
	"io"

	"github.com/amirhamza8927/aiseo-ai-backend/internal/model"
	"github.com/amirhamza8927/aiseo-ai-backend/internal/quality"
)

// Generator produces stage artifacts from rendered prompts
type Generator interface {
	// GenerateStructured decodes one JSON object into out and validates it.
	GenerateStructured(ctx context.Context, stage, prompt string, out any) error
	// GenerateText returns non-empty free-form text.
	GenerateText(ctx context.Context, stage, prompt string) (string, error)
}

// SourceLister returns the ranked result listing for a topic
type SourceLister interface {
	FetchTopResults(ctx context.Context, topic, language string, k int) ([]model.SerpResult, error)
}

// ArtifactStore archives finished articles. It returns the public URL of
// the uploaded object.
type ArtifactStore interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
}

// Deps is built once at startup and shared by every run.
type Deps struct {
	Generator Generator
	Sources   SourceLister
	// Artifacts is optional; finished articles are not archived without it.
	Artifacts ArtifactStore
	Prompts   *Prompts
	Quality   quality.Config
	// SourceCount is the exact number of results gather_sources requires.
	SourceCount int
	// CandidateCount caps the secondary keyword candidates offered to the
	// keyword plan prompt.
	CandidateCount int
}

func (d *Deps) sourceCount() int {
	if d.SourceCount > 0 {
		return d.SourceCount
	}
	return 10
}

func (d *Deps) candidateCount() int {
	if d.CandidateCount > 0 {
		return d.CandidateCount
	}
	return 20
}

// qualityFor returns the gate thresholds for a job's word target.
func (d *Deps) qualityFor(input model.JobInput) quality.Config {
	return d.Quality.WithWordTarget(input.TargetWordCount)
}
