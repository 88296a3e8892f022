package pipeline

import (
	"errors"
	"fmt"
)

// ErrPrecondition matches every error raised because a stage was entered
// without the artifacts it needs, or with artifacts that disagree.
var ErrPrecondition = errors.New("stage precondition violated")

// MissingArtifactError reports a required artifact that is absent
type MissingArtifactError struct {
	Stage    Stage
	Artifact string
}

func (e *MissingArtifactError) Error() string {
	return fmt.Sprintf("%s: %s is required", e.Stage, e.Artifact)
}

func (e *MissingArtifactError) Is(target error) bool { return target == ErrPrecondition }

// Kind names the error category in job error messages.
func (e *MissingArtifactError) Kind() string { return "MissingArtifactError" }

// InconsistentArtifactError reports an artifact that is present but
// violates a cross-artifact rule
type InconsistentArtifactError struct {
	Stage    Stage
	Artifact string
	Reason   string
}

func (e *InconsistentArtifactError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Stage, e.Artifact, e.Reason)
}

func (e *InconsistentArtifactError) Is(target error) bool { return target == ErrPrecondition }

// Kind names the error category in job error messages.
func (e *InconsistentArtifactError) Kind() string { return "InconsistentArtifactError" }

func missing(stage Stage, artifact string) error {
	return &MissingArtifactError{Stage: stage, Artifact: artifact}
}

func inconsistent(stage Stage, artifact, format string, args ...any) error {
	return &InconsistentArtifactError{Stage: stage, Artifact: artifact, Reason: fmt.Sprintf(format, args...)}
}

type kinded interface {
	Kind() string
}

// ErrorKind returns the category name of err: the Kind of the first error
// in its chain that has one, or "Error".
func ErrorKind(err error) string {
	var k kinded
	if errors.As(err, &k) {
		return k.Kind()
	}
	return "Error"
}

// FormatError renders err the way it is stored on a failed job record.
func FormatError(err error) string {
	return ErrorKind(err) + ": " + err.Error()
}
