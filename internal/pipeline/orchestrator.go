// Package pipeline sequences the article stages, routes between repair
// and termination, and persists the outcome of every run.
package pipeline

import (
	"context"
	"fmt"
	"log"

	"github.com/amirhamza8927/aiseo-ai-backend/internal/model"
)

// Stage names one step of the pipeline
type Stage string

const (
	StageGatherSources Stage = "gather_sources"
	StageExtractThemes Stage = "extract_themes"
	StagePlan          Stage = "plan"
	StageOutline       Stage = "outline"
	StageKeywordPlan   Stage = "keyword_plan"
	StageDraft         Stage = "draft"
	StagePackage       Stage = "package_metadata"
	StageValidate      Stage = "validate"
	StageRepair        Stage = "repair"
	StageRevise        Stage = "revise"
	StageFinalize      Stage = "finalize"
	StageFail          Stage = "fail"
)

// FirstStage is where every run starts.
const FirstStage = StageGatherSources

// StageFunc runs one stage. It reads the state and returns a patch; it
// never mutates the state itself.
type StageFunc func(ctx context.Context, state *model.PipelineState, deps *Deps) (Patch, error)

// linearStages run once per run, in this order, before the first validate.
var linearStages = []Stage{
	StageGatherSources,
	StageExtractThemes,
	StagePlan,
	StageOutline,
	StageKeywordPlan,
	StageDraft,
	StagePackage,
}

// next holds the unconditional edges. validate is routed by Route and the
// terminal stages have no successor.
var next = map[Stage]Stage{
	StageGatherSources: StageExtractThemes,
	StageExtractThemes: StagePlan,
	StagePlan:          StageOutline,
	StageOutline:       StageKeywordPlan,
	StageKeywordPlan:   StageDraft,
	StageDraft:         StagePackage,
	StagePackage:       StageValidate,
	StageRepair:        StageRevise,
	StageRevise:        StageValidate,
}

// defaultStages is the production stage table.
func defaultStages() map[Stage]StageFunc {
	return map[Stage]StageFunc{
		StageGatherSources: gatherSources,
		StageExtractThemes: extractThemes,
		StagePlan:          planContent,
		StageOutline:       buildOutline,
		StageKeywordPlan:   planKeywords,
		StageDraft:         writeDraft,
		StagePackage:       packageMetadata,
		StageValidate:      validateDraft,
		StageRepair:        buildRepair,
		StageRevise:        reviseDraft,
		StageFinalize:      finalize,
		StageFail:          failRun,
	}
}

// Route picks the successor of validate: finalize on a passing report,
// another repair round while revisions remain, fail otherwise.
func Route(state *model.PipelineState) Stage {
	switch {
	case state.Report == nil:
		return StageFail
	case state.Report.Passed:
		return StageFinalize
	case state.RevisionsLeft > 0:
		return StageRepair
	default:
		return StageFail
	}
}

// StepLimit is the most stage executions a run with maxRevisions may take
// before it is treated as a routing bug.
func StepLimit(maxRevisions int) int {
	return len(linearStages) + 3*(maxRevisions+1) + 2
}

// JobRecorder is the slice of the job store the orchestrator writes to
type JobRecorder interface {
	Get(ctx context.Context, id string) (*model.JobRecord, error)
	SetStage(ctx context.Context, id, stage string) (*model.JobRecord, error)
	SetError(ctx context.Context, id, message string) (*model.JobRecord, error)
	SetResult(ctx context.Context, id string, result *model.ArticleOutput) (*model.JobRecord, error)
}

// Checkpointer stores a snapshot of the state after every stage
type Checkpointer interface {
	Save(ctx context.Context, jobID string, state *model.PipelineState) error
	Load(ctx context.Context, jobID string) (*model.PipelineState, error)
}

// Observer is told about stage transitions and terminal outcomes
type Observer interface {
	BroadcastStage(jobID, stage string, revisionsLeft int)
	BroadcastComplete(jobID string, result interface{})
	BroadcastError(jobID string, code, message string)
}

// Orchestrator drives one run from the first stage to finalize or fail
type Orchestrator struct {
	deps        *Deps
	jobs        JobRecorder
	checkpoints Checkpointer
	observer    Observer
	stages      map[Stage]StageFunc
}

// NewOrchestrator creates a new orchestrator. checkpoints and observer may
// be nil.
func NewOrchestrator(deps *Deps, jobs JobRecorder, checkpoints Checkpointer, observer Observer) *Orchestrator {
	return &Orchestrator{
		deps:        deps,
		jobs:        jobs,
		checkpoints: checkpoints,
		observer:    observer,
		stages:      defaultStages(),
	}
}

// NewInitialState returns the state a fresh run starts from.
func NewInitialState(jobID string, input model.JobInput, maxRevisions int) *model.PipelineState {
	if maxRevisions < 0 {
		maxRevisions = 0
	}
	return &model.PipelineState{
		JobID:         jobID,
		Input:         input,
		RevisionsLeft: maxRevisions,
	}
}

// Run executes the pipeline for state.JobID. A run that ends in the fail
// stage is not an error; the job record carries the reason. Any stage
// error aborts the run, marks the record failed and is returned.
func (o *Orchestrator) Run(ctx context.Context, state *model.PipelineState) (*model.PipelineState, error) {
	limit := StepLimit(state.RevisionsLeft)
	stage := FirstStage

	for step := 0; ; step++ {
		if step >= limit {
			err := fmt.Errorf("step limit %d exceeded at stage %s", limit, stage)
			return state, o.abort(ctx, state, err)
		}
		if err := ctx.Err(); err != nil {
			return state, o.abort(ctx, state, err)
		}

		fn, ok := o.stages[stage]
		if !ok {
			return state, o.abort(ctx, state, fmt.Errorf("no handler for stage %q", stage))
		}

		state.CurrentStage = string(stage)
		if _, err := o.jobs.SetStage(ctx, state.JobID, string(stage)); err != nil {
			return state, fmt.Errorf("failed to record stage %s: %w", stage, err)
		}
		if o.observer != nil {
			o.observer.BroadcastStage(state.JobID, string(stage), state.RevisionsLeft)
		}

		patch, err := fn(ctx, state, o.deps)
		if err != nil {
			log.Printf("pipeline: job %s: stage %s failed: %v", state.JobID, stage, err)
			return state, o.abort(ctx, state, err)
		}
		patch.Apply(state)
		o.checkpoint(ctx, state)

		switch stage {
		case StageFinalize:
			return state, o.complete(ctx, state)
		case StageFail:
			return state, o.fail(ctx, state, state.Failure)
		case StageValidate:
			stage = Route(state)
		default:
			succ, ok := next[stage]
			if !ok {
				return state, o.abort(ctx, state, fmt.Errorf("stage %s has no successor", stage))
			}
			stage = succ
		}
	}
}

func (o *Orchestrator) checkpoint(ctx context.Context, state *model.PipelineState) {
	if o.checkpoints == nil {
		return
	}
	if err := o.checkpoints.Save(ctx, state.JobID, state); err != nil {
		log.Printf("pipeline: job %s: checkpoint after %s failed: %v", state.JobID, state.CurrentStage, err)
	}
}

func (o *Orchestrator) complete(ctx context.Context, state *model.PipelineState) error {
	if state.Result == nil {
		return o.abort(ctx, state, missing(StageFinalize, "result"))
	}
	if _, err := o.jobs.SetResult(ctx, state.JobID, state.Result); err != nil {
		return fmt.Errorf("failed to store result: %w", err)
	}
	if o.observer != nil {
		o.observer.BroadcastComplete(state.JobID, state.Result)
	}
	log.Printf("pipeline: job %s completed (score %.2f, revisions left %d)",
		state.JobID, state.Result.ValidationReport.Score, state.RevisionsLeft)
	return nil
}

func (o *Orchestrator) fail(ctx context.Context, state *model.PipelineState, message string) error {
	if _, err := o.jobs.SetError(ctx, state.JobID, message); err != nil {
		return fmt.Errorf("failed to store failure: %w", err)
	}
	if o.observer != nil {
		o.observer.BroadcastError(state.JobID, "VALIDATION_FAILED", message)
	}
	log.Printf("pipeline: job %s failed: %s", state.JobID, message)
	return nil
}

// abort records err on the job unless it already reached a terminal
// status, and returns err.
func (o *Orchestrator) abort(ctx context.Context, state *model.PipelineState, err error) error {
	msg := FormatError(err)
	state.LastError = msg
	o.checkpoint(ctx, state)

	// the run context may be the reason we are here
	storeCtx := context.WithoutCancel(ctx)
	rec, getErr := o.jobs.Get(storeCtx, state.JobID)
	if getErr == nil && rec.Status.IsTerminal() {
		return err
	}
	if _, setErr := o.jobs.SetError(storeCtx, state.JobID, msg); setErr != nil {
		log.Printf("pipeline: job %s: failed to record error: %v", state.JobID, setErr)
	}
	if o.observer != nil {
		o.observer.BroadcastError(state.JobID, ErrorKind(err), msg)
	}
	return err
}
