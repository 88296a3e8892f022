package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/amirhamza8927/aiseo-ai-backend/internal/client"
	"github.com/amirhamza8927/aiseo-ai-backend/internal/model"
	"github.com/amirhamza8927/aiseo-ai-backend/internal/quality"
	"github.com/amirhamza8927/aiseo-ai-backend/internal/store"
)

var testInput = model.JobInput{Topic: "seo tools", TargetWordCount: 800, Language: "en"}

// scriptedGenerator wraps MockLLM and lets a test alter or fail single stages.
type scriptedGenerator struct {
	*client.MockLLM
	failStage string
	alter     func(stage string, out any)
}

func (g *scriptedGenerator) GenerateStructured(ctx context.Context, stage, prompt string, out any) error {
	if stage == g.failStage {
		return &client.ProviderError{Stage: stage, Model: "test", Message: "upstream unavailable"}
	}
	if err := g.MockLLM.GenerateStructured(ctx, stage, prompt, out); err != nil {
		return err
	}
	if g.alter != nil {
		g.alter(stage, out)
	}
	return nil
}

func (g *scriptedGenerator) GenerateText(ctx context.Context, stage, prompt string) (string, error) {
	if stage == g.failStage {
		return "", &client.ProviderError{Stage: stage, Model: "test", Message: "upstream unavailable"}
	}
	return g.MockLLM.GenerateText(ctx, stage, prompt)
}

type recordingObserver struct {
	mu        sync.Mutex
	stages    []string
	completed int
	errors    []string
}

func (o *recordingObserver) BroadcastStage(_, stage string, _ int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stages = append(o.stages, stage)
}

func (o *recordingObserver) BroadcastComplete(string, interface{}) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.completed++
}

func (o *recordingObserver) BroadcastError(_, code, _ string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.errors = append(o.errors, code)
}

func (o *recordingObserver) count(stage string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, s := range o.stages {
		if s == stage {
			n++
		}
	}
	return n
}

type memoryArtifacts struct {
	objects map[string][]byte
}

func (m *memoryArtifacts) Upload(_ context.Context, key string, body io.Reader, _ string) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.objects[key] = data
	return "https://cdn.example.com/" + key, nil
}

type harness struct {
	gen         *scriptedGenerator
	jobs        *store.Store
	checkpoints *store.MemoryCheckpoints
	observer    *recordingObserver
	orch        *Orchestrator
	deps        *Deps
}

func newHarness(t *testing.T, gen *scriptedGenerator) *harness {
	t.Helper()
	prompts, err := LoadPrompts()
	if err != nil {
		t.Fatalf("LoadPrompts() error: %v", err)
	}
	h := &harness{
		gen:         gen,
		jobs:        store.NewMemoryStore(),
		checkpoints: store.NewMemoryCheckpoints(),
		observer:    &recordingObserver{},
		deps: &Deps{
			Generator: gen,
			Sources:   client.NewMockSerpClient(),
			Prompts:   prompts,
			Quality:   quality.DefaultConfig(),
		},
	}
	h.orch = NewOrchestrator(h.deps, h.jobs, h.checkpoints, h.observer)
	return h
}

func (h *harness) start(t *testing.T, id string, maxRevisions int) *model.PipelineState {
	t.Helper()
	ctx := context.Background()
	if _, err := h.jobs.Create(ctx, id, testInput); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if _, err := h.jobs.Claim(ctx, id, string(FirstStage)); err != nil {
		t.Fatalf("Claim() error: %v", err)
	}
	return NewInitialState(id, testInput, maxRevisions)
}

func (h *harness) record(t *testing.T, id string) *model.JobRecord {
	t.Helper()
	rec, err := h.jobs.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	return rec
}

func breakTitle(stage string, out any) {
	switch v := out.(type) {
	case *model.SeoPackage:
		v.SeoMeta.TitleTag = "The Complete Guide"
	case *model.RevisionResult:
		if stage == string(StageRevise) && v.SeoPackage != nil {
			v.SeoPackage.SeoMeta.TitleTag = "The Complete Guide"
		}
	}
}

func TestRun_HappyPath(t *testing.T) {
	h := newHarness(t, &scriptedGenerator{MockLLM: client.NewMockLLM()})
	state := h.start(t, "job-happy", 2)

	final, err := h.orch.Run(context.Background(), state)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	rec := h.record(t, "job-happy")
	if rec.Status != model.JobStatusCompleted {
		t.Fatalf("status = %s, want completed", rec.Status)
	}
	if rec.Error != nil {
		t.Errorf("error = %q, want nil", *rec.Error)
	}
	if rec.Result == nil || !rec.Result.ValidationReport.Passed {
		t.Fatalf("expected a passing result, got %+v", rec.Result)
	}
	if rec.Result.ValidationReport.Score != 1.0 {
		t.Errorf("score = %v, want 1.0", rec.Result.ValidationReport.Score)
	}
	if final.RevisionsLeft != 2 {
		t.Errorf("revisions left = %d, want 2", final.RevisionsLeft)
	}
	if rec.Result.ArticleHTML == "" || !strings.HasPrefix(rec.Result.Document, "---\n") {
		t.Error("expected rendered html and a front matter document")
	}
	if rec.Result.StructuredData["@type"] != "Article" {
		t.Errorf("structured data = %v", rec.Result.StructuredData)
	}
	if got := h.gen.Calls(string(StageRevise)); got != 0 {
		t.Errorf("revise called %d times, want 0", got)
	}

	want := []string{"gather_sources", "extract_themes", "plan", "outline", "keyword_plan", "draft", "package_metadata", "validate", "finalize"}
	if strings.Join(h.observer.stages, ",") != strings.Join(want, ",") {
		t.Errorf("stages = %v, want %v", h.observer.stages, want)
	}
	if h.observer.completed != 1 {
		t.Errorf("complete broadcasts = %d, want 1", h.observer.completed)
	}

	cp, err := h.checkpoints.Load(context.Background(), "job-happy")
	if err != nil {
		t.Fatalf("checkpoint Load() error: %v", err)
	}
	if cp.CurrentStage != string(StageFinalize) || cp.Result == nil {
		t.Errorf("checkpoint stage = %q, result nil = %v", cp.CurrentStage, cp.Result == nil)
	}
}

func TestRun_ArchivesArtifacts(t *testing.T) {
	h := newHarness(t, &scriptedGenerator{MockLLM: client.NewMockLLM()})
	artifacts := &memoryArtifacts{objects: make(map[string][]byte)}
	h.deps.Artifacts = artifacts
	state := h.start(t, "job-archive", 1)

	if _, err := h.orch.Run(context.Background(), state); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	rec := h.record(t, "job-archive")
	if rec.Result.Artifacts == nil {
		t.Fatal("expected artifact links on the result")
	}
	if rec.Result.Artifacts.MarkdownURL != "https://cdn.example.com/articles/job-archive/seo-tools.md" {
		t.Errorf("markdown url = %q", rec.Result.Artifacts.MarkdownURL)
	}
	md := artifacts.objects["articles/job-archive/seo-tools.md"]
	if !bytes.Equal(md, []byte(rec.Result.Document)) {
		t.Error("archived markdown does not match the result document")
	}
	if _, ok := artifacts.objects["articles/job-archive/seo-tools.html"]; !ok {
		t.Error("html artifact not uploaded")
	}
}

func TestRun_RepairsMetadata(t *testing.T) {
	// only the first package is broken; the revision returns a good one
	gen := &scriptedGenerator{MockLLM: client.NewMockLLM(), alter: func(stage string, out any) {
		if stage == string(StagePackage) {
			breakTitle(stage, out)
		}
	}}
	h := newHarness(t, gen)
	state := h.start(t, "job-repair", 2)

	final, err := h.orch.Run(context.Background(), state)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if rec := h.record(t, "job-repair"); rec.Status != model.JobStatusCompleted {
		t.Fatalf("status = %s, want completed", rec.Status)
	}
	if final.RevisionsLeft != 1 {
		t.Errorf("revisions left = %d, want 1", final.RevisionsLeft)
	}
	if got := h.observer.count(string(StageValidate)); got != 2 {
		t.Errorf("validate ran %d times, want 2", got)
	}
	if final.RepairSpec == nil || !final.RepairSpec.OnlyTargets(model.SectionSeoMeta) {
		t.Errorf("repair spec = %+v, want only %s", final.RepairSpec, model.SectionSeoMeta)
	}
}

func TestRun_FailsWhenRevisionsExhausted(t *testing.T) {
	for _, maxRevisions := range []int{0, 1, 2} {
		gen := &scriptedGenerator{MockLLM: client.NewMockLLM(), alter: breakTitle}
		h := newHarness(t, gen)
		id := fmt.Sprintf("job-exhausted-%d", maxRevisions)
		state := h.start(t, id, maxRevisions)

		final, err := h.orch.Run(context.Background(), state)
		if err != nil {
			t.Fatalf("max=%d: Run() error: %v", maxRevisions, err)
		}

		rec := h.record(t, id)
		if rec.Status != model.JobStatusFailed {
			t.Fatalf("max=%d: status = %s, want failed", maxRevisions, rec.Status)
		}
		if rec.Error == nil || !strings.HasPrefix(*rec.Error, "Validation failed after revisions exhausted") {
			t.Errorf("max=%d: error = %v", maxRevisions, rec.Error)
		}
		if rec.Result != nil {
			t.Errorf("max=%d: failed job carries a result", maxRevisions)
		}
		if final.RevisionsLeft != 0 {
			t.Errorf("max=%d: revisions left = %d, want 0", maxRevisions, final.RevisionsLeft)
		}
		if got := h.observer.count(string(StageValidate)); got != maxRevisions+1 {
			t.Errorf("max=%d: validate ran %d times, want %d", maxRevisions, got, maxRevisions+1)
		}
		if got := gen.Calls(string(StageRevise)); got != maxRevisions {
			t.Errorf("max=%d: revise ran %d times, want %d", maxRevisions, got, maxRevisions)
		}
		if len(h.observer.stages) > StepLimit(maxRevisions) {
			t.Errorf("max=%d: %d steps exceed limit %d", maxRevisions, len(h.observer.stages), StepLimit(maxRevisions))
		}
	}
}

func TestRun_ProviderErrorFailsJob(t *testing.T) {
	gen := &scriptedGenerator{MockLLM: client.NewMockLLM(), failStage: string(StagePlan)}
	h := newHarness(t, gen)
	state := h.start(t, "job-provider", 2)

	_, err := h.orch.Run(context.Background(), state)
	var perr *client.ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ProviderError, got %v", err)
	}

	rec := h.record(t, "job-provider")
	if rec.Status != model.JobStatusFailed {
		t.Fatalf("status = %s, want failed", rec.Status)
	}
	if rec.Error == nil || !strings.HasPrefix(*rec.Error, "ProviderError: [plan] test: upstream unavailable") {
		t.Errorf("error = %v", rec.Error)
	}
	if rec.CurrentStage != string(StagePlan) {
		t.Errorf("current stage = %q, want plan", rec.CurrentStage)
	}
	if len(h.observer.errors) != 1 || h.observer.errors[0] != "ProviderError" {
		t.Errorf("error broadcasts = %v", h.observer.errors)
	}
	if gen.Calls(string(StageOutline)) != 0 {
		t.Error("outline ran after the plan failed")
	}
}

func TestRun_PlanIntegrityError(t *testing.T) {
	gen := &scriptedGenerator{MockLLM: client.NewMockLLM(), alter: func(stage string, out any) {
		if p, ok := out.(*model.Plan); ok {
			p.FAQs[0].PlacementSectionID = "s9"
		}
	}}
	h := newHarness(t, gen)
	state := h.start(t, "job-integrity", 2)

	if _, err := h.orch.Run(context.Background(), state); err == nil {
		t.Fatal("expected an error")
	}
	rec := h.record(t, "job-integrity")
	if rec.Error == nil || !strings.HasPrefix(*rec.Error, "PlanIntegrityError: ") {
		t.Errorf("error = %v", rec.Error)
	}
}

func TestRun_OutlineMismatchStopsBeforeDraft(t *testing.T) {
	mutations := map[string]func(o *model.Outline){
		"reordered": func(o *model.Outline) { o.Sections[0], o.Sections[1] = o.Sections[1], o.Sections[0] },
		"missing":   func(o *model.Outline) { o.Sections = o.Sections[:2] },
		"extra": func(o *model.Outline) {
			o.Sections = append(o.Sections, model.OutlineSection{SectionID: "s4", H2: "Extra"})
		},
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			gen := &scriptedGenerator{MockLLM: client.NewMockLLM(), alter: func(_ string, out any) {
				if o, ok := out.(*model.Outline); ok {
					mutate(o)
				}
			}}
			h := newHarness(t, gen)
			state := h.start(t, "job-outline-"+name, 2)

			_, err := h.orch.Run(context.Background(), state)
			if !errors.Is(err, ErrPrecondition) {
				t.Fatalf("expected precondition error, got %v", err)
			}
			var inc *InconsistentArtifactError
			if !errors.As(err, &inc) || inc.Stage != StageOutline {
				t.Fatalf("expected InconsistentArtifactError at outline, got %v", err)
			}
			for _, stage := range []Stage{StageKeywordPlan, StageDraft} {
				if n := gen.Calls(string(stage)); n != 0 {
					t.Errorf("%s ran %d times", stage, n)
				}
			}
			rec := h.record(t, "job-outline-"+name)
			if rec.Error == nil || !strings.HasPrefix(*rec.Error, "InconsistentArtifactError: ") {
				t.Errorf("error = %v", rec.Error)
			}
		})
	}
}

func TestRun_TerminalRecordIsNotOverwritten(t *testing.T) {
	gen := &scriptedGenerator{MockLLM: client.NewMockLLM(), failStage: string(StageExtractThemes)}
	h := newHarness(t, gen)
	state := h.start(t, "job-terminal", 1)

	done := &model.ArticleOutput{ArticleMarkdown: "# Done\n"}
	if _, err := h.jobs.SetResult(context.Background(), "job-terminal", done); err != nil {
		t.Fatalf("SetResult() error: %v", err)
	}

	if _, err := h.orch.Run(context.Background(), state); err == nil {
		t.Fatal("expected an error")
	}
	rec := h.record(t, "job-terminal")
	if rec.Status != model.JobStatusCompleted || rec.Error != nil {
		t.Errorf("record = %s / %v, want completed without error", rec.Status, rec.Error)
	}
}

func TestRun_CancelledContext(t *testing.T) {
	h := newHarness(t, &scriptedGenerator{MockLLM: client.NewMockLLM()})
	state := h.start(t, "job-cancel", 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.orch.Run(ctx, state)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	rec := h.record(t, "job-cancel")
	if rec.Status != model.JobStatusFailed {
		t.Errorf("status = %s, want failed", rec.Status)
	}
}

func TestRun_StepLimitStopsRunawayLoop(t *testing.T) {
	gen := &scriptedGenerator{MockLLM: client.NewMockLLM(), alter: breakTitle}
	h := newHarness(t, gen)
	// a revise stage that never spends a revision would loop forever
	h.orch.stages[StageRevise] = func(context.Context, *model.PipelineState, *Deps) (Patch, error) {
		return Patch{}, nil
	}
	state := h.start(t, "job-runaway", 1)

	_, err := h.orch.Run(context.Background(), state)
	if err == nil || !strings.Contains(err.Error(), "step limit") {
		t.Fatalf("expected step limit error, got %v", err)
	}
	if got := len(h.observer.stages); got != StepLimit(1) {
		t.Errorf("ran %d steps, want %d", got, StepLimit(1))
	}
	if rec := h.record(t, "job-runaway"); rec.Status != model.JobStatusFailed {
		t.Errorf("status = %s, want failed", rec.Status)
	}
}

func TestRoute(t *testing.T) {
	failing := &model.ValidationReport{Passed: false, Score: 0.5}
	passing := &model.ValidationReport{Passed: true, Score: 1}

	tests := []struct {
		name  string
		state model.PipelineState
		want  Stage
	}{
		{"no report", model.PipelineState{RevisionsLeft: 2}, StageFail},
		{"passed", model.PipelineState{Report: passing, RevisionsLeft: 0}, StageFinalize},
		{"failed with revisions", model.PipelineState{Report: failing, RevisionsLeft: 1}, StageRepair},
		{"failed without revisions", model.PipelineState{Report: failing, RevisionsLeft: 0}, StageFail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Route(&tt.state); got != tt.want {
				t.Errorf("Route() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestStepLimit(t *testing.T) {
	if got := StepLimit(2); got != 18 {
		t.Errorf("StepLimit(2) = %d, want 18", got)
	}
	if got := StepLimit(0); got != 12 {
		t.Errorf("StepLimit(0) = %d, want 12", got)
	}
}
