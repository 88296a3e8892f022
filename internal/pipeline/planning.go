package pipeline

import (
	"context"
	"slices"
	"strings"

	"github.com/amirhamza8927/aiseo-ai-backend/internal/markdown"
	"github.com/amirhamza8927/aiseo-ai-backend/internal/model"
)

// Plan budgets must land within this band around the word target.
const (
	planBudgetMin = 0.75
	planBudgetMax = 1.25
)

// planContent produces the content plan and checks its integrity and
// word budget.
func planContent(ctx context.Context, state *model.PipelineState, deps *Deps) (Patch, error) {
	if err := requireInput(StagePlan, state.Input); err != nil {
		return Patch{}, err
	}
	if len(state.Sources) == 0 {
		return Patch{}, missing(StagePlan, "sources")
	}
	if state.Themes == nil {
		return Patch{}, missing(StagePlan, "themes")
	}

	prompt, err := deps.Prompts.Render(PromptPlanner, promptValues(state.Input, map[string]any{
		"themes":       state.Themes,
		"serp_results": state.Sources,
	}))
	if err != nil {
		return Patch{}, err
	}

	var plan model.Plan
	if err := deps.Generator.GenerateStructured(ctx, string(StagePlan), prompt, &plan); err != nil {
		return Patch{}, err
	}
	if err := plan.Validate(); err != nil {
		return Patch{}, err
	}

	target := float64(state.Input.TargetWordCount)
	budget := plan.TotalWordBudget()
	if float64(budget) < target*planBudgetMin || float64(budget) > target*planBudgetMax {
		return Patch{}, inconsistent(StagePlan, "plan", "word budget %d outside %.2fx-%.2fx of target %d",
			budget, planBudgetMin, planBudgetMax, state.Input.TargetWordCount)
	}
	return Patch{Plan: &plan}, nil
}

// buildOutline turns the plan into headings. The outline must carry the
// plan's section ids in the same order, so a mismatch stops the run here.
func buildOutline(ctx context.Context, state *model.PipelineState, deps *Deps) (Patch, error) {
	if err := requireInput(StageOutline, state.Input); err != nil {
		return Patch{}, err
	}
	if state.Plan == nil {
		return Patch{}, missing(StageOutline, "plan")
	}

	planIDs := state.Plan.SectionIDs()
	prompt, err := deps.Prompts.Render(PromptOutline, promptValues(state.Input, map[string]any{
		"plan":        state.Plan,
		"section_ids": strings.Join(planIDs, ", "),
	}))
	if err != nil {
		return Patch{}, err
	}

	var outline model.Outline
	if err := deps.Generator.GenerateStructured(ctx, string(StageOutline), prompt, &outline); err != nil {
		return Patch{}, err
	}
	if err := CheckOutlineMatchesPlan(&outline, state.Plan); err != nil {
		return Patch{}, err
	}
	return Patch{Outline: &outline}, nil
}

// CheckOutlineMatchesPlan fails unless outline has exactly the plan's
// section ids in plan order.
func CheckOutlineMatchesPlan(outline *model.Outline, plan *model.Plan) error {
	got, want := outline.SectionIDs(), plan.SectionIDs()
	if !slices.Equal(got, want) {
		return inconsistent(StageOutline, "outline", "section ids %v do not match plan %v", got, want)
	}
	return nil
}

// planKeywords fixes the primary keyword to the topic and picks secondary
// keywords from the mined candidates.
func planKeywords(ctx context.Context, state *model.PipelineState, deps *Deps) (Patch, error) {
	if err := requireInput(StageKeywordPlan, state.Input); err != nil {
		return Patch{}, err
	}
	if len(state.Sources) == 0 {
		return Patch{}, missing(StageKeywordPlan, "sources")
	}
	if state.Themes == nil {
		return Patch{}, missing(StageKeywordPlan, "themes")
	}

	primary := state.Input.Topic
	candidates := markdown.SecondaryCandidates(state.Sources, primary, deps.candidateCount())
	prompt, err := deps.Prompts.Render(PromptKeywordPlan, promptValues(state.Input, map[string]any{
		"primary":    primary,
		"candidates": candidates,
		"themes":     state.Themes,
	}))
	if err != nil {
		return Patch{}, err
	}

	var kp model.KeywordPlan
	if err := deps.Generator.GenerateStructured(ctx, string(StageKeywordPlan), prompt, &kp); err != nil {
		return Patch{}, err
	}
	if !sameKeyword(kp.Primary, primary) {
		return Patch{}, inconsistent(StageKeywordPlan, "keyword_plan", "primary %q does not match topic %q", kp.Primary, primary)
	}
	kp.Primary = primary

	seen := make(map[string]struct{}, len(kp.Secondary))
	deduped := make([]string, 0, len(kp.Secondary))
	for _, s := range kp.Secondary {
		if markdown.ContainsFold(s, primary) {
			return Patch{}, inconsistent(StageKeywordPlan, "keyword_plan", "secondary keyword %q contains the primary", s)
		}
		key := strings.ToLower(markdown.NormalizeSpace(s))
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		deduped = append(deduped, s)
	}
	kp.Secondary = deduped
	return Patch{KeywordPlan: &kp}, nil
}

func sameKeyword(a, b string) bool {
	return strings.EqualFold(markdown.NormalizeSpace(a), markdown.NormalizeSpace(b))
}
