package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/amirhamza8927/aiseo-ai-backend/internal/model"
	"github.com/amirhamza8927/aiseo-ai-backend/internal/quality"
)

// assembleDocument builds the output document the quality gate scores.
func assembleDocument(state *model.PipelineState) *model.ArticleOutput {
	return &model.ArticleOutput{
		SeoMeta:            state.Package.SeoMeta,
		ArticleMarkdown:    state.Draft,
		Outline:            *state.Outline,
		KeywordAnalysis:    state.Package.KeywordUsage,
		InternalLinks:      state.Package.InternalLinks,
		ExternalReferences: state.Package.ExternalReferences,
	}
}

func requireDocument(stage Stage, state *model.PipelineState) error {
	switch {
	case state.KeywordPlan == nil:
		return missing(stage, "keyword_plan")
	case state.Outline == nil:
		return missing(stage, "outline")
	case strings.TrimSpace(state.Draft) == "":
		return missing(stage, "draft")
	case state.Package == nil:
		return missing(stage, "package")
	}
	return nil
}

// validateDraft scores the current draft and package.
func validateDraft(_ context.Context, state *model.PipelineState, deps *Deps) (Patch, error) {
	if err := requireInput(StageValidate, state.Input); err != nil {
		return Patch{}, err
	}
	if err := requireDocument(StageValidate, state); err != nil {
		return Patch{}, err
	}

	report := quality.Validate(assembleDocument(state), state.KeywordPlan.Primary, deps.qualityFor(state.Input))
	return Patch{Report: &report}, nil
}

// buildRepair translates the failed checks into a repair spec.
func buildRepair(_ context.Context, state *model.PipelineState, deps *Deps) (Patch, error) {
	if state.Report == nil {
		return Patch{}, missing(StageRepair, "report")
	}
	if state.Outline == nil {
		return Patch{}, missing(StageRepair, "outline")
	}

	spec := quality.BuildRepairSpec(*state.Report, state.Outline, deps.qualityFor(state.Input))
	return Patch{RepairSpec: &spec}, nil
}

// WordBudget describes the word caps handed to the reviser: the total
// window, an intro cap and an equal cap per section.
func WordBudget(cfg quality.Config, outline *model.Outline) string {
	wcMin, wcMax := cfg.WordCountBounds()
	parts := []string{fmt.Sprintf("total target range: %d-%d", wcMin, wcMax)}
	if outline != nil && len(outline.Sections) > 0 {
		introCap := max(50, int(float64(wcMax)*0.2))
		sectionCap := max(50, (wcMax-introCap)/len(outline.Sections))
		parts = append(parts, fmt.Sprintf("intro <= %d", introCap))
		for _, sec := range outline.Sections {
			parts = append(parts, fmt.Sprintf("%s <= %d", sec.SectionID, sectionCap))
		}
	}
	return strings.Join(parts, ". ")
}

// reviseDraft applies the repair spec. Every successful revision spends
// exactly one of the remaining revisions.
func reviseDraft(ctx context.Context, state *model.PipelineState, deps *Deps) (Patch, error) {
	if err := requireInput(StageRevise, state.Input); err != nil {
		return Patch{}, err
	}
	if state.RepairSpec == nil {
		return Patch{}, missing(StageRevise, "repair_spec")
	}
	if err := requireDocument(StageRevise, state); err != nil {
		return Patch{}, err
	}
	if state.RevisionsLeft <= 0 {
		return Patch{}, inconsistent(StageRevise, "revisions_left", "no revisions left")
	}

	prompt, err := deps.Prompts.Render(PromptReviser, promptValues(state.Input, map[string]any{
		"word_count_budget":        WordBudget(deps.qualityFor(state.Input), state.Outline),
		"keyword_plan":             state.KeywordPlan,
		"outline":                  state.Outline,
		"current_seo_package":      state.Package,
		"current_article_markdown": state.Draft,
		"repair_spec":              state.RepairSpec,
	}))
	if err != nil {
		return Patch{}, err
	}

	var revision model.RevisionResult
	if err := deps.Generator.GenerateStructured(ctx, string(StageRevise), prompt, &revision); err != nil {
		return Patch{}, err
	}

	md := strings.TrimSpace(revision.ArticleMarkdown)
	if md == "" {
		return Patch{}, inconsistent(StageRevise, "draft", "revision returned empty markdown")
	}
	if err := checkStructure(StageRevise, md, state.Outline); err != nil {
		return Patch{}, err
	}
	if state.RepairSpec.OnlyTargets(model.SectionSeoMeta) &&
		normalizeText(md) != normalizeText(state.Draft) {
		return Patch{}, inconsistent(StageRevise, "draft", "only %s was targeted but the article text changed", model.SectionSeoMeta)
	}

	left := state.RevisionsLeft - 1
	patch := Patch{Draft: &md, RevisionsLeft: &left}
	if revision.SeoPackage != nil {
		pkg := *revision.SeoPackage
		if err := checkPackage(StageRevise, &pkg, state.KeywordPlan, state.Outline); err != nil {
			return Patch{}, err
		}
		recountKeywords(&pkg.KeywordUsage, state.KeywordPlan, md)
		patch.Package = &pkg
	} else {
		pkg := *state.Package
		recountKeywords(&pkg.KeywordUsage, state.KeywordPlan, md)
		patch.Package = &pkg
	}
	return patch, nil
}
