package pipeline

import (
	"context"
	"strings"

	"github.com/amirhamza8927/aiseo-ai-backend/internal/markdown"
	"github.com/amirhamza8927/aiseo-ai-backend/internal/model"
)

// writeDraft generates the article markdown.
func writeDraft(ctx context.Context, state *model.PipelineState, deps *Deps) (Patch, error) {
	if err := requireInput(StageDraft, state.Input); err != nil {
		return Patch{}, err
	}
	if state.Plan == nil {
		return Patch{}, missing(StageDraft, "plan")
	}
	if state.Outline == nil {
		return Patch{}, missing(StageDraft, "outline")
	}
	if state.KeywordPlan == nil {
		return Patch{}, missing(StageDraft, "keyword_plan")
	}

	prompt, err := deps.Prompts.Render(PromptWriter, promptValues(state.Input, map[string]any{
		"plan":         state.Plan,
		"outline":      state.Outline,
		"keyword_plan": state.KeywordPlan,
		"primary":      state.KeywordPlan.Primary,
	}))
	if err != nil {
		return Patch{}, err
	}

	md, err := deps.Generator.GenerateText(ctx, string(StageDraft), prompt)
	if err != nil {
		return Patch{}, err
	}
	md = strings.TrimSpace(md)
	if md == "" {
		return Patch{}, inconsistent(StageDraft, "draft", "generator returned empty markdown")
	}
	if err := checkStructure(StageDraft, md, state.Outline); err != nil {
		return Patch{}, err
	}
	return Patch{Draft: &md}, nil
}

// checkStructure requires exactly one H1 and every outline H2, compared
// case-insensitively with whitespace collapsed.
func checkStructure(stage Stage, md string, outline *model.Outline) error {
	headings := markdown.ExtractHeadings(md)
	if n := markdown.CountLevel(headings, 1); n != 1 {
		return inconsistent(stage, "draft", "expected exactly 1 H1, found %d", n)
	}

	present := make(map[string]struct{})
	for _, h2 := range markdown.HeadingTexts(headings, 2) {
		present[normalizeText(h2)] = struct{}{}
	}
	var absent []string
	for _, sec := range outline.Sections {
		if _, ok := present[normalizeText(sec.H2)]; !ok {
			absent = append(absent, sec.H2)
		}
	}
	if len(absent) > 0 {
		return inconsistent(stage, "draft", "missing required H2 headings: %q", absent)
	}
	return nil
}

func normalizeText(s string) string {
	return strings.ToLower(markdown.NormalizeSpace(s))
}

// packageMetadata produces the SEO package for the current draft.
func packageMetadata(ctx context.Context, state *model.PipelineState, deps *Deps) (Patch, error) {
	if err := requireInput(StagePackage, state.Input); err != nil {
		return Patch{}, err
	}
	if state.Plan == nil {
		return Patch{}, missing(StagePackage, "plan")
	}
	if state.Outline == nil {
		return Patch{}, missing(StagePackage, "outline")
	}
	if state.KeywordPlan == nil {
		return Patch{}, missing(StagePackage, "keyword_plan")
	}
	if strings.TrimSpace(state.Draft) == "" {
		return Patch{}, missing(StagePackage, "draft")
	}

	cfg := deps.qualityFor(state.Input)
	prompt, err := deps.Prompts.Render(PromptSeoPackager, promptValues(state.Input, map[string]any{
		"primary":          state.KeywordPlan.Primary,
		"article_markdown": state.Draft,
		"outline":          state.Outline,
		"keyword_plan":     state.KeywordPlan,
		"plan":             state.Plan,
		"meta_min":         cfg.MetaDescriptionMin,
		"meta_max":         cfg.MetaDescriptionMax,
		"links_min":        cfg.InternalLinksMin,
		"links_max":        cfg.InternalLinksMax,
		"refs_min":         cfg.ExternalRefsMin,
		"refs_max":         cfg.ExternalRefsMax,
	}))
	if err != nil {
		return Patch{}, err
	}

	var pkg model.SeoPackage
	if err := deps.Generator.GenerateStructured(ctx, string(StagePackage), prompt, &pkg); err != nil {
		return Patch{}, err
	}
	if err := checkPackage(StagePackage, &pkg, state.KeywordPlan, state.Outline); err != nil {
		return Patch{}, err
	}
	recountKeywords(&pkg.KeywordUsage, state.KeywordPlan, state.Draft)
	return Patch{Package: &pkg}, nil
}

// checkPackage requires the package primary to match the keyword plan and
// every link placement to name an outline section.
func checkPackage(stage Stage, pkg *model.SeoPackage, kp *model.KeywordPlan, outline *model.Outline) error {
	if !sameKeyword(pkg.KeywordUsage.Primary, kp.Primary) {
		return inconsistent(stage, "package", "keyword usage primary %q does not match %q", pkg.KeywordUsage.Primary, kp.Primary)
	}
	for _, link := range pkg.InternalLinks {
		if link.PlacementSectionID != "" && !outline.HasSection(link.PlacementSectionID) {
			return inconsistent(stage, "package", "invalid placement section id %q", link.PlacementSectionID)
		}
	}
	return nil
}

// recountKeywords replaces the usage counts with counts taken from the
// article's visible text.
func recountKeywords(usage *model.KeywordUsage, kp *model.KeywordPlan, md string) {
	usage.Primary = kp.Primary
	if len(usage.Secondary) == 0 {
		usage.Secondary = append([]string(nil), kp.Secondary...)
	}
	text := markdown.PlainText(md)
	counts := make(map[string]int, len(usage.Secondary)+1)
	counts[kp.Primary] = markdown.CountKeyword(text, kp.Primary)
	for _, s := range usage.Secondary {
		counts[s] = markdown.CountKeyword(text, s)
	}
	usage.Counts = counts
}
