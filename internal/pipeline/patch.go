package pipeline

import "github.com/amirhamza8927/aiseo-ai-backend/internal/model"

// Patch is the partial update a stage returns. Nil fields leave the state
// untouched.
type Patch struct {
	Sources       []model.SerpResult
	Themes        *model.Themes
	Plan          *model.Plan
	Outline       *model.Outline
	KeywordPlan   *model.KeywordPlan
	Draft         *string
	Package       *model.SeoPackage
	Report        *model.ValidationReport
	RepairSpec    *model.RepairSpec
	RevisionsLeft *int
	LastError     *string
	Result        *model.ArticleOutput
	Failure       *string
}

// Apply merges p into state.
func (p Patch) Apply(state *model.PipelineState) {
	if p.Sources != nil {
		state.Sources = p.Sources
	}
	if p.Themes != nil {
		state.Themes = p.Themes
	}
	if p.Plan != nil {
		state.Plan = p.Plan
	}
	if p.Outline != nil {
		state.Outline = p.Outline
	}
	if p.KeywordPlan != nil {
		state.KeywordPlan = p.KeywordPlan
	}
	if p.Draft != nil {
		state.Draft = *p.Draft
	}
	if p.Package != nil {
		state.Package = p.Package
	}
	if p.Report != nil {
		state.Report = p.Report
	}
	if p.RepairSpec != nil {
		state.RepairSpec = p.RepairSpec
	}
	if p.RevisionsLeft != nil {
		n := *p.RevisionsLeft
		if n < 0 {
			n = 0
		}
		if n < state.RevisionsLeft {
			state.RevisionsLeft = n
		}
	}
	if p.LastError != nil {
		state.LastError = *p.LastError
	}
	if p.Result != nil {
		state.Result = p.Result
	}
	if p.Failure != nil {
		state.Failure = *p.Failure
	}
}
