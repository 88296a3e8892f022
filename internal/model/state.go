package model

// PipelineState accumulates the artifacts of one run. Stages only ever
// read it and return patches; the orchestrator applies them.
type PipelineState struct {
	JobID         string            `json:"jobId"`
	Input         JobInput          `json:"input"`
	Sources       []SerpResult      `json:"sources,omitempty"`
	Themes        *Themes           `json:"themes,omitempty"`
	Plan          *Plan             `json:"plan,omitempty"`
	Outline       *Outline          `json:"outline,omitempty"`
	KeywordPlan   *KeywordPlan      `json:"keywordPlan,omitempty"`
	Draft         string            `json:"draft,omitempty"`
	Package       *SeoPackage       `json:"package,omitempty"`
	Report        *ValidationReport `json:"report,omitempty"`
	RepairSpec    *RepairSpec       `json:"repairSpec,omitempty"`
	RevisionsLeft int               `json:"revisionsLeft"`
	CurrentStage  string            `json:"currentStage,omitempty"`
	LastError     string            `json:"lastError,omitempty"`
	Result        *ArticleOutput    `json:"result,omitempty"`
	Failure       string            `json:"failure,omitempty"`
}
