package model

// ArtifactLinks are the object storage locations of a published article
type ArtifactLinks struct {
	MarkdownURL string `json:"markdownUrl"`
	HTMLURL     string `json:"htmlUrl"`
}

// ArticleOutput is the publish-ready result of a pipeline run. The
// validator also assembles one from the current draft before scoring.
type ArticleOutput struct {
	SeoMeta            SeoMeta                  `json:"seoMeta"`
	ArticleMarkdown    string                   `json:"articleMarkdown" validate:"required"`
	ArticleHTML        string                   `json:"articleHtml,omitempty"`
	Document           string                   `json:"document,omitempty"`
	Outline            Outline                  `json:"outline"`
	KeywordAnalysis    KeywordUsage             `json:"keywordAnalysis"`
	InternalLinks      []InternalLinkSuggestion `json:"internalLinks" validate:"dive"`
	ExternalReferences []ExternalReference      `json:"externalReferences" validate:"dive"`
	StructuredData     map[string]any           `json:"structuredData,omitempty"`
	ValidationReport   ValidationReport         `json:"validationReport"`
	Artifacts          *ArtifactLinks           `json:"artifacts,omitempty"`
}
