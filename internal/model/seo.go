package model

// KeywordPlan fixes the primary keyword and the supporting terms
type KeywordPlan struct {
	Primary      string         `json:"primary" validate:"required"`
	Secondary    []string       `json:"secondary" validate:"dive,required"`
	UsageTargets map[string]int `json:"usageTargets,omitempty"`
}

// SeoMeta is the search snippet metadata
type SeoMeta struct {
	TitleTag        string `json:"titleTag" validate:"required"`
	MetaDescription string `json:"metaDescription" validate:"required"`
}

// InternalLinkSuggestion points readers to another page of the site
type InternalLinkSuggestion struct {
	AnchorText         string `json:"anchorText" validate:"required"`
	TargetTopic        string `json:"targetTopic" validate:"required"`
	PlacementSectionID string `json:"placementSectionId,omitempty"`
}

// ExternalReference is an outside source cited by the article
type ExternalReference struct {
	SourceName        string `json:"sourceName" validate:"required"`
	URL               string `json:"url,omitempty" validate:"omitempty,url"`
	PlacementHint     string `json:"placementHint" validate:"required"`
	CredibilityReason string `json:"credibilityReason" validate:"required"`
}

// KeywordUsage records which keywords the article uses and how often
type KeywordUsage struct {
	Primary   string         `json:"primary" validate:"required"`
	Secondary []string       `json:"secondary"`
	Counts    map[string]int `json:"counts"`
}

// SeoPackage is the metadata bundle that ships with a draft
type SeoPackage struct {
	SeoMeta            SeoMeta                  `json:"seoMeta"`
	InternalLinks      []InternalLinkSuggestion `json:"internalLinks" validate:"dive"`
	ExternalReferences []ExternalReference      `json:"externalReferences" validate:"dive"`
	KeywordUsage       KeywordUsage             `json:"keywordUsage"`
}

// RevisionResult is what a targeted revision returns
type RevisionResult struct {
	ArticleMarkdown string      `json:"articleMarkdown" validate:"required"`
	SeoPackage      *SeoPackage `json:"seoPackage,omitempty"`
	Notes           []string    `json:"notes,omitempty"`
}
