package model

// SerpResult is one entry of a ranked search result listing
type SerpResult struct {
	Rank    int    `json:"rank" validate:"gte=1"`
	URL     string `json:"url" validate:"required,url"`
	Title   string `json:"title" validate:"required"`
	Snippet string `json:"snippet" validate:"required"`
}

// Themes summarizes what the ranking pages have in common
type Themes struct {
	SearchIntent          string   `json:"searchIntent" validate:"required"`
	TopicClusters         []string `json:"topicClusters" validate:"min=1,dive,required"`
	CommonSections        []string `json:"commonSections" validate:"min=1,dive,required"`
	RankingPatterns       []string `json:"rankingPatterns" validate:"min=1,dive,required"`
	DifferentiationAngles []string `json:"differentiationAngles" validate:"min=1,dive,required"`
}
