package quality

import (
	"strings"

	"github.com/amirhamza8927/aiseo-ai-backend/internal/model"
)

const testPrimary = "seo tools"

func testOutline() *model.Outline {
	return &model.Outline{
		H1: "Best Seo Tools",
		Sections: []model.OutlineSection{
			{SectionID: "s1", H2: "Why Seo Tools Matter"},
			{SectionID: "s2", H2: "Conclusion"},
		},
	}
}

// passingDoc scores 9/9 against DefaultConfig().WithWordTarget(500).
func passingDoc() *model.ArticleOutput {
	body := strings.Repeat("Lorem ipsum dolor sit amet. ", 90)
	md := "# Best Seo Tools\n\nThis intro covers seo tools for teams.\n\n## Why Seo Tools Matter\n\n" +
		body + "\n\n## Conclusion\n\nWrap up.\n"

	links := make([]model.InternalLinkSuggestion, 4)
	for i := range links {
		links[i] = model.InternalLinkSuggestion{AnchorText: "related guide", TargetTopic: "seo basics", PlacementSectionID: "s1"}
	}
	refs := make([]model.ExternalReference, 3)
	for i := range refs {
		refs[i] = model.ExternalReference{
			SourceName:        "Search Central",
			URL:               "https://developers.google.com/search",
			PlacementHint:     "Why Seo Tools Matter",
			CredibilityReason: "Official documentation",
		}
	}

	return &model.ArticleOutput{
		SeoMeta: model.SeoMeta{
			TitleTag:        "Best Seo Tools for 2026",
			MetaDescription: strings.Repeat("x", 150),
		},
		ArticleMarkdown:    md,
		Outline:            *testOutline(),
		KeywordAnalysis:    model.KeywordUsage{Primary: testPrimary, Counts: map[string]int{}},
		InternalLinks:      links,
		ExternalReferences: refs,
	}
}

func testConfig() Config {
	return DefaultConfig().WithWordTarget(500)
}
