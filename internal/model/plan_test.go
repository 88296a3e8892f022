package model

import (
	"errors"
	"testing"
)

func validPlan() *Plan {
	return &Plan{
		H1:                   "Best Seo Tools",
		IntroTargetWordCount: 100,
		Sections: []PlanSection{
			{SectionID: "s1", Heading: "Why Seo Tools Matter", Purpose: "context", KeyPoints: []string{"a"}, TargetWordCount: 200},
			{SectionID: "s2", Heading: "Conclusion", Purpose: "wrap up", KeyPoints: []string{"b"}, TargetWordCount: 200},
		},
		InternalLinks:     []PlannedInternalLink{{AnchorText: "x", TargetTopic: "y", PlacementSectionID: "s1"}},
		ExternalCitations: []PlannedCitation{{SourceType: "docs", SuggestedSource: "z", ClaimSupported: "c", PlacementSectionID: "s2"}},
		FAQs:              []PlannedFAQ{{Question: "q?", PlacementSectionID: "s2"}},
	}
}

func TestPlanValidate(t *testing.T) {
	if err := validPlan().Validate(); err != nil {
		t.Fatalf("expected valid plan, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(p *Plan)
	}{
		{"duplicate section id", func(p *Plan) { p.Sections[1].SectionID = "s1" }},
		{"dangling internal link", func(p *Plan) { p.InternalLinks[0].PlacementSectionID = "s9" }},
		{"dangling citation", func(p *Plan) { p.ExternalCitations[0].PlacementSectionID = "nope" }},
		{"dangling faq", func(p *Plan) { p.FAQs[0].PlacementSectionID = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPlan()
			tt.mutate(p)
			err := p.Validate()
			var integrity *PlanIntegrityError
			if !errors.As(err, &integrity) {
				t.Fatalf("expected PlanIntegrityError, got %v", err)
			}
		})
	}
}

func TestPlanTotalWordBudget(t *testing.T) {
	if got := validPlan().TotalWordBudget(); got != 500 {
		t.Errorf("TotalWordBudget() = %d, want 500", got)
	}
}
