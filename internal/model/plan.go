package model

import "fmt"

// PlanSection is a single body section of the content plan
type PlanSection struct {
	SectionID        string   `json:"sectionId" validate:"required"`
	Heading          string   `json:"heading" validate:"required"`
	Purpose          string   `json:"purpose" validate:"required"`
	KeyPoints        []string `json:"keyPoints" validate:"min=1,dive,required"`
	TargetWordCount  int      `json:"targetWordCount" validate:"gt=0"`
	RequiredKeywords []string `json:"requiredKeywords"`
}

// PlannedInternalLink is a link the plan wants placed in a section
type PlannedInternalLink struct {
	AnchorText         string `json:"anchorText" validate:"required"`
	TargetTopic        string `json:"targetTopic" validate:"required"`
	PlacementSectionID string `json:"placementSectionId" validate:"required"`
}

// PlannedCitation is an external source the plan wants cited
type PlannedCitation struct {
	SourceType         string `json:"sourceType" validate:"required"`
	SuggestedSource    string `json:"suggestedSource" validate:"required"`
	URL                string `json:"url,omitempty" validate:"omitempty,url"`
	ClaimSupported     string `json:"claimSupported" validate:"required"`
	PlacementSectionID string `json:"placementSectionId" validate:"required"`
}

// PlannedFAQ is a question to be answered inside a section
type PlannedFAQ struct {
	Question           string `json:"question" validate:"required"`
	PlacementSectionID string `json:"placementSectionId" validate:"required"`
}

// Plan is the content plan produced before outlining
type Plan struct {
	H1                   string                `json:"h1" validate:"required"`
	IntroTargetWordCount int                   `json:"introTargetWordCount" validate:"gt=0"`
	Sections             []PlanSection         `json:"sections" validate:"min=1,dive"`
	InternalLinks        []PlannedInternalLink `json:"internalLinks" validate:"dive"`
	ExternalCitations    []PlannedCitation     `json:"externalCitations" validate:"dive"`
	FAQs                 []PlannedFAQ          `json:"faqs" validate:"dive"`
}

// PlanIntegrityError reports a plan whose cross references do not hold
type PlanIntegrityError struct {
	Reason string
}

func (e *PlanIntegrityError) Error() string {
	return "plan integrity: " + e.Reason
}

// Kind names the error category in job error messages.
func (e *PlanIntegrityError) Kind() string { return "PlanIntegrityError" }

// SectionIDs returns the section ids in plan order.
func (p *Plan) SectionIDs() []string {
	ids := make([]string, 0, len(p.Sections))
	for _, s := range p.Sections {
		ids = append(ids, s.SectionID)
	}
	return ids
}

// TotalWordBudget is the intro budget plus every section budget.
func (p *Plan) TotalWordBudget() int {
	total := p.IntroTargetWordCount
	for _, s := range p.Sections {
		total += s.TargetWordCount
	}
	return total
}

// Validate checks that section ids are unique and every placement
// reference names one of them.
func (p *Plan) Validate() error {
	ids := make(map[string]struct{}, len(p.Sections))
	for _, s := range p.Sections {
		if _, dup := ids[s.SectionID]; dup {
			return &PlanIntegrityError{Reason: fmt.Sprintf("duplicate section id %q", s.SectionID)}
		}
		ids[s.SectionID] = struct{}{}
	}

	check := func(kind, id string) error {
		if _, ok := ids[id]; !ok {
			return &PlanIntegrityError{Reason: fmt.Sprintf("%s references unknown section %q", kind, id)}
		}
		return nil
	}
	for _, l := range p.InternalLinks {
		if err := check("internal link", l.PlacementSectionID); err != nil {
			return err
		}
	}
	for _, c := range p.ExternalCitations {
		if err := check("external citation", c.PlacementSectionID); err != nil {
			return err
		}
	}
	for _, f := range p.FAQs {
		if err := check("faq", f.PlacementSectionID); err != nil {
			return err
		}
	}
	return nil
}
