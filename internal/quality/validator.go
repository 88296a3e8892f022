// Package quality holds the deterministic SEO gate: the nine scored checks
// and the translation of failed checks into repair instructions.
package quality

import (
	"encoding/json"
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/amirhamza8927/aiseo-ai-backend/internal/markdown"
	"github.com/amirhamza8927/aiseo-ai-backend/internal/model"
)

// Check names, in evaluation order
const (
	CheckPrimaryInTitleTag          = "primary_in_title_tag"
	CheckPrimaryInIntro             = "primary_in_intro"
	CheckPrimaryInH2                = "primary_in_h2"
	CheckHeadingHierarchyValid      = "heading_hierarchy_valid"
	CheckWordCountWithinTolerance   = "word_count_within_tolerance"
	CheckMetaDescriptionLengthValid = "meta_description_length_valid"
	CheckInternalLinksCountValid    = "internal_links_count_valid"
	CheckExternalRefsCountValid     = "external_refs_count_valid"
	CheckOutputSchemaValid          = "output_schema_valid"
)

var CheckOrder = []string{
	CheckPrimaryInTitleTag,
	CheckPrimaryInIntro,
	CheckPrimaryInH2,
	CheckHeadingHierarchyValid,
	CheckWordCountWithinTolerance,
	CheckMetaDescriptionLengthValid,
	CheckInternalLinksCountValid,
	CheckExternalRefsCountValid,
	CheckOutputSchemaValid,
}

// Config holds the thresholds the checks are evaluated against
type Config struct {
	WordCountTarget    int
	WordCountTolerance float64
	MetaDescriptionMin int
	MetaDescriptionMax int
	InternalLinksMin   int
	InternalLinksMax   int
	ExternalRefsMin    int
	ExternalRefsMax    int
}

// DefaultConfig returns the standard publishing thresholds.
func DefaultConfig() Config {
	return Config{
		WordCountTarget:    1500,
		WordCountTolerance: 0.15,
		MetaDescriptionMin: 140,
		MetaDescriptionMax: 160,
		InternalLinksMin:   3,
		InternalLinksMax:   5,
		ExternalRefsMin:    2,
		ExternalRefsMax:    4,
	}
}

// WithWordTarget returns a copy of c targeting n words.
func (c Config) WithWordTarget(n int) Config {
	c.WordCountTarget = n
	return c
}

// WordCountBounds returns the inclusive word count window around the target.
func (c Config) WordCountBounds() (min, max int) {
	target := float64(c.WordCountTarget)
	tolerance := target * c.WordCountTolerance
	return int(math.Ceil(target - tolerance - 1e-9)), int(math.Floor(target + tolerance + 1e-9))
}

var schema = validator.New()

// Validate scores doc against the nine checks. It has no side effects and
// always returns one result per check in CheckOrder.
func Validate(doc *model.ArticleOutput, primary string, cfg Config) model.ValidationReport {
	var issues []string
	checks := make(model.Checks, 0, len(CheckOrder))
	record := func(name string, passed bool, issue ...string) {
		checks = append(checks, model.CheckResult{Name: name, Passed: passed})
		if !passed {
			issues = append(issues, issue...)
		}
	}

	md := doc.ArticleMarkdown
	headings := markdown.ExtractHeadings(md)

	record(CheckPrimaryInTitleTag,
		markdown.ContainsFold(doc.SeoMeta.TitleTag, primary),
		fmt.Sprintf("Primary keyword '%s' missing from title_tag", primary))

	record(CheckPrimaryInIntro,
		markdown.CountKeyword(markdown.Intro(md), primary) > 0,
		fmt.Sprintf("Primary keyword '%s' missing from intro paragraph", primary))

	inH2 := false
	for _, h2 := range markdown.HeadingTexts(headings, 2) {
		if markdown.CountKeyword(h2, primary) > 0 {
			inH2 = true
			break
		}
	}
	record(CheckPrimaryInH2, inH2,
		fmt.Sprintf("Primary keyword '%s' missing from all H2 headings", primary))

	hierarchyOK, hierarchyIssues := headingHierarchy(headings)
	record(CheckHeadingHierarchyValid, hierarchyOK, hierarchyIssues...)

	words := markdown.CountWords(md)
	wcMin, wcMax := cfg.WordCountBounds()
	record(CheckWordCountWithinTolerance,
		words >= wcMin && words <= wcMax,
		fmt.Sprintf("Word count %d outside tolerance [%d, %d]", words, wcMin, wcMax))

	metaLen := utf8.RuneCountInString(doc.SeoMeta.MetaDescription)
	record(CheckMetaDescriptionLengthValid,
		metaLen >= cfg.MetaDescriptionMin && metaLen <= cfg.MetaDescriptionMax,
		fmt.Sprintf("Meta description length %d outside [%d, %d]", metaLen, cfg.MetaDescriptionMin, cfg.MetaDescriptionMax))

	links := len(doc.InternalLinks)
	record(CheckInternalLinksCountValid,
		links >= cfg.InternalLinksMin && links <= cfg.InternalLinksMax,
		fmt.Sprintf("Internal links count %d outside [%d, %d]", links, cfg.InternalLinksMin, cfg.InternalLinksMax))

	refs := len(doc.ExternalReferences)
	record(CheckExternalRefsCountValid,
		refs >= cfg.ExternalRefsMin && refs <= cfg.ExternalRefsMax,
		fmt.Sprintf("External references count %d outside [%d, %d]", refs, cfg.ExternalRefsMin, cfg.ExternalRefsMax))

	record(CheckOutputSchemaValid, roundTrips(doc),
		"SeoArticleOutput failed schema round-trip validation")

	passed := checks.CountPassed()
	if issues == nil {
		issues = []string{}
	}
	return model.ValidationReport{
		Passed: passed == len(checks),
		Score:  float64(passed) / float64(len(checks)),
		Issues: issues,
		Checks: checks,
	}
}

func headingHierarchy(headings []markdown.Heading) (bool, []string) {
	var issues []string

	switch h1 := markdown.CountLevel(headings, 1); {
	case h1 == 0:
		issues = append(issues, "No H1 heading found")
	case h1 > 1:
		issues = append(issues, fmt.Sprintf("Expected exactly 1 H1, found %d", h1))
	}

	h2Seen := false
	for _, h := range headings {
		switch {
		case h.Level == 2:
			h2Seen = true
		case h.Level == 3 && !h2Seen:
			issues = append(issues, fmt.Sprintf("H3 '%s' appears before any H2", h.Text))
		case h.Level >= 4:
			issues = append(issues, fmt.Sprintf("H%d '%s' found; prefer H1-H3 only", h.Level, h.Text))
		}
	}
	return len(issues) == 0, issues
}

func roundTrips(doc *model.ArticleOutput) bool {
	data, err := json.Marshal(doc)
	if err != nil {
		return false
	}
	var decoded model.ArticleOutput
	if err := json.Unmarshal(data, &decoded); err != nil {
		return false
	}
	return schema.Struct(&decoded) == nil
}
