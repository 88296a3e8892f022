package client

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/amirhamza8927/aiseo-ai-backend/internal/model"
)

// Prompt header lines every pipeline prompt starts with. MockLLM reads
// them back to build its fixtures.
const (
	HeaderTopic      = "Topic: "
	HeaderLanguage   = "Language: "
	HeaderWordTarget = "Target word count: "
)

// MockLLM is an offline generator returning deterministic artifacts that
// pass every quality check. It is used in development when no API key is
// configured, and by tests.
type MockLLM struct {
	mu    sync.Mutex
	calls map[string]int
}

// NewMockLLM creates a new offline generator
func NewMockLLM() *MockLLM {
	return &MockLLM{calls: make(map[string]int)}
}

func (m *MockLLM) record(stage string) {
	m.mu.Lock()
	m.calls[stage]++
	m.mu.Unlock()
}

// Calls returns how often stage was requested.
func (m *MockLLM) Calls(stage string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[stage]
}

type promptHeader struct {
	topic  string
	title  string
	lang   string
	target int
}

func parseHeader(prompt string) (promptHeader, error) {
	h := promptHeader{lang: "en", target: 1500}
	sc := bufio.NewScanner(strings.NewReader(prompt))
	// only the leading header block counts; article text further down may
	// contain look-alike lines
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			break
		}
		switch {
		case strings.HasPrefix(line, HeaderTopic):
			h.topic = strings.TrimSpace(strings.TrimPrefix(line, HeaderTopic))
		case strings.HasPrefix(line, HeaderLanguage):
			h.lang = strings.TrimSpace(strings.TrimPrefix(line, HeaderLanguage))
		case strings.HasPrefix(line, HeaderWordTarget):
			n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, HeaderWordTarget)))
			if err == nil && n > 0 {
				h.target = n
			}
		}
	}
	if h.topic == "" {
		return h, fmt.Errorf("mock llm: prompt has no %q header", strings.TrimSpace(HeaderTopic))
	}
	h.title = cases.Title(language.English).String(h.topic)
	return h, nil
}

// GenerateStructured fills out with the fixture for its type.
func (m *MockLLM) GenerateStructured(ctx context.Context, stage, prompt string, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.record(stage)

	h, err := parseHeader(prompt)
	if err != nil {
		return err
	}

	switch v := out.(type) {
	case *model.Themes:
		*v = mockThemes(h)
	case *model.Plan:
		*v = mockPlan(h)
	case *model.Outline:
		*v = mockOutline(h)
	case *model.KeywordPlan:
		*v = mockKeywordPlan(h)
	case *model.SeoPackage:
		*v = mockPackage(h)
	case *model.RevisionResult:
		pkg := mockPackage(h)
		*v = model.RevisionResult{
			ArticleMarkdown: mockArticle(h),
			SeoPackage:      &pkg,
			Notes:           []string{"Regenerated article against the outline"},
		}
	default:
		return fmt.Errorf("mock llm: unsupported output type %T", out)
	}
	return nil
}

// GenerateText returns the fixture article.
func (m *MockLLM) GenerateText(ctx context.Context, stage, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.record(stage)

	h, err := parseHeader(prompt)
	if err != nil {
		return "", err
	}
	return mockArticle(h), nil
}

type mockSection struct {
	id, h2 string
}

func mockSections(h promptHeader) []mockSection {
	return []mockSection{
		{"s1", "Why " + h.title + " Matters"},
		{"s2", "How to Choose " + h.title},
		{"s3", "Getting Started with " + h.title},
	}
}

func mockH1(h promptHeader) string {
	return h.title + ": The Complete Guide"
}

func mockThemes(h promptHeader) model.Themes {
	return model.Themes{
		SearchIntent:          "informational",
		TopicClusters:         []string{h.topic + " basics", h.topic + " selection", h.topic + " setup"},
		CommonSections:        []string{"Benefits", "How to choose", "Getting started"},
		RankingPatterns:       []string{"Listicles with comparison tables", "Step by step guides"},
		DifferentiationAngles: []string{"Hands-on selection checklist", "Common mistakes to avoid"},
	}
}

func mockPlan(h promptHeader) model.Plan {
	intro := h.target / 5
	if intro < 1 {
		intro = 1
	}
	sections := mockSections(h)
	rest := h.target - intro
	per := rest / len(sections)

	plan := model.Plan{
		H1:                   mockH1(h),
		IntroTargetWordCount: intro,
	}
	for i, s := range sections {
		budget := per
		if i == len(sections)-1 {
			budget = rest - per*(len(sections)-1)
		}
		if budget < 1 {
			budget = 1
		}
		plan.Sections = append(plan.Sections, model.PlanSection{
			SectionID:        s.id,
			Heading:          s.h2,
			Purpose:          "Explain " + strings.ToLower(s.h2),
			KeyPoints:        []string{"Core idea", "Practical example"},
			TargetWordCount:  budget,
			RequiredKeywords: []string{h.topic},
		})
	}
	plan.InternalLinks = []model.PlannedInternalLink{
		{AnchorText: h.topic + " checklist", TargetTopic: h.topic + " checklist", PlacementSectionID: "s1"},
		{AnchorText: "buying criteria", TargetTopic: h.topic + " buying criteria", PlacementSectionID: "s2"},
		{AnchorText: "setup walkthrough", TargetTopic: h.topic + " setup", PlacementSectionID: "s3"},
		{AnchorText: "common mistakes", TargetTopic: h.topic + " mistakes", PlacementSectionID: "s1"},
	}
	plan.ExternalCitations = []model.PlannedCitation{
		{SourceType: "documentation", SuggestedSource: "Google Search Central", URL: "https://developers.google.com/search/docs", ClaimSupported: "Search quality guidance", PlacementSectionID: "s1"},
		{SourceType: "research", SuggestedSource: "Pew Research Center", URL: "https://www.pewresearch.org", ClaimSupported: "Adoption trends", PlacementSectionID: "s2"},
	}
	plan.FAQs = []model.PlannedFAQ{
		{Question: "What is " + h.topic + "?", PlacementSectionID: "s1"},
		{Question: "How do I get started with " + h.topic + "?", PlacementSectionID: "s3"},
	}
	return plan
}

func mockOutline(h promptHeader) model.Outline {
	outline := model.Outline{H1: mockH1(h)}
	for _, s := range mockSections(h) {
		outline.Sections = append(outline.Sections, model.OutlineSection{SectionID: s.id, H2: s.h2, H3: []string{}})
	}
	return outline
}

func mockSecondary(h promptHeader) []string {
	var out []string
	for _, k := range []string{"Practical Tips", "Common Mistakes", "Getting Started"} {
		if !strings.Contains(strings.ToLower(k), strings.ToLower(h.topic)) {
			out = append(out, k)
		}
	}
	return out
}

func mockKeywordPlan(h promptHeader) model.KeywordPlan {
	secondary := mockSecondary(h)
	targets := map[string]int{h.topic: 5}
	for _, k := range secondary {
		targets[k] = 1
	}
	return model.KeywordPlan{Primary: h.topic, Secondary: secondary, UsageTargets: targets}
}

func mockMetaDescription(h promptHeader) string {
	const length = 150
	d := "Learn how " + h.topic + " works, how to choose the right option and how to get started with confidence using this practical guide."
	for len([]rune(d)) < length {
		d += " Expert advice inside."
	}
	r := []rune(d)[:length]
	r[length-1] = '.'
	return string(r)
}

func mockPackage(h promptHeader) model.SeoPackage {
	return model.SeoPackage{
		SeoMeta: model.SeoMeta{
			TitleTag:        mockH1(h),
			MetaDescription: mockMetaDescription(h),
		},
		InternalLinks: []model.InternalLinkSuggestion{
			{AnchorText: h.topic + " checklist", TargetTopic: h.topic + " checklist", PlacementSectionID: "s1"},
			{AnchorText: "buying criteria", TargetTopic: h.topic + " buying criteria", PlacementSectionID: "s2"},
			{AnchorText: "setup walkthrough", TargetTopic: h.topic + " setup", PlacementSectionID: "s3"},
			{AnchorText: "common mistakes", TargetTopic: h.topic + " mistakes", PlacementSectionID: "s1"},
		},
		ExternalReferences: []model.ExternalReference{
			{SourceName: "Google Search Central", URL: "https://developers.google.com/search/docs", PlacementHint: "s1", CredibilityReason: "Official search engine documentation"},
			{SourceName: "Pew Research Center", URL: "https://www.pewresearch.org", PlacementHint: "s2", CredibilityReason: "Independent research organisation"},
			{SourceName: "Nielsen Norman Group", URL: "https://www.nngroup.com", PlacementHint: "s3", CredibilityReason: "Established usability research"},
		},
		KeywordUsage: model.KeywordUsage{
			Primary:   h.topic,
			Secondary: mockSecondary(h),
			Counts:    map[string]int{},
		},
	}
}

var fillerSentences = []string{
	"Small consistent improvements add up over time and keep results predictable.",
	"Write down what you expect before you start so you can compare it with what happens.",
	"Teams that review their choices every quarter tend to spot problems early.",
	"Keep the setup simple at first and add complexity only when it pays off.",
	"Ask people who use it every day what slows them down and fix that first.",
	"Clear documentation saves hours when someone new joins the project.",
}

// mockArticle renders a markdown article with one H1, an intro naming the
// topic and one H2 per outline section, padded with plain sentences until
// its word count reaches the target.
func mockArticle(h promptHeader) string {
	sections := mockSections(h)
	intro := fmt.Sprintf("This guide explains %s in plain terms and shows how to apply it.", h.topic)
	paragraphs := make([][]string, len(sections))
	for i, s := range sections {
		paragraphs[i] = []string{fmt.Sprintf("This part covers %s with concrete advice.", strings.ToLower(s.h2))}
	}

	count := len(strings.Fields(mockH1(h))) + len(strings.Fields(intro))
	for i, s := range sections {
		count += len(strings.Fields(s.h2)) + len(strings.Fields(paragraphs[i][0]))
	}

	for i := 0; ; i++ {
		sentence := fillerSentences[i%len(fillerSentences)]
		n := len(strings.Fields(sentence))
		if count+n > h.target {
			break
		}
		idx := i % len(sections)
		paragraphs[idx] = append(paragraphs[idx], sentence)
		count += n
	}
	if rest := h.target - count; rest > 0 {
		words := strings.Fields(fillerSentences[0])
		if rest > len(words) {
			rest = len(words)
		}
		last := len(sections) - 1
		paragraphs[last] = append(paragraphs[last], strings.Join(words[:rest], " "))
	}

	var b strings.Builder
	b.WriteString("# " + mockH1(h) + "\n\n")
	b.WriteString(intro + "\n\n")
	for i, s := range sections {
		b.WriteString("## " + s.h2 + "\n\n")
		b.WriteString(strings.Join(paragraphs[i], " ") + "\n\n")
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}
