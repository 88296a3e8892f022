package client

import (
	"errors"
	"strings"
	"testing"

	"github.com/amirhamza8927/aiseo-ai-backend/internal/model"
)

const themesJSON = `{"searchIntent":"informational","topicClusters":["a"],"commonSections":["b"],"rankingPatterns":["c"],"differentiationAngles":["d"]}`

func TestDecodeStructured(t *testing.T) {
	cases := map[string]string{
		"plain":  themesJSON,
		"fenced": "```json\n" + themesJSON + "\n```",
		"prose":  "Here is the result:\n" + themesJSON + "\nHope it helps {not json}",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			var themes model.Themes
			if err := DecodeStructured(raw, &themes); err != nil {
				t.Fatalf("DecodeStructured: %v", err)
			}
			if themes.SearchIntent != "informational" || len(themes.TopicClusters) != 1 {
				t.Errorf("unexpected themes: %+v", themes)
			}
		})
	}
}

func TestDecodeStructuredRejectsArray(t *testing.T) {
	var themes model.Themes
	if err := DecodeStructured(`[1,2,3]`, &themes); err == nil {
		t.Fatal("expected error for JSON array")
	}
}

func TestDecodeStructuredValidatesTags(t *testing.T) {
	var themes model.Themes
	err := DecodeStructured(`{"searchIntent":"x","topicClusters":[]}`, &themes)
	if err == nil || !strings.Contains(err.Error(), "schema validation failed") {
		t.Fatalf("expected schema error, got %v", err)
	}
	if themes.SearchIntent != "" {
		t.Error("target must stay untouched on failure")
	}
}

func TestDecodeStructuredRunsPlanIntegrity(t *testing.T) {
	raw := `{"h1":"H","introTargetWordCount":100,
		"sections":[{"sectionId":"s1","heading":"A","purpose":"p","keyPoints":["k"],"targetWordCount":100}],
		"internalLinks":[{"anchorText":"a","targetTopic":"t","placementSectionId":"s9"}],
		"externalCitations":[],"faqs":[]}`
	var plan model.Plan
	err := DecodeStructured(raw, &plan)
	var integrity *model.PlanIntegrityError
	if !errors.As(err, &integrity) {
		t.Fatalf("expected PlanIntegrityError, got %v", err)
	}
}

func TestDecodeStructuredNeedsPointer(t *testing.T) {
	if err := DecodeStructured(themesJSON, model.Themes{}); err == nil {
		t.Fatal("expected error for non-pointer target")
	}
}

func TestFirstJSONObjectSkipsBracesInStrings(t *testing.T) {
	got, ok := firstJSONObject(`noise {"a":"}{","b":{"c":1}} trailing}`)
	if !ok || got != `{"a":"}{","b":{"c":1}}` {
		t.Errorf("firstJSONObject = %q, %v", got, ok)
	}
}

func TestProviderError(t *testing.T) {
	cause := errors.New("boom")
	err := &ProviderError{Stage: "plan", Model: "gpt", Message: "failed", RawExcerpt: excerpt(strings.Repeat("x", 400)), Err: cause}
	if !errors.Is(err, cause) {
		t.Error("ProviderError must unwrap to its cause")
	}
	if err.Kind() != "ProviderError" {
		t.Errorf("Kind = %q", err.Kind())
	}
	if len(err.RawExcerpt) != 300 {
		t.Errorf("excerpt length = %d, want 300", len(err.RawExcerpt))
	}
	if !strings.HasPrefix(err.Error(), "[plan] gpt: failed") {
		t.Errorf("Error() = %q", err.Error())
	}
}
