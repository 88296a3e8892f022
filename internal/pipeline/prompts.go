package pipeline

import (
	"embed"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/amirhamza8927/aiseo-ai-backend/internal/model"
)

//go:embed prompts/*.md
var promptFS embed.FS

// Prompt template names
const (
	PromptThemes      = "themes"
	PromptPlanner     = "planner"
	PromptOutline     = "outline"
	PromptKeywordPlan = "keyword_plan"
	PromptWriter      = "writer"
	PromptSeoPackager = "seo_packager"
	PromptReviser     = "reviser"
)

// Prompts holds the parsed prompt templates. Templates use {{key}}
// placeholders; string values are inserted as is, everything else as
// indented JSON.
type Prompts struct {
	templates map[string]string
}

// LoadPrompts reads every embedded template.
func LoadPrompts() (*Prompts, error) {
	entries, err := promptFS.ReadDir("prompts")
	if err != nil {
		return nil, fmt.Errorf("failed to list prompts: %w", err)
	}
	p := &Prompts{templates: make(map[string]string, len(entries))}
	for _, e := range entries {
		data, err := promptFS.ReadFile("prompts/" + e.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read prompt %s: %w", e.Name(), err)
		}
		p.templates[strings.TrimSuffix(e.Name(), ".md")] = string(data)
	}
	return p, nil
}

// Render fills the named template.
func (p *Prompts) Render(name string, values map[string]any) (string, error) {
	tmpl, ok := p.templates[name]
	if !ok {
		return "", fmt.Errorf("unknown prompt template %q", name)
	}

	pairs := make([]string, 0, len(values)*2)
	for key, value := range values {
		text, err := promptValue(value)
		if err != nil {
			return "", fmt.Errorf("prompt %s: value %q: %w", name, key, err)
		}
		pairs = append(pairs, "{{"+key+"}}", text)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl), nil
}

func promptValue(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case int:
		return strconv.Itoa(t), nil
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// promptValues starts a value set with the job header every template
// opens with, then adds extra.
func promptValues(in model.JobInput, extra map[string]any) map[string]any {
	values := map[string]any{
		"topic":             in.Topic,
		"language":          in.Language,
		"target_word_count": in.TargetWordCount,
	}
	for k, v := range extra {
		values[k] = v
	}
	return values
}
