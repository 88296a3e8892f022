package pipeline

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/amirhamza8927/aiseo-ai-backend/internal/client"
	"github.com/amirhamza8927/aiseo-ai-backend/internal/model"
)

var schema = validator.New()

func requireInput(stage Stage, in model.JobInput) error {
	switch {
	case strings.TrimSpace(in.Topic) == "":
		return missing(stage, "input.topic")
	case strings.TrimSpace(in.Language) == "":
		return missing(stage, "input.language")
	case in.TargetWordCount <= 0:
		return inconsistent(stage, "input.target_word_count", "must be > 0, got %d", in.TargetWordCount)
	}
	return nil
}

// gatherSources fetches exactly the configured number of ranked results.
func gatherSources(ctx context.Context, state *model.PipelineState, deps *Deps) (Patch, error) {
	if err := requireInput(StageGatherSources, state.Input); err != nil {
		return Patch{}, err
	}
	if deps.Sources == nil {
		return Patch{}, missing(StageGatherSources, "deps.sources")
	}

	k := deps.sourceCount()
	results, err := deps.Sources.FetchTopResults(ctx, state.Input.Topic, state.Input.Language, k)
	if err != nil {
		return Patch{}, &client.ProviderError{
			Stage:   string(StageGatherSources),
			Model:   "serp",
			Message: "result listing failed",
			Err:     err,
		}
	}
	if len(results) != k {
		return Patch{}, inconsistent(StageGatherSources, "sources", "expected exactly %d results, got %d", k, len(results))
	}
	for i := range results {
		if results[i].Rank != i+1 {
			return Patch{}, inconsistent(StageGatherSources, "sources", "result %d has rank %d", i+1, results[i].Rank)
		}
		if err := schema.Struct(&results[i]); err != nil {
			return Patch{}, inconsistent(StageGatherSources, "sources", "result %d invalid: %v", i+1, err)
		}
	}
	return Patch{Sources: results}, nil
}

// extractThemes summarizes what the ranking pages share.
func extractThemes(ctx context.Context, state *model.PipelineState, deps *Deps) (Patch, error) {
	if err := requireInput(StageExtractThemes, state.Input); err != nil {
		return Patch{}, err
	}
	if len(state.Sources) == 0 {
		return Patch{}, missing(StageExtractThemes, "sources")
	}

	prompt, err := deps.Prompts.Render(PromptThemes, promptValues(state.Input, map[string]any{
		"serp_results": state.Sources,
	}))
	if err != nil {
		return Patch{}, err
	}

	var themes model.Themes
	if err := deps.Generator.GenerateStructured(ctx, string(StageExtractThemes), prompt, &themes); err != nil {
		return Patch{}, err
	}
	return Patch{Themes: &themes}, nil
}
