package pipeline

import (
	"bytes"
	"context"
	"log"
	"strings"

	"github.com/amirhamza8927/aiseo-ai-backend/internal/client"
	"github.com/amirhamza8927/aiseo-ai-backend/internal/markdown"
	"github.com/amirhamza8927/aiseo-ai-backend/internal/model"
)

const failIssueLimit = 5

// finalize assembles the publish-ready output from a passing run.
func finalize(ctx context.Context, state *model.PipelineState, deps *Deps) (Patch, error) {
	if strings.TrimSpace(state.JobID) == "" {
		return Patch{}, missing(StageFinalize, "job_id")
	}
	if err := requireDocument(StageFinalize, state); err != nil {
		return Patch{}, err
	}
	if state.Report == nil {
		return Patch{}, missing(StageFinalize, "report")
	}
	if !state.Report.Passed {
		return Patch{}, inconsistent(StageFinalize, "report", "cannot finalize when validation did not pass")
	}

	out := assembleDocument(state)
	out.ValidationReport = *state.Report
	recountKeywords(&out.KeywordAnalysis, state.KeywordPlan, state.Draft)

	html, err := markdown.ToHTML(state.Draft)
	if err != nil {
		return Patch{}, inconsistent(StageFinalize, "draft", "render html: %v", err)
	}
	out.ArticleHTML = html

	slug := markdown.Slugify(state.KeywordPlan.Primary)
	doc, err := markdown.WriteDocument(markdown.FrontMatter{
		Title:       out.SeoMeta.TitleTag,
		Description: out.SeoMeta.MetaDescription,
		Slug:        slug,
		Language:    state.Input.Language,
		Keywords:    append([]string{state.KeywordPlan.Primary}, state.KeywordPlan.Secondary...),
		JobID:       state.JobID,
		Score:       state.Report.Score,
	}, state.Draft)
	if err != nil {
		return Patch{}, inconsistent(StageFinalize, "document", "%v", err)
	}
	out.Document = doc
	out.StructuredData = structuredData(out, state)

	if deps.Artifacts != nil {
		links, err := archive(ctx, deps.Artifacts, state.JobID, slug, out)
		if err != nil {
			log.Printf("pipeline: job %s: article archive failed: %v", state.JobID, err)
		} else {
			out.Artifacts = links
		}
	}

	return Patch{Result: out}, nil
}

// structuredData returns schema.org Article markup for the output.
func structuredData(out *model.ArticleOutput, state *model.PipelineState) map[string]any {
	keywords := append([]string{state.KeywordPlan.Primary}, state.KeywordPlan.Secondary...)
	return map[string]any{
		"@context":       "https://schema.org",
		"@type":          "Article",
		"headline":       out.SeoMeta.TitleTag,
		"description":    out.SeoMeta.MetaDescription,
		"inLanguage":     state.Input.Language,
		"keywords":       strings.Join(keywords, ", "),
		"wordCount":      markdown.CountWords(state.Draft),
		"articleSection": out.Outline.SectionIDs(),
	}
}

func archive(ctx context.Context, store ArtifactStore, jobID, slug string, out *model.ArticleOutput) (*model.ArtifactLinks, error) {
	mdKey, htmlKey := client.ArticleKeys(jobID, slug)
	mdURL, err := store.Upload(ctx, mdKey, bytes.NewReader([]byte(out.Document)), "text/markdown; charset=utf-8")
	if err != nil {
		return nil, err
	}
	htmlURL, err := store.Upload(ctx, htmlKey, bytes.NewReader([]byte(out.ArticleHTML)), "text/html; charset=utf-8")
	if err != nil {
		return nil, err
	}
	return &model.ArtifactLinks{MarkdownURL: mdURL, HTMLURL: htmlURL}, nil
}

// failRun records why the quality gate could not be met.
func failRun(_ context.Context, state *model.PipelineState, _ *Deps) (Patch, error) {
	if strings.TrimSpace(state.JobID) == "" {
		return Patch{}, missing(StageFail, "job_id")
	}
	msg := FailureMessage(state)
	return Patch{Failure: &msg}, nil
}

// FailureMessage summarizes the last report and error of a run that ends
// in the fail stage.
func FailureMessage(state *model.PipelineState) string {
	var b strings.Builder
	if state.Report == nil {
		b.WriteString("Validation failed: no validation report produced")
	} else {
		b.WriteString("Validation failed after revisions exhausted")
		if issues := state.Report.Issues; len(issues) > 0 {
			if len(issues) > failIssueLimit {
				issues = issues[:failIssueLimit]
			}
			b.WriteString("; issues: ")
			b.WriteString(strings.Join(issues, "; "))
		}
	}
	if state.LastError != "" {
		b.WriteString("; last_error: ")
		b.WriteString(state.LastError)
	}
	return b.String()
}
