package markdown

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"gopkg.in/yaml.v3"
)

var (
	// ErrMissingFrontMatter indicates the document did not start with a YAML fence.
	ErrMissingFrontMatter = errors.New("markdown: missing frontmatter")
	// ErrMalformedFrontMatter indicates the YAML block was not closed.
	ErrMalformedFrontMatter = errors.New("markdown: malformed frontmatter")
)

// FrontMatter is the publishing metadata written ahead of the article body
type FrontMatter struct {
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Slug        string   `yaml:"slug"`
	Language    string   `yaml:"lang"`
	Keywords    []string `yaml:"keywords,omitempty"`
	JobID       string   `yaml:"job_id,omitempty"`
	Score       float64  `yaml:"seo_score"`
}

// ToHTML renders markdown to an HTML fragment.
func ToHTML(md string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// WriteDocument renders meta and body with YAML fences.
func WriteDocument(meta FrontMatter, body string) (string, error) {
	if meta.Title == "" {
		return "", fmt.Errorf("markdown: frontmatter missing title")
	}
	data, err := yaml.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("markdown: encode frontmatter: %w", err)
	}
	var b strings.Builder
	b.WriteString("---\n")
	b.WriteString(strings.TrimRight(string(data), "\n"))
	b.WriteString("\n---\n\n")
	b.WriteString(body)
	return b.String(), nil
}

// ParseDocument splits a document written by WriteDocument back into its parts.
func ParseDocument(doc string) (FrontMatter, string, error) {
	normalized := strings.ReplaceAll(doc, "\r\n", "\n")
	if !strings.HasPrefix(normalized, "---\n") {
		return FrontMatter{}, "", ErrMissingFrontMatter
	}
	parts := strings.SplitN(normalized[4:], "\n---\n", 2)
	if len(parts) < 2 {
		return FrontMatter{}, "", ErrMalformedFrontMatter
	}
	var meta FrontMatter
	if err := yaml.Unmarshal([]byte(parts[0]), &meta); err != nil {
		return FrontMatter{}, "", fmt.Errorf("markdown: parse frontmatter: %w", err)
	}
	return meta, strings.TrimPrefix(parts[1], "\n"), nil
}

// Slugify lowercases s and joins its words with hyphens.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if isWordRune(r) && r != '_' {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
