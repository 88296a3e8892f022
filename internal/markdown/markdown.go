// Package markdown analyses article drafts: heading structure, intro text,
// bare-text word counts, keyword occurrences and rendering.
package markdown

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Heading is an ATX or setext heading found in a document
type Heading struct {
	Level int
	Text  string
}

var syntaxReplacer = strings.NewReplacer(
	"*", " ", "_", " ", "`", " ", ">", " ", "#", " ",
	"[", " ", "]", " ", "(", " ", ")", " ", "!", " ", "|", " ", "~", " ",
)

func parse(md string) (ast.Node, []byte) {
	source := []byte(md)
	doc := goldmark.New().Parser().Parse(text.NewReader(source))
	return doc, source
}

// ExtractHeadings returns every heading in document order. Headings inside
// code blocks are not headings and are never returned.
func ExtractHeadings(md string) []Heading {
	doc, source := parse(md)
	var headings []Heading
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if h, ok := n.(*ast.Heading); ok {
			headings = append(headings, Heading{Level: h.Level, Text: NormalizeSpace(inlineText(h, source))})
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return headings
}

// CountLevel returns how many headings have the given level.
func CountLevel(headings []Heading, level int) int {
	n := 0
	for _, h := range headings {
		if h.Level == level {
			n++
		}
	}
	return n
}

// HeadingTexts returns the texts of headings at level.
func HeadingTexts(headings []Heading, level int) []string {
	var out []string
	for _, h := range headings {
		if h.Level == level {
			out = append(out, h.Text)
		}
	}
	return out
}

// Intro returns the text between the H1 and the first H2, or the end of
// the document when there is no H2. Code blocks and headings are excluded.
// It is empty when the document has no H1.
func Intro(md string) string {
	doc, source := parse(md)
	var b strings.Builder
	seenH1 := false
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*ast.Heading); ok {
			if h.Level == 1 && !seenH1 {
				seenH1 = true
				continue
			}
			if seenH1 && h.Level == 2 {
				break
			}
			continue
		}
		if !seenH1 {
			continue
		}
		writeBlockText(&b, n, source)
	}
	return NormalizeSpace(b.String())
}

// PlainText strips markdown down to the words a reader sees. Heading text
// and link anchors are kept; code blocks and raw HTML are dropped.
func PlainText(md string) string {
	doc, source := parse(md)
	var b strings.Builder
	writeBlockText(&b, doc, source)
	return NormalizeSpace(syntaxReplacer.Replace(b.String()))
}

// CountWords returns the number of whitespace separated words in PlainText.
func CountWords(md string) int {
	return len(strings.Fields(PlainText(md)))
}

// NormalizeSpace collapses all whitespace runs to single spaces and trims.
func NormalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func writeBlockText(b *strings.Builder, root ast.Node, source []byte) {
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.FencedCodeBlock, *ast.CodeBlock, *ast.HTMLBlock, *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		case *ast.Text:
			if entering {
				b.Write(node.Segment.Value(source))
				if node.SoftLineBreak() || node.HardLineBreak() {
					b.WriteByte(' ')
				}
			}
		case *ast.String:
			if entering {
				b.Write(node.Value)
			}
		case *ast.AutoLink:
			if entering {
				b.Write(node.Label(source))
			}
			return ast.WalkSkipChildren, nil
		}
		if !entering && n.Type() == ast.TypeBlock {
			b.WriteByte(' ')
		}
		return ast.WalkContinue, nil
	})
}

func inlineText(n ast.Node, source []byte) string {
	var b strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch node := c.(type) {
		case *ast.Text:
			b.Write(node.Segment.Value(source))
			if node.SoftLineBreak() || node.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(node.Value)
		case *ast.AutoLink:
			b.Write(node.Label(source))
		case *ast.RawHTML:
		default:
			b.WriteString(inlineText(c, source))
		}
	}
	return b.String()
}
