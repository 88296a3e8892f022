package markdown

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/amirhamza8927/aiseo-ai-backend/internal/model"
)

var urlPattern = regexp.MustCompile(`https?://\S+`)

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "and": {}, "or": {}, "but": {}, "in": {}, "on": {},
	"at": {}, "to": {}, "for": {}, "of": {}, "with": {}, "by": {}, "is": {}, "are": {},
	"was": {}, "were": {}, "be": {}, "been": {}, "have": {}, "has": {}, "had": {},
	"do": {}, "does": {}, "did": {}, "will": {}, "would": {}, "could": {}, "it": {},
	"its": {}, "this": {}, "that": {}, "best": {}, "top": {}, "guide": {}, "review": {},
	"vs": {}, "comparison": {},
}

// SecondaryCandidates mines two and three word phrases from result titles
// and snippets. Phrases containing the primary keyword, digit-only phrases
// and phrases outside 4..60 characters are dropped. The rest are ordered
// by frequency, then lexicographically, and returned in title case.
func SecondaryCandidates(results []model.SerpResult, primary string, max int) []string {
	var corpus strings.Builder
	for _, r := range results {
		corpus.WriteString(r.Title)
		corpus.WriteByte(' ')
		corpus.WriteString(r.Snippet)
		corpus.WriteByte(' ')
	}

	text := urlPattern.ReplaceAllString(strings.ToLower(corpus.String()), " ")
	text = strings.Map(func(r rune) rune {
		if isWordRune(r) || unicode.IsSpace(r) {
			return r
		}
		return ' '
	}, text)

	var tokens []string
	for _, tok := range strings.Fields(text) {
		if _, stop := stopwords[tok]; !stop {
			tokens = append(tokens, tok)
		}
	}

	var phrases []string
	for i := 0; i+1 < len(tokens); i++ {
		phrases = append(phrases, tokens[i]+" "+tokens[i+1])
	}
	for i := 0; i+2 < len(tokens); i++ {
		phrases = append(phrases, tokens[i]+" "+tokens[i+1]+" "+tokens[i+2])
	}

	primaryLower := strings.ToLower(primary)
	counts := make(map[string]int)
	for _, p := range phrases {
		n := utf8.RuneCountInString(p)
		if n < 4 || n > 60 {
			continue
		}
		if primaryLower != "" && strings.Contains(p, primaryLower) {
			continue
		}
		if isDigits(strings.ReplaceAll(p, " ", "")) {
			continue
		}
		counts[p]++
	}

	keys := make([]string, 0, len(counts))
	for p := range counts {
		keys = append(keys, p)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > max {
		keys = keys[:max]
	}

	caser := cases.Title(language.Und)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, caser.String(k))
	}
	return out
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
