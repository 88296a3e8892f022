package markdown

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// CountKeyword counts non-overlapping occurrences of keyword in text,
// case-insensitively and with whitespace normalised. A single-word keyword
// only matches on word boundaries; a phrase matches as a plain substring.
func CountKeyword(text, keyword string) int {
	kw := NormalizeSpace(strings.ToLower(keyword))
	if kw == "" {
		return 0
	}
	t := NormalizeSpace(strings.ToLower(text))
	if strings.Contains(kw, " ") {
		return strings.Count(t, kw)
	}

	count := 0
	for i := 0; i < len(t); {
		j := strings.Index(t[i:], kw)
		if j < 0 {
			break
		}
		start := i + j
		end := start + len(kw)
		if !wordRuneBefore(t, start) && !wordRuneAfter(t, end) {
			count++
			i = end
			continue
		}
		_, size := utf8.DecodeRuneInString(t[start:])
		i = start + size
	}
	return count
}

// ContainsFold reports whether keyword appears anywhere in s, ignoring case.
func ContainsFold(s, keyword string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(keyword))
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r)
}

func wordRuneBefore(s string, i int) bool {
	if i == 0 {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return isWordRune(r)
}

func wordRuneAfter(s string, i int) bool {
	if i >= len(s) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return isWordRune(r)
}
