package textfilter

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Ellipsis is appended by Truncate when text is cut.
const Ellipsis = "..."

// Clean strips control characters, collapses runs of whitespace to a single space and
// trims the result. Newlines are treated as whitespace.
func Clean(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	space := false
	for _, r := range text {
		switch {
		case r == utf8.RuneError:
			continue
		case unicode.IsSpace(r):
			space = b.Len() > 0
			continue
		case unicode.IsControl(r):
			continue
		}
		if space {
			b.WriteByte(' ')
			space = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// CleanMultiline is Clean applied per line. Blank lines are kept but never more than one
// in a row.
func CleanMultiline(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = Clean(line)
		if line == "" && (len(out) == 0 || out[len(out)-1] == "") {
			continue
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// DisplayName title-cases a cleaned name for presentation: "sir  ALDRIC" becomes "Sir Aldric".
func DisplayName(name string) string {
	return cases.Title(language.English).String(strings.ToLower(Clean(name)))
}

// Truncate cuts text to at most limit runes and appends Ellipsis when anything was removed.
// It never splits a multi-byte character.
func Truncate(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return string(runes[:limit]) + Ellipsis
}

// RuneLen returns the number of characters in text.
func RuneLen(text string) int {
	return utf8.RuneCountInString(text)
}

// Excerpt returns the first limit runes of text followed by Ellipsis. Unlike Truncate the
// ellipsis is always appended, so excerpts read uniformly in lists.
func Excerpt(text string, limit int) string {
	runes := []rune(text)
	if len(runes) > limit {
		runes = runes[:max(limit, 0)]
	}
	return string(runes) + Ellipsis
}
