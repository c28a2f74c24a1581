// Package normalize provides utilities for normalizing user and catalog text.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"golang.org/x/text/unicode/norm"
)

var (
	// htmlTagPattern detects common HTML tags like <p>, <br>, <div>, <b>.
	htmlTagPattern = regexp.MustCompile(`<(p|br|div|span|b|i|strong|em|a|ul|ol|li|h[1-6]|blockquote)[\s>/]`)
	whitespaceRun  = regexp.MustCompile(`\s+`)
)

// Whitespace trims and collapses runs of whitespace to a single space.
func Whitespace(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

// Fold returns a comparison key: NFKD-decomposed, combining marks removed,
// lowercased and whitespace-collapsed. "Brontë " and "bronte" fold equal.
func Fold(s string) string {
	s = norm.NFKD.String(s)
	s = strings.Map(func(r rune) rune {
		if unicode.Is(unicode.Mn, r) {
			return -1
		}
		return unicode.ToLower(r)
	}, s)
	return Whitespace(s)
}

// Authors normalizes a comma-separated author list: names are trimmed,
// whitespace-collapsed and deduplicated (by folded form), keeping first-seen order.
// "Terry Pratchett,  Neil Gaiman, terry pratchett" -> "Terry Pratchett, Neil Gaiman".
func Authors(s string) string {
	return strings.Join(AuthorList(s), ", ")
}

// AuthorList splits and normalizes a comma-separated author list.
func AuthorList(s string) []string {
	seen := make(map[string]bool)
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		name := Whitespace(part)
		if name == "" {
			continue
		}
		key := Fold(name)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, name)
	}
	return out
}

// ContainsHTML checks if a string appears to contain HTML markup.
func ContainsHTML(s string) bool {
	return htmlTagPattern.MatchString(strings.ToLower(s))
}

// Description converts HTML descriptions to Markdown.
// Plain text is only trimmed; if conversion fails the trimmed input is returned.
func Description(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || !ContainsHTML(s) {
		return s
	}

	markdown, err := htmltomarkdown.ConvertString(s)
	if err != nil {
		return s
	}

	return strings.TrimSpace(markdown)
}
