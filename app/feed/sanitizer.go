package feed

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// SummaryLength is the default blurb length for Summarize.
const SummaryLength = 260

var (
	tagPattern          = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern   = regexp.MustCompile(`[\s\p{Zs}]+`)
	trailingWordPattern = regexp.MustCompile(`[,;:\s]+\S*$`)
)

type Sanitizer struct {
	// textContent extracts the visible text of an HTML fragment. When it
	// fails, tags are stripped with a regular expression instead.
	textContent func(html string) (string, error)
}

func NewSanitizer() *Sanitizer {
	return &Sanitizer{textContent: documentText}
}

// Run reduces an HTML fragment to plain text with collapsed whitespace.
// Extraction repeats until the text stops changing, so Run(Run(x)) == Run(x).
// Every pass that changes the text shortens it, so the loop terminates.
func (s *Sanitizer) Run(html string) string {
	text := s.extract(html)
	for {
		next := s.extract(text)
		if next == text {
			return text
		}
		text = next
	}
}

func (s *Sanitizer) extract(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}

	text, err := s.textContent(html)
	if err != nil {
		text = tagPattern.ReplaceAllString(html, " ")
	}

	return collapseWhitespace(text)
}

func documentText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}

	doc.Find("script, style, noscript, template").Remove()

	return doc.Find("body").Text(), nil
}

// Summarize shortens text to at most maxLen characters without cutting a
// word in half, marking the cut with an ellipsis.
func Summarize(text string, maxLen int) string {
	clean := strings.TrimSpace(strings.ReplaceAll(text, "&nbsp;", " "))
	if clean == "" {
		return ""
	}
	if maxLen <= 0 || utf8.RuneCountInString(clean) <= maxLen {
		return clean
	}

	cut := string([]rune(clean)[:max(maxLen-1, 0)])
	return trailingWordPattern.ReplaceAllString(cut, "") + "…"
}

func collapseWhitespace(text string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(text, " "))
}
