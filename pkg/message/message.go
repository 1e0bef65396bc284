// Package message runs documents and MIME messages through the sanitizer and keeps the results.
package message

import (
	"html"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/mailclean/mailclean/pkg/sanitize"
	"github.com/microcosm-cc/bluemonday"
)

// PreviewLength is the maximum length of a result text preview, in runes.
const PreviewLength = 200

var textPolicy = bluemonday.StrictPolicy()

// Request describes a document to sanitize.
type Request struct {
	Origin  string
	Subject string
	From    *mail.Address
	HTML    string
	Text    string // Plain text alternative, used for the preview when present.
	Options sanitize.Options
}

// preview renders a short plain text summary of sanitized HTML.
func preview(sanitized, text string) string {
	if strings.TrimSpace(text) == "" {
		text = html.UnescapeString(textPolicy.Sanitize(sanitized))
	}
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) <= PreviewLength {
		return text
	}
	runes := []rune(text)
	return string(runes[:PreviewLength-1]) + "…"
}
