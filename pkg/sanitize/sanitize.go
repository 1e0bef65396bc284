// Package sanitize cleans untrusted HTML e-mail bodies against an allow-list policy of tags,
// attributes and CSS properties.
package sanitize

import (
	"io"
	"strings"
)

// Options control a single sanitize call.  The zero value filters tags and attributes with no
// size limit and leaves links, images and URLs alone.
type Options struct {
	// MaxContentSize bounds the emitted text, attribute and CSS content in runes.  Values <= 0 are
	// unlimited, positive values below MinContentSize are raised to it.
	MaxContentSize int
	// SuppressLinks disables navigation of href carrying elements.
	SuppressLinks bool
	// DropExternalImages removes image references that are not carried in the message.
	DropExternalImages bool
	// ReplaceURLs normalizes URLs found in URI attributes.
	ReplaceURLs bool
	// CSSClassPrefix scopes class names, ids and style sheet selectors.
	CSSClassPrefix string
	// ReplaceBodyWithContainer outputs only the body content and head styles, wrapped in a div
	// whose id is CSSClassPrefix.
	ReplaceBodyWithContainer bool
	// CSSOnly trusts the markup: tags and attributes are not allow-listed, only the CSS, image,
	// link and URL rules apply.
	CSSOnly bool
}

// Result reports what a sanitize call did besides producing output.
type Result struct {
	ImageURLRedacted bool // An external image reference was removed.
	SizeExceeded     bool // Content was cut at MaxContentSize.
}

// Sanitizer applies a Policy.  It is safe for concurrent use.
type Sanitizer struct {
	policy *Policy
}

// New returns a Sanitizer for the policy, or for DefaultPolicy if p is nil.
func New(p *Policy) *Sanitizer {
	if p == nil {
		p = DefaultPolicy()
	}
	return &Sanitizer{policy: p}
}

// Policy returns the policy applied by s.
func (s *Sanitizer) Policy() *Policy {
	return s.policy
}

// String sanitizes doc and serializes the result.
func (s *Sanitizer) String(doc *Document, o Options) (string, Result) {
	out := &stringSink{}
	res := newWalker(s.policy, doc, out, o).run()
	return out.String(), res
}

// Tree sanitizes doc into a new Document.  doc is not modified.
func (s *Sanitizer) Tree(doc *Document, o Options) (*Document, Result) {
	out := newEditSink(doc)
	res := newWalker(s.policy, doc, out, o).run()
	return out.out, res
}

// HTML parses r and returns the sanitized HTML.
func (s *Sanitizer) HTML(r io.Reader, o Options) (string, Result, error) {
	doc, err := Parse(r)
	if err != nil {
		return "", Result{}, err
	}
	out, res := s.String(doc, o)
	return out, res, nil
}

// HTML sanitizes input with the default policy.
func HTML(input string, o Options) (string, Result, error) {
	return New(nil).HTML(strings.NewReader(input), o)
}
