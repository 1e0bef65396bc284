package sanitize

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/gorilla/css/scanner"
)

// declaration is a single CSS property:value pair.  Property is lower case, Value has its
// whitespace collapsed.
type declaration struct {
	Property string
	Value    string
}

var (
	propertyNameRE = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

	// Fragments that make any CSS value unsafe, matched after whitespace removal.
	unsafeCSS = []string{
		"expression(",
		"javascript:",
		"vbscript:",
		"livescript:",
		"-moz-binding",
		"behavior",
		"@import",
	}

	imageProperties = setOf("background", "background-image", "list-style", "list-style-image",
		"border-image", "border-image-source", "content")
)

// cssFilter carries the settings for one walk.  It must not be shared between walks.
type cssFilter struct {
	policy     *Policy // nil allows every property.
	prefix     string
	dropImages bool
	redacted   bool
}

// declarations parses a style attribute and returns the declarations that pass the filter.
func (f *cssFilter) declarations(css string) []declaration {
	return f.filter(parseDeclarations(tokenize(css)))
}

// block filters the content of a <style> element.
func (f *cssFilter) block(css string) string {
	toks := tokenize(css)
	hidden := false
	for _, t := range toks {
		if t.Type == scanner.TokenCDO {
			hidden = true
			break
		}
	}
	out := strings.Join(f.rules(toks), "\n")
	if hidden {
		return "<!--" + out + "-->"
	}
	return out
}

// plain is declarations without image redaction.
func (f *cssFilter) plain(css string) []declaration {
	var kept []declaration
	for _, d := range parseDeclarations(tokenize(css)) {
		if f.allowed(d) {
			kept = append(kept, d)
		}
	}
	return kept
}

func (f *cssFilter) filter(decls []declaration) []declaration {
	kept := make([]declaration, 0, len(decls))
	for _, d := range decls {
		if f.allowed(d) {
			kept = append(kept, d)
		}
	}
	if f.dropImages {
		var redacted bool
		kept, redacted = redactImageDeclarations(kept)
		f.redacted = f.redacted || redacted
	}
	return kept
}

func (f *cssFilter) allowed(d declaration) bool {
	if unsafeCSSValue(d.Value) {
		return false
	}
	if f.policy == nil {
		return true
	}
	values, ok := f.policy.LookupStyleProperty(d.Property)
	if !ok {
		return false
	}
	return values.Allows(stripImportant(d.Value))
}

// rules filters a rule list; @media and @supports recurse, other at-rules are dropped.
func (f *cssFilter) rules(toks []*scanner.Token) []string {
	var out []string
	i := 0
	for i < len(toks) {
		t := toks[i]
		switch {
		case t.Type == scanner.TokenS, t.Type == scanner.TokenComment,
			t.Type == scanner.TokenCDO, t.Type == scanner.TokenCDC,
			isChar(t, ";"), isChar(t, "}"):
			i++
		case t.Type == scanner.TokenAtKeyword:
			name := strings.ToLower(t.Value)
			k := findDelim(toks, i+1)
			if k < len(toks) && isChar(toks[k], "{") {
				end := matchBrace(toks, k)
				if name == "@media" || name == "@supports" {
					if inner := f.rules(toks[k+1 : end]); len(inner) > 0 {
						prelude := joinTokens(toks[i+1 : k])
						out = append(out, name+" "+prelude+"{"+strings.Join(inner, "")+"}")
					}
				}
				i = end + 1
				continue
			}
			i = k + 1
		default:
			k := findDelim(toks, i)
			if k < len(toks) && isChar(toks[k], "{") {
				end := matchBrace(toks, k)
				decls := f.filter(parseDeclarations(toks[k+1 : end]))
				if len(decls) > 0 {
					if sel := f.selectors(toks[i:k]); sel != "" {
						out = append(out, sel+"{"+formatDeclarations(decls, "")+"}")
					}
				}
				i = end + 1
				continue
			}
			// Declarations outside of any rule.
			end := k + 1
			if end > len(toks) {
				end = len(toks)
			}
			if decls := f.filter(parseDeclarations(toks[i:end])); len(decls) > 0 {
				out = append(out, formatDeclarations(decls, ""))
			}
			i = end
		}
	}
	return out
}

// selectors rewrites a comma separated selector list, scoping it below #prefix when a prefix is
// set.
func (f *cssFilter) selectors(toks []*scanner.Token) string {
	var sels []string
	start, depth := 0, 0
	for j := 0; j <= len(toks); j++ {
		if j < len(toks) {
			switch {
			case toks[j].Type == scanner.TokenFunction, isChar(toks[j], "("), isChar(toks[j], "["):
				depth++
				continue
			case isChar(toks[j], ")"), isChar(toks[j], "]"):
				if depth > 0 {
					depth--
				}
				continue
			case depth > 0 || !isChar(toks[j], ","):
				continue
			}
		}
		if s := f.selector(toks[start:j]); s != "" {
			sels = append(sels, s)
		}
		start = j + 1
	}
	return strings.Join(sels, ", ")
}

func (f *cssFilter) selector(toks []*scanner.Token) string {
	toks = trimSpace(toks)
	if len(toks) == 0 {
		return ""
	}
	if f.prefix == "" {
		return joinTokens(toks)
	}
	b := &strings.Builder{}
	first := toks[0]
	switch {
	case first.Type == scanner.TokenIdent &&
		(strings.EqualFold(first.Value, "html") || strings.EqualFold(first.Value, "body")):
		b.WriteString("#" + f.prefix)
		toks = toks[1:]
	case first.Type == scanner.TokenHash && first.Value == "#"+f.prefix:
		b.WriteString(first.Value)
		toks = toks[1:]
	default:
		b.WriteString("#" + f.prefix + " ")
	}
	space := false
	for j := 0; j < len(toks); j++ {
		t := toks[j]
		switch {
		case t.Type == scanner.TokenS:
			space = true
			continue
		case t.Type == scanner.TokenComment:
			continue
		}
		if space {
			b.WriteByte(' ')
			space = false
		}
		switch {
		case t.Type == scanner.TokenHash:
			b.WriteString("#" + prefixName(f.prefix, t.Value[1:]))
		case isChar(t, ".") && j+1 < len(toks) && toks[j+1].Type == scanner.TokenIdent:
			j++
			b.WriteString("." + prefixName(f.prefix, toks[j].Value))
		default:
			b.WriteString(t.Value)
		}
	}
	return b.String()
}

// prefixName returns prefix-name, unless name already carries the prefix.  A name equal to the
// prefix is prefixed too, it would otherwise collide with the container id.
func prefixName(prefix, name string) string {
	if strings.HasPrefix(name, prefix+"-") {
		return name
	}
	return prefix + "-" + name
}

// formatDeclarations serializes declarations as name:value; joined by sep.
func formatDeclarations(decls []declaration, sep string) string {
	parts := make([]string, len(decls))
	for i, d := range decls {
		parts[i] = d.Property + ":" + d.Value + ";"
	}
	return strings.Join(parts, sep)
}

// hasProperty reports whether the style declares one of the named properties.
func hasProperty(decls []declaration, names ...string) bool {
	for _, d := range decls {
		for _, n := range names {
			if d.Property == n {
				return true
			}
		}
	}
	return false
}

// redactImageDeclarations blanks url() references to external images in image bearing
// properties.  Declarations left without a value are removed.
func redactImageDeclarations(decls []declaration) ([]declaration, bool) {
	redacted := false
	out := make([]declaration, 0, len(decls))
	for _, d := range decls {
		if inSet(imageProperties, d.Property) {
			value, changed := blankExternalURLs(d.Value)
			if changed {
				redacted = true
				if value == "" {
					continue
				}
				d.Value = value
			}
		}
		out = append(out, d)
	}
	return out, redacted
}

func blankExternalURLs(value string) (string, bool) {
	toks := tokenize(value)
	kept := toks[:0]
	changed := false
	for _, t := range toks {
		if t.Type == scanner.TokenURI && !looksLikeInlineImageReference(uriTarget(t.Value)) {
			changed = true
			continue
		}
		kept = append(kept, t)
	}
	if !changed {
		return value, false
	}
	return joinTokens(kept), true
}

// unsafeCSSValue reports whether a value could run script or load unexpected resources.
func unsafeCSSValue(value string) bool {
	if strings.ContainsRune(value, '\\') {
		return true
	}
	squashed := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, value)
	for _, bad := range unsafeCSS {
		if strings.Contains(squashed, bad) {
			return true
		}
	}
	for _, t := range tokenize(value) {
		switch t.Type {
		case scanner.TokenURI:
			if !safeCSSURL(uriTarget(t.Value)) {
				return true
			}
		case scanner.TokenFunction:
			if strings.EqualFold(t.Value, "url(") {
				return true
			}
		}
	}
	return false
}

func safeCSSURL(target string) bool {
	lower := strings.ToLower(target)
	for _, p := range []string{"http://", "https://", "cid:", "data:image/"} {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	colon := strings.IndexByte(lower, ':')
	if colon < 0 {
		return true
	}
	slash := strings.IndexAny(lower, "/?#")
	return slash >= 0 && slash < colon
}

// uriTarget extracts the address from a url(...) token.
func uriTarget(raw string) string {
	s := raw
	if len(s) >= 4 && strings.EqualFold(s[:4], "url(") {
		s = s[4:]
	}
	s = strings.TrimSpace(strings.TrimSuffix(s, ")"))
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		s = s[1 : len(s)-1]
	}
	return strings.TrimSpace(s)
}

func stripImportant(value string) string {
	lower := strings.ToLower(value)
	if i := strings.LastIndexByte(lower, '!'); i >= 0 &&
		strings.TrimSpace(lower[i+1:]) == "important" {
		return strings.TrimSpace(value[:i])
	}
	return value
}

func tokenize(css string) []*scanner.Token {
	var toks []*scanner.Token
	s := scanner.New(css)
	for {
		t := s.Next()
		if t.Type == scanner.TokenEOF || t.Type == scanner.TokenError {
			return toks
		}
		toks = append(toks, t)
	}
}

// parseDeclarations reads ident ':' value pairs separated by ';'.  Anything that does not fit is
// skipped up to the next ';'.
func parseDeclarations(toks []*scanner.Token) []declaration {
	var decls []declaration
	i := 0
	for i < len(toks) {
		t := toks[i]
		switch {
		case t.Type == scanner.TokenS, t.Type == scanner.TokenComment, isChar(t, ";"):
			i++
			continue
		case t.Type != scanner.TokenIdent:
			i = findChar(toks, i, ";") + 1
			continue
		}
		name := t.Value
		i++
		for i < len(toks) && (toks[i].Type == scanner.TokenS || toks[i].Type == scanner.TokenComment) {
			i++
		}
		if i >= len(toks) || !isChar(toks[i], ":") {
			i = findChar(toks, i, ";") + 1
			continue
		}
		end := findChar(toks, i+1, ";")
		value := joinTokens(toks[i+1 : end])
		i = end + 1
		if value != "" && propertyNameRE.MatchString(name) {
			decls = append(decls, declaration{Property: strings.ToLower(name), Value: value})
		}
	}
	return decls
}

// findChar returns the index of the first delimiter outside of parentheses, or len(toks).
func findChar(toks []*scanner.Token, i int, delim string) int {
	depth := 0
	for ; i < len(toks); i++ {
		t := toks[i]
		switch {
		case t.Type == scanner.TokenFunction, isChar(t, "("):
			depth++
		case isChar(t, ")"):
			if depth > 0 {
				depth--
			}
		case depth == 0 && isChar(t, delim):
			return i
		}
	}
	return len(toks)
}

// findDelim returns the index of the next '{' or ';', or len(toks).
func findDelim(toks []*scanner.Token, i int) int {
	for ; i < len(toks); i++ {
		if isChar(toks[i], "{") || isChar(toks[i], ";") {
			return i
		}
	}
	return len(toks)
}

// matchBrace returns the index of the '}' closing the '{' at open, or len(toks).
func matchBrace(toks []*scanner.Token, open int) int {
	depth := 0
	for i := open; i < len(toks); i++ {
		switch {
		case isChar(toks[i], "{"):
			depth++
		case isChar(toks[i], "}"):
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return len(toks)
}

// joinTokens concatenates token text, collapsing whitespace and dropping comments.
func joinTokens(toks []*scanner.Token) string {
	b := &strings.Builder{}
	space := false
	for _, t := range toks {
		switch t.Type {
		case scanner.TokenS:
			space = true
			continue
		case scanner.TokenComment:
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteString(t.Value)
	}
	return b.String()
}

func trimSpace(toks []*scanner.Token) []*scanner.Token {
	for len(toks) > 0 && isBlank(toks[0]) {
		toks = toks[1:]
	}
	for len(toks) > 0 && isBlank(toks[len(toks)-1]) {
		toks = toks[:len(toks)-1]
	}
	return toks
}

func isBlank(t *scanner.Token) bool {
	return t.Type == scanner.TokenS || t.Type == scanner.TokenComment
}

func isChar(t *scanner.Token, c string) bool {
	return t.Type == scanner.TokenChar && t.Value == c
}
