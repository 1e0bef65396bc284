package sanitize

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
	"sync"

	"golang.org/x/net/html/atom"
)

//go:embed default_policy.txt
var defaultPolicyText string

var (
	defaultPolicy     *Policy
	defaultPolicyOnce sync.Once

	numericRE  = regexp.MustCompile(`^[0-9]+$`)
	policyName = regexp.MustCompile(`^[a-z0-9_:-]+$`)
)

// ValueSet restricts the values of an attribute or CSS property.  A nil *ValueSet allows any value.
type ValueSet struct {
	Numeric bool                // Value must be all digits.
	Values  map[string]struct{} // Allowed lower case values.
}

// Allows reports whether value passes the set.
func (v *ValueSet) Allows(value string) bool {
	if v == nil {
		return true
	}
	value = strings.TrimSpace(value)
	if v.Numeric {
		return numericRE.MatchString(value)
	}
	_, ok := v.Values[strings.ToLower(value)]
	return ok
}

// Policy holds the tag, attribute and CSS property allow-lists.  A Policy is immutable once built
// and may be shared between goroutines.
type Policy struct {
	tags   map[string]map[string]*ValueSet // nil attribute map: any attribute.
	styles map[string]*ValueSet
}

// DefaultPolicy returns the built-in e-mail policy.
func DefaultPolicy() *Policy {
	defaultPolicyOnce.Do(func() {
		defaultPolicy = MustParsePolicy(defaultPolicyText)
	})
	return defaultPolicy
}

// LookupTag returns the attribute allow-list for tag.  ok is false if the tag is not allowed; a nil
// map with ok true means any attribute is allowed.  The returned map must not be modified.
func (p *Policy) LookupTag(tag string) (attrs map[string]*ValueSet, ok bool) {
	attrs, ok = p.tags[strings.ToLower(tag)]
	return
}

// LookupStyleProperty returns the allowed values for a CSS property.  ok is false if the property
// is not allowed.
func (p *Policy) LookupStyleProperty(name string) (values *ValueSet, ok bool) {
	values, ok = p.styles[strings.ToLower(name)]
	return
}

// Tags returns the sorted allowed tag names.
func (p *Policy) Tags() []string {
	return sortedKeys(p.tags)
}

// StyleProperties returns the sorted allowed CSS property names.
func (p *Policy) StyleProperties() []string {
	return sortedKeys(p.styles)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MustParsePolicy is ParsePolicy for a string, it panics on error.
func MustParsePolicy(s string) *Policy {
	p, err := ParsePolicy(strings.NewReader(s))
	if err != nil {
		panic(err)
	}
	return p
}

// ParsePolicy reads a policy description.  Each non-blank line not starting with # is one of:
//
//	tag <name> = <attr> <attr>[v1|v2] <attr>[#] ...
//	tag <name> = *
//	style <property> = *
//	style <property> = <value> <value> ...
//
// An empty attribute list allows no attributes, * allows any, [#] requires a numeric value.  The
// html, head and body tags and all simple tags are added with any attribute unless configured.
func ParsePolicy(r io.Reader) (*Policy, error) {
	p := &Policy{
		tags:   make(map[string]map[string]*ValueSet),
		styles: make(map[string]*ValueSet),
	}
	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		if err := p.parseLine(line); err != nil {
			return nil, fmt.Errorf("policy line %d: %v", lineNum, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	for _, tag := range []string{"html", "head", "body"} {
		if _, ok := p.tags[tag]; !ok {
			p.tags[tag] = nil
		}
	}
	for tag := range simpleTags {
		if _, ok := p.tags[tag]; !ok {
			p.tags[tag] = nil
		}
	}
	return p, nil
}

func (p *Policy) parseLine(line string) error {
	head, body, found := strings.Cut(line, "=")
	if !found {
		return fmt.Errorf("missing '=' in %q", line)
	}
	fields := strings.Fields(head)
	if len(fields) != 2 {
		return fmt.Errorf("want '<directive> <name> =', got %q", head)
	}
	directive, name := fields[0], strings.ToLower(fields[1])
	if !policyName.MatchString(name) {
		return fmt.Errorf("invalid name %q", name)
	}
	body = strings.TrimSpace(body)
	switch directive {
	case "tag":
		if body == "*" {
			p.tags[name] = nil
			return nil
		}
		attrs := make(map[string]*ValueSet)
		for _, tok := range strings.Fields(body) {
			attr, values, err := parseAttrToken(tok)
			if err != nil {
				return err
			}
			attrs[attr] = values
		}
		p.tags[name] = attrs
	case "style":
		if body == "*" || body == "" {
			p.styles[name] = nil
			return nil
		}
		values := &ValueSet{Values: make(map[string]struct{})}
		for _, v := range strings.Fields(body) {
			values.Values[strings.ToLower(v)] = struct{}{}
		}
		p.styles[name] = values
	default:
		return fmt.Errorf("unknown directive %q", directive)
	}
	return nil
}

// parseAttrToken parses name, name[#] or name[v1|v2].
func parseAttrToken(tok string) (string, *ValueSet, error) {
	open := strings.IndexByte(tok, '[')
	if open < 0 {
		return strings.ToLower(tok), nil, nil
	}
	if !strings.HasSuffix(tok, "]") {
		return "", nil, fmt.Errorf("unterminated value list in %q", tok)
	}
	name := strings.ToLower(tok[:open])
	if name == "" {
		return "", nil, fmt.Errorf("missing attribute name in %q", tok)
	}
	list := tok[open+1 : len(tok)-1]
	if list == "#" {
		return name, &ValueSet{Numeric: true}, nil
	}
	values := &ValueSet{Values: make(map[string]struct{})}
	for _, v := range strings.Split(list, "|") {
		values.Values[strings.ToLower(v)] = struct{}{}
	}
	return name, values, nil
}

var (
	voidTags = setOf("area", "base", "br", "col", "embed", "hr", "img", "input", "keygen",
		"link", "meta", "param", "source", "track", "wbr")
	simpleTags = setOf("area", "br", "col", "hr", "img", "wbr")
	uriAttrs   = setOf("action", "background", "cite", "codebase", "data", "dynsrc", "formaction",
		"href", "longdesc", "lowsrc", "poster", "profile", "src", "usemap")
	hrefTags        = setOf("a", "area", "base", "link")
	removeWholeTags = setOf("script", "svg")
	msLocalName     = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)
)

func setOf(names ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(names))
	for _, n := range names {
		m[n] = struct{}{}
	}
	return m
}

func inSet(set map[string]struct{}, name string) bool {
	_, ok := set[name]
	return ok
}

// IsVoidTag reports whether the element cannot have children.
func IsVoidTag(tag string) bool { return inSet(voidTags, tag) }

// IsSimpleTag reports whether tag is one of the simple tags every policy allows.
func IsSimpleTag(tag string) bool { return inSet(simpleTags, tag) }

// IsURIAttribute reports whether the attribute holds a URI.
func IsURIAttribute(attr string) bool { return inSet(uriAttrs, attr) }

// IsHrefTag reports whether the tag carries a navigable href.
func IsHrefTag(tag string) bool { return inSet(hrefTags, tag) }

// IsRemoveWholeTag reports whether a disallowed tag is removed together with its content.
func IsRemoveWholeTag(tag string) bool {
	return inSet(removeWholeTags, tag) || strings.HasPrefix(tag, "w:") || strings.HasPrefix(tag, "o:")
}

// IsActiveContentTag reports whether the element embeds or redirects to content that can run
// script.  CSS-only mode removes these along with the remove-whole tags.
func IsActiveContentTag(tag string) bool {
	switch atom.Lookup([]byte(tag)) {
	case atom.Applet, atom.Base, atom.Embed, atom.Frame, atom.Frameset, atom.Iframe, atom.Math,
		atom.Object:
		return true
	}
	return false
}

// IsMicrosoftNamespaceTag reports whether tag is a well formed Word or Office namespaced tag, such
// as o:p or w:sdt.
func IsMicrosoftNamespaceTag(tag string) bool {
	local := ""
	switch {
	case strings.HasPrefix(tag, "w:"), strings.HasPrefix(tag, "o:"):
		local = tag[2:]
	default:
		return false
	}
	return msLocalName.MatchString(local)
}
