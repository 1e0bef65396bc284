package sanitize

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	attrNameRE    = regexp.MustCompile(`^[a-z_:][a-z0-9_:.-]*$`)
	cellPaddingRE = regexp.MustCompile(`^[0-9]+(px|%|em)?$`)
	colorRE       = regexp.MustCompile(`^(#[0-9a-fA-F]{3,8}|[a-zA-Z]+|rgba?\([0-9.,%\s]+\))$`)

	unsafeAttrValues = []string{"javascript:", "vbscript:", "livescript:", "expression("}
)

// attributes filters the attributes of a kept element.  allowed is the attribute allow-list of
// the tag, nil meaning any attribute.  Styles synthesized from presentational attributes precede
// the element's own declarations; attributes created here replace same named ones and go last.
func (w *walker) attributes(tag string, src []Attribute, allowed map[string]*ValueSet) []Attribute {
	own := []declaration(nil)
	if style, ok := attrValue(src, "style"); ok {
		own = w.css.declarations(style)
	}
	synth, consumed := w.synthesizeStyle(tag, src, own)

	var created []Attribute
	create := func(key, val string) {
		for _, c := range created {
			if c.Key == key {
				return
			}
		}
		created = append(created, Attribute{Key: key, Val: val})
	}

	out := make([]Attribute, 0, len(src)+1)
	styled := false
	for _, a := range src {
		key := a.Key
		if !attrNameRE.MatchString(key) || strings.HasPrefix(key, "on") {
			continue
		}
		if consumed[key] {
			continue
		}
		switch key {
		case "style":
			if styled {
				continue
			}
			styled = true
			if decls := append(synth, own...); len(decls) > 0 {
				out = append(out, Attribute{Key: "style", Val: formatDeclarations(decls, " ")})
			}
			continue
		case "class", "id":
			val := a.Val
			if w.opts.CSSClassPrefix != "" {
				val = prefixClassNames(w.opts.CSSClassPrefix, val)
			}
			out = append(out, Attribute{Key: key, Val: val})
			continue
		}

		if w.opts.CSSOnly {
			if !isSafeAttributeValue(tag, key, a.Val) {
				continue
			}
		} else if !attributeAllowed(allowed, tag, key, a.Val) {
			continue
		}
		val := a.Val
		if w.opts.DropExternalImages {
			switch {
			case key == "background" && isBareURL(val):
				val = ""
				w.imageRedacts = true
			case key == "src" && (tag == "img" || tag == "input") && !looksLikeInlineImageReference(val):
				create("data-original-src", val)
				w.imageRedacts = true
				continue
			}
		}
		if w.opts.ReplaceURLs && IsURIAttribute(key) {
			val = rewritePossibleURL(val)
		}
		if w.opts.SuppressLinks && key == "href" && IsHrefTag(tag) {
			val = "#"
			create("onclick", "return false")
			create("data-disabled", "true")
		}
		out = append(out, Attribute{Key: key, Val: val})
	}
	if !styled && len(synth) > 0 {
		out = append([]Attribute{{Key: "style", Val: formatDeclarations(synth, " ")}}, out...)
	}

	if len(created) == 0 {
		return out
	}
	kept := out[:0]
	for _, a := range out {
		if _, dup := attrValue(created, a.Key); !dup {
			kept = append(kept, a)
		}
	}
	return append(kept, created...)
}

// synthesizeStyle turns presentational attributes into declarations, honoring the style policy
// and skipping properties the element already declares.  consumed names the attributes replaced
// by the result.
func (w *walker) synthesizeStyle(tag string, src []Attribute, own []declaration) ([]declaration, map[string]bool) {
	var synth []declaration
	consumed := map[string]bool{}
	add := func(property, value string) bool {
		d := declaration{Property: property, Value: value}
		if hasProperty(own, property) || !w.css.allowed(d) {
			return false
		}
		synth = append(synth, d)
		return true
	}
	switch {
	case tag == "img":
		width, wok := attrValue(src, "width")
		height, hok := attrValue(src, "height")
		width, height = strings.TrimSpace(width), strings.TrimSpace(height)
		if wok && hok && numericRE.MatchString(width) && numericRE.MatchString(height) &&
			!hasProperty(own, "width", "height") {
			if add("width", width+"px") && add("height", height+"px") {
				consumed["width"] = true
				consumed["height"] = true
			}
		}
	case tag == "table":
		if c, ok := attrValue(src, "bgcolor"); ok {
			if c = strings.TrimSpace(c); colorRE.MatchString(c) && !hasProperty(own, "background") {
				add("background-color", c)
			}
		}
		spacing, sok := attrValue(src, "cellspacing")
		_, pok := attrValue(src, "cellpadding")
		if sok && pok && strings.TrimSpace(spacing) == "0" {
			add("border-collapse", "collapse")
		}
	case isTableCell(tag):
		if n := len(w.tablePadding); n > 0 && w.tablePadding[n-1] != "" &&
			!hasProperty(own, "padding-top", "padding-right", "padding-bottom", "padding-left") {
			add("padding", w.tablePadding[n-1])
		}
	}
	return synth, consumed
}

// cellPadding converts a cellpadding attribute into a CSS length, or "" if it is not one.
func cellPadding(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if !cellPaddingRE.MatchString(v) {
		return ""
	}
	if numericRE.MatchString(v) {
		return v + "px"
	}
	return v
}

// attributeAllowed applies the tag's allow-list and the generic value check.
func attributeAllowed(allowed map[string]*ValueSet, tag, key, val string) bool {
	if allowed != nil {
		values, ok := allowed[key]
		if !ok || !values.Allows(val) {
			return false
		}
	}
	return isSafeAttributeValue(tag, key, val)
}

// isSafeAttributeValue rejects values that can run script.
func isSafeAttributeValue(tag, key, val string) bool {
	v := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, val)
	for _, bad := range unsafeAttrValues {
		if strings.Contains(v, bad) {
			return false
		}
	}
	if IsURIAttribute(key) && strings.HasPrefix(v, "data:") {
		return tag == "img" && strings.HasPrefix(v, "data:image/")
	}
	if tag == "meta" && key == "content" && strings.Contains(v, "url=") {
		return false
	}
	return true
}

// prefixClassNames prefixes every name in a class or id attribute, including the parts of
// compound names such as a.b.
func prefixClassNames(prefix, val string) string {
	fields := strings.Fields(val)
	for i, f := range fields {
		lead := ""
		if f[0] == '.' || f[0] == '#' {
			lead, f = f[:1], f[1:]
		}
		parts := strings.Split(f, ".")
		for j, p := range parts {
			if p != "" {
				parts[j] = prefixName(prefix, p)
			}
		}
		fields[i] = lead + strings.Join(parts, ".")
	}
	return strings.Join(fields, " ")
}
