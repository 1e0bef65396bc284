package sanitize

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/atom"
)

// walker holds the state of a single sanitize run.  It visits every node of the source document
// in document order and reports keep, unwrap or text decisions to its sink.
type walker struct {
	policy *Policy
	opts   Options
	doc    *Document
	out    sink
	css    *cssFilter
	size   *sizeGuard

	skipDepth    int
	insideStyle  bool
	insideBody   bool
	insideHead   bool
	tablePadding []string
	imageRedacts bool
}

func newWalker(p *Policy, doc *Document, out sink, o Options) *walker {
	return &walker{
		policy: p,
		opts:   o,
		doc:    doc,
		out:    out,
		css:    &cssFilter{policy: p, prefix: o.CSSClassPrefix, dropImages: o.DropExternalImages},
		size:   newSizeGuard(o.MaxContentSize),
	}
}

func (w *walker) run() Result {
	w.out.begin(w.opts.CSSClassPrefix, w.opts.ReplaceBodyWithContainer)
	w.children(Root)
	w.out.finish()
	return Result{
		ImageURLRedacted: w.imageRedacts || w.css.redacted,
		SizeExceeded:     w.size.exceeded,
	}
}

func (w *walker) children(id NodeID) {
	for _, c := range w.doc.Node(id).Children {
		w.walk(c)
	}
}

func (w *walker) walk(id NodeID) {
	n := w.doc.Node(id)
	switch n.Type {
	case ElementNode:
		w.element(id, n)
	case TextNode, CDATANode:
		w.text(id, n.Data)
	case CommentNode:
		w.comment(id, n.Data)
	case DoctypeNode:
		if w.skipDepth == 0 && !w.opts.ReplaceBodyWithContainer {
			w.out.doctype(id, n.Data)
		}
	case XMLDeclNode:
		if w.skipDepth == 0 && !w.opts.ReplaceBodyWithContainer {
			w.out.xmlDecl(id, n.Data)
		}
	}
}

type decision uint8

const (
	keepElement decision = iota
	unwrapElement
	skipElement
)

func (w *walker) element(id NodeID, n *Node) {
	tag := n.Data
	if w.skipDepth > 0 {
		if tag == "body" {
			// A body is never lost to an enclosing skipped element.
			saved := w.skipDepth
			w.skipDepth = 0
			w.element(id, n)
			w.skipDepth = saved
			return
		}
		w.skip(id)
		return
	}

	var attrs []Attribute
	d, allowed := w.decide(tag)
	if d == keepElement {
		attrs = w.attributes(tag, n.Attr, allowed)
		if !w.size.attrs(attrs) {
			d = skipElement
		}
	}
	switch d {
	case skipElement:
		w.skip(id)
		return
	case unwrapElement:
		w.out.unwrap(id)
	case keepElement:
		w.out.start(id, tag, attrs)
	}

	prevBody, prevHead, prevStyle := w.insideBody, w.insideHead, w.insideStyle
	pushed := false
	switch tag {
	case "body":
		w.insideBody = true
	case "head":
		w.insideHead = true
	case "style":
		w.insideStyle = d == keepElement
	case "table":
		if d == keepElement {
			w.tablePadding = append(w.tablePadding, w.tablePaddingFrame(n.Attr))
			pushed = true
		}
	}
	if d != keepElement || !IsVoidTag(tag) {
		w.children(id)
	}
	if pushed {
		w.tablePadding = w.tablePadding[:len(w.tablePadding)-1]
	}
	w.insideBody, w.insideHead, w.insideStyle = prevBody, prevHead, prevStyle
	if d == keepElement {
		w.out.end(id, tag)
	}
}

// skip drops an element and its subtree, visiting the subtree only to find a nested body.
func (w *walker) skip(id NodeID) {
	w.skipDepth++
	w.children(id)
	w.skipDepth--
}

// decide returns what to do with an element and, for kept elements in filtering mode, its
// attribute allow-list.  A nil list with keepElement means any attribute.
func (w *walker) decide(tag string) (decision, map[string]*ValueSet) {
	if w.size.exceeded || w.insideStyle {
		return skipElement, nil
	}
	if w.opts.ReplaceBodyWithContainer {
		switch {
		case tag == "html" || tag == "head" || tag == "body":
			return unwrapElement, nil
		case w.insideBody:
		case w.insideHead && tag == "style":
		default:
			return skipElement, nil
		}
	}
	if w.opts.CSSOnly {
		switch {
		case IsMicrosoftNamespaceTag(tag):
			return unwrapElement, nil
		case IsRemoveWholeTag(tag) || IsActiveContentTag(tag):
			return skipElement, nil
		}
		return keepElement, nil
	}
	allowed, ok := w.policy.LookupTag(tag)
	switch {
	case ok:
		return keepElement, allowed
	case !w.insideBody:
		return skipElement, nil
	case IsMicrosoftNamespaceTag(tag) || !IsRemoveWholeTag(tag):
		return unwrapElement, nil
	}
	return skipElement, nil
}

func (w *walker) text(id NodeID, data string) {
	if w.skipDepth > 0 || w.outsideContainer() {
		return
	}
	if w.insideStyle {
		css := w.css.block(data)
		if n := utf8.RuneCountInString(css); n == 0 || w.size.take(n) < n {
			return
		}
		w.out.text(id, css, true)
		return
	}
	if data = w.size.text(data); data == "" {
		return
	}
	w.out.text(id, data, false)
}

func (w *walker) comment(id NodeID, data string) {
	if w.skipDepth > 0 || w.outsideContainer() {
		return
	}
	if w.insideStyle {
		css := strings.TrimSpace(data)
		css = strings.TrimSpace(strings.TrimPrefix(css, "<!--"))
		css = strings.TrimSpace(strings.TrimSuffix(css, "-->"))
		if css = w.css.block(css); css == "" {
			return
		}
		data = css
	}
	if data = w.size.text(data); data == "" {
		return
	}
	w.out.comment(id, data)
}

// outsideContainer reports whether content falls outside the container in container mode.
func (w *walker) outsideContainer() bool {
	return w.opts.ReplaceBodyWithContainer && !w.insideBody && !w.insideStyle
}

// tablePaddingFrame derives the cell padding a table hands down to its cells.
func (w *walker) tablePaddingFrame(attrs []Attribute) string {
	if v, ok := attrValue(attrs, "cellpadding"); ok {
		if p := cellPadding(v); p != "" {
			return p
		}
	}
	if style, ok := attrValue(attrs, "style"); ok {
		for _, d := range w.css.plain(style) {
			if d.Property == "padding" {
				return d.Value
			}
		}
	}
	return ""
}

// isTableCell reports td and th, the elements inheriting table padding.
func isTableCell(tag string) bool {
	a := atom.Lookup([]byte(tag))
	return a == atom.Td || a == atom.Th
}
