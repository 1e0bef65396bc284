package sanitize

import (
	"bufio"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// Render writes the document as HTML.
func (d *Document) Render(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, c := range d.nodes[Root].Children {
		d.render(bw, c, false)
	}
	return bw.Flush()
}

// String renders the document as an HTML string.
func (d *Document) String() string {
	b := &strings.Builder{}
	for _, c := range d.nodes[Root].Children {
		d.render(b, c, false)
	}
	return b.String()
}

type stringWriter interface {
	io.Writer
	WriteString(s string) (int, error)
	WriteByte(c byte) error
}

func (d *Document) render(w stringWriter, id NodeID, raw bool) {
	n := &d.nodes[id]
	switch n.Type {
	case ElementNode:
		writeStartTag(w, n.Data, n.Attr)
		if IsVoidTag(n.Data) {
			return
		}
		for _, c := range n.Children {
			d.render(w, c, raw || n.Data == "style")
		}
		writeEndTag(w, n.Data)
	case TextNode, CDATANode:
		writeText(w, n.Data, raw)
	case CommentNode:
		writeComment(w, n.Data)
	case DoctypeNode:
		writeDoctype(w, n.Data)
	case XMLDeclNode:
		writeXMLDecl(w, n.Data)
	}
}

func writeStartTag(w stringWriter, tag string, attrs []Attribute) {
	_ = w.WriteByte('<')
	_, _ = w.WriteString(tag)
	for _, a := range attrs {
		_ = w.WriteByte(' ')
		_, _ = w.WriteString(a.Key)
		_, _ = w.WriteString(`="`)
		_, _ = w.WriteString(html.EscapeString(a.Val))
		_ = w.WriteByte('"')
	}
	_ = w.WriteByte('>')
}

func writeEndTag(w stringWriter, tag string) {
	_, _ = w.WriteString("</")
	_, _ = w.WriteString(tag)
	_ = w.WriteByte('>')
}

// writeText escapes text, except inside <style> where the content is raw CSS.  A closing tag
// sequence is still neutralized in raw text.
func writeText(w stringWriter, text string, raw bool) {
	if raw {
		_, _ = w.WriteString(strings.ReplaceAll(text, "</", `<\/`))
		return
	}
	_, _ = w.WriteString(html.EscapeString(text))
}

// writeComment keeps the data inside the comment: <!--> and <!---> close a comment early.
func writeComment(w stringWriter, text string) {
	text = strings.ReplaceAll(text, "--!>", "-- !>")
	text = strings.ReplaceAll(text, "-->", "-- >")
	if strings.HasPrefix(text, ">") || strings.HasPrefix(text, "->") {
		text = " " + text
	}
	_, _ = w.WriteString("<!--")
	_, _ = w.WriteString(text)
	_, _ = w.WriteString("-->")
}

func writeDoctype(w stringWriter, text string) {
	_, _ = w.WriteString("<!DOCTYPE ")
	_, _ = w.WriteString(text)
	_ = w.WriteByte('>')
}

func writeXMLDecl(w stringWriter, text string) {
	_, _ = w.WriteString("<?")
	_, _ = w.WriteString(text)
	_, _ = w.WriteString("?>")
}
