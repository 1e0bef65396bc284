package sanitize

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// Parse reads an HTML document and converts the tree produced by golang.org/x/net/html into a
// Document.  Comments of the form <?xml ...?> become XML declarations.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	return FromHTML(root), nil
}

// ParseString is Parse for a string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// FromHTML copies an x/net/html tree into a new Document.  The given node becomes the document
// node; if it is not a document node itself it is added as the only child.
func FromHTML(n *html.Node) *Document {
	doc := NewDocument()
	if n.Type == html.DocumentNode {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			copyHTML(doc, Root, c)
		}
		return doc
	}
	copyHTML(doc, Root, n)
	return doc
}

func copyHTML(doc *Document, parent NodeID, n *html.Node) {
	var node Node
	switch n.Type {
	case html.ElementNode:
		node = Node{Type: ElementNode, Data: n.Data}
		if n.Namespace != "" && n.Namespace != "svg" && n.Namespace != "math" {
			node.Data = n.Namespace + ":" + n.Data
		}
		node.Attr = make([]Attribute, 0, len(n.Attr))
		for _, a := range n.Attr {
			key := a.Key
			if a.Namespace != "" {
				key = a.Namespace + ":" + key
			}
			node.Attr = append(node.Attr, Attribute{Key: key, Val: a.Val})
		}
	case html.TextNode:
		node = Node{Type: TextNode, Data: n.Data}
	case html.CommentNode:
		if strings.HasPrefix(n.Data, "?xml") {
			node = Node{Type: XMLDeclNode, Data: strings.TrimSuffix(n.Data[1:], "?")}
		} else {
			node = Node{Type: CommentNode, Data: n.Data}
		}
	case html.DoctypeNode:
		node = Node{Type: DoctypeNode, Data: doctypeString(n)}
	case html.RawNode:
		node = Node{Type: CDATANode, Data: n.Data}
	default:
		return
	}
	id := doc.Append(parent, node)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		copyHTML(doc, id, c)
	}
}

// doctypeString rebuilds the doctype body, including public and system identifiers.
func doctypeString(n *html.Node) string {
	b := &strings.Builder{}
	b.WriteString(n.Data)
	var public, system string
	for _, a := range n.Attr {
		switch a.Key {
		case "public":
			public = a.Val
		case "system":
			system = a.Val
		}
	}
	if public != "" {
		b.WriteString(` PUBLIC "` + public + `"`)
		if system != "" {
			b.WriteString(` "` + system + `"`)
		}
	} else if system != "" {
		b.WriteString(` SYSTEM "` + system + `"`)
	}
	return b.String()
}
