package sanitize

import (
	"strings"
)

// NodeType identifies the kind of a Node.
type NodeType uint8

// Node types.
const (
	DocumentNode NodeType = iota
	ElementNode
	TextNode
	CommentNode
	DoctypeNode
	CDATANode
	XMLDeclNode
)

// NodeID addresses a Node within its Document.
type NodeID int32

// Root is the ID of the document node in every Document.
const Root NodeID = 0

// Attribute is a single name/value pair on an element.  Names are lower case.
type Attribute struct {
	Key string
	Val string
}

// Node is an entry in a Document arena.  For elements Data holds the lower case tag name, for all
// other types it holds the node content.
type Node struct {
	Type     NodeType
	Data     string
	Attr     []Attribute
	Parent   NodeID
	Children []NodeID
}

// Document is a tree of nodes stored in an arena.  Node 0 is always the document node; children
// are owned by their parent.
type Document struct {
	nodes []Node
}

// NewDocument returns a Document holding only the document node.
func NewDocument() *Document {
	return &Document{nodes: []Node{{Type: DocumentNode, Parent: -1}}}
}

// Len returns the number of nodes in the arena.
func (d *Document) Len() int {
	return len(d.nodes)
}

// Node returns the node with the given ID.  The returned pointer is invalidated by the next Append.
func (d *Document) Node(id NodeID) *Node {
	return &d.nodes[id]
}

// Append adds a node as the last child of parent and returns its ID.
func (d *Document) Append(parent NodeID, n Node) NodeID {
	id := NodeID(len(d.nodes))
	n.Parent = parent
	n.Children = nil
	if n.Type == ElementNode {
		n.Data = strings.ToLower(n.Data)
		for i := range n.Attr {
			n.Attr[i].Key = strings.ToLower(n.Attr[i].Key)
		}
	}
	d.nodes = append(d.nodes, n)
	d.nodes[parent].Children = append(d.nodes[parent].Children, id)
	return id
}

// AppendElement adds an element with the given attributes, supplied as key, value pairs.
func (d *Document) AppendElement(parent NodeID, tag string, kv ...string) NodeID {
	var attrs []Attribute
	for i := 0; i+1 < len(kv); i += 2 {
		attrs = append(attrs, Attribute{Key: kv[i], Val: kv[i+1]})
	}
	return d.Append(parent, Node{Type: ElementNode, Data: tag, Attr: attrs})
}

// AppendText adds a text node.
func (d *Document) AppendText(parent NodeID, text string) NodeID {
	return d.Append(parent, Node{Type: TextNode, Data: text})
}

// AppendComment adds a comment node.
func (d *Document) AppendComment(parent NodeID, text string) NodeID {
	return d.Append(parent, Node{Type: CommentNode, Data: text})
}

// Find returns the first element in document order with the given tag name.
func (d *Document) Find(tag string) (NodeID, bool) {
	tag = strings.ToLower(tag)
	stack := []NodeID{Root}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := &d.nodes[id]
		if n.Type == ElementNode && n.Data == tag {
			return id, true
		}
		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, n.Children[i])
		}
	}
	return 0, false
}

// attrValue returns the value of the named attribute and whether it was present.
func attrValue(attrs []Attribute, key string) (string, bool) {
	for _, a := range attrs {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// AttrVal returns the value of the named attribute of the node, or "".
func (n *Node) AttrVal(key string) string {
	v, _ := attrValue(n.Attr, key)
	return v
}
