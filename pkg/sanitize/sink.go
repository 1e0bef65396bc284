package sanitize

import "strings"

// sink receives the walker's decisions.  Nodes that are never reported are dropped.
type sink interface {
	begin(container string, wrap bool)
	start(id NodeID, tag string, attrs []Attribute)
	end(id NodeID, tag string)
	unwrap(id NodeID)
	text(id NodeID, text string, raw bool)
	comment(id NodeID, text string)
	doctype(id NodeID, text string)
	xmlDecl(id NodeID, text string)
	finish()
}

// stringSink serializes directly into a buffer.
type stringSink struct {
	b    strings.Builder
	wrap bool
}

func (s *stringSink) begin(container string, wrap bool) {
	s.wrap = wrap
	if !wrap {
		return
	}
	writeStartTag(&s.b, "div", containerAttrs(container))
}

func (s *stringSink) start(_ NodeID, tag string, attrs []Attribute) {
	writeStartTag(&s.b, tag, attrs)
}

func (s *stringSink) end(_ NodeID, tag string) {
	if !IsVoidTag(tag) {
		writeEndTag(&s.b, tag)
	}
}

func (s *stringSink) unwrap(NodeID) {}

func (s *stringSink) text(_ NodeID, text string, raw bool) {
	writeText(&s.b, text, raw)
}

func (s *stringSink) comment(_ NodeID, text string) {
	writeComment(&s.b, text)
}

func (s *stringSink) doctype(_ NodeID, text string) {
	writeDoctype(&s.b, text)
}

func (s *stringSink) xmlDecl(_ NodeID, text string) {
	writeXMLDecl(&s.b, text)
}

func (s *stringSink) finish() {
	if s.wrap {
		writeEndTag(&s.b, "div")
	}
}

func (s *stringSink) String() string {
	return s.b.String()
}

type editOp uint8

const (
	editDrop editOp = iota
	editKeep
	editUnwrap
)

// edit is the pending change for one source node.
type edit struct {
	op    editOp
	data  string
	attrs []Attribute
}

// editSink records one edit per source node, indexed by NodeID, and builds the sanitized
// Document in a single pass once the walk is complete.
type editSink struct {
	src       *Document
	edits     []edit
	container string
	wrap      bool
	out       *Document
}

func newEditSink(src *Document) *editSink {
	return &editSink{src: src, edits: make([]edit, src.Len())}
}

func (s *editSink) begin(container string, wrap bool) {
	s.container = container
	s.wrap = wrap
}

func (s *editSink) start(id NodeID, tag string, attrs []Attribute) {
	s.edits[id] = edit{op: editKeep, data: tag, attrs: attrs}
}

func (s *editSink) end(NodeID, string) {}

func (s *editSink) unwrap(id NodeID) {
	s.edits[id] = edit{op: editUnwrap}
}

func (s *editSink) text(id NodeID, text string, _ bool) {
	s.edits[id] = edit{op: editKeep, data: text}
}

func (s *editSink) comment(id NodeID, text string) {
	s.edits[id] = edit{op: editKeep, data: text}
}

// Doctype and XML declarations are not carried into the new tree.
func (s *editSink) doctype(NodeID, string) {}
func (s *editSink) xmlDecl(NodeID, string) {}

func (s *editSink) finish() {
	s.out = NewDocument()
	parent := Root
	if s.wrap {
		parent = s.out.Append(Root, Node{Type: ElementNode, Data: "div", Attr: containerAttrs(s.container)})
	}
	for _, c := range s.src.Node(Root).Children {
		s.build(parent, c)
	}
}

// build copies kept nodes below parent.  Unwrapped and dropped nodes splice in whatever their
// children produced, which for dropped nodes is only a rescued body.
func (s *editSink) build(parent NodeID, id NodeID) {
	n := s.src.Node(id)
	e := &s.edits[id]
	if e.op != editKeep {
		for _, c := range n.Children {
			s.build(parent, c)
		}
		return
	}
	nid := s.out.Append(parent, Node{Type: n.Type, Data: e.data, Attr: e.attrs})
	for _, c := range n.Children {
		s.build(nid, c)
	}
}

func containerAttrs(id string) []Attribute {
	if id == "" {
		return nil
	}
	return []Attribute{{Key: "id", Val: id}}
}
