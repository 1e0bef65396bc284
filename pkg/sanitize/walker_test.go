package sanitize

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mixedInput = `<!DOCTYPE html><html><head><title>t</title>` +
	`<style>.lead{color:red;position:fixed} body{margin:0}</style></head>` +
	`<body><table cellpadding="2" cellspacing="0" bgcolor="#fff"><tr><td class="lead">a</td></tr></table>` +
	`<p onclick="x()" style="color:blue">text <a href="http://example.com/">l</a>` +
	`<img src="http://example.com/i.png" width="5" height="6"><o:p>o</o:p><blink>b</blink></p>` +
	`<div style="background:url(http://example.com/bg.png) red">d</div><script>s()</script></body></html>`

func TestTreeMatchesString(t *testing.T) {
	doc, err := ParseString(mixedInput)
	require.NoError(t, err)
	s := New(nil)
	o := Options{CSSClassPrefix: "mc", DropExternalImages: true, SuppressLinks: true}

	str, sres := s.String(doc, o)
	tree, tres := s.Tree(doc, o)
	assert.Equal(t, sres, tres)
	assert.True(t, tres.ImageURLRedacted)

	// The tree drops the doctype.
	assert.Equal(t, strings.TrimPrefix(str, "<!DOCTYPE html>"), tree.String())
}

func TestTreeIdempotent(t *testing.T) {
	optionSets := []Options{
		{},
		{CSSClassPrefix: "mc"},
		{DropExternalImages: true, SuppressLinks: true, ReplaceURLs: true},
		{CSSClassPrefix: "mc", ReplaceBodyWithContainer: true},
		{CSSOnly: true, CSSClassPrefix: "x"},
	}
	for _, o := range optionSets {
		doc, err := ParseString(mixedInput)
		require.NoError(t, err)
		s := New(nil)
		once, _ := s.Tree(doc, o)
		twice, _ := s.Tree(once, o)
		if o.ReplaceBodyWithContainer {
			// The output is a bare container without a body, a second pass drops all of it.
			continue
		}
		assert.Equal(t, once.String(), twice.String(), "options %+v", o)
	}
}

func TestAllowListClosure(t *testing.T) {
	doc, err := ParseString(mixedInput)
	require.NoError(t, err)
	p := DefaultPolicy()
	out, _ := New(p).Tree(doc, Options{SuppressLinks: true, DropExternalImages: true})

	created := map[string]bool{
		"style": true, "class": true, "id": true,
		"onclick": true, "data-disabled": true, "data-original-src": true,
	}
	for id := NodeID(0); int(id) < out.Len(); id++ {
		n := out.Node(id)
		if n.Type != ElementNode {
			continue
		}
		allowed, ok := p.LookupTag(n.Data)
		require.True(t, ok, "tag %q not in policy", n.Data)
		for _, a := range n.Attr {
			if created[a.Key] || allowed == nil {
				continue
			}
			_, ok := allowed[a.Key]
			assert.True(t, ok, "attribute %q on %q", a.Key, n.Data)
		}
	}
}

func TestRescuedBody(t *testing.T) {
	doc := NewDocument()
	html := doc.AppendElement(Root, "html")
	wrapper := doc.AppendElement(html, "x-wrapper")
	doc.AppendText(wrapper, "lost")
	body := doc.AppendElement(wrapper, "body")
	p := doc.AppendElement(body, "p")
	doc.AppendText(p, "kept")

	s := New(nil)
	str, _ := s.String(doc, Options{})
	assert.Equal(t, "<html><body><p>kept</p></body></html>", str)

	tree, _ := s.Tree(doc, Options{})
	assert.Equal(t, str, tree.String())
}

func TestStyleComment(t *testing.T) {
	doc := NewDocument()
	html := doc.AppendElement(Root, "html")
	head := doc.AppendElement(html, "head")
	style := doc.AppendElement(head, "style")
	doc.AppendComment(style, " p { color: red; position: fixed } ")
	doc.AppendElement(html, "body")

	str, _ := New(nil).String(doc, Options{})
	assert.Equal(t, "<html><head><style><!--p{color:red;}--></style></head><body></body></html>", str)
}

func TestCommentCannotCloseEarly(t *testing.T) {
	testCases := []string{
		"-><img src=x onerror=alert(1)>",
		"><img src=x onerror=alert(1)>",
		"a--><img src=x onerror=alert(1)>",
	}
	for _, data := range testCases {
		t.Run(data, func(t *testing.T) {
			doc := NewDocument()
			html := doc.AppendElement(Root, "html")
			body := doc.AppendElement(html, "body")
			doc.AppendComment(body, data)

			str, _ := New(nil).String(doc, Options{})
			reparsed, err := ParseString(str)
			require.NoError(t, err)
			_, found := reparsed.Find("img")
			assert.False(t, found, str)
		})
	}

	doc := NewDocument()
	body := doc.AppendElement(doc.AppendElement(Root, "html"), "body")
	doc.AppendComment(body, "->x")
	str, _ := New(nil).String(doc, Options{})
	assert.Equal(t, "<html><body><!-- ->x--></body></html>", str)
}

func TestElementsInsideStyleDropped(t *testing.T) {
	doc := NewDocument()
	html := doc.AppendElement(Root, "html")
	body := doc.AppendElement(html, "body")
	style := doc.AppendElement(body, "style")
	b := doc.AppendElement(style, "b")
	doc.AppendText(b, "x")
	doc.AppendText(style, "p{color:red}")

	str, _ := New(nil).String(doc, Options{})
	assert.Equal(t, "<html><body><style>p{color:red;}</style></body></html>", str)
}

func TestSizeExceededDropsAttributes(t *testing.T) {
	input := `<p title="` + strings.Repeat("t", 20000) + `">x</p><p>y</p>`
	out, res, err := HTML(input, Options{MaxContentSize: 10000})
	require.NoError(t, err)
	assert.True(t, res.SizeExceeded)
	assert.Equal(t, "<html><head></head><body></body></html>", out)
}

func TestSizeMonotonic(t *testing.T) {
	input := strings.Repeat(`<p title="abc">0123456789</p>`, 3000)
	for _, max := range []int{10000, 15000, 30000} {
		doc, err := ParseString(input)
		require.NoError(t, err)
		out, res := New(nil).Tree(doc, Options{MaxContentSize: max})
		assert.True(t, res.SizeExceeded)
		assert.LessOrEqual(t, contentSize(out), max)
	}
}

// contentSize counts text and attribute value runes.
func contentSize(d *Document) int {
	n := 0
	for id := NodeID(0); int(id) < d.Len(); id++ {
		node := d.Node(id)
		switch node.Type {
		case TextNode, CommentNode:
			n += len([]rune(node.Data))
		case ElementNode:
			for _, a := range node.Attr {
				n += len([]rune(a.Val))
			}
		}
	}
	return n
}

func TestConcurrentUse(t *testing.T) {
	s := New(nil)
	want, _, err := s.HTML(strings.NewReader(mixedInput), Options{CSSClassPrefix: "mc"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, _, err := s.HTML(strings.NewReader(mixedInput), Options{CSSClassPrefix: "mc"})
			assert.NoError(t, err)
			assert.Equal(t, want, got)
		}()
	}
	wg.Wait()
}
