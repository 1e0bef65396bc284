package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterDeclarations(t *testing.T) {
	testCases := []struct {
		input, want string
	}{
		{"", ""},
		{"color: red;", "color:red;"},
		{"background-color: black; color: white", "background-color:black; color:white;"},
		{"background-color: black; invalid: true; color: white", "background-color:black; color:white;"},
		{"COLOR: Red", "color:Red;"},
		{"color: red !important", "color:red !important;"},
		{"display: block !important", "display:block !important;"},
		{"display: run-in", ""},
		{"position: fixed; z-index: 100", ""},
		{"width: expression(alert(1))", ""},
		{"background: url(javascript:alert(1))", ""},
		{"background: url('vbscript:x')", ""},
		{"-moz-binding: url(x.xml#xss)", ""},
		{"width: e\\78pression(alert(1))", ""},
		{"font-family: 'Segoe UI', Arial; color: blue", "font-family:'Segoe UI', Arial; color:blue;"},
		{"font-family: 'a;b'; color: blue", "font-family:'a;b'; color:blue;"},
		{"color: rgb(1, 2, 3)", "color:rgb(1, 2, 3);"},
		{"background-image: url(cid:abc)", "background-image:url(cid:abc);"},
		{"garbage; color: red", "color:red;"},
		{"color red; margin: 0", "margin:0;"},
	}
	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			f := &cssFilter{policy: DefaultPolicy()}
			got := formatDeclarations(f.declarations(tc.input), " ")
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestFilterDeclarationsAnyProperty(t *testing.T) {
	f := &cssFilter{}
	got := formatDeclarations(f.declarations("position: fixed; width: expression(x)"), " ")
	assert.Equal(t, "position:fixed;", got)
}

func TestRedactImageDeclarations(t *testing.T) {
	testCases := []struct {
		input, want string
		redacted    bool
	}{
		{"color: red", "color:red;", false},
		{"background: url(http://example.com/a.png) no-repeat", "background:no-repeat;", true},
		{"background-image: url(http://example.com/a.png)", "", true},
		{"background-image: url(cid:logo)", "background-image:url(cid:logo);", false},
		{"background-image: url(data:image/png;base64,AAAA)", "background-image:url(data:image/png;base64,AAAA);", false},
		{"list-style-image: url(\"https://example.com/b.gif\"); color: red", "color:red;", true},
	}
	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			f := &cssFilter{policy: DefaultPolicy(), dropImages: true}
			got := formatDeclarations(f.declarations(tc.input), " ")
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.redacted, f.redacted)
		})
	}
}

func TestFilterStyleBlock(t *testing.T) {
	testCases := []struct {
		name, prefix, input, want string
	}{
		{
			name:  "rule",
			input: ".foo { color: red; position: fixed }",
			want:  ".foo{color:red;}",
		},
		{
			name:  "empty rule dropped",
			input: ".foo { position: fixed } p { color: blue }",
			want:  "p{color:blue;}",
		},
		{
			name:  "selector list",
			input: "h1, h2 > span { font-weight: bold }",
			want:  "h1, h2 > span{font-weight:bold;}",
		},
		{
			name:  "media",
			input: "@media screen { .a { color: red } } @import url(x.css); .b{position:absolute}",
			want:  "@media screen{.a{color:red;}}",
		},
		{
			name:  "at rules dropped",
			input: "@font-face { font-family: x; src: url(x.woff) } @charset \"utf-8\"; p{color:red}",
			want:  "p{color:red;}",
		},
		{
			name:  "hidden",
			input: "<!-- p { color: red } -->",
			want:  "<!--p{color:red;}-->",
		},
		{
			name:  "bare declarations",
			input: "color: red; position: fixed",
			want:  "color:red;",
		},
		{
			name:   "prefix",
			prefix: "mc",
			input:  ".foo { color: red } #bar p { color: blue }",
			want:   "#mc .mc-foo{color:red;}\n#mc #mc-bar p{color:blue;}",
		},
		{
			name:   "prefix body",
			prefix: "mc",
			input:  "body { color: red } html .x, body.y { margin: 0 }",
			want:   "#mc{color:red;}\n#mc .mc-x, #mc.mc-y{margin:0;}",
		},
		{
			name:   "prefix is idempotent",
			prefix: "mc",
			input:  "#mc{color:red;}\n#mc .mc-x, #mc.mc-y{margin:0;}",
			want:   "#mc{color:red;}\n#mc .mc-x, #mc.mc-y{margin:0;}",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := &cssFilter{policy: DefaultPolicy(), prefix: tc.prefix}
			assert.Equal(t, tc.want, f.block(tc.input))
		})
	}
}

func TestPrefixClassNames(t *testing.T) {
	testCases := []struct {
		input, want string
	}{
		{"a", "mc-a"},
		{"a  b", "mc-a mc-b"},
		{".a #b", ".mc-a #mc-b"},
		{"a.b", "mc-a.mc-b"},
		{"mc-a mc", "mc-a mc-mc"},
		{"#mc", "#mc-mc"},
	}
	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			assert.Equal(t, tc.want, prefixClassNames("mc", tc.input))
		})
	}
}

func TestStripImportant(t *testing.T) {
	assert.Equal(t, "red", stripImportant("red !important"))
	assert.Equal(t, "red", stripImportant("red ! IMPORTANT"))
	assert.Equal(t, "red", stripImportant("red"))
}
