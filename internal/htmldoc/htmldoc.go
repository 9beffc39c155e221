// Package htmldoc holds the x/net/html helpers shared by the reconciliation
// packages: parsing documents and fragments, rendering, and tree lookups.
package htmldoc

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ErrParse is returned when the tree parser cannot process the input.
var ErrParse = errors.New("html parse failed")

// Tree is a parsed document. Fragment trees hang their top-level nodes off a
// synthetic <body> so both shapes can be walked and mutated the same way.
type Tree struct {
	Root     *html.Node
	Fragment bool
}

var documentRe = regexp.MustCompile(`(?i)<(!doctype|html[\s>]|head[\s>]|body[\s>])`)

// Scripting is off so <noscript> content parses as markup, not raw text.
var noScripting = html.ParseOptionEnableScripting(false)

// IsDocument reports whether s looks like a full document rather than a
// fragment (it carries a doctype, <html>, <head> or <body> tag).
func IsDocument(s string) bool {
	return documentRe.MatchString(s)
}

// Parse parses s as a full document when it looks like one, and as a body
// fragment otherwise, so rendering preserves the shape the caller handed in.
func Parse(s string) (t *Tree, err error) {
	defer func() {
		if r := recover(); r != nil {
			t = nil
			err = fmt.Errorf("%w: %v", ErrParse, r)
		}
	}()

	if IsDocument(s) {
		doc, err := html.ParseWithOptions(strings.NewReader(s), noScripting)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrParse, err)
		}
		return &Tree{Root: doc}, nil
	}

	holder := NewBody()
	nodes, err := html.ParseFragmentWithOptions(strings.NewReader(s), NewBody(), noScripting)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	for _, n := range nodes {
		holder.AppendChild(n)
	}
	return &Tree{Root: holder, Fragment: true}, nil
}

// ParseFragment parses s in the context of the given element, returning
// detached nodes ready to be inserted under an element like ctx.
func ParseFragment(s string, ctx *html.Node) (nodes []*html.Node, err error) {
	defer func() {
		if r := recover(); r != nil {
			nodes = nil
			err = fmt.Errorf("%w: %v", ErrParse, r)
		}
	}()
	if ctx == nil || ctx.Type != html.ElementNode {
		ctx = NewBody()
	}
	// Parse against a detached copy so the parser never sees ctx's real tree.
	host := &html.Node{Type: html.ElementNode, Data: ctx.Data, DataAtom: ctx.DataAtom, Namespace: ctx.Namespace}
	nodes, err = html.ParseFragmentWithOptions(strings.NewReader(s), host, noScripting)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return nodes, nil
}

var firstTagRe = regexp.MustCompile(`<([A-Za-z][A-Za-z0-9-]*)`)

// FirstTag returns the lowercased name of the first start tag in s, or "".
func FirstTag(s string) string {
	m := firstTagRe.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return strings.ToLower(m[1])
}

// contexts maps tags the parser drops outside their required parent to an
// element they may appear under.
var contexts = map[string]string{
	"caption":  "table",
	"colgroup": "table",
	"thead":    "table",
	"tbody":    "table",
	"tfoot":    "table",
	"col":      "colgroup",
	"tr":       "tbody",
	"td":       "tr",
	"th":       "tr",
	"option":   "select",
	"optgroup": "select",
}

// ContextFor returns a detached element in which markup starting with tag
// parses intact. Tags without special placement rules get a <body>.
func ContextFor(tag string) *html.Node {
	if parent, ok := contexts[strings.ToLower(tag)]; ok {
		return NewElement(parent)
	}
	return NewBody()
}

// NewElement returns a detached element named tag.
func NewElement(tag string) *html.Node {
	return &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))}
}

// Render serializes the tree back to markup.
func (t *Tree) Render() (string, error) {
	if t.Fragment {
		return InnerHTML(t.Root)
	}
	var sb strings.Builder
	if err := html.Render(&sb, t.Root); err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	return sb.String(), nil
}

// NewBody returns a detached <body> element.
func NewBody() *html.Node {
	return &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
}

// OuterHTML renders n including its own tag.
func OuterHTML(n *html.Node) (string, error) {
	var sb strings.Builder
	if err := html.Render(&sb, n); err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	return sb.String(), nil
}

// InnerHTML renders the children of n.
func InnerHTML(n *html.Node) (string, error) {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&sb, c); err != nil {
			return "", fmt.Errorf("render html: %w", err)
		}
	}
	return sb.String(), nil
}

// FindBody returns the first <body> element under n.
func FindBody(n *html.Node) *html.Node {
	return FindElement(n, "body")
}

// FindElement returns the first element named tag under n (n included).
func FindElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if e := FindElement(c, tag); e != nil {
			return e
		}
	}
	return nil
}

// FindByID returns the first element under n (n included) whose id is id.
func FindByID(n *html.Node, id string) *html.Node {
	if n.Type == html.ElementNode {
		if v, ok := Attr(n, "id"); ok && v == id {
			return n
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if e := FindByID(c, id); e != nil {
			return e
		}
	}
	return nil
}

// Elements returns every element under n in document order, n excluded.
func Elements(n *html.Node) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(n)
	return out
}

// TextContent returns the trimmed concatenated text under n.
func TextContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(buf.String())
}

// Attr returns the value of attribute key on n.
func Attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr sets attribute key on n, replacing an existing value.
func SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// RemoveAttr deletes attribute key from n and reports whether it was present.
func RemoveAttr(n *html.Node, key string) bool {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return true
		}
	}
	return false
}

// IsBlank reports whether n is a whitespace-only text node.
func IsBlank(n *html.Node) bool {
	return n.Type == html.TextNode && strings.TrimSpace(n.Data) == ""
}

// Meaningful reports whether n contributes visible structure: an element or
// non-blank text. Comments, doctypes and whitespace do not.
func Meaningful(n *html.Node) bool {
	switch n.Type {
	case html.ElementNode:
		return true
	case html.TextNode:
		return !IsBlank(n)
	}
	return false
}
