package element

import (
	"fmt"

	"golang.org/x/net/html"

	"github.com/dgallion1/pagewright/internal/htmldoc"
)

// Replace substitutes replacement for the element t identifies and returns the
// re-rendered document. The target and its whole subtree go; siblings stay.
//
// On failure doc comes back unmodified along with the error. For marker
// targets the marker attribute is removed from whatever is returned, success
// or not.
func Replace(doc string, t Target, replacement string) (string, error) {
	tree, err := htmldoc.Parse(doc)
	if err != nil {
		return doc, err
	}
	h, err := locate(tree, t)
	if err != nil {
		return failed(doc, tree, t), err
	}

	parent := h.Node.Parent
	nodes, err := replacementNodes(replacement, parent)
	if err != nil {
		return failed(doc, tree, t), err
	}
	if len(nodes) == 0 {
		return failed(doc, tree, t), fmt.Errorf("%w: replacing %s", ErrEmptyReplacement, t)
	}

	for _, n := range nodes {
		parent.InsertBefore(n, h.Node)
	}
	parent.RemoveChild(h.Node)
	if t.Marker != "" {
		stripAll(tree.Root, t.Marker)
	}

	out, err := tree.Render()
	if err != nil {
		return doc, err
	}
	return out, nil
}

// failed is what Replace hands back when it cannot proceed: the original
// document, minus the marker when there was one to remove.
func failed(doc string, tree *htmldoc.Tree, t Target) string {
	if t.Marker == "" || stripAll(tree.Root, t.Marker) == 0 {
		return doc
	}
	out, err := tree.Render()
	if err != nil {
		return doc
	}
	return out
}

// replacementNodes parses replacement as children of parent. Comments and
// surrounding whitespace are dropped; nil means nothing usable was found.
func replacementNodes(replacement string, parent *html.Node) ([]*html.Node, error) {
	parsed, err := htmldoc.ParseFragment(replacement, parent)
	if err != nil {
		return nil, err
	}
	var nodes []*html.Node
	usable := false
	for _, n := range parsed {
		switch n.Type {
		case html.ElementNode:
			usable = true
		case html.TextNode:
			if !htmldoc.IsBlank(n) {
				usable = true
			}
		default:
			continue
		}
		nodes = append(nodes, n)
	}
	if !usable {
		return nil, nil
	}
	for len(nodes) > 0 && htmldoc.IsBlank(nodes[0]) {
		nodes = nodes[1:]
	}
	for len(nodes) > 0 && htmldoc.IsBlank(nodes[len(nodes)-1]) {
		nodes = nodes[:len(nodes)-1]
	}
	return nodes, nil
}

// Mark tags the element t identifies with attr (DefaultMarker when empty),
// clearing attr from every other element first.
func Mark(doc string, t Target, attr string) (string, error) {
	if attr == "" {
		attr = DefaultMarker
	}
	h, err := Locate(doc, t)
	if err != nil {
		return doc, err
	}
	stripAll(h.Tree.Root, attr)
	htmldoc.SetAttr(h.Node, attr, "true")
	out, err := h.Tree.Render()
	if err != nil {
		return doc, err
	}
	return out, nil
}

// StripMarker removes attr (DefaultMarker when empty) from every element.
// Documents without the marker, or that fail to parse, come back as given.
func StripMarker(doc, attr string) string {
	if attr == "" {
		attr = DefaultMarker
	}
	tree, err := htmldoc.Parse(doc)
	if err != nil || stripAll(tree.Root, attr) == 0 {
		return doc
	}
	out, err := tree.Render()
	if err != nil {
		return doc
	}
	return out
}

func stripAll(root *html.Node, attr string) int {
	removed := 0
	for _, n := range htmldoc.Elements(root) {
		if htmldoc.RemoveAttr(n, attr) {
			removed++
		}
	}
	return removed
}

// IsSingular reports whether elementHTML is a single element with no element
// children, such as a heading or a button.
func IsSingular(elementHTML string) bool {
	el, err := snapshotElement(elementHTML)
	if err != nil {
		return false
	}
	for c := el.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return false
		}
	}
	return true
}
