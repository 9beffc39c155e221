// Package assets splits a generated document into the three channels a host
// page needs to embed it: body markup, style text and script text.
package assets

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/dgallion1/pagewright/internal/chatter"
	"github.com/dgallion1/pagewright/internal/htmldoc"
)

// Bundle is the embeddable form of a document.
type Bundle struct {
	HTML string `json:"html"`
	CSS  string `json:"css"`
	JS   string `json:"js"`

	// ExternalScripts lists src URLs of referenced scripts, in document order.
	// The <script src> elements are removed from HTML so the fragment carries
	// no script elements at all, and their URLs are not part of JS. A host
	// page that wants them loaded must inject them itself; Assemble puts them
	// back in the document head.
	ExternalScripts []string `json:"external_scripts,omitempty"`
}

// parse is swapped in tests to exercise the degraded path.
var parse = htmldoc.Parse

// Passthrough is the degraded bundle used when a document cannot be parsed.
func Passthrough(doc string) Bundle {
	return Bundle{HTML: doc}
}

// Split decomposes doc into a Bundle. It never fails: a document the parser
// cannot handle comes back as Passthrough(doc).
func Split(doc, containerID string) Bundle {
	b, err := Decompose(doc, containerID)
	if err != nil {
		return Passthrough(doc)
	}
	return b
}

// Decompose is Split with the parse failure reported. The returned Bundle is
// usable even when err is non-nil.
func Decompose(doc, containerID string) (b Bundle, err error) {
	defer func() {
		if r := recover(); r != nil {
			b = Passthrough(doc)
			err = fmt.Errorf("%w: %v", htmldoc.ErrParse, r)
		}
	}()

	tree, err := parse(doc)
	if err != nil {
		return Passthrough(doc), err
	}

	var styles, scripts, external []string
	var doomed []*html.Node

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.CommentNode:
			if chatter.IsNoiseComment(n.Data) {
				doomed = append(doomed, n)
			}
			return
		case html.ElementNode:
			switch n.Data {
			case "style":
				if css := strings.TrimSpace(rawText(n)); css != "" {
					styles = append(styles, css)
				}
				doomed = append(doomed, n)
				return
			case "script":
				if src, ok := htmldoc.Attr(n, "src"); ok {
					if src = strings.TrimSpace(src); src != "" {
						external = append(external, src)
					}
				} else if js := strings.TrimSpace(rawText(n)); js != "" && isJavaScript(n) {
					scripts = append(scripts, js)
				}
				doomed = append(doomed, n)
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(tree.Root)

	for _, n := range doomed {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
	}

	content := tree.Root
	if !tree.Fragment {
		for _, tag := range []string{"html", "head"} {
			if el := htmldoc.FindElement(tree.Root, tag); el != nil {
				dropStrayText(el)
			}
		}
		if body := htmldoc.FindBody(tree.Root); body != nil {
			content = body
		}
	}
	dropStrayText(content)

	if c := soleContainer(content, containerID); c != nil {
		dropStrayText(c)
		content = c
	}

	fragment, err := htmldoc.InnerHTML(content)
	if err != nil {
		return Passthrough(doc), err
	}

	return Bundle{
		HTML:            strings.TrimSpace(fragment),
		CSS:             strings.Join(styles, "\n"),
		JS:              strings.Join(scripts, "\n"),
		ExternalScripts: external,
	}, nil
}

// soleContainer returns the element carrying containerID when it is the only
// meaningful child of content.
func soleContainer(content *html.Node, containerID string) *html.Node {
	if containerID == "" {
		return nil
	}
	var only *html.Node
	for c := content.FirstChild; c != nil; c = c.NextSibling {
		if !htmldoc.Meaningful(c) {
			continue
		}
		if only != nil {
			return nil
		}
		only = c
	}
	if only == nil || only.Type != html.ElementNode {
		return nil
	}
	if id, _ := htmldoc.Attr(only, "id"); id != containerID {
		return nil
	}
	return only
}

// dropStrayText removes non-blank text that sits directly under a structural
// container: oracle narration that leaked into the markup.
func dropStrayText(n *html.Node) {
	var stray []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode && !htmldoc.IsBlank(c) {
			stray = append(stray, c)
		}
	}
	for _, c := range stray {
		n.RemoveChild(c)
	}
}

func rawText(n *html.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	}
	return sb.String()
}

func isJavaScript(n *html.Node) bool {
	typ, ok := htmldoc.Attr(n, "type")
	if !ok {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(typ)) {
	case "", "text/javascript", "application/javascript", "module", "text/ecmascript", "application/ecmascript":
		return true
	}
	return false
}
