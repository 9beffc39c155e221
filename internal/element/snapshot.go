package element

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/dgallion1/pagewright/internal/htmldoc"
)

// bySnapshot finds the element a client snapshot refers to. The page may have
// been reformatted since the snapshot was taken, so the match loosens in
// stages: identical markup, then same tag with the same text and attributes,
// then same tag with the same class set. The first candidate in document
// order wins at each stage.
func bySnapshot(tree *htmldoc.Tree, root *html.Node, snapshot string) (*Handle, error) {
	snapshot = strings.TrimSpace(snapshot)
	want, err := snapshotElement(snapshot)
	if err != nil {
		return nil, err
	}
	normalized, _ := htmldoc.OuterHTML(want)
	candidates := htmldoc.Elements(root)

	for _, n := range candidates {
		outer, err := htmldoc.OuterHTML(n)
		if err != nil {
			continue
		}
		if outer == snapshot || outer == normalized {
			return &Handle{Tree: tree, Node: n, Strategy: StrategyExactHTML}, nil
		}
	}

	text := strippedText(want)
	for _, n := range candidates {
		if n.Data == want.Data && strippedText(n) == text && attrsMatch(want, n) {
			return &Handle{Tree: tree, Node: n, Strategy: StrategyTextAttrs}, nil
		}
	}

	if classes := classSet(want); len(classes) > 0 {
		for _, n := range candidates {
			if n.Data == want.Data && sameSet(classes, classSet(n)) {
				return &Handle{Tree: tree, Node: n, Strategy: StrategyClassNames}, nil
			}
		}
	}

	return nil, fmt.Errorf("%w: snapshot <%s>", ErrTargetNotFound, want.Data)
}

// snapshotElement parses snapshot in a context that keeps its leading element,
// so table rows and cells survive.
func snapshotElement(snapshot string) (*html.Node, error) {
	ctx := htmldoc.ContextFor(htmldoc.FirstTag(snapshot))
	nodes, err := htmldoc.ParseFragment(snapshot, ctx)
	if err != nil {
		return nil, err
	}
	for _, n := range nodes {
		if n.Type == html.ElementNode {
			return n, nil
		}
	}
	return nil, fmt.Errorf("%w: snapshot has no element", ErrInvalidTarget)
}

// strippedText joins the trimmed text nodes under n with no separator.
func strippedText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(strings.TrimSpace(n.Data))
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// attrsMatch reports whether every attribute of want is present on got with
// the same value. Class lists compare token by token.
func attrsMatch(want, got *html.Node) bool {
	for _, a := range want.Attr {
		v, ok := htmldoc.Attr(got, a.Key)
		if !ok {
			return false
		}
		if a.Key == "class" {
			if strings.Join(strings.Fields(a.Val), " ") != strings.Join(strings.Fields(v), " ") {
				return false
			}
			continue
		}
		if v != a.Val {
			return false
		}
	}
	return true
}

func classSet(n *html.Node) map[string]struct{} {
	v, _ := htmldoc.Attr(n, "class")
	fields := strings.Fields(v)
	if len(fields) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

func sameSet(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
