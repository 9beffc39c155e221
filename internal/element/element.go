// Package element locates one element inside a document and substitutes
// replacement markup for it, leaving the rest of the tree alone.
package element

import (
	"errors"
	"fmt"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/dgallion1/pagewright/internal/htmldoc"
)

// DefaultMarker is the one-shot attribute used to tag an element across an
// oracle round trip.
const DefaultMarker = "data-pagewright-target"

var (
	ErrTargetNotFound   = errors.New("target element not found")
	ErrTargetAmbiguous  = errors.New("target element ambiguous")
	ErrEmptyReplacement = errors.New("replacement has no usable nodes")
	ErrInvalidTarget    = errors.New("invalid target")
	ErrParse            = htmldoc.ErrParse
)

// Target identifies one element. Exactly one of Selector, Marker and Snapshot
// should be set; they are consulted in that order.
type Target struct {
	// Selector is a CSS selector; the first match is the target.
	Selector string
	// Marker is the name of an attribute carried by exactly one element.
	Marker string
	// Snapshot is the outer markup of the element as a client last saw it.
	Snapshot string
	// MaxMatches bounds how many selector matches are tolerated before the
	// target is considered ambiguous. Zero means 1.
	MaxMatches int
	// Within, when set, is the id of an element whose descendants are the
	// only candidates for Selector and Snapshot. The element itself never
	// matches.
	Within string
}

// BySelector targets the first element matching sel.
func BySelector(sel string) Target { return Target{Selector: sel} }

// ByMarker targets the element carrying attr. An empty attr means
// DefaultMarker.
func ByMarker(attr string) Target {
	if attr == "" {
		attr = DefaultMarker
	}
	return Target{Marker: attr}
}

// BySnapshot targets the element whose markup best matches snapshot.
func BySnapshot(snapshot string) Target { return Target{Snapshot: snapshot} }

// In confines t to the descendants of the element with the given id.
func (t Target) In(id string) Target {
	t.Within = id
	return t
}

func (t Target) String() string {
	switch {
	case t.Selector != "":
		return "selector " + t.Selector
	case t.Marker != "":
		return "marker " + t.Marker
	case t.Snapshot != "":
		return "snapshot"
	}
	return "empty target"
}

// Strategy names how a target was found.
type Strategy string

const (
	StrategySelector   Strategy = "selector"
	StrategyMarker     Strategy = "marker"
	StrategyExactHTML  Strategy = "exact_html"
	StrategyTextAttrs  Strategy = "text_and_attributes"
	StrategyClassNames Strategy = "class_names"
)

// Handle is a located element inside its parsed tree. Mutating Node mutates
// Tree.
type Handle struct {
	Tree     *htmldoc.Tree
	Node     *html.Node
	Strategy Strategy
}

// OuterHTML renders the located element.
func (h *Handle) OuterHTML() (string, error) {
	return htmldoc.OuterHTML(h.Node)
}

// Locate parses doc and finds the element t identifies.
func Locate(doc string, t Target) (*Handle, error) {
	tree, err := htmldoc.Parse(doc)
	if err != nil {
		return nil, err
	}
	return locate(tree, t)
}

func locate(tree *htmldoc.Tree, t Target) (*Handle, error) {
	if t.Selector == "" && t.Marker == "" && strings.TrimSpace(t.Snapshot) == "" {
		return nil, fmt.Errorf("%w: no selector, marker or snapshot", ErrInvalidTarget)
	}
	if t.Marker != "" && t.Selector == "" {
		return byMarker(tree, t.Marker)
	}
	root := tree.Root
	if t.Within != "" {
		if root = htmldoc.FindByID(tree.Root, t.Within); root == nil {
			return nil, fmt.Errorf("%w: no element with id %q", ErrTargetNotFound, t.Within)
		}
	}
	if t.Selector != "" {
		return bySelector(tree, root, t)
	}
	return bySnapshot(tree, root, t.Snapshot)
}

func bySelector(tree *htmldoc.Tree, root *html.Node, t Target) (*Handle, error) {
	sel, err := cascadia.ParseGroup(t.Selector)
	if err != nil {
		return nil, fmt.Errorf("%w: selector %q: %v", ErrInvalidTarget, t.Selector, err)
	}
	matches := cascadia.QueryAll(root, sel)
	limit := t.MaxMatches
	if limit <= 0 {
		limit = 1
	}
	switch {
	case len(matches) == 0:
		return nil, fmt.Errorf("%w: %s", ErrTargetNotFound, t)
	case len(matches) > limit:
		return nil, fmt.Errorf("%w: %s matched %d elements", ErrTargetAmbiguous, t, len(matches))
	}
	return &Handle{Tree: tree, Node: matches[0], Strategy: StrategySelector}, nil
}

func byMarker(tree *htmldoc.Tree, attr string) (*Handle, error) {
	var found []*html.Node
	for _, n := range htmldoc.Elements(tree.Root) {
		if _, ok := htmldoc.Attr(n, attr); ok {
			found = append(found, n)
		}
	}
	switch len(found) {
	case 0:
		return nil, fmt.Errorf("%w: marker %s", ErrTargetNotFound, attr)
	case 1:
		return &Handle{Tree: tree, Node: found[0], Strategy: StrategyMarker}, nil
	}
	return nil, fmt.Errorf("%w: marker %s on %d elements", ErrTargetAmbiguous, attr, len(found))
}
