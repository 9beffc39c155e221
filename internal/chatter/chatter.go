// Package chatter strips the prose and markdown fencing an oracle wraps
// around the markup it was asked for.
package chatter

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/dgallion1/pagewright/internal/htmldoc"
)

// RootMarker is the token that opens a genuine document. Matched
// case-insensitively.
const RootMarker = "<!doctype"

// Isolate returns raw from the first root marker onward. When raw does not
// already start with the marker and a fenced code block contains one, the
// fence interior wins over anything outside it. The second result is false
// when no marker exists anywhere; callers treat that as unusable output.
func Isolate(raw string) (string, bool) {
	if !startsWithMarker(raw) {
		for _, f := range fencedBlocks(raw) {
			if i := indexFold(f.Body, RootMarker); i >= 0 {
				return f.Body[i:], true
			}
		}
	}
	i := indexFold(raw, RootMarker)
	if i < 0 {
		return "", false
	}
	return raw[i:], true
}

// FirstElement extracts the first complete element from oracle output meant
// to contain a single rewritten element. Fenced blocks are searched first,
// then the raw text. Returns "" when no element is present.
func FirstElement(raw string) string {
	return FirstElementIn(raw, nil)
}

// FirstElementIn is FirstElement with the markup parsed as children of ctx,
// the parent the element will be inserted under. A nil ctx is inferred from
// the first tag, so a bare <tr> or <td> is still found.
func FirstElementIn(raw string, ctx *html.Node) string {
	for _, f := range fencedBlocks(raw) {
		if !markupLang(f.Lang) {
			continue
		}
		if el := firstElement(f.Body, ctx); el != "" {
			return el
		}
	}
	return firstElement(raw, ctx)
}

func markupLang(lang string) bool {
	switch strings.ToLower(lang) {
	case "", "html", "htm", "xhtml", "xml", "svg", "vue", "jsx":
		return true
	}
	return false
}

func firstElement(s string, ctx *html.Node) string {
	if !strings.Contains(s, "<") {
		return ""
	}
	var nodes []*html.Node
	if htmldoc.IsDocument(s) {
		tree, err := htmldoc.Parse(s)
		if err != nil {
			return ""
		}
		root := tree.Root
		if body := htmldoc.FindBody(tree.Root); body != nil {
			root = body
		}
		for c := root.FirstChild; c != nil; c = c.NextSibling {
			nodes = append(nodes, c)
		}
	} else {
		if ctx == nil {
			ctx = htmldoc.ContextFor(htmldoc.FirstTag(s))
		}
		parsed, err := htmldoc.ParseFragment(s, ctx)
		if err != nil {
			return ""
		}
		nodes = parsed
	}
	for _, n := range nodes {
		if n.Type != html.ElementNode {
			continue
		}
		out, err := htmldoc.OuterHTML(n)
		if err != nil {
			return ""
		}
		return out
	}
	return ""
}

var noiseCommentRe = regexp.MustCompile(`(?i)^\s*(` +
	`\.{3}|…|` +
	`(the\s+)?rest\s+of\b|` +
	`(existing|remaining|other|previous|original)\s+(code|content|sections?|markup|html|elements?)\b|` +
	`unchanged\b|no\s+changes\b|same\s+as\s+(before|above)\b|` +
	`(start|end|begin)\s+of\s+(the\s+)?(code|changes?|modifications?|edits?|generated|output)\b|` +
	`(ai|assistant|model|llm)\s*(note)?\s*:|` +
	`explanation\b|note\s+to\s+(the\s+)?(user|developer)\b|` +
	`generated\s+by\b|` +
	`(code|content|markup)\s+(continues|omitted|truncated)\b)`)

// IsNoiseComment reports whether a comment's text is one of the narration
// markers oracles leave inside markup ("... rest of the code ...",
// "unchanged", "explanation: ..."). Ordinary author comments are not noise.
func IsNoiseComment(text string) bool {
	return noiseCommentRe.MatchString(text)
}

func startsWithMarker(s string) bool {
	s = strings.TrimLeft(s, " \t\r\n\f\ufeff")
	return len(s) >= len(RootMarker) && equalFoldASCII(s[:len(RootMarker)], RootMarker)
}

// indexFold is strings.Index with ASCII case folding. Byte offsets into s
// are preserved, which strings.ToLower does not guarantee.
func indexFold(s, sub string) int {
	n := len(sub)
	for i := 0; i+n <= len(s); i++ {
		if equalFoldASCII(s[i:i+n], sub) {
			return i
		}
	}
	return -1
}

func equalFoldASCII(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
