package pipeline

import (
	"strings"

	"github.com/google/uuid"
	"golang.org/x/net/html"

	"github.com/dgallion1/pagewright/internal/assets"
	"github.com/dgallion1/pagewright/internal/htmldoc"
)

// Page is a bundle together with the container id its styles are scoped to.
type Page struct {
	assets.Bundle
	ContainerID string `json:"container_id"`
}

// NewContainerID returns a fresh id, valid both as an HTML id and as a CSS
// identifier.
func NewContainerID() string {
	return "pagewright-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// DefaultPage is the placeholder a client shows before its first build.
const DefaultPage = `<!DOCTYPE html><html><head><title>My app</title><meta name="viewport" content="width=device-width, initial-scale=1.0" /><meta charset="utf-8"><script src="https://cdn.tailwindcss.com"></script></head><body class="flex justify-center items-center h-screen overflow-hidden bg-white font-sans text-center px-6"><div class="w-full"><span class="text-xs rounded-full mb-2 inline-block px-2 py-1 border border-amber-500/15 bg-amber-500/15 text-amber-500">🔥 New version dropped!</span><h1 class="text-4xl lg:text-6xl font-bold font-sans"><span class="text-2xl lg:text-4xl text-gray-400 block font-medium">I'm ready to work,</span>Ask me anything.</h1></div><img src="https://enzostvs-deepsite.hf.space/arrow.svg" class="absolute bottom-8 left-0 w-[100px] transform rotate-[30deg]" alt="Decorative arrow pointing to the input area" /><script></script></body></html>`

var defaultPageText = visibleText(DefaultPage)

// IsDefaultPage reports whether doc (a document or a fragment) shows the same
// text as DefaultPage, ignoring whitespace and comments. Edits against the
// placeholder are promoted to full builds.
func IsDefaultPage(doc string) bool {
	text := visibleText(doc)
	return text != "" && text == defaultPageText
}

func visibleText(doc string) string {
	tree, err := htmldoc.Parse(doc)
	if err != nil {
		return ""
	}
	root := tree.Root
	if !tree.Fragment {
		if body := htmldoc.FindBody(root); body != nil {
			root = body
		}
	}
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			sb.WriteString(n.Data)
		case html.ElementNode:
			if n.Data == "script" || n.Data == "style" {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return strings.Join(strings.Fields(sb.String()), " ")
}
