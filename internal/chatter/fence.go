package chatter

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// fence is one fenced code block found in oracle output.
type fence struct {
	Lang string
	Body string
}

// fencedBlocks returns the fenced code blocks of raw in document order.
// An unterminated fence runs to the end of the input, which covers oracle
// output cut off mid-answer.
func fencedBlocks(raw string) []fence {
	if !strings.Contains(raw, "```") && !strings.Contains(raw, "~~~") {
		return nil
	}
	src := []byte(raw)
	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(src))

	var out []fence
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		fb, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}
		var buf bytes.Buffer
		lines := fb.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			buf.Write(line.Value(src))
		}
		out = append(out, fence{
			Lang: string(fb.Language(src)),
			Body: buf.String(),
		})
		return ast.WalkSkipChildren, nil
	})
	return out
}
