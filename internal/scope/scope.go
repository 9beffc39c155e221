// Package scope rewrites style rules so they only apply inside one container
// element, letting several generated fragments share a host page.
package scope

import (
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

// groupRules are at-rules whose block holds ordinary rules that need scoping.
// Every other at-rule block (@font-face, @keyframes, @page, ...) is copied
// through untouched.
var groupRules = map[string]bool{
	"@media":          true,
	"@supports":       true,
	"@container":      true,
	"@layer":          true,
	"@document":       true,
	"@-moz-document":  true,
	"@scope":          true,
	"@starting-style": true,
}

type token struct {
	tt   css.TokenType
	data string
}

// Scope prefixes every selector of every rule in styleText with
// "#containerID ", recursing into conditional group rules. Selectors already
// starting with the container id are left alone, so scoping twice is the same
// as scoping once. Unparsable segments are copied through verbatim. An empty
// containerID returns styleText unchanged.
func Scope(styleText, containerID string) string {
	if containerID == "" || strings.TrimSpace(styleText) == "" {
		return styleText
	}
	s := &scoper{
		toks:   lex(styleText),
		prefix: "#" + containerID,
	}
	var sb strings.Builder
	sb.Grow(len(styleText) + 64)
	s.ruleList(&sb, false)
	return sb.String()
}

func lex(src string) []token {
	l := css.NewLexer(parse.NewInputString(src))
	var out []token
	consumed := 0
	for {
		tt, data := l.Next()
		if tt == css.ErrorToken {
			break
		}
		out = append(out, token{tt: tt, data: string(data)})
		consumed += len(data)
	}
	// The lexer is lossless; keep any tail it refused anyway.
	if consumed < len(src) {
		out = append(out, token{tt: css.ErrorToken, data: src[consumed:]})
	}
	return out
}

type scoper struct {
	toks   []token
	pos    int
	prefix string
}

// ruleList copies a sequence of rules. Nested lists stop at their closing
// brace without consuming it.
func (s *scoper) ruleList(sb *strings.Builder, nested bool) {
	for s.pos < len(s.toks) {
		i := s.pos
		for i < len(s.toks) && !isBoundary(s.toks[i].tt) {
			i++
		}
		prelude := s.toks[s.pos:i]
		if i == len(s.toks) {
			writeTokens(sb, prelude)
			s.pos = i
			return
		}

		switch s.toks[i].tt {
		case css.SemicolonToken:
			writeTokens(sb, prelude)
			sb.WriteString(s.toks[i].data)
			s.pos = i + 1

		case css.RightBraceToken:
			writeTokens(sb, prelude)
			if nested {
				s.pos = i
				return
			}
			sb.WriteString(s.toks[i].data)
			s.pos = i + 1

		case css.LeftBraceToken:
			s.pos = i + 1
			if at := atKeyword(prelude); at != "" {
				writeTokens(sb, prelude)
				sb.WriteString(s.toks[i].data)
				if groupRules[at] {
					s.ruleList(sb, true)
				} else {
					s.block(sb)
				}
			} else {
				sb.WriteString(s.selectors(prelude))
				sb.WriteString(s.toks[i].data)
				s.block(sb)
			}
			if s.pos < len(s.toks) && s.toks[s.pos].tt == css.RightBraceToken {
				sb.WriteString(s.toks[s.pos].data)
				s.pos++
			}
		}
	}
}

// block copies a declaration block up to, not including, its closing brace.
func (s *scoper) block(sb *strings.Builder) {
	depth := 0
	for ; s.pos < len(s.toks); s.pos++ {
		switch s.toks[s.pos].tt {
		case css.LeftBraceToken:
			depth++
		case css.RightBraceToken:
			if depth == 0 {
				return
			}
			depth--
		}
		sb.WriteString(s.toks[s.pos].data)
	}
}

// selectors prefixes each comma-separated selector of a rule prelude.
func (s *scoper) selectors(prelude []token) string {
	var sb strings.Builder
	for i, part := range splitSelectors(prelude) {
		if i > 0 {
			sb.WriteByte(',')
		}
		lead, core, trail := trimTrivia(part)
		writeTokens(&sb, lead)
		if text := tokensString(core); text != "" && !s.scoped(text) {
			sb.WriteString(s.prefix)
			sb.WriteByte(' ')
			sb.WriteString(text)
		} else {
			sb.WriteString(text)
		}
		writeTokens(&sb, trail)
	}
	return sb.String()
}

func (s *scoper) scoped(sel string) bool {
	if !strings.HasPrefix(sel, s.prefix) {
		return false
	}
	return len(sel) == len(s.prefix) || !isNameByte(sel[len(s.prefix)])
}

// splitSelectors splits on commas outside parentheses and brackets, dropping
// the comma tokens themselves.
func splitSelectors(prelude []token) [][]token {
	var parts [][]token
	depth, start := 0, 0
	for i, t := range prelude {
		switch t.tt {
		case css.FunctionToken, css.LeftParenthesisToken, css.LeftBracketToken:
			depth++
		case css.RightParenthesisToken, css.RightBracketToken:
			if depth > 0 {
				depth--
			}
		case css.CommaToken:
			if depth == 0 {
				parts = append(parts, prelude[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, prelude[start:])
}

func trimTrivia(toks []token) (lead, core, trail []token) {
	i := 0
	for i < len(toks) && isTrivia(toks[i].tt) {
		i++
	}
	j := len(toks)
	for j > i && isTrivia(toks[j-1].tt) {
		j--
	}
	return toks[:i], toks[i:j], toks[j:]
}

func atKeyword(prelude []token) string {
	for _, t := range prelude {
		if isTrivia(t.tt) {
			continue
		}
		if t.tt == css.AtKeywordToken {
			return strings.ToLower(t.data)
		}
		return ""
	}
	return ""
}

func isBoundary(tt css.TokenType) bool {
	return tt == css.LeftBraceToken || tt == css.RightBraceToken || tt == css.SemicolonToken
}

func isTrivia(tt css.TokenType) bool {
	switch tt {
	case css.WhitespaceToken, css.CommentToken, css.CDOToken, css.CDCToken:
		return true
	}
	return false
}

func isNameByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' ||
		c == '-' || c == '_' || c == '\\' || c >= 0x80
}

func writeTokens(sb *strings.Builder, toks []token) {
	for _, t := range toks {
		sb.WriteString(t.data)
	}
}

func tokensString(toks []token) string {
	var sb strings.Builder
	writeTokens(&sb, toks)
	return sb.String()
}
