// Package patch parses and applies search/replace edit blocks produced by the
// oracle for diff-style page edits.
package patch

import "strings"

// Markers are the three sentinels delimiting a block. They are matched
// verbatim, in order, and never nest.
type Markers struct {
	Search     string
	Divider    string
	ReplaceEnd string
}

// DefaultMarkers are the sentinels the edit prompts instruct the oracle to use.
var DefaultMarkers = Markers{
	Search:     "<<<<<<< SEARCH",
	Divider:    "=======",
	ReplaceEnd: ">>>>>>> REPLACE",
}

// Block is one search/replace pair. An empty (or whitespace-only) Search is an
// insertion at the top of the document.
type Block struct {
	Search  string `json:"search"`
	Replace string `json:"replace"`
}

// Insertion reports whether the block prepends rather than replaces.
func (b Block) Insertion() bool {
	return strings.TrimSpace(b.Search) == ""
}

// SkippedBlock identifies a block whose search text was not found.
type SkippedBlock struct {
	Index  int    `json:"index"`
	Search string `json:"search"`
}

// Result is the outcome of applying a patch.
type Result struct {
	Document string         `json:"document"`
	Blocks   int            `json:"blocks"`
	Applied  int            `json:"applied"`
	Skipped  []SkippedBlock `json:"skipped,omitempty"`
}

// Changed reports whether any block modified the document.
func (r Result) Changed() bool { return r.Applied > 0 }

// Parse extracts blocks using DefaultMarkers.
func Parse(text string) []Block {
	return DefaultMarkers.Parse(text)
}

// Apply parses text with DefaultMarkers and applies the blocks to original.
func Apply(original, text string) Result {
	return DefaultMarkers.Apply(original, text)
}

// Parse extracts every complete block from text, in order. A trailing block
// missing its divider or end marker is ignored.
func (m Markers) Parse(text string) []Block {
	var blocks []Block
	rest := text
	for {
		start := strings.Index(rest, m.Search)
		if start < 0 {
			return blocks
		}
		rest = rest[start+len(m.Search):]

		div := strings.Index(rest, m.Divider)
		if div < 0 {
			return blocks
		}
		search := rest[:div]
		rest = rest[div+len(m.Divider):]

		end := strings.Index(rest, m.ReplaceEnd)
		if end < 0 {
			return blocks
		}
		replace := rest[:end]
		rest = rest[end+len(m.ReplaceEnd):]

		blocks = append(blocks, Block{
			Search:  trimNewline(search),
			Replace: trimNewline(replace),
		})
	}
}

// Apply applies the blocks of text to original in order. Each block replaces
// the first occurrence of its search text in the running document; blocks
// whose search text is absent are skipped and listed in the result. Text
// without any block leaves original untouched.
func (m Markers) Apply(original, text string) Result {
	return applyBlocks(original, m.Parse(text))
}

// applyBlocks applies already parsed blocks.
func applyBlocks(original string, blocks []Block) Result {
	res := Result{Document: original, Blocks: len(blocks)}
	for i, b := range blocks {
		if b.Insertion() {
			res.Document = b.Replace + "\n" + res.Document
			res.Applied++
			continue
		}
		idx := strings.Index(res.Document, b.Search)
		if idx < 0 {
			res.Skipped = append(res.Skipped, SkippedBlock{Index: i, Search: b.Search})
			continue
		}
		res.Document = res.Document[:idx] + b.Replace + res.Document[idx+len(b.Search):]
		res.Applied++
	}
	return res
}

// trimNewline drops at most one line break from each end, which is the
// formatting the marker lines themselves introduce.
func trimNewline(s string) string {
	switch {
	case strings.HasPrefix(s, "\r\n"):
		s = s[2:]
	case strings.HasPrefix(s, "\n"):
		s = s[1:]
	}
	switch {
	case strings.HasSuffix(s, "\r\n"):
		s = s[:len(s)-2]
	case strings.HasSuffix(s, "\n"):
		s = s[:len(s)-1]
	}
	return s
}
