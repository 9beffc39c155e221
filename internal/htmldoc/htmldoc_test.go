package htmldoc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func TestFirstTag(t *testing.T) {
	assert.Equal(t, "td", FirstTag(`  <TD class="c">1</TD>`))
	assert.Equal(t, "tr", FirstTag("Here: <tr><td>x</td></tr>"))
	assert.Equal(t, "custom-el", FirstTag("<custom-el>"))
	assert.Equal(t, "", FirstTag("no markup < here"))
}

func TestContextFor_KeepsTableParts(t *testing.T) {
	tests := []struct {
		markup string
		tag    string
	}{
		{`<td class="c">1</td>`, "td"},
		{`<th>h</th>`, "th"},
		{`<tr><td>1</td></tr>`, "tr"},
		{`<tbody><tr><td>1</td></tr></tbody>`, "tbody"},
		{`<thead><tr><th>h</th></tr></thead>`, "thead"},
		{`<caption>c</caption>`, "caption"},
		{`<option>o</option>`, "option"},
		{`<p>p</p>`, "p"},
	}
	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			nodes, err := ParseFragment(tt.markup, ContextFor(FirstTag(tt.markup)))
			require.NoError(t, err)
			require.NotEmpty(t, nodes)
			assert.Equal(t, html.ElementNode, nodes[0].Type)
			assert.Equal(t, tt.tag, nodes[0].Data)
			out, err := OuterHTML(nodes[0])
			require.NoError(t, err)
			assert.Equal(t, tt.markup, out)
		})
	}
}

func TestParse_NoscriptContentIsMarkup(t *testing.T) {
	tree, err := Parse(`<noscript><style>.x{}</style></noscript>`)
	require.NoError(t, err)
	ns := FindElement(tree.Root, "noscript")
	require.NotNil(t, ns)
	assert.NotNil(t, FindElement(ns, "style"))

	tree, err = Parse(`<!DOCTYPE html><html><body><noscript><script>a()</script></noscript></body></html>`)
	require.NoError(t, err)
	assert.NotNil(t, FindElement(tree.Root, "script"))
}

func TestFindByID(t *testing.T) {
	tree, err := Parse(`<div id="outer"><p id="inner">x</p></div>`)
	require.NoError(t, err)
	n := FindByID(tree.Root, "inner")
	require.NotNil(t, n)
	assert.Equal(t, "p", n.Data)
	assert.Nil(t, FindByID(tree.Root, "none"))
}
