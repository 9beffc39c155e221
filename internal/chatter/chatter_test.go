package chatter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/pagewright/internal/htmldoc"
)

const page = "<!DOCTYPE html>\n<html><head><title>T</title></head><body><h1>Hi</h1></body></html>\n"

func TestIsolate_DropsLeadingProse(t *testing.T) {
	raw := "Sure! Here is your landing page:\n\n" + page
	got, ok := Isolate(raw)
	require.True(t, ok)
	assert.Equal(t, page, got)
}

func TestIsolate_CaseInsensitiveMarker(t *testing.T) {
	raw := "ok <!doctype HTML><html><body>x</body></html>"
	got, ok := Isolate(raw)
	require.True(t, ok)
	assert.Equal(t, "<!doctype HTML><html><body>x</body></html>", got)
}

func TestIsolate_PrefersFenceInterior(t *testing.T) {
	raw := "I considered <!DOCTYPE html> first but here is the real one:\n\n```html\n" + page + "```\n\nLet me know!"
	got, ok := Isolate(raw)
	require.True(t, ok)
	assert.Equal(t, page, got)
}

func TestIsolate_UnterminatedFence(t *testing.T) {
	raw := "Here you go\n```html\n<!DOCTYPE html><html><body><p>cut off"
	got, ok := Isolate(raw)
	require.True(t, ok)
	assert.Equal(t, "<!DOCTYPE html><html><body><p>cut off", got)
}

func TestIsolate_FenceWithoutMarkerFallsBackToRaw(t *testing.T) {
	raw := "```css\n.a{}\n```\n<!DOCTYPE html><html></html>"
	got, ok := Isolate(raw)
	require.True(t, ok)
	assert.Equal(t, "<!DOCTYPE html><html></html>", got)
}

func TestIsolate_NoMarker(t *testing.T) {
	tests := []string{
		"",
		"I'm sorry, I can't help with that.",
		"```html\n<div>no root here</div>\n```",
		"<!doctyp html>",
	}
	for _, raw := range tests {
		got, ok := Isolate(raw)
		assert.False(t, ok, "raw=%q", raw)
		assert.Empty(t, got, "raw=%q", raw)
	}
}

func TestIsolate_Idempotent(t *testing.T) {
	inputs := []string{
		"prose\n" + page,
		"```html\n" + page + "```",
		page + "\n```\ntrailing fence chatter\n```\n",
		"<!DOCTYPE html><pre>\n```html\n<!DOCTYPE html>\n```\n</pre>",
	}
	for _, raw := range inputs {
		once, ok := Isolate(raw)
		require.True(t, ok, "raw=%q", raw)
		twice, ok := Isolate(once)
		require.True(t, ok)
		assert.Equal(t, once, twice, "raw=%q", raw)
	}
}

func TestIsolate_MultibyteBeforeMarker(t *testing.T) {
	raw := "İstanbul ünïcödé — <!DOCTYPE html><html></html>"
	got, ok := Isolate(raw)
	require.True(t, ok)
	assert.Equal(t, "<!DOCTYPE html><html></html>", got)
}

func TestFirstElement(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "fenced",
			raw:  "Here is the updated heading:\n```html\n<h1 class=\"big\">New</h1>\n```\nEnjoy.",
			want: `<h1 class="big">New</h1>`,
		},
		{
			name: "bare",
			raw:  "Updated: <section><p>a</p><p>b</p></section> done",
			want: "<section><p>a</p><p>b</p></section>",
		},
		{
			name: "skips non-markup fence",
			raw:  "```css\n.x{}\n```\n<button>Go</button>",
			want: "<button>Go</button>",
		},
		{
			name: "full document yields first body element",
			raw:  "<!DOCTYPE html><html><head><title>x</title></head><body><main>m</main></body></html>",
			want: "<main>m</main>",
		},
		{
			name: "no element",
			raw:  "I could not do that.",
			want: "",
		},
		{
			name: "fenced table row",
			raw:  "```html\n<tr><td>2</td></tr>\n```",
			want: "<tr><td>2</td></tr>",
		},
		{
			name: "bare table cell",
			raw:  `<td class="c">2</td>`,
			want: `<td class="c">2</td>`,
		},
		{
			name: "table header cell after prose",
			raw:  "Here it is: <th scope=\"col\">Name</th>",
			want: `<th scope="col">Name</th>`,
		},
		{
			name: "list option",
			raw:  `<option value="a">A</option>`,
			want: `<option value="a">A</option>`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FirstElement(tt.raw))
		})
	}
}

func TestFirstElementInParentContext(t *testing.T) {
	row := htmldoc.NewElement("tr")
	assert.Equal(t, `<td class="c">9</td>`, FirstElementIn("```html\n<td class=\"c\">9</td>\n```", row))

	body := htmldoc.NewBody()
	assert.Equal(t, "<p>x</p>", FirstElementIn("<p>x</p>", body))
}

func TestIsNoiseComment(t *testing.T) {
	noise := []string{
		" ... ",
		" Rest of the code remains the same ",
		"existing sections unchanged",
		" unchanged ",
		"Explanation: I added a hero section",
		"AI: replaced the footer",
		"End of generated output",
		"content omitted for brevity",
	}
	for _, c := range noise {
		assert.True(t, IsNoiseComment(c), "comment=%q", c)
	}

	keep := []string{
		" Hero section ",
		" Navigation ",
		"TODO: wire form",
		"Footer links",
	}
	for _, c := range keep {
		assert.False(t, IsNoiseComment(c), "comment=%q", c)
	}
}
