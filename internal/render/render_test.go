package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_BasicMarkdown(t *testing.T) {
	p := New()
	html, err := p.Render("We offer **full** refunds.")
	require.NoError(t, err)
	assert.Contains(t, html, "<strong>full</strong>")
}

func TestRender_StripsScript(t *testing.T) {
	p := New()
	html, err := p.Render("hello <script>alert(1)</script> world")
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>")
	assert.NotContains(t, html, "alert(1)")
}

func TestRender_KeepsLinks(t *testing.T) {
	p := New()
	html, err := p.Render("see [the docs](https://example.com/refunds)")
	require.NoError(t, err)
	assert.Contains(t, html, `href="https://example.com/refunds"`)
}

func TestRender_GFMTable(t *testing.T) {
	p := New()
	md := strings.Join([]string{
		"| plan | price |",
		"| ---- | ----- |",
		"| pro  | $10   |",
	}, "\n")
	html, err := p.Render(md)
	require.NoError(t, err)
	assert.Contains(t, html, "<table>")
}
