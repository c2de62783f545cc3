// Package render is the display side of the answer pipeline: it converts
// answer markdown into sanitized HTML. Answers come from a remote model,
// so the output always passes through a UGC sanitation policy.
package render

import (
	"bytes"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Pipeline renders markdown to sanitized HTML. Safe for concurrent use.
type Pipeline struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// New returns a Pipeline with GFM extensions and the standard UGC policy.
func New() *Pipeline {
	return &Pipeline{
		md:     goldmark.New(goldmark.WithExtensions(extension.GFM)),
		policy: bluemonday.UGCPolicy(),
	}
}

// Render converts markdown into sanitized HTML.
func (p *Pipeline) Render(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := p.md.Convert([]byte(markdown), &buf); err != nil {
		return "", err
	}
	return p.policy.Sanitize(buf.String()), nil
}
