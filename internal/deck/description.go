package deck

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Raw HTML in descriptions is not rendered.
var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

// RenderDescription converts a Markdown deck description to HTML.
func RenderDescription(description string) (string, error) {
	if description == "" {
		return "", nil
	}

	var buf bytes.Buffer
	if err := markdown.Convert([]byte(description), &buf); err != nil {
		return "", fmt.Errorf("failed to render description: %w", err)
	}
	return buf.String(), nil
}
