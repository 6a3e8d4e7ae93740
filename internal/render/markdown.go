package render

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var markdownEngine = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(html.WithUnsafe()),
)

// ToHTML converts Markdown body to an HTML fragment using the GitHub
// Flavored Markdown extension set (tables, strikethrough, task lists,
// autolinking). Raw HTML in the body is passed through unchanged, as
// pulldown_cmark does, so documents may embed markup such as list_dir
// output. Smart punctuation is not enabled.
func ToHTML(body string) (string, error) {
	var buf bytes.Buffer
	if err := markdownEngine.Convert([]byte(body), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
