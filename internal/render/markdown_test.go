package render

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestToHTMLBasic(t *testing.T) {
	html, err := ToHTML("# Title\n\nSome **bold** text.")
	require.NoError(t, err)
	require.Contains(t, html, "<h1>Title</h1>")
	require.Contains(t, html, "<strong>bold</strong>")
}

func TestToHTMLTableExtension(t *testing.T) {
	html, err := ToHTML("| a | b |\n|---|---|\n| 1 | 2 |\n")
	require.NoError(t, err)
	require.Contains(t, html, "<table>")
}

func TestToHTMLStrikethrough(t *testing.T) {
	html, err := ToHTML("~~gone~~")
	require.NoError(t, err)
	require.Contains(t, html, "<del>gone</del>")
}
