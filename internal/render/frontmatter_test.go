package render

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseFrontMatterExtractsContext(t *testing.T) {
	src := "---\ntitle: \"Hello\"\ncache: false\n---\n\nBody text here."
	doc := ParseFrontMatter(src)
	require.Equal(t, "Hello", doc.Context["title"])
	require.Equal(t, false, doc.Context["cache"])
	require.Equal(t, "Body text here.", doc.Body)
}

func TestParseFrontMatterCRLF(t *testing.T) {
	src := "---\r\ntitle: \"CRLF\"\r\n---\r\nBody\r\n"
	doc := ParseFrontMatter(src)
	require.Equal(t, "CRLF", doc.Context["title"])
	require.Equal(t, "Body\r\n", doc.Body)
}

func TestParseFrontMatterNoneDefaultsTitle(t *testing.T) {
	doc := ParseFrontMatter("just a body, no front matter")
	require.Equal(t, DefaultTitle, doc.Context["title"])
	require.Equal(t, "just a body, no front matter", doc.Body)
}

func TestParseFrontMatterInvalidYAMLFallsBackToDefault(t *testing.T) {
	src := "---\ntitle: [unterminated flow sequence\n---\nBody"
	doc := ParseFrontMatter(src)
	require.Equal(t, DefaultTitle, doc.Context["title"])
}

func TestParseFrontMatterStripsBOM(t *testing.T) {
	src := "﻿---\ntitle: \"BOM\"\n---\nBody"
	doc := ParseFrontMatter(src)
	require.Equal(t, "BOM", doc.Context["title"])
}
