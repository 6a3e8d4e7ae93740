// Package render implements the Page Renderer of §4.7: front-matter
// extraction, two-phase template/Markdown rendering, and the per-shard
// page cache coordination, translated from utils.rs's parse_markdown
// and http.rs's serve_markdown.
package render

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultTitle is the fallback "title" context key (utils.rs seeds the
// same default before any front matter is applied).
const DefaultTitle = "Lumen Page"

// Document is a parsed document: YAML front matter merged into a
// context map, plus the raw (not yet rendered) Markdown body.
type Document struct {
	Context map[string]any
	Body    string
}

// ParseFrontMatter splits content on a leading "---" delimited YAML
// block (LF or CRLF forms) and decodes it into a context map seeded
// with the default title. Invalid YAML front matter is dropped with
// the default context preserved, matching parse_markdown's
// best-effort behavior: a broken front matter block must never crash
// rendering.
func ParseFrontMatter(content string) Document {
	content = strings.TrimPrefix(content, "﻿")

	doc := Document{Context: map[string]any{"title": DefaultTitle}}

	rest, ok := cutFrontMatterPrefix(content)
	if !ok {
		doc.Body = content
		return doc
	}

	fm, body, ok := splitFrontMatterBlock(rest)
	if !ok {
		doc.Body = content
		return doc
	}

	var parsed map[string]any
	if err := yaml.Unmarshal([]byte(fm), &parsed); err == nil {
		for k, v := range parsed {
			doc.Context[k] = v
		}
	}

	doc.Body = strings.TrimLeft(body, " \t\r\n")
	return doc
}

func cutFrontMatterPrefix(content string) (string, bool) {
	if rest, ok := strings.CutPrefix(content, "---\r\n"); ok {
		return rest, true
	}
	if rest, ok := strings.CutPrefix(content, "---\n"); ok {
		return rest, true
	}
	return content, false
}

// splitFrontMatterBlock finds the closing "---" line and returns the
// YAML text and the remaining body.
func splitFrontMatterBlock(rest string) (fm, body string, ok bool) {
	idx := strings.Index(rest, "\n---")
	if idx == -1 {
		return "", "", false
	}
	fm = rest[:idx]
	remainder := rest[idx:]

	switch {
	case strings.HasPrefix(remainder, "\n---\r\n"):
		body = remainder[len("\n---\r\n"):]
	case strings.HasPrefix(remainder, "\n---\n"):
		body = remainder[len("\n---\n"):]
	default:
		body = remainder[len("\n---"):]
	}
	return fm, body, true
}
