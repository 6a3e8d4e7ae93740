package render

import (
	"os"
	"time"

	"github.com/cuemby/lumen/internal/cache"
	"github.com/cuemby/lumen/internal/log"
	"github.com/cuemby/lumen/internal/metrics"
)

// Entry is a cached rendered page: the finished HTML/content string
// plus the source file's mtime, used to detect staleness on the next
// request (§4.7 step 2).
type Entry struct {
	HTML        string
	ContentType string
	Mtime       time.Time
}

// TemplateEnv is the theme template environment's view as used by the
// renderer. Its only implementation is internal/theme.Environment;
// this package depends only on the interface to avoid an import cycle
// (the theme package, in turn, depends on this package's front-matter
// parsing for list_dir).
type TemplateEnv interface {
	// Render executes the named template against ctx and returns the
	// rendered text. Returns an error if the template does not exist or
	// execution fails.
	Render(name string, ctx map[string]any) (string, error)
	// RenderInline parses body as an ad-hoc template (sharing the
	// environment's function map, notably list_dir) and executes it
	// against ctx. Used for §4.7 step 5's first rendering pass, over
	// the raw Markdown body rather than a registered theme template.
	RenderInline(body string, ctx map[string]any) (string, error)
}

// Page renders the Markdown file at path per §4.7's eight-step
// algorithm, consulting and updating pageCache when caching is
// enabled.
func Page(path string, env TemplateEnv, pageCache *cache.Sharded[Entry], cachingEnabled bool) (html, contentType string, status int) {
	info, err := os.Stat(path)
	if err != nil {
		return "", "", 404
	}
	mtime := info.ModTime()

	if cachingEnabled {
		if entry, ok := pageCache.Get(path); ok && entry.Mtime.Equal(mtime) {
			return entry.HTML, entry.ContentType, 200
		}
	}

	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.RenderDuration)

	raw, err := os.ReadFile(path)
	if err != nil {
		return "", "", 404
	}

	doc := ParseFrontMatter(string(raw))

	policy := documentPolicy(doc.Context)

	renderedBody, err := env.RenderInline(doc.Body, doc.Context)
	if err != nil {
		log.Logger.Warn().Err(err).Str("path", path).Msg("front-matter template pass failed, falling back to raw body")
		renderedBody = doc.Body
	}

	bodyHTML, err := ToHTML(renderedBody)
	if err != nil {
		log.Logger.Error().Err(err).Str("path", path).Msg("markdown conversion failed")
		return "", "", 500
	}
	doc.Context["content"] = bodyHTML

	final, err := env.Render(policy.Template, doc.Context)
	if err != nil {
		log.Logger.Error().Err(err).Str("path", path).Str("template", policy.Template).Msg("template render error")
		return "", "", 500
	}

	if cachingEnabled && policy.Cache {
		pageCache.Put(path, Entry{HTML: final, ContentType: policy.ContentType, Mtime: mtime})
	}

	return final, policy.ContentType, 200
}

type policy struct {
	Cache       bool
	Template    string
	ContentType string
}

// documentPolicy reads the optional cache/template/content_type
// front-matter keys, applying the defaults from §4.7 step 4.
func documentPolicy(ctx map[string]any) policy {
	p := policy{Cache: true, Template: "index", ContentType: "text/html; charset=utf-8"}
	if v, ok := ctx["cache"].(bool); ok {
		p.Cache = v
	}
	if v, ok := ctx["template"].(string); ok && v != "" {
		p.Template = v
	}
	if v, ok := ctx["content_type"].(string); ok && v != "" {
		p.ContentType = v
	}
	return p
}
