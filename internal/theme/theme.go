// Package theme implements the Theme Environment of §4.8: a
// fingerprinted, lazily-rebuilt set of text/template templates loaded
// from a theme directory, exposing a list_dir template function,
// translated from http.rs's get_jinja_env. Go's corpus has no
// ecosystem Jinja-style engine (see SPEC_FULL.md's domain-stack
// notes), so templates are stdlib text/template rather than
// minijinja's Environment/add_template_owned.
package theme

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"text/template"

	"github.com/cuemby/lumen/internal/log"
	"github.com/cuemby/lumen/internal/metrics"
)

const fallbackTemplate = "{{.content}}"

// Environment is one built generation of theme templates. It
// implements render.TemplateEnv.
type Environment struct {
	tmpl  *template.Template
	funcs template.FuncMap
}

// Render executes the named registered template.
func (e *Environment) Render(name string, ctx map[string]any) (string, error) {
	var buf strings.Builder
	if err := e.tmpl.ExecuteTemplate(&buf, name, ctx); err != nil {
		return "", fmt.Errorf("render template %q: %w", name, err)
	}
	return buf.String(), nil
}

// RenderInline parses body as an ad-hoc template sharing this
// environment's FuncMap (so list_dir is available to Markdown bodies
// too) and executes it against ctx (§4.7 step 5).
func (e *Environment) RenderInline(body string, ctx map[string]any) (string, error) {
	inline, err := template.New("inline").Funcs(e.funcs).Parse(body)
	if err != nil {
		return "", err
	}
	var buf strings.Builder
	if err := inline.Execute(&buf, ctx); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Manager owns the fingerprinted, double-checked-lock rebuild of the
// current Environment (§4.8 steps 1-3) and the list_dir directory
// cache it hands to every built Environment.
type Manager struct {
	themeDir string
	baseDir  string

	mu          sync.RWMutex
	fingerprint uint64
	env         *Environment

	dirCache *dirCache

	onRebuild func()
}

// NewManager creates a theme manager rooted at themeDir, resolving
// list_dir paths under baseDir. onRebuild is invoked after every
// rebuild (wired to the page cache's Clear, per §4.8 step 4).
func NewManager(themeDir, baseDir string, onRebuild func()) *Manager {
	return &Manager{
		themeDir:  themeDir,
		baseDir:   baseDir,
		dirCache:  newDirCache(),
		onRebuild: onRebuild,
	}
}

// Get returns the current Environment, rebuilding it first if the
// theme directory's fingerprint has changed (double-checked locking:
// one fast read-locked check, then a write-locked recheck before
// paying for a rebuild).
func (m *Manager) Get() *Environment {
	current := fingerprintDir(m.themeDir)

	m.mu.RLock()
	if m.env != nil && m.fingerprint == current {
		env := m.env
		m.mu.RUnlock()
		return env
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.env != nil && m.fingerprint == current {
		return m.env
	}

	env := m.build()
	m.env = env
	m.fingerprint = current
	metrics.ThemeRebuildsTotal.Inc()
	if m.onRebuild != nil {
		m.onRebuild()
	}
	return env
}

// fingerprintDir hashes (max mtime seconds, file count) over the
// regular files directly under dir (§4.8).
func fingerprintDir(dir string) uint64 {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	var maxMtime int64
	var count int64
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		count++
		if s := info.ModTime().Unix(); s > maxMtime {
			maxMtime = s
		}
	}
	return uint64(maxMtime)*1_000_003 ^ uint64(count)
}

func (m *Manager) build() *Environment {
	funcs := template.FuncMap{
		"list_dir": m.listDir,
	}
	root := template.New("root").Funcs(funcs)

	entries, err := os.ReadDir(m.themeDir)
	if err != nil {
		log.Logger.Warn().Err(err).Str("theme_dir", m.themeDir).Msg("theme directory unreadable, using fallback template")
		root = template.Must(root.New("index").Parse(fallbackTemplate))
		return &Environment{tmpl: root, funcs: funcs}
	}

	var indexBody string
	haveIndex := false
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		full := filepath.Join(m.themeDir, e.Name())
		body, err := os.ReadFile(full)
		if err != nil {
			continue
		}
		if _, err := root.New(e.Name()).Parse(string(body)); err != nil {
			log.Logger.Warn().Err(err).Str("file", full).Msg("theme template failed to parse")
			continue
		}
		if e.Name() == "index.html" {
			indexBody = string(body)
			haveIndex = true
		}
	}

	if haveIndex {
		if _, err := root.New("index").Parse(indexBody); err != nil {
			log.Logger.Warn().Err(err).Msg(`index.html re-registration as "index" failed`)
		}
	} else {
		root = template.Must(root.New("index").Parse(fallbackTemplate))
	}

	return &Environment{tmpl: root, funcs: funcs}
}
