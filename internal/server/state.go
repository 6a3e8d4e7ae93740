// Package server wires together the Path Resolver, Page Renderer, and
// Theme Environment behind the per-connection state machine, and owns
// the accept-loop lifecycle of §4.9, translated from server.rs's
// start_server/handle_connection split.
package server

import (
	"crypto/tls"
	"fmt"
	"sync/atomic"

	"github.com/cuemby/lumen/internal/cache"
	"github.com/cuemby/lumen/internal/config"
	"github.com/cuemby/lumen/internal/render"
	"github.com/cuemby/lumen/internal/theme"
)

// State is the immutable-after-startup server context shared by every
// connection goroutine (§5's "ServerState is shared read-only").
type State struct {
	Config             config.Config
	BaseDir            string
	PageCache          *cache.Sharded[render.Entry]
	Theme              *theme.Manager
	PrecomputedHeaders string
	TLSConfig          *tls.Config

	ActiveConnections atomic.Int64
	IsRunning         atomic.Bool
}

// New builds a State from cfg, rooted at baseDir for content and theme
// lookups. The theme manager clears the page cache on every rebuild
// when caching is enabled (§4.8 step 4).
func New(cfg config.Config, baseDir, themeDir string) *State {
	s := &State{
		Config:  cfg,
		BaseDir: baseDir,
		PageCache: cache.New[render.Entry](cfg.Performance.MaxCacheItems).Named("page"),
	}
	onRebuild := func() {}
	if cfg.Performance.EnableCaching {
		onRebuild = func() { s.PageCache.Clear() }
	}
	s.Theme = theme.NewManager(themeDir, baseDir, onRebuild)
	s.PrecomputedHeaders = precomputedHeaders(cfg)
	s.IsRunning.Store(true)
	return s
}

// precomputedHeaders renders the fixed security header block appended
// to every response (§4.9, §6).
func precomputedHeaders(cfg config.Config) string {
	return fmt.Sprintf(
		"Server: %s\r\nX-Content-Type-Options: %s\r\nX-Frame-Options: %s\r\nContent-Security-Policy: %s\r\nAccess-Control-Allow-Origin: %s\r\n",
		cfg.Server.Name,
		cfg.Security.XContentTypeOptions,
		cfg.Security.XFrameOptions,
		cfg.Security.ContentSecurityPolicy,
		cfg.Security.CORSAllowOrigin,
	)
}
