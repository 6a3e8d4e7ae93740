package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cuemby/lumen/internal/config"
	"github.com/cuemby/lumen/internal/health"
	"github.com/cuemby/lumen/internal/log"
	"github.com/cuemby/lumen/internal/metrics"
	"github.com/cuemby/lumen/internal/pool"
	"github.com/cuemby/lumen/internal/security"
	"github.com/cuemby/lumen/internal/server"
	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "lumen",
	Short:   "Lumen - a minimalist Markdown web server",
	Long:    `Lumen renders a directory of Markdown files as HTML behind a work-stealing thread pool, with no external runtime dependencies.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Lumen version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(startCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Scaffold a new Lumen workspace",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "."
		if len(args) == 1 {
			path = args[0]
		}
		return scaffoldWorkspace(path)
	},
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the Lumen server",
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetUint16("port")
		configPath, _ := cmd.Flags().GetString("config")
		dev, _ := cmd.Flags().GetBool("dev")
		return runServer(port, configPath, dev)
	},
}

func init() {
	startCmd.Flags().Uint16P("port", "p", 0, "Override the configured server port")
	startCmd.Flags().StringP("config", "c", "lumen.toml", "Path to the TOML configuration file")
	startCmd.Flags().Bool("dev", false, "Disable caching and raise the log level to debug")
}

func runServer(port uint16, configPath string, dev bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if port != 0 {
		cfg.Server.Port = port
	}
	if dev {
		cfg.Performance.EnableCaching = false
		log.Init(log.Config{Level: log.DebugLevel})
		log.Debug("developer mode enabled: caching disabled")
	}

	if cfg.TLS.Enabled {
		if _, err := os.Stat(cfg.TLS.CertPath); os.IsNotExist(err) {
			log.Logger.Warn().Msg("TLS enabled but certificate missing, generating a self-signed one")
			if err := security.GenerateSelfSigned(cfg.TLS.CertPath, cfg.TLS.KeyPath); err != nil {
				return fmt.Errorf("failed to generate self-signed certificate: %w", err)
			}
		}
	}

	state := server.New(cfg, cfg.Paths.ContentDir, cfg.Paths.ThemeDir)
	if cfg.TLS.Enabled {
		tlsConfig, err := security.LoadServerTLSConfig(cfg.TLS.CertPath, cfg.TLS.KeyPath)
		if err != nil {
			return fmt.Errorf("failed to load TLS configuration: %w", err)
		}
		state.TLSConfig = tlsConfig
	}

	workers := pool.New(cfg.Server.Threads, cfg.Server.QueueSize)
	defer workers.Shutdown()

	ln, err := server.Listen(state, workers)
	if err != nil {
		return fmt.Errorf("failed to bind listener: %w", err)
	}

	go serveMetrics(cfg.Server.Host, cfg.Server.Port+1000)
	go selfCheck(ln.Addr(), cfg.TLS.Enabled)

	ln.Serve()
	return nil
}

// serveMetrics exposes the Prometheus collectors on a side listener,
// distinct from the content server's request-serving core (§2: that
// core's only routing is the filesystem URL mapping).
func serveMetrics(host string, port uint16) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	addr := net.JoinHostPort(host, strconv.Itoa(int(port)))
	log.Logger.Info().Str("addr", addr).Msg("metrics listener started")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Logger.Warn().Err(err).Msg("metrics listener exited")
	}
}

// selfCheck probes the freshly bound listener once it has had time to
// start accepting, and logs whether it answered. It never blocks
// startup and never aborts it on failure.
func selfCheck(addr net.Addr, tlsEnabled bool) {
	time.Sleep(200 * time.Millisecond)

	scheme := "http"
	if tlsEnabled {
		scheme = "https"
	}
	_, port, err := net.SplitHostPort(addr.String())
	if err != nil {
		return
	}
	checker := health.NewHTTPChecker(fmt.Sprintf("%s://127.0.0.1:%s/", scheme, port))
	if tlsEnabled {
		checker.Client = &http.Client{
			Timeout:   2 * time.Second,
			Transport: &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}},
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	result := checker.Check(ctx)
	if result.Healthy {
		log.Logger.Info().Dur("took", result.Duration).Msg("startup self-check passed")
	} else {
		log.Logger.Warn().Str("detail", result.Message).Msg("startup self-check failed")
	}
}

const defaultConfigTOML = `[server]
host = "0.0.0.0"
port = 8080
name = "Lumen/2.0"
threads = 32
queue_size = 2000
read_timeout_secs = 10
write_timeout_secs = 15

[tls]
enabled = false
cert_path = "certs/cert.pem"
key_path = "certs/key.pem"

[paths]
content_dir = "content"
theme_dir = "themes/default"
fallback_404 = "<h1>404 - File Not Found</h1>"

[security]
x_frame_options = "DENY"
x_content_type_options = "nosniff"
content_security_policy = "default-src 'self'; style-src 'self' 'unsafe-inline'; media-src 'self'"
cors_allow_origin = "*"

[performance]
connection_buffer_size = 65536
enable_caching = true
max_cache_items = 1024
`

const defaultThemeHTML = `<!DOCTYPE html>
<html><head><title>{{.title}}</title></head><body>
<main>
<h1>{{.title}}</h1>
{{.content}}
</main>
</body></html>`

const defaultRSSXML = `<?xml version="1.0" encoding="UTF-8" ?>
<rss version="2.0">
  <channel>
    <title>{{.title}}</title>
    <link>https://localhost:8080</link>
    {{range list_dir "posts"}}
    <item>
      <title>{{.title}}</title>
      <link>https://localhost:8080{{.url}}</link>
      <pubDate>{{.date}}</pubDate>
    </item>
    {{end}}
  </channel>
</rss>`

const defaultIndexMD = `---
title: "Welcome to Lumen"
cache: false
---

Server is running successfully!

## Recent Posts
<ul>
{{range list_dir "posts"}}
  <li><a href="{{.url}}">{{.title}}</a> - {{.date}}</li>
{{end}}
</ul>

[RSS Feed](/feed)
`

const defaultFeedMD = `---
title: "My RSS Feed"
template: "rss.xml"
content_type: "application/rss+xml"
cache: false
---
`

const defaultPostMD = `---
title: "Hello World"
date: "2026-03-01"
---

This is my first dynamic post via list_dir()!
`

// scaffoldWorkspace lays down a fresh content tree, default theme, and
// TOML configuration under base, matching the workspace layout
// produced by the original implementation's scaffold_workspace. Every
// file is written only if it does not already exist, so re-running
// init never clobbers edits.
func scaffoldWorkspace(base string) error {
	dirs := []string{
		filepath.Join(base, "content", "posts"),
		filepath.Join(base, "themes", "default"),
		filepath.Join(base, "certs"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	files := map[string]string{
		filepath.Join(base, "lumen.toml"):                   defaultConfigTOML,
		filepath.Join(base, "themes/default/index.html"):    defaultThemeHTML,
		filepath.Join(base, "themes/default/rss.xml"):        defaultRSSXML,
		filepath.Join(base, "content/index.md"):              defaultIndexMD,
		filepath.Join(base, "content/feed.md"):                defaultFeedMD,
		filepath.Join(base, "content/posts/hello-world.md"):  defaultPostMD,
	}
	for path, contents := range files {
		if _, err := os.Stat(path); err == nil {
			continue
		}
		if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}

	fmt.Printf("Lumen workspace initialized at %q. Run `lumen start --dev` to begin.\n", base)
	return nil
}
