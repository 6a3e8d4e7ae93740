// Package config loads Lumen's TOML configuration file into the
// structures described in spec.md §3 ("Configuration"), applying
// defaults before overlaying whatever the file sets.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/cuemby/lumen/internal/log"
)

// Config is the immutable, process-wide configuration tree.
type Config struct {
	Server      ServerConfig      `toml:"server"`
	Paths       PathConfig        `toml:"paths"`
	Security    SecurityConfig    `toml:"security"`
	Performance PerformanceConfig `toml:"performance"`
	TLS         TLSConfig         `toml:"tls"`
}

type ServerConfig struct {
	Host            string `toml:"host"`
	Port            uint16 `toml:"port"`
	Name            string `toml:"name"`
	Threads         int    `toml:"threads"`
	QueueSize       int    `toml:"queue_size"`
	ReadTimeoutSecs uint64 `toml:"read_timeout_secs"`
	WriteTimeout    uint64 `toml:"write_timeout_secs"`
}

type PathConfig struct {
	ContentDir   string `toml:"content_dir"`
	ThemeDir     string `toml:"theme_dir"`
	Fallback404  string `toml:"fallback_404"`
}

type SecurityConfig struct {
	XFrameOptions        string `toml:"x_frame_options"`
	XContentTypeOptions  string `toml:"x_content_type_options"`
	ContentSecurityPolicy string `toml:"content_security_policy"`
	CORSAllowOrigin      string `toml:"cors_allow_origin"`
}

type PerformanceConfig struct {
	ConnectionBufferSize int  `toml:"connection_buffer_size"`
	EnableCaching        bool `toml:"enable_caching"`
	MaxCacheItems        int  `toml:"max_cache_items"`
}

type TLSConfig struct {
	Enabled  bool   `toml:"enabled"`
	CertPath string `toml:"cert_path"`
	KeyPath  string `toml:"key_path"`
}

// Default returns a Config populated with Lumen's built-in defaults,
// matching original_source/src/config.rs's per-section Default impls.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			Name:            "Lumen/1.0",
			Threads:         32,
			QueueSize:       2000,
			ReadTimeoutSecs: 10,
			WriteTimeout:    15,
		},
		Paths: PathConfig{
			ContentDir:  "content",
			ThemeDir:    "themes/default",
			Fallback404: "404",
		},
		Security: SecurityConfig{
			XFrameOptions:          "DENY",
			XContentTypeOptions:   "nosniff",
			ContentSecurityPolicy: "default-src 'self'; style-src 'self' 'unsafe-inline'; media-src 'self'",
			CORSAllowOrigin:       "*",
		},
		Performance: PerformanceConfig{
			ConnectionBufferSize: 65536,
			EnableCaching:        true,
			MaxCacheItems:        1024,
		},
		TLS: TLSConfig{
			Enabled:  false,
			CertPath: "certs/cert.pem",
			KeyPath:  "certs/key.pem",
		},
	}
}

// Load reads path as TOML, overlaying it onto Default(). A missing file
// is not an error: it falls back to defaults with a log notice, matching
// load_config's behavior in the original implementation.
func Load(path string) (Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.Logger.Info().Str("path", path).Msg("no config found, using defaults")
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file %q: %w", path, err)
	}

	return cfg, nil
}
