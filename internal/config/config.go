// Package config loads turtletrace configuration.
//
// Configuration is assembled from three sources, later ones winning:
//
//	Default() -> config file (TOML or YAML) -> TURTLETRACE_* environment
//
// The file format is chosen by extension. A missing file is not an error.
package config

import (
	"fmt"
	"strings"

	"github.com/dshills/turtletrace/internal/logging"
)

// Config is the complete turtletrace configuration.
type Config struct {
	Logging  LoggingConfig  `toml:"logging" yaml:"logging"`
	Resolver ResolverConfig `toml:"resolver" yaml:"resolver"`
	Cache    CacheConfig    `toml:"cache" yaml:"cache"`
	Editor   EditorConfig   `toml:"editor" yaml:"editor"`
	Server   ServerConfig   `toml:"server" yaml:"server"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level" yaml:"level"`
}

// ResolverConfig tunes source line resolution.
type ResolverConfig struct {
	// ScanWidth is how many columns past the reported one are probed.
	ScanWidth int `toml:"scanWidth" yaml:"scanWidth"`

	// MinOriginalLine is the first authored line accepted as a match.
	MinOriginalLine int `toml:"minOriginalLine" yaml:"minOriginalLine"`

	// BoilerplateLines is subtracted from the accepted line.
	BoilerplateLines int `toml:"boilerplateLines" yaml:"boilerplateLines"`
}

// CacheConfig bounds the engine caches.
type CacheConfig struct {
	StackEntries     int `toml:"stackEntries" yaml:"stackEntries"`
	SourceMapEntries int `toml:"sourceMapEntries" yaml:"sourceMapEntries"`
}

// EditorConfig names the editor panes and sizes the overlay.
type EditorConfig struct {
	SourcePane  string  `toml:"sourcePane" yaml:"sourcePane"`
	OverlayPane string  `toml:"overlayPane" yaml:"overlayPane"`
	OverlaySize float64 `toml:"overlaySize" yaml:"overlaySize"`
}

// ServerConfig configures the dev server.
type ServerConfig struct {
	// Addr is the listen address.
	Addr string `toml:"addr" yaml:"addr"`

	// SiteDir is the directory static files are served from.
	SiteDir string `toml:"siteDir" yaml:"siteDir"`

	// ProxyPort is the port requests for *.dev hosts are forwarded to.
	ProxyPort int `toml:"proxyPort" yaml:"proxyPort"`

	// DevSuffix marks hosts whose storage routes are proxied.
	DevSuffix string `toml:"devSuffix" yaml:"devSuffix"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level: "info",
		},
		Resolver: ResolverConfig{
			ScanWidth:        80,
			MinOriginalLine:  4,
			BoilerplateLines: 3,
		},
		Cache: CacheConfig{
			StackEntries:     1024,
			SourceMapEntries: 64,
		},
		Editor: EditorConfig{
			SourcePane:  "left",
			OverlayPane: "right",
			OverlaySize: 30,
		},
		Server: ServerConfig{
			Addr:      ":8088",
			SiteDir:   "site",
			ProxyPort: 80,
			DevSuffix: ".dev",
		},
	}
}

// Validate checks every field and reports all problems at once.
func (c *Config) Validate() error {
	var v validator

	if _, ok := logging.ParseLevel(c.Logging.Level); !ok {
		v.add("logging.level", c.Logging.Level, ErrCodeInvalidEnum, "must be one of debug, info, warn, error")
	}

	v.positive("resolver.scanWidth", c.Resolver.ScanWidth)
	v.positive("resolver.minOriginalLine", c.Resolver.MinOriginalLine)
	if c.Resolver.BoilerplateLines < 0 {
		v.add("resolver.boilerplateLines", c.Resolver.BoilerplateLines, ErrCodeOutOfRange, "must not be negative")
	} else if c.Resolver.BoilerplateLines >= c.Resolver.MinOriginalLine && c.Resolver.MinOriginalLine > 0 {
		v.add("resolver.boilerplateLines", c.Resolver.BoilerplateLines, ErrCodeOutOfRange,
			fmt.Sprintf("must be less than resolver.minOriginalLine (%d)", c.Resolver.MinOriginalLine))
	}

	v.positive("cache.stackEntries", c.Cache.StackEntries)
	v.positive("cache.sourceMapEntries", c.Cache.SourceMapEntries)

	v.required("editor.sourcePane", c.Editor.SourcePane)
	v.required("editor.overlayPane", c.Editor.OverlayPane)
	if c.Editor.OverlaySize <= 0 {
		v.add("editor.overlaySize", c.Editor.OverlaySize, ErrCodeOutOfRange, "must be positive")
	}

	v.required("server.addr", c.Server.Addr)
	if c.Server.ProxyPort < 1 || c.Server.ProxyPort > 65535 {
		v.add("server.proxyPort", c.Server.ProxyPort, ErrCodeOutOfRange, "must be between 1 and 65535")
	}
	if c.Server.DevSuffix != "" && !strings.HasPrefix(c.Server.DevSuffix, ".") {
		v.add("server.devSuffix", c.Server.DevSuffix, ErrCodePatternMismatch, "must start with a dot")
	}

	return v.err()
}

// LogLevel returns the parsed logging level, falling back to info.
func (c *Config) LogLevel() logging.Level {
	if level, ok := logging.ParseLevel(c.Logging.Level); ok {
		return level
	}
	return logging.LevelInfo
}

type validator struct {
	problems []FieldError
}

func (v *validator) add(path string, value any, code ValidationErrorCode, msg string) {
	v.problems = append(v.problems, FieldError{Path: path, Message: msg, Value: value, Code: code})
}

func (v *validator) positive(path string, n int) {
	if n <= 0 {
		v.add(path, n, ErrCodeOutOfRange, "must be positive")
	}
}

func (v *validator) required(path, s string) {
	if strings.TrimSpace(s) == "" {
		v.add(path, s, ErrCodeRequiredMissing, "is required")
	}
}

func (v *validator) err() error {
	if len(v.problems) == 0 {
		return nil
	}
	return &ValidationError{Problems: v.problems}
}
