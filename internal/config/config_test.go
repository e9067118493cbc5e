package config

import (
	"errors"
	"testing"
	"testing/fstest"

	"github.com/dshills/turtletrace/internal/logging"
)

func testLoader(files fstest.MapFS, environ ...string) *Loader {
	return NewLoader().WithFS(files).WithEnviron(environ)
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() error = %v", err)
	}
	if cfg.Resolver.ScanWidth != 80 || cfg.Resolver.MinOriginalLine != 4 || cfg.Resolver.BoilerplateLines != 3 {
		t.Errorf("Resolver = %+v, expected 80/4/3", cfg.Resolver)
	}
	if cfg.Server.Addr != ":8088" {
		t.Errorf("Server.Addr = %q, expected :8088", cfg.Server.Addr)
	}
	if cfg.LogLevel() != logging.LevelInfo {
		t.Errorf("LogLevel() = %v, expected info", cfg.LogLevel())
	}
}

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := testLoader(fstest.MapFS{}).Load("turtletrace.toml")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if *cfg != *Default() {
		t.Errorf("Load() = %+v, expected defaults", cfg)
	}
}

func TestLoad_TOML(t *testing.T) {
	files := fstest.MapFS{
		"turtletrace.toml": {Data: []byte(`
[logging]
level = "debug"

[resolver]
scanWidth = 120

[server]
addr = "127.0.0.1:9000"
siteDir = "/srv/pencil"
`)},
	}

	cfg, err := testLoader(files).Load("turtletrace.toml")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, expected debug", cfg.Logging.Level)
	}
	if cfg.Resolver.ScanWidth != 120 {
		t.Errorf("Resolver.ScanWidth = %d, expected 120", cfg.Resolver.ScanWidth)
	}
	if cfg.Resolver.MinOriginalLine != 4 {
		t.Errorf("Resolver.MinOriginalLine = %d, expected default 4", cfg.Resolver.MinOriginalLine)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" || cfg.Server.SiteDir != "/srv/pencil" {
		t.Errorf("Server = %+v", cfg.Server)
	}
}

func TestLoad_YAML(t *testing.T) {
	files := fstest.MapFS{
		"turtletrace.yml": {Data: []byte(`
editor:
  overlaySize: 45
cache:
  stackEntries: 16
`)},
		"empty.yaml": {Data: []byte("")},
	}

	cfg, err := testLoader(files).Load("turtletrace.yml")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Editor.OverlaySize != 45 {
		t.Errorf("Editor.OverlaySize = %v, expected 45", cfg.Editor.OverlaySize)
	}
	if cfg.Cache.StackEntries != 16 {
		t.Errorf("Cache.StackEntries = %d, expected 16", cfg.Cache.StackEntries)
	}

	if _, err := testLoader(files).Load("empty.yaml"); err != nil {
		t.Errorf("Load(empty) error = %v", err)
	}
}

func TestLoad_Errors(t *testing.T) {
	files := fstest.MapFS{
		"bad.toml":     {Data: []byte("[logging\nlevel = ")},
		"unknown.toml": {Data: []byte("[logging]\ncolour = true\n")},
		"bad.yaml":     {Data: []byte("editor: [")},
		"config.json":  {Data: []byte("{}")},
		"invalid.toml": {Data: []byte("[resolver]\nscanWidth = 0\n")},
	}

	tests := []struct {
		path    string
		parse   bool
		format  bool
		invalid bool
	}{
		{path: "bad.toml", parse: true},
		{path: "unknown.toml", parse: true},
		{path: "bad.yaml", parse: true},
		{path: "config.json", format: true},
		{path: "invalid.toml", invalid: true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			_, err := testLoader(files).Load(tt.path)
			if err == nil {
				t.Fatal("Load() error = nil")
			}
			var pe *ParseError
			if errors.As(err, &pe) != tt.parse {
				t.Errorf("Load() error = %v, ParseError expected %v", err, tt.parse)
			}
			if errors.Is(err, ErrUnsupportedFormat) != tt.format {
				t.Errorf("Load() error = %v, ErrUnsupportedFormat expected %v", err, tt.format)
			}
			if errors.Is(err, ErrValidationFailed) != tt.invalid {
				t.Errorf("Load() error = %v, ErrValidationFailed expected %v", err, tt.invalid)
			}
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	files := fstest.MapFS{
		"turtletrace.toml": {Data: []byte("[logging]\nlevel = \"warn\"\n")},
	}

	cfg, err := testLoader(files,
		"TURTLETRACE_LOG_LEVEL=error",
		"TURTLETRACE_RESOLVER_SCAN_WIDTH=40",
		"TURTLETRACE_EDITOR_OVERLAY_SIZE=12.5",
		"TURTLETRACE_SERVER_DEV_SUFFIX=.test",
		"TURTLETRACE_ADDR=:7000",
		"TURTLETRACE_UNRELATED_THING=1",
		"HOME=/root",
	).Load("turtletrace.toml")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Logging.Level != "error" {
		t.Errorf("Logging.Level = %q, expected error", cfg.Logging.Level)
	}
	if cfg.Resolver.ScanWidth != 40 {
		t.Errorf("Resolver.ScanWidth = %d, expected 40", cfg.Resolver.ScanWidth)
	}
	if cfg.Editor.OverlaySize != 12.5 {
		t.Errorf("Editor.OverlaySize = %v, expected 12.5", cfg.Editor.OverlaySize)
	}
	if cfg.Server.DevSuffix != ".test" {
		t.Errorf("Server.DevSuffix = %q, expected .test", cfg.Server.DevSuffix)
	}
	if cfg.Server.Addr != ":7000" {
		t.Errorf("Server.Addr = %q, expected :7000", cfg.Server.Addr)
	}
}

func TestLoad_EnvParseError(t *testing.T) {
	_, err := testLoader(fstest.MapFS{}, "TURTLETRACE_SERVER_PROXY_PORT=eighty").Load("")

	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("Load() error = %v, expected *ParseError", err)
	}
	if pe.Path != "TURTLETRACE_SERVER_PROXY_PORT" {
		t.Errorf("ParseError.Path = %q", pe.Path)
	}
}

func TestEnvLoader_EnvToPath(t *testing.T) {
	l := NewEnvLoader(EnvPrefix)
	tests := map[string]string{
		"TURTLETRACE_RESOLVER_SCAN_WIDTH":        "resolver.scanWidth",
		"TURTLETRACE_CACHE_SOURCE_MAP_ENTRIES":   "cache.sourceMapEntries",
		"TURTLETRACE_RESOLVER_BOILERPLATE_LINES": "resolver.boilerplateLines",
		"TURTLETRACE_VERBOSE":                    "verbose",
	}
	for env, expected := range tests {
		if got := l.envToPath(env); got != expected {
			t.Errorf("envToPath(%q) = %q, expected %q", env, got, expected)
		}
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Logging.Level = "loud"
	cfg.Resolver.BoilerplateLines = 4
	cfg.Cache.SourceMapEntries = 0
	cfg.Editor.SourcePane = " "
	cfg.Server.ProxyPort = 70000
	cfg.Server.DevSuffix = "dev"

	err := cfg.Validate()
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("Validate() error = %v, expected *ValidationError", err)
	}

	expected := map[string]ValidationErrorCode{
		"logging.level":             ErrCodeInvalidEnum,
		"resolver.boilerplateLines": ErrCodeOutOfRange,
		"cache.sourceMapEntries":    ErrCodeOutOfRange,
		"editor.sourcePane":         ErrCodeRequiredMissing,
		"server.proxyPort":          ErrCodeOutOfRange,
		"server.devSuffix":          ErrCodePatternMismatch,
	}
	if len(ve.Problems) != len(expected) {
		t.Errorf("len(Problems) = %d, expected %d: %v", len(ve.Problems), len(expected), ve)
	}
	for path, code := range expected {
		p, ok := ve.Field(path)
		if !ok {
			t.Errorf("missing problem for %s", path)
			continue
		}
		if p.Code != code {
			t.Errorf("%s code = %s, expected %s", path, p.Code, code)
		}
	}
}
