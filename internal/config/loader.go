package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Loader assembles a Config from defaults, a file and the environment.
type Loader struct {
	readFile func(path string) ([]byte, error)
	environ  func() []string
	env      *EnvLoader
}

// NewLoader creates a loader backed by the OS file system and environment.
func NewLoader() *Loader {
	return &Loader{
		readFile: os.ReadFile,
		environ:  os.Environ,
		env:      NewEnvLoader(EnvPrefix),
	}
}

// WithEnviron replaces the environment the loader reads, in os.Environ
// form. It returns l for chaining.
func (l *Loader) WithEnviron(environ []string) *Loader {
	l.environ = func() []string { return environ }
	return l
}

// WithFS makes the loader read files from fsys instead of the OS.
func (l *Loader) WithFS(fsys fs.FS) *Loader {
	l.readFile = func(path string) ([]byte, error) {
		return fs.ReadFile(fsys, path)
	}
	return l
}

// Load reads path (if it exists) over the defaults, applies environment
// overrides and validates the result. An empty path skips the file.
func (l *Loader) Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := l.readFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// Missing file means defaults.
		case err != nil:
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		default:
			if err := decode(path, data, cfg); err != nil {
				return nil, err
			}
		}
	}

	if err := l.env.Apply(cfg, l.environ()); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load loads configuration from path and the process environment.
func Load(path string) (*Config, error) {
	return NewLoader().Load(path)
}

// decode parses data into cfg according to the extension of path.
func decode(path string, data []byte, cfg *Config) error {
	var err error
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(cfg)
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(cfg)
		if errors.Is(err, io.EOF) {
			// Empty document.
			err = nil
		}
	default:
		return fmt.Errorf("%s: %w %q", path, ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return &ParseError{Path: path, Message: err.Error(), Err: err}
	}
	return nil
}
