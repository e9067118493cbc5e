package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "TURTLETRACE_"

// EnvLoader applies environment variable overrides to a Config.
type EnvLoader struct {
	prefix  string            // e.g. "TURTLETRACE_"
	mapping map[string]string // env var -> config path
	fields  map[string]setter // config path -> setter
}

type setter func(cfg *Config, value string) error

// NewEnvLoader creates an environment loader.
// The prefix should include the trailing underscore.
func NewEnvLoader(prefix string) *EnvLoader {
	return &EnvLoader{
		prefix:  prefix,
		mapping: defaultEnvMapping(prefix),
		fields:  fieldSetters(),
	}
}

// defaultEnvMapping returns shorthands that don't follow the
// SECTION_SETTING_NAME convention.
func defaultEnvMapping(prefix string) map[string]string {
	return map[string]string{
		prefix + "LOG_LEVEL": "logging.level",
		prefix + "ADDR":      "server.addr",
		prefix + "SITE":      "server.siteDir",
	}
}

func fieldSetters() map[string]setter {
	return map[string]setter{
		"logging.level":             stringField(func(c *Config) *string { return &c.Logging.Level }),
		"resolver.scanWidth":        intField(func(c *Config) *int { return &c.Resolver.ScanWidth }),
		"resolver.minOriginalLine":  intField(func(c *Config) *int { return &c.Resolver.MinOriginalLine }),
		"resolver.boilerplateLines": intField(func(c *Config) *int { return &c.Resolver.BoilerplateLines }),
		"cache.stackEntries":        intField(func(c *Config) *int { return &c.Cache.StackEntries }),
		"cache.sourceMapEntries":    intField(func(c *Config) *int { return &c.Cache.SourceMapEntries }),
		"editor.sourcePane":         stringField(func(c *Config) *string { return &c.Editor.SourcePane }),
		"editor.overlayPane":        stringField(func(c *Config) *string { return &c.Editor.OverlayPane }),
		"editor.overlaySize":        floatField(func(c *Config) *float64 { return &c.Editor.OverlaySize }),
		"server.addr":               stringField(func(c *Config) *string { return &c.Server.Addr }),
		"server.siteDir":            stringField(func(c *Config) *string { return &c.Server.SiteDir }),
		"server.proxyPort":          intField(func(c *Config) *int { return &c.Server.ProxyPort }),
		"server.devSuffix":          stringField(func(c *Config) *string { return &c.Server.DevSuffix }),
	}
}

func stringField(field func(*Config) *string) setter {
	return func(c *Config, v string) error {
		*field(c) = v
		return nil
	}
}

func intField(field func(*Config) *int) setter {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return err
		}
		*field(c) = n
		return nil
	}
}

func floatField(field func(*Config) *float64) setter {
	return func(c *Config, v string) error {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return err
		}
		*field(c) = f
		return nil
	}
}

// Apply sets every recognized variable in environ (os.Environ form) on
// cfg. Prefixed variables that name no setting are ignored.
func (l *EnvLoader) Apply(cfg *Config, environ []string) error {
	vars := make(map[string]string)
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, l.prefix) {
			continue
		}
		vars[name] = value
	}

	// Apply in a stable order so the same variable set always yields the
	// same error.
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		path, ok := l.mapping[name]
		if !ok {
			path = l.envToPath(name)
		}
		set, ok := l.fields[path]
		if !ok {
			continue
		}
		if err := set(cfg, vars[name]); err != nil {
			return &ParseError{
				Path:    name,
				Message: fmt.Sprintf("invalid value %q for %s", vars[name], path),
				Err:     err,
			}
		}
	}
	return nil
}

// envToPath converts TURTLETRACE_RESOLVER_SCAN_WIDTH to resolver.scanWidth.
func (l *EnvLoader) envToPath(env string) string {
	name := strings.TrimPrefix(env, l.prefix)
	section, rest, ok := strings.Cut(name, "_")
	if !ok {
		return strings.ToLower(name)
	}

	parts := strings.Split(rest, "_")
	setting := strings.ToLower(parts[0])
	for _, part := range parts[1:] {
		if part != "" {
			setting += strings.ToUpper(part[:1]) + strings.ToLower(part[1:])
		}
	}
	return strings.ToLower(section) + "." + setting
}
