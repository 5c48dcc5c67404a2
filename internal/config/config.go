package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/tablestorm/internal/table"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "TABLESTORM_"

// Config is the complete set of tablestorm settings.
type Config struct {
	Render RenderConfig `toml:"render"`
	Detect DetectConfig `toml:"detect"`
	Log    LogConfig    `toml:"log"`
	Lua    LuaConfig    `toml:"lua"`
}

// RenderConfig controls table widgets.
type RenderConfig struct {
	// Container names the pane widgets track the pointer in.
	Container string `toml:"container"`
}

// DetectConfig controls table detection.
type DetectConfig struct {
	// MaxLines bounds the forward search for the end of a table.
	MaxLines int `toml:"max_lines"`

	// Dialects lists the dialects detection looks for.
	Dialects []string `toml:"dialects"`
}

// LogConfig controls logging.
type LogConfig struct {
	// Level is one of debug, info, warn or error.
	Level string `toml:"level"`
}

// LuaConfig controls the scripting surface.
type LuaConfig struct {
	// Init is a script run when a session starts. Empty disables it.
	Init string `toml:"init"`

	// TimeoutMS bounds each script execution in milliseconds.
	TimeoutMS int `toml:"timeout_ms"`

	// Plugins lists the directories searched for plugins, first match
	// wins. Empty loads no plugins.
	Plugins []string `toml:"plugins"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Render: RenderConfig{Container: "#editor"},
		Detect: DetectConfig{
			MaxLines: 2000,
			Dialects: []string{"simple", "grid", "pipe"},
		},
		Log: LogConfig{Level: "info"},
		Lua: LuaConfig{TimeoutMS: 5000},
	}
}

// DefaultPath returns the user configuration file location.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "tablestorm", "config.toml"), nil
}

// Load reads path over the defaults. Unknown keys are errors.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, err
	}
	return LoadReader(bytes.NewReader(data), path)
}

// LoadReader parses TOML from r over the defaults. source names r in
// errors.
func LoadReader(r io.Reader, source string) (*Config, error) {
	cfg := Default()

	dec := toml.NewDecoder(r).DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, parseError(source, err)
	}
	return cfg, nil
}

// parseError converts go-toml errors into a ParseError with a position.
func parseError(source string, err error) error {
	pe := &ParseError{Path: source, Message: err.Error(), Err: err}

	var derr *toml.DecodeError
	var serr *toml.StrictMissingError
	switch {
	case errors.As(err, &derr):
		pe.Line, pe.Column = derr.Position()
	case errors.As(err, &serr) && len(serr.Errors) > 0:
		pe.Line, pe.Column = serr.Errors[0].Position()
		keys := make([]string, len(serr.Errors))
		for i := range serr.Errors {
			keys[i] = strings.Join(serr.Errors[i].Key(), ".")
		}
		pe.Message = "unknown setting " + strings.Join(keys, ", ")
	}
	return pe
}

// ApplyEnv overrides settings from TABLESTORM_* environment variables:
// CONTAINER, MAX_LINES, DIALECTS (comma separated), LOG_LEVEL, LUA_INIT,
// LUA_TIMEOUT_MS and LUA_PLUGINS (a path list).
func (c *Config) ApplyEnv() error {
	if v, ok := os.LookupEnv(EnvPrefix + "CONTAINER"); ok {
		c.Render.Container = v
	}
	if v, ok := os.LookupEnv(EnvPrefix + "MAX_LINES"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return &ValidationError{Key: "detect.max_lines", Message: fmt.Sprintf("%s=%q is not an integer", EnvPrefix+"MAX_LINES", v)}
		}
		c.Detect.MaxLines = n
	}
	if v, ok := os.LookupEnv(EnvPrefix + "DIALECTS"); ok {
		var dialects []string
		for _, d := range strings.Split(v, ",") {
			if d = strings.TrimSpace(d); d != "" {
				dialects = append(dialects, d)
			}
		}
		c.Detect.Dialects = dialects
	}
	if v, ok := os.LookupEnv(EnvPrefix + "LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	if v, ok := os.LookupEnv(EnvPrefix + "LUA_INIT"); ok {
		c.Lua.Init = v
	}
	if v, ok := os.LookupEnv(EnvPrefix + "LUA_TIMEOUT_MS"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return &ValidationError{Key: "lua.timeout_ms", Message: fmt.Sprintf("%s=%q is not an integer", EnvPrefix+"LUA_TIMEOUT_MS", v)}
		}
		c.Lua.TimeoutMS = n
	}
	if v, ok := os.LookupEnv(EnvPrefix + "LUA_PLUGINS"); ok {
		c.Lua.Plugins = filepath.SplitList(v)
	}
	return nil
}

// Validate reports every invalid setting, joined.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Render.Container) == "" {
		errs = append(errs, &ValidationError{Key: "render.container", Message: "must not be empty"})
	}
	if c.Detect.MaxLines <= 0 {
		errs = append(errs, &ValidationError{Key: "detect.max_lines", Message: fmt.Sprintf("must be positive, got %d", c.Detect.MaxLines)})
	}
	if len(c.Detect.Dialects) == 0 {
		errs = append(errs, &ValidationError{Key: "detect.dialects", Message: "must name at least one dialect"})
	}
	if _, err := c.DialectList(); err != nil {
		errs = append(errs, &ValidationError{Key: "detect.dialects", Message: err.Error()})
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, &ValidationError{Key: "log.level", Message: fmt.Sprintf("unknown level %q", c.Log.Level)})
	}
	if c.Lua.TimeoutMS < 0 {
		errs = append(errs, &ValidationError{Key: "lua.timeout_ms", Message: "must not be negative"})
	}
	return errors.Join(errs...)
}

// DialectList parses Detect.Dialects.
func (c *Config) DialectList() ([]table.Dialect, error) {
	out := make([]table.Dialect, 0, len(c.Detect.Dialects))
	for _, name := range c.Detect.Dialects {
		d, err := table.ParseDialect(name)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// LuaTimeout returns Lua.TimeoutMS as a duration.
func (c *Config) LuaTimeout() time.Duration {
	return time.Duration(c.Lua.TimeoutMS) * time.Millisecond
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	cp := *c
	cp.Detect.Dialects = append([]string(nil), c.Detect.Dialects...)
	cp.Lua.Plugins = append([]string(nil), c.Lua.Plugins...)
	return &cp
}
