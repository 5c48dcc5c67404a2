package plugin

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dshills/tablestorm/internal/command"
)

// Runner executes plugin code. A tablestorm session satisfies it.
type Runner interface {
	RunScript(ctx context.Context, path string) error
	Commands() *command.Registry
}

// Loader discovers and loads plugins from the filesystem.
type Loader struct {
	// Search paths for plugins (checked in order)
	paths []string

	// Discovered plugins cache
	discovered map[string]*Info
}

// Info contains discovery information about a plugin.
type Info struct {
	Name     string
	Path     string
	Manifest *Manifest
	State    State
	Error    error
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithPaths sets the plugin search paths.
func WithPaths(paths ...string) LoaderOption {
	return func(l *Loader) {
		l.paths = paths
	}
}

// NewLoader creates a new plugin loader.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		paths:      DefaultPluginPaths(),
		discovered: make(map[string]*Info),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// DefaultPluginPaths returns the default plugin search paths.
func DefaultPluginPaths() []string {
	paths := make([]string, 0, 2)

	// User plugins: <config dir>/tablestorm/plugins/
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "tablestorm", "plugins"))
	}

	// Project plugins: .tablestorm/plugins/
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".tablestorm", "plugins"))
	}
	return paths
}

// Paths returns the configured search paths.
func (l *Loader) Paths() []string {
	return l.paths
}

// Discover finds all plugins in the search paths.
// Returns plugins sorted by name. Missing paths are skipped.
func (l *Loader) Discover() ([]*Info, error) {
	l.discovered = make(map[string]*Info)

	var errs []error
	for _, basePath := range l.paths {
		if err := l.discoverInPath(basePath); err != nil {
			errs = append(errs, err)
		}
	}

	plugins := make([]*Info, 0, len(l.discovered))
	for _, info := range l.discovered {
		plugins = append(plugins, info)
	}
	sort.Slice(plugins, func(i, j int) bool {
		return plugins[i].Name < plugins[j].Name
	})
	return plugins, errors.Join(errs...)
}

// discoverInPath finds plugins in a single directory.
func (l *Loader) discoverInPath(basePath string) error {
	entries, err := os.ReadDir(basePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			if filepath.Ext(entry.Name()) == ".lua" {
				name := strings.TrimSuffix(entry.Name(), ".lua")
				l.addSingleFilePlugin(name, filepath.Join(basePath, entry.Name()))
			}
			continue
		}

		info := l.inspectPlugin(entry.Name(), filepath.Join(basePath, entry.Name()))

		// First path wins.
		if _, exists := l.discovered[info.Name]; !exists {
			l.discovered[info.Name] = info
		}
	}
	return nil
}

func (l *Loader) addSingleFilePlugin(name, luaPath string) {
	if _, exists := l.discovered[name]; exists {
		return
	}

	manifest := NewManifestMinimal(name, filepath.Dir(luaPath))
	manifest.Main = filepath.Base(luaPath)

	l.discovered[name] = &Info{
		Name:     name,
		Path:     filepath.Dir(luaPath),
		Manifest: manifest,
		State:    StateUnloaded,
	}
}

// inspectPlugin examines a plugin directory and returns its info.
func (l *Loader) inspectPlugin(name, path string) *Info {
	info := &Info{
		Name:  name,
		Path:  path,
		State: StateUnloaded,
	}

	manifestPath := filepath.Join(path, "plugin.json")
	if _, err := os.Stat(manifestPath); err == nil {
		manifest, err := LoadManifest(manifestPath)
		if err != nil {
			info.Error = fmt.Errorf("invalid manifest: %w", err)
			info.State = StateError
			return info
		}
		info.Manifest = manifest
		info.Name = manifest.Name
		return info
	}

	for _, main := range []string{"init.lua", "plugin.lua"} {
		if _, err := os.Stat(filepath.Join(path, main)); err == nil {
			info.Manifest = NewManifestMinimal(name, path)
			info.Manifest.Main = main
			return info
		}
	}

	info.Error = ErrNoEntryPoint
	info.State = StateError
	return info
}

// Get returns info for a specific plugin by name.
func (l *Loader) Get(name string) (*Info, bool) {
	info, ok := l.discovered[name]
	return info, ok
}

// Errors returns the plugins that failed inspection or loading.
func (l *Loader) Errors() []*Info {
	var out []*Info
	for _, info := range l.discovered {
		if info.State == StateError {
			out = append(out, info)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out
}

// Load runs a discovered plugin's main file and checks that every command
// its manifest declares was registered. Failures are also recorded on the
// plugin's Info.
func (l *Loader) Load(ctx context.Context, r Runner, name string) error {
	info, ok := l.discovered[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrPluginNotFound, name)
	}
	switch info.State {
	case StateLoaded:
		return fmt.Errorf("%w: %s", ErrAlreadyLoaded, name)
	case StateError:
		return info.Error
	}

	fail := func(err error) error {
		info.State = StateError
		info.Error = fmt.Errorf("plugin %s: %w", name, err)
		return info.Error
	}

	if err := r.RunScript(ctx, info.Manifest.MainPath()); err != nil {
		return fail(err)
	}
	for _, c := range info.Manifest.Commands {
		if _, ok := r.Commands().Get(c.ID); !ok {
			return fail(fmt.Errorf("%w: %s", ErrMissingCommand, c.ID))
		}
	}

	info.State = StateLoaded
	return nil
}

// LoadAll discovers plugins and loads each one in name order. It returns
// the loaded plugins and every error met along the way; one failing plugin
// does not stop the others.
func (l *Loader) LoadAll(ctx context.Context, r Runner) ([]*Info, error) {
	plugins, err := l.Discover()
	errs := []error{err}

	var loaded []*Info
	for _, info := range plugins {
		if err := l.Load(ctx, r, info.Name); err != nil {
			errs = append(errs, err)
			continue
		}
		loaded = append(loaded, info)
	}
	return loaded, errors.Join(errs...)
}
