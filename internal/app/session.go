// Package app wires a document buffer to the table engine.
//
// A Session owns everything one open document needs: the buffer, its
// syntax scanner and overlay bindings, the event bus, the table manager,
// the command registry and a Lua state for user scripts. The host calls
// Refresh from its render loop; everything else is driven by commands and
// widget focus changes.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/dshills/tablestorm/internal/command"
	"github.com/dshills/tablestorm/internal/config"
	"github.com/dshills/tablestorm/internal/detect"
	"github.com/dshills/tablestorm/internal/engine/buffer"
	"github.com/dshills/tablestorm/internal/engine/syntax"
	"github.com/dshills/tablestorm/internal/event"
	"github.com/dshills/tablestorm/internal/event/topic"
	"github.com/dshills/tablestorm/internal/manager"
	"github.com/dshills/tablestorm/internal/plugin"
	"github.com/dshills/tablestorm/internal/plugin/lua"
	"github.com/dshills/tablestorm/internal/renderer/overlay"
)

// RefreshCommandID is the built-in command that runs one detection pass.
const RefreshCommandID = "table.refresh"

// ScriptSource tags commands registered by Lua scripts.
const ScriptSource = "lua"

// Options configures a Session.
type Options struct {
	// Config is the starting configuration. Nil means config.Default().
	Config *config.Config

	// Logger receives session diagnostics. Nil means NullLogger. Its level
	// follows Config.Log.Level.
	Logger *Logger

	// Path is the file the document came from. Save writes to it.
	Path string

	// ScriptOutput receives print output from Lua scripts.
	ScriptOutput io.Writer
}

// Session is one open document with table rendering attached.
// Except for configuration reloads it is driven from a single goroutine.
type Session struct {
	// mu guards pending, which the config watcher sets from its goroutine.
	mu      sync.Mutex
	pending *config.Config

	cfg  *config.Config
	log  *Logger
	path string

	buf      *buffer.Buffer
	modes    *syntax.Scanner
	bindings *overlay.Manager
	bus      *event.Bus
	tables   *manager.Manager
	commands *command.Registry
	scripts  *lua.State
	plugins  []*plugin.Info

	unobserve func()
	configSub *event.Subscription
	watcher   *config.Watcher

	closed bool
}

// NewSession attaches the table engine to buf.
func NewSession(buf *buffer.Buffer, opts Options) (*Session, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, &InitError{Component: "config", Err: err}
	}
	log := opts.Logger
	if log == nil {
		log = NullLogger
	}
	log.SetLevel(ParseLogLevel(cfg.Log.Level))

	s := &Session{
		cfg:      cfg.Clone(),
		log:      log,
		path:     opts.Path,
		buf:      buf,
		modes:    syntax.NewScanner(buf),
		bindings: overlay.NewManager(),
		commands: command.NewRegistry(),
	}
	s.unobserve = buf.AddObserver(s.bindings)

	eventLog := log.WithComponent("event")
	s.bus = event.NewBus(event.WithPanicHandler(func(ev any, recovered any, _ []byte) {
		eventLog.Error("handler panic: event=%T panic=%v", ev, recovered)
	}))

	detectOpts, err := s.detectOptions(cfg)
	if err != nil {
		_ = s.Close()
		return nil, &InitError{Component: "detect", Err: err}
	}
	s.tables, err = manager.New(buf, s.modes, s.bindings, s.bus,
		manager.WithLogger(log.WithComponent("manager")),
		manager.WithContainer(cfg.Render.Container),
		manager.WithDetectOptions(detectOpts...),
	)
	if err != nil {
		_ = s.Close()
		return nil, &InitError{Component: "manager", Err: err}
	}

	s.configSub, err = event.Subscribe(s.bus, topic.ConfigChanged, func(_ context.Context, ev event.Event[config.Changed]) error {
		s.mu.Lock()
		s.pending = ev.Payload.Config
		s.mu.Unlock()
		return nil
	})
	if err != nil {
		_ = s.Close()
		return nil, &InitError{Component: "config", Err: err}
	}

	if err := s.registerCommands(); err != nil {
		_ = s.Close()
		return nil, &InitError{Component: "commands", Err: err}
	}

	output := opts.ScriptOutput
	if output == nil {
		output = io.Discard
	}
	s.scripts, err = lua.NewState(lua.WithExecutionTimeout(cfg.LuaTimeout()), lua.WithOutput(output))
	if err != nil {
		_ = s.Close()
		return nil, &InitError{Component: "lua", Err: err}
	}
	lua.Install(s.scripts, s, ScriptSource)

	if cfg.Lua.Init != "" {
		if err := s.RunScript(context.Background(), cfg.Lua.Init); err != nil {
			_ = s.Close()
			return nil, &InitError{Component: "lua", Err: err}
		}
	}

	if len(cfg.Lua.Plugins) > 0 {
		s.loadPlugins(cfg.Lua.Plugins)
	}

	log.Debug("session ready: path=%q lines=%d", s.path, buf.LineCount())
	return s, nil
}

// OpenSession reads path into a new buffer and attaches a session to it.
// The buffer starts without a cursor: nothing is being typed into a file
// opened from disk, so every table in it may render.
func OpenSession(path string, opts Options) (*Session, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, NewOperationError("open", path, err)
	}
	defer f.Close()

	buf, err := buffer.NewBufferFromReader(f, buffer.WithoutCursor())
	if err != nil {
		return nil, NewOperationError("open", path, err)
	}
	opts.Path = path
	return NewSession(buf, opts)
}

func (s *Session) detectOptions(cfg *config.Config) ([]detect.Option, error) {
	dialects, err := cfg.DialectList()
	if err != nil {
		return nil, err
	}
	return []detect.Option{
		detect.WithMaxLines(cfg.Detect.MaxLines),
		detect.WithDialects(dialects...),
		detect.WithLogger(s.log.WithComponent("detect")),
	}, nil
}

func (s *Session) registerCommands() error {
	if err := s.commands.Register(command.NewInsertTable(s.buf)); err != nil {
		return err
	}
	return s.commands.Register(&command.Command{
		ID:          RefreshCommandID,
		Title:       "Refresh Tables",
		Description: "Render every table in the visible lines",
		Source:      "core",
		Handler: func(map[string]any) error {
			_, err := s.Refresh(context.Background())
			return err
		},
	})
}

// loadPlugins loads every plugin found in paths. A plugin that fails is
// logged and skipped.
func (s *Session) loadPlugins(paths []string) {
	pluginLog := s.log.WithComponent("plugin")
	loaded, err := plugin.NewLoader(plugin.WithPaths(paths...)).LoadAll(context.Background(), s)
	if err != nil {
		pluginLog.Warn("some plugins failed to load: %v", err)
	}
	for _, info := range loaded {
		pluginLog.Debug("loaded %s from %s", info.Manifest, info.Path)
	}
	s.plugins = loaded
}

// Plugins returns the plugins loaded into the session.
func (s *Session) Plugins() []*plugin.Info { return s.plugins }

// Buffer returns the document buffer.
func (s *Session) Buffer() *buffer.Buffer { return s.buf }

// Bus returns the session event bus.
func (s *Session) Bus() *event.Bus { return s.bus }

// Manager returns the table manager.
func (s *Session) Manager() *manager.Manager { return s.tables }

// Bindings returns the overlay bindings of the buffer.
func (s *Session) Bindings() *overlay.Manager { return s.bindings }

// Commands returns the command registry.
func (s *Session) Commands() *command.Registry { return s.commands }

// Logger returns the session logger.
func (s *Session) Logger() *Logger { return s.log }

// Path returns the document's file path, if any.
func (s *Session) Path() string { return s.path }

// Frontmatter returns the document's metadata block, if it has one.
func (s *Session) Frontmatter() (syntax.Frontmatter, bool) { return s.modes.Frontmatter() }

// Container returns the pane name widgets are currently scoped to.
func (s *Session) Container() string { return s.cfg.Render.Container }

// Config returns a copy of the active configuration.
func (s *Session) Config() *config.Config { return s.cfg.Clone() }

// Instances returns the rendered tables.
func (s *Session) Instances() []*manager.Instance { return s.tables.Instances() }

// InstanceAt returns the rendered table covering line.
func (s *Session) InstanceAt(line int) (*manager.Instance, bool) { return s.tables.InstanceAt(line) }

// Range returns the lines a rendered table currently replaces.
func (s *Session) Range(id string) (buffer.LineRange, bool) { return s.tables.Range(id) }

// Refresh applies any configuration reloaded since the last pass and
// renders the tables in the visible lines.
func (s *Session) Refresh(ctx context.Context) (manager.Result, error) {
	if s.closed {
		return manager.Result{}, ErrSessionClosed
	}

	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	if pending != nil {
		if err := s.ApplyConfig(pending); err != nil {
			s.log.WithComponent("config").Warn("reloaded config rejected: %v", err)
		}
	}
	return s.tables.Refresh(ctx)
}

// ApplyConfig switches the session to cfg. Rendered tables keep their
// widgets; later passes use the new settings.
func (s *Session) ApplyConfig(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	opts, err := s.detectOptions(cfg)
	if err != nil {
		return err
	}

	s.log.SetLevel(ParseLogLevel(cfg.Log.Level))
	s.tables.Configure(cfg.Render.Container, opts...)
	s.scripts.SetExecutionTimeout(cfg.LuaTimeout())
	s.cfg = cfg.Clone()

	s.log.WithComponent("config").Info("config applied: container=%s max_lines=%d dialects=%v",
		cfg.Render.Container, cfg.Detect.MaxLines, cfg.Detect.Dialects)
	return nil
}

// WatchConfig reloads path whenever it changes. The new settings take
// effect on the next Refresh.
func (s *Session) WatchConfig(path string) error {
	if s.closed {
		return ErrSessionClosed
	}
	if s.watcher != nil {
		_ = s.watcher.Close()
	}
	w, err := config.NewWatcher(path, s.bus,
		config.WithWatchLogger(s.log.WithComponent("config")),
		config.WithEnvOverrides(true),
	)
	if err != nil {
		return NewOperationError("watch", path, err)
	}
	s.watcher = w
	return nil
}

// Execute runs a registered command.
func (s *Session) Execute(id string, args map[string]any) error {
	if s.closed {
		return ErrSessionClosed
	}
	return s.commands.Execute(id, args)
}

// RunScript executes a Lua file against the session.
func (s *Session) RunScript(ctx context.Context, path string) error {
	if err := s.scripts.DoFile(ctx, path); err != nil {
		return NewOperationError("script", path, err)
	}
	return nil
}

// RunString executes a Lua chunk against the session.
func (s *Session) RunString(ctx context.Context, code string) error {
	if err := s.scripts.DoString(ctx, code); err != nil {
		return NewOperationError("script", "", err)
	}
	return nil
}

// Release writes every rendered table back into the buffer.
func (s *Session) Release() error {
	var errs []error
	for _, inst := range s.tables.Instances() {
		if err := s.tables.Release(inst.ID); err != nil {
			errs = append(errs, fmt.Errorf("release %s: %w", inst.ID, err))
		}
	}
	return errors.Join(errs...)
}

// Format renders every table in the visible lines and writes each one back
// regenerated with aligned columns. It returns the number of tables whose
// text changed.
func (s *Session) Format(ctx context.Context) (int, error) {
	if _, err := s.Refresh(ctx); err != nil {
		return 0, err
	}

	changed := 0
	var errs []error
	for _, inst := range s.tables.Instances() {
		if strings.TrimSuffix(inst.Table.Format(), "\n") != inst.Source {
			inst.Table.MarkModified()
			changed++
		}
		if err := s.tables.Release(inst.ID); err != nil {
			errs = append(errs, fmt.Errorf("release %s: %w", inst.ID, err))
		}
	}
	return changed, errors.Join(errs...)
}

// Save writes the buffer to the session path with its original line
// endings.
func (s *Session) Save() error {
	if s.path == "" {
		return ErrNoPath
	}
	mode := os.FileMode(0o644)
	if info, err := os.Stat(s.path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.WriteFile(s.path, []byte(s.buf.Content()), mode); err != nil {
		return NewOperationError("save", s.path, err)
	}
	return nil
}

// Close detaches the session from its buffer and releases the Lua state
// and config watcher. It is safe to call more than once.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if s.watcher != nil {
		keep(s.watcher.Close())
	}
	if s.configSub != nil {
		keep(s.bus.Unsubscribe(s.configSub))
	}
	s.commands.UnregisterBySource(ScriptSource)
	if s.scripts != nil {
		keep(s.scripts.Close())
	}
	if s.tables != nil {
		keep(s.tables.Close())
	}
	s.bindings.ClearAll()
	if s.unobserve != nil {
		s.unobserve()
	}
	return firstErr
}
