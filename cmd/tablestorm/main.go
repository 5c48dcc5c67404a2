// Package main is the entry point for the tablestorm command.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/tablestorm/internal/app"
	"github.com/dshills/tablestorm/internal/config"
	"github.com/dshills/tablestorm/internal/plugin"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// cli holds the state shared by every subcommand.
type cli struct {
	configPath string
	logLevel   string
	noPlugins  bool

	// resolved is the config file actually read, empty when the defaults
	// were used.
	resolved string
	cfg      *config.Config
	log      *app.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "tablestorm",
		Short: "Render and edit the tables in Markdown documents",
		Long: `tablestorm finds simple, grid and pipe tables in Markdown documents and
turns them into editable widgets. Edits are written back as Markdown when a
widget loses focus.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return c.init(cmd.ErrOrStderr())
		},
	}

	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "config file (default: <user config dir>/tablestorm/config.toml)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "log level (debug, info, warn, error); overrides the config")
	root.PersistentFlags().BoolVar(&c.noPlugins, "no-plugins", false, "do not load Lua plugins")

	root.AddCommand(
		newScanCmd(c),
		newFormatCmd(c),
		newViewCmd(c),
		newRunCmd(c),
		newVersionCmd(),
	)
	return root
}

// init loads the configuration and builds the logger.
func (c *cli) init(logOut io.Writer) error {
	cfg, path, err := loadConfig(c.configPath)
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		switch c.logLevel {
		case "debug", "info", "warn", "error":
		default:
			return fmt.Errorf("invalid log level %q (must be debug, info, warn, or error)", c.logLevel)
		}
		cfg.Log.Level = c.logLevel
	}

	switch {
	case c.noPlugins:
		cfg.Lua.Plugins = nil
	case len(cfg.Lua.Plugins) == 0:
		cfg.Lua.Plugins = plugin.DefaultPluginPaths()
	}

	c.cfg = cfg
	c.resolved = path
	c.log = app.NewLogger(app.LoggerConfig{
		Level:  app.ParseLogLevel(cfg.Log.Level),
		Output: logOut,
		Prefix: "tablestorm",
	})
	c.log.Debug("config loaded: path=%q", path)
	return nil
}

// loadConfig reads path, or the default location when path is empty, and
// applies environment overrides. A missing default file means defaults.
func loadConfig(path string) (*config.Config, string, error) {
	explicit := path != ""
	if !explicit {
		if p, err := config.DefaultPath(); err == nil {
			path = p
		}
	}

	cfg := config.Default()
	if path != "" {
		loaded, err := config.Load(path)
		switch {
		case err == nil:
			cfg = loaded
		case errors.Is(err, config.ErrFileNotFound) && !explicit:
			path = ""
		default:
			return nil, "", fmt.Errorf("load config: %w", err)
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, "", fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("load config: %w", err)
	}
	return cfg, path, nil
}

// open starts a session on a file with the loaded configuration.
func (c *cli) open(path string, scriptOut io.Writer) (*app.Session, error) {
	return app.OpenSession(path, app.Options{
		Config:       c.cfg,
		Logger:       c.log,
		ScriptOutput: scriptOut,
	})
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "tablestorm %s\n", version)
			fmt.Fprintf(out, "Commit: %s\n", commit)
			fmt.Fprintf(out, "Built: %s\n", date)
		},
	}
}
