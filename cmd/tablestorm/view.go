package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"

	"github.com/dshills/tablestorm/internal/app"
	"github.com/dshills/tablestorm/internal/renderer"
)

func newViewCmd(c *cli) *cobra.Command {
	var write, noNumbers bool
	cmd := &cobra.Command{
		Use:   "view <file>",
		Short: "Open a document in the terminal with tables as widgets",
		Long: `View shows the document with each table replaced by an editable widget.

Keys: Up/Down/PgUp/PgDn scroll, Tab edits the first table on screen, Esc
finishes editing, q or Ctrl-C quits. Clicking a cell starts editing it and
clicking elsewhere writes the table back.

With -w the file is saved on exit if any table changed. The config file is
watched and reloaded while viewing.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			screen, err := tcell.NewScreen()
			if err != nil {
				return fmt.Errorf("create screen: %w", err)
			}
			if err := screen.Init(); err != nil {
				return fmt.Errorf("init screen: %w", err)
			}
			defer screen.Fini()
			screen.EnableMouse()

			// The screen owns the terminal; logs would corrupt it.
			c.log.SetOutput(io.Discard)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return c.view(ctx, screen, args[0], write, !noNumbers)
		},
	}
	cmd.Flags().BoolVarP(&write, "write", "w", false, "save the file on exit if it changed")
	cmd.Flags().BoolVar(&noNumbers, "no-line-numbers", false, "hide the line number gutter")
	return cmd
}

// view runs the interactive renderer on screen until the user quits.
func (c *cli) view(ctx context.Context, screen tcell.Screen, path string, write, numbers bool) error {
	s, err := c.open(path, io.Discard)
	if err != nil {
		return err
	}
	defer s.Close()

	if c.resolved != "" {
		if err := s.WatchConfig(c.resolved); err != nil {
			c.log.Warn("config will not reload: %v", err)
		}
	}

	r := renderer.New(screen, s, renderer.WithLineNumbers(numbers))
	r.SetStatus(path)

	before := s.Buffer().Content()
	runErr := r.Run(ctx)
	if releaseErr := s.Release(); releaseErr != nil && runErr == nil {
		runErr = releaseErr
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}

	if write && s.Buffer().Content() != before {
		return s.Save()
	}
	return nil
}

var _ renderer.Source = (*app.Session)(nil)
