package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// errNeedsFormat is returned by format --check when a file would change.
var errNeedsFormat = errors.New("some files need formatting")

func newFormatCmd(c *cli) *cobra.Command {
	var write, check bool
	cmd := &cobra.Command{
		Use:   "format <file>...",
		Short: "Align the columns of every table",
		Long: `Format regenerates each detected table with aligned columns in its own
dialect. Text outside tables is left alone and line endings are kept.

By default the formatted document is written to stdout. With -w each file is
rewritten in place; with --check the names of files that would change are
listed and the command fails if there are any.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if write && check {
				return errors.New("-w and --check are mutually exclusive")
			}
			out := cmd.OutOrStdout()
			dirty := false
			for _, path := range args {
				changed, err := c.format(cmd, out, path, write, check)
				if err != nil {
					return err
				}
				dirty = dirty || changed > 0
			}
			if check && dirty {
				return errNeedsFormat
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&write, "write", "w", false, "write the result back to each file")
	cmd.Flags().BoolVar(&check, "check", false, "list files that are not formatted")
	return cmd
}

func (c *cli) format(cmd *cobra.Command, out io.Writer, path string, write, check bool) (int, error) {
	s, err := c.open(path, io.Discard)
	if err != nil {
		return 0, err
	}
	defer s.Close()

	changed, err := s.Format(cmd.Context())
	if err != nil {
		return 0, err
	}

	switch {
	case check:
		if changed > 0 {
			fmt.Fprintln(out, path)
		}
	case write:
		if changed == 0 {
			return 0, nil
		}
		if err := s.Save(); err != nil {
			return 0, err
		}
		c.log.Info("formatted %s: %d table(s)", path, changed)
	default:
		_, err = io.WriteString(out, s.Buffer().Content())
	}
	return changed, err
}
