package main

import (
	"errors"

	"github.com/spf13/cobra"
)

func newRunCmd(c *cli) *cobra.Command {
	var (
		eval  string
		write bool
	)
	cmd := &cobra.Command{
		Use:   "run [script.lua] <file>",
		Short: "Run a Lua script against a document",
		Long: `Run renders the tables of a document and executes a Lua script with the
tablestorm module loaded. Script output goes to stdout. Tables the script
leaves rendered are written back when it finishes; with -w the document is
then saved.

Examples:
  tablestorm run report.lua notes.md
  tablestorm run -e 'for _, t in ipairs(tablestorm.tables()) do print(t.dialect) end' notes.md`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var script, path string
			switch {
			case eval != "" && len(args) == 1:
				path = args[0]
			case eval == "" && len(args) == 2:
				script, path = args[0], args[1]
			default:
				return errors.New("need either a script and a file, or -e and a file")
			}

			s, err := c.open(path, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := cmd.Context()
			if _, err := s.Refresh(ctx); err != nil {
				return err
			}
			if script != "" {
				err = s.RunScript(ctx, script)
			} else {
				err = s.RunString(ctx, eval)
			}
			if err != nil {
				return err
			}

			if err := s.Release(); err != nil {
				return err
			}
			if write {
				return s.Save()
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&eval, "eval", "e", "", "run this Lua code instead of a script file")
	cmd.Flags().BoolVarP(&write, "write", "w", false, "save the document afterwards")
	return cmd
}
