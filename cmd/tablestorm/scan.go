package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/tidwall/sjson"

	"github.com/dshills/tablestorm/internal/app"
	"github.com/dshills/tablestorm/internal/engine/syntax"
	"github.com/dshills/tablestorm/internal/manager"
)

func newScanCmd(c *cli) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "scan <file>...",
		Short: "List the tables found in documents",
		Long: `Scan detects the tables in each document and reports their line ranges,
dialects and sizes. Line numbers are 1-based. Tables that were detected but
could not be parsed are reported as failures, as is frontmatter whose YAML
does not parse.

With --json one object is written per file:

  {"file":"notes.md","tables":[{"first":3,"last":5,"dialect":"pipe","rows":1,"columns":2}],"failed":[]}

Documents with frontmatter also carry
"frontmatter":{"first":1,"last":3,"valid":true}.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				if err := c.scan(cmd.Context(), cmd.OutOrStdout(), path, asJSON); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "write JSON lines")
	return cmd
}

// scanEntry is one rendered table of a scan.
type scanEntry struct {
	first, last   int
	dialect       string
	rows, columns int
}

func (c *cli) scan(ctx context.Context, out io.Writer, path string, asJSON bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := c.open(path, io.Discard)
	if err != nil {
		return err
	}
	defer s.Close()

	res, err := s.Refresh(ctx)
	if err != nil {
		return err
	}
	entries := scanEntries(s)
	front, hasFront := s.Frontmatter()

	if asJSON {
		doc, err := scanJSON(path, entries, res.Failed)
		if err != nil {
			return err
		}
		if hasFront {
			if doc, err = frontmatterJSON(doc, front); err != nil {
				return err
			}
		}
		_, err = fmt.Fprintln(out, doc)
		return err
	}

	for _, e := range entries {
		fmt.Fprintf(out, "%s:%d-%d\t%s\t%dx%d\n", path, e.first, e.last, e.dialect, e.rows, e.columns)
	}
	for _, f := range res.Failed {
		fmt.Fprintf(out, "%s:%d-%d\t%s\tinvalid: %v\n", path, f.Range.First+1, f.Range.Last+1, f.Dialect, f.Err)
	}
	if hasFront && !front.Valid() {
		fmt.Fprintf(out, "%s:%d-%d\tfrontmatter\tinvalid: %v\n", path, front.First+1, front.Last+1, front.Err)
	}
	return nil
}

func frontmatterJSON(doc string, f syntax.Frontmatter) (string, error) {
	var err error
	if doc, err = sjson.Set(doc, "frontmatter.first", f.First+1); err != nil {
		return "", err
	}
	if doc, err = sjson.Set(doc, "frontmatter.last", f.Last+1); err != nil {
		return "", err
	}
	if doc, err = sjson.Set(doc, "frontmatter.valid", f.Valid()); err != nil {
		return "", err
	}
	if !f.Valid() {
		return sjson.Set(doc, "frontmatter.error", f.Err.Error())
	}
	return doc, nil
}

func scanEntries(s *app.Session) []scanEntry {
	var entries []scanEntry
	for _, inst := range s.Instances() {
		rng, ok := s.Range(inst.ID)
		if !ok {
			continue
		}
		entries = append(entries, scanEntry{
			first:   rng.First + 1,
			last:    rng.Last + 1,
			dialect: inst.Dialect.String(),
			rows:    inst.Table.Rows(),
			columns: inst.Table.Columns(),
		})
	}
	return entries
}

func scanJSON(path string, entries []scanEntry, failed []*manager.ConstructionError) (string, error) {
	doc, err := sjson.Set("{}", "file", path)
	if err != nil {
		return "", err
	}
	if doc, err = sjson.SetRaw(doc, "tables", "[]"); err != nil {
		return "", err
	}
	if doc, err = sjson.SetRaw(doc, "failed", "[]"); err != nil {
		return "", err
	}

	for i, e := range entries {
		fields := []struct {
			key   string
			value any
		}{
			{"first", e.first},
			{"last", e.last},
			{"dialect", e.dialect},
			{"rows", e.rows},
			{"columns", e.columns},
		}
		for _, f := range fields {
			if doc, err = sjson.Set(doc, fmt.Sprintf("tables.%d.%s", i, f.key), f.value); err != nil {
				return "", err
			}
		}
	}

	for i, f := range failed {
		fields := []struct {
			key   string
			value any
		}{
			{"first", f.Range.First + 1},
			{"last", f.Range.Last + 1},
			{"dialect", f.Dialect.String()},
			{"error", f.Err.Error()},
		}
		for _, kv := range fields {
			if doc, err = sjson.Set(doc, fmt.Sprintf("failed.%d.%s", i, kv.key), kv.value); err != nil {
				return "", err
			}
		}
	}
	return doc, nil
}
