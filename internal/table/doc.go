// Package table is the structured model behind a rendered Markdown table.
//
// A Table is parsed from the raw text of a detected span in one of three
// dialects and can be written back to text with Markdown. The dialects are:
//
//   - Simple: pandoc simple tables. Columns are laid out by the runs of a
//     dash line. The headed form has a header line above the dashes; the
//     headerless form is bracketed by two dash lines.
//   - Grid: pandoc grid tables drawn with +---+ rules and | separators,
//     with an optional +===+ rule below the header.
//   - Pipe: GitHub flavored pipe tables, parsed with goldmark.
//
// A table that has not been edited serializes to its source text unchanged.
// Once edited it is regenerated with columns padded to their display width.
package table
