// Package detect finds Markdown tables in a line buffer.
//
// A Detector walks a range of lines and classifies each prose line as a
// possible table heading. A heading expands into a span by the boundary
// rules of its dialect:
//
//   - Simple: a dash line. With a blank line (or the document start) above
//     it the table is headerless and runs to the next dash line; otherwise
//     the line above is the header and the table runs to the next blank.
//   - Grid: a +---+ rule that starts the table and runs to the next blank.
//   - Pipe: a delimiter row below a header; runs to the next blank.
//
// The end of the document counts as a blank line. Spans are produced lazily
// and gated by a Validator, which keeps spans away from the cursor, from
// live bindings, from spans already accepted in the same pass and from
// lines that do not start in prose.
package detect
