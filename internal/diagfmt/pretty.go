// Package diagfmt renders diagnostics and token dumps for the CLI.
package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"spirit/internal/diag"
	"spirit/internal/source"
)

// PrettyOpts configures pretty-printing of diagnostics.
type PrettyOpts struct {
	Color bool
	// Context is the number of source lines shown around the primary
	// line.
	Context int
}

var (
	errorColor = color.New(color.FgRed, color.Bold)
	warnColor  = color.New(color.FgYellow, color.Bold)
	noteColor  = color.New(color.FgCyan)
	gutter     = color.New(color.Faint)
)

func paint(enabled bool, c *color.Color, s string) string {
	if !enabled {
		return s
	}
	return c.Sprint(s)
}

func severityColor(sev diag.Severity) *color.Color {
	switch sev {
	case diag.SevWarning:
		return warnColor
	case diag.SevInfo:
		return noteColor
	default:
		return errorColor
	}
}

// Pretty formats every diagnostic of the bag. Call bag.Sort() first if
// a stable order matters. Each diagnostic prints as
//
//	<path>:<line>:<col>: <severity> <code>: <message>
//
// followed by the source line with a caret under the primary span, its
// context lines, and the notes in the same shape.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	for _, d := range bag.Items() {
		writeHeading(w, fs, d.Primary, paint(opts.Color, severityColor(d.Severity), fmt.Sprintf("%s %s", d.Severity, d.Code)), d.Message)
		writeContext(w, fs, d.Primary, opts)
		for _, n := range d.Notes {
			writeHeading(w, fs, n.Span, paint(opts.Color, noteColor, "note"), n.Msg)
			writeContext(w, fs, n.Span, opts)
		}
	}
}

func writeHeading(w io.Writer, fs *source.FileSet, sp source.Span, label, msg string) {
	file := fs.Get(sp.File)
	if file == nil {
		fmt.Fprintf(w, "%s: %s\n", label, msg)
		return
	}
	pos := fs.Position(sp.File, sp.Start)
	fmt.Fprintf(w, "%s:%d:%d: %s: %s\n", file.Path, pos.Line, pos.Col, label, msg)
}

func writeContext(w io.Writer, fs *source.FileSet, sp source.Span, opts PrettyOpts) {
	file := fs.Get(sp.File)
	if file == nil {
		return
	}
	lines := strings.Split(string(file.Content), "\n")
	pos := fs.Position(sp.File, sp.Start)
	primary := int(pos.Line) // 1-based

	first := max(primary-opts.Context, 1)
	last := min(primary+opts.Context, len(lines))
	for ln := first; ln <= last; ln++ {
		text := strings.TrimRight(lines[ln-1], "\r")
		fmt.Fprintf(w, "%s %s\n", paint(opts.Color, gutter, fmt.Sprintf("%5d |", ln)), text)
		if ln == primary {
			width := int(fs.Position(sp.File, sp.End).Col) - int(pos.Col)
			fmt.Fprintf(w, "%s %s%s\n",
				paint(opts.Color, gutter, "      |"),
				strings.Repeat(" ", int(pos.Col)-1),
				paint(opts.Color, errorColor, "^"+strings.Repeat("~", max(width-1, 0))))
		}
	}
}
