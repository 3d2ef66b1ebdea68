package text

import (
	"fmt"

	"spirit/internal/diag"
	"spirit/internal/source"
)

// FromTextError is a parse failure with a precise source position:
// byte offset, 1-based line, and a display column that honors tab
// stops and wide runes. Malformed text is expected input; this error
// is always recoverable and never escalates to a panic.
type FromTextError struct {
	Path   string
	Code   diag.Code
	Offset uint32
	Line   uint32
	Col    uint32
	Msg    string
}

func (e *FromTextError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.Path, e.Line, e.Col, e.Msg)
}

// Diagnostic converts the error for reporting through a diag.Reporter.
func (e *FromTextError) Diagnostic(file source.FileID) diag.Diagnostic {
	return diag.Diagnostic{
		Severity: diag.SevError,
		Code:     e.Code,
		Message:  e.Msg,
		Primary:  source.Span{File: file, Start: e.Offset, End: e.Offset + 1},
	}
}
