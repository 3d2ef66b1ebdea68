package cfg

import (
	"fmt"

	"spirit/internal/diag"
)

// Error is a translation failure driven by untrusted input: duplicate
// or dangling labels, malformed merge/terminator pairings, switch cases
// that chain into a cycle. Internal inconsistencies discovered after
// the input already validated are bugs and panic instead.
type Error struct {
	Code  diag.Code
	Label LabelID
	Msg   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: block %%%d: %s", e.Code, e.Label, e.Msg)
}

// Diagnostic converts the error for reporting through a diag.Reporter.
func (e *Error) Diagnostic() diag.Diagnostic {
	return diag.Diagnostic{
		Severity: diag.SevError,
		Code:     e.Code,
		Message:  fmt.Sprintf("block %%%d: %s", e.Label, e.Msg),
	}
}

func errf(code diag.Code, label LabelID, format string, args ...any) *Error {
	return &Error{Code: code, Label: label, Msg: fmt.Sprintf(format, args...)}
}
