// Package text implements the canonical textual form of the IR: a
// lexer, a recursive-descent parser, and a printer that are exact
// inverses of each other. The text format exists for tests and
// debugging; round-trips are byte-exact, which is why floats are
// spelled as raw bit patterns and integers carry explicit width
// suffixes.
package text

import (
	"spirit/internal/ir"
	"spirit/internal/source"
)

// TokKind is the category of one token.
type TokKind uint8

const (
	// TokEOF marks the end of input.
	TokEOF TokKind = iota
	// TokInt is an integer literal, optionally width-suffixed (23i32).
	TokInt
	// TokIdent is an identifier or word-like keyword.
	TokIdent
	// TokString is a quoted string literal.
	TokString
	// TokPunct is punctuation (braces, brackets, arrows, ...).
	TokPunct
)

// Token is one lexed token.
type Token struct {
	Kind TokKind
	Span source.Span
	Text string

	// Integer payload.
	Bits      uint64
	Width     ir.IntWidth
	HasSuffix bool

	// String payload (decoded).
	Str string
}

// Is reports whether the token is punctuation with exactly this text.
func (t Token) Is(punct string) bool {
	return t.Kind == TokPunct && t.Text == punct
}

// IsWord reports whether the token is an identifier with exactly this
// text. Keywords are contextual: the parser matches them by spelling.
func (t Token) IsWord(word string) bool {
	return t.Kind == TokIdent && t.Text == word
}
