package text

import (
	"fmt"
	"strconv"
	"unicode/utf8"

	"fortio.org/safecast"

	"spirit/internal/diag"
	"spirit/internal/ir"
	"spirit/internal/source"
)

// lexer produces tokens from one in-memory file. It never panics on
// bad input; every failure becomes a FromTextError pointing at the
// offending byte.
type lexer struct {
	file *source.File
	fs   *source.FileSet
	off  uint32
	look *Token
}

func newLexer(fs *source.FileSet, file *source.File) *lexer {
	return &lexer{file: file, fs: fs}
}

func (lx *lexer) limit() uint32 {
	n, err := safecast.Conv[uint32](len(lx.file.Content))
	if err != nil {
		panic(fmt.Errorf("len file content overflow: %w", err))
	}
	return n
}

func (lx *lexer) eof() bool {
	return lx.off >= lx.limit()
}

func (lx *lexer) peekByte() byte {
	if lx.eof() {
		return 0
	}
	return lx.file.Content[lx.off]
}

func (lx *lexer) bump() byte {
	b := lx.peekByte()
	if !lx.eof() {
		lx.off++
	}
	return b
}

func (lx *lexer) errAt(off uint32, code diag.Code, format string, args ...any) *FromTextError {
	pos := lx.fs.Position(lx.file.ID, off)
	return &FromTextError{
		Path:   lx.file.Path,
		Code:   code,
		Offset: off,
		Line:   pos.Line,
		Col:    pos.Col,
		Msg:    fmt.Sprintf(format, args...),
	}
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

func isDec(b byte) bool {
	return b >= '0' && b <= '9'
}

func isHexDigit(b byte) bool {
	return isDec(b) || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

func isIdentStart(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isIdentContinue(b byte) bool {
	return isIdentStart(b) || isDec(b)
}

// peek returns the next token without consuming it.
func (lx *lexer) peek() (Token, *FromTextError) {
	if lx.look != nil {
		return *lx.look, nil
	}
	tok, err := lx.scan()
	if err != nil {
		return Token{}, err
	}
	lx.look = &tok
	return tok, nil
}

// next consumes and returns the next token.
func (lx *lexer) next() (Token, *FromTextError) {
	if lx.look != nil {
		tok := *lx.look
		lx.look = nil
		return tok, nil
	}
	return lx.scan()
}

func (lx *lexer) skipSpace() {
	for !lx.eof() {
		b := lx.peekByte()
		if isSpace(b) {
			lx.off++
			continue
		}
		// Line comments: // to end of line.
		if b == '/' && lx.off+1 < lx.limit() && lx.file.Content[lx.off+1] == '/' {
			for !lx.eof() && lx.peekByte() != '\n' {
				lx.off++
			}
			continue
		}
		return
	}
}

func (lx *lexer) scan() (Token, *FromTextError) {
	lx.skipSpace()

	start := lx.off
	if lx.eof() {
		return Token{Kind: TokEOF, Span: lx.span(start)}, nil
	}

	b := lx.peekByte()
	switch {
	case isIdentStart(b):
		return lx.scanIdent(start), nil
	case isDec(b):
		return lx.scanInt(start)
	case b == '"':
		return lx.scanString(start)
	default:
		return lx.scanPunct(start)
	}
}

func (lx *lexer) span(start uint32) source.Span {
	return source.Span{File: lx.file.ID, Start: start, End: lx.off}
}

func (lx *lexer) text(sp source.Span) string {
	return string(lx.file.Content[sp.Start:sp.End])
}

func (lx *lexer) scanIdent(start uint32) Token {
	for !lx.eof() && isIdentContinue(lx.peekByte()) {
		lx.off++
	}
	sp := lx.span(start)
	return Token{Kind: TokIdent, Span: sp, Text: lx.text(sp)}
}

// scanInt lexes a decimal or 0x-prefixed hex literal with an optional
// width suffix (i8/i16/i32/i64). The suffix requirement for constants
// is enforced by the parser, not here: vector lengths and line numbers
// are legitimately bare.
func (lx *lexer) scanInt(start uint32) (Token, *FromTextError) {
	base := 10
	digitsStart := start
	if lx.peekByte() == '0' {
		lx.off++
		if !lx.eof() && (lx.peekByte() == 'x' || lx.peekByte() == 'X') {
			base = 16
			lx.off++
			digitsStart = lx.off
			for !lx.eof() && isHexDigit(lx.peekByte()) {
				lx.off++
			}
			if lx.off == digitsStart {
				return Token{}, lx.errAt(start, diag.LexBadNumber, "expected hex digits after 0x")
			}
		} else {
			for !lx.eof() && isDec(lx.peekByte()) {
				lx.off++
			}
		}
	} else {
		for !lx.eof() && isDec(lx.peekByte()) {
			lx.off++
		}
	}

	digits := string(lx.file.Content[digitsStart:lx.off])
	bits, err := strconv.ParseUint(digits, base, 64)
	if err != nil {
		return Token{}, lx.errAt(start, diag.LexBadNumber, "integer literal out of range")
	}

	tok := Token{Kind: TokInt, Bits: bits}

	// Optional width suffix glued to the digits.
	if !lx.eof() && lx.peekByte() == 'i' {
		suffixStart := lx.off
		lx.off++
		for !lx.eof() && isDec(lx.peekByte()) {
			lx.off++
		}
		switch string(lx.file.Content[suffixStart:lx.off]) {
		case "i8":
			tok.Width = ir.Int8
		case "i16":
			tok.Width = ir.Int16
		case "i32":
			tok.Width = ir.Int32
		case "i64":
			tok.Width = ir.Int64
		default:
			return Token{}, lx.errAt(suffixStart, diag.LexBadNumber, "unknown integer width suffix")
		}
		tok.HasSuffix = true
	}

	tok.Span = lx.span(start)
	tok.Text = lx.text(tok.Span)
	return tok, nil
}

func (lx *lexer) scanString(start uint32) (Token, *FromTextError) {
	lx.off++ // opening quote
	var out []byte
	for {
		if lx.eof() || lx.peekByte() == '\n' {
			return Token{}, lx.errAt(start, diag.LexUnterminatedString, "unterminated string literal")
		}
		b := lx.bump()
		if b == '"' {
			break
		}
		if b == '\\' {
			if lx.eof() {
				return Token{}, lx.errAt(start, diag.LexUnterminatedString, "unterminated string literal")
			}
			esc := lx.bump()
			switch esc {
			case '"', '\\':
				out = append(out, esc)
			case 'n':
				out = append(out, '\n')
			case 't':
				out = append(out, '\t')
			default:
				return Token{}, lx.errAt(lx.off-1, diag.LexBadEscape, "unknown escape \\%c", esc)
			}
			continue
		}
		out = append(out, b)
	}
	sp := lx.span(start)
	return Token{Kind: TokString, Span: sp, Text: lx.text(sp), Str: string(out)}, nil
}

func (lx *lexer) scanPunct(start uint32) (Token, *FromTextError) {
	b := lx.bump()
	text := string(b)
	switch b {
	case '-':
		if lx.peekByte() == '>' {
			lx.bump()
			text = "->"
		} else {
			return Token{}, lx.errAt(start, diag.LexUnknownChar, "unexpected character '-'")
		}
	case '{', '}', '[', ']', '<', '>', '(', ')', ',', ';', ':', '*', '!', '=', '@', '%', '?':
		// single-byte punctuation
	default:
		r, _ := utf8.DecodeRune(lx.file.Content[start:])
		return Token{}, lx.errAt(start, diag.LexUnknownChar, "unexpected character %q", r)
	}
	sp := lx.span(start)
	return Token{Kind: TokPunct, Span: sp, Text: text}, nil
}
