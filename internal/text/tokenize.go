package text

import (
	"spirit/internal/source"
)

// Tokenize scans file from the file set and returns every token up to
// and including EOF. Scanning stops at the first malformed token.
func Tokenize(fs *source.FileSet, id source.FileID) ([]Token, error) {
	file := fs.Get(id)
	lx := newLexer(fs, file)
	var out []Token
	for {
		tok, err := lx.next()
		if err != nil {
			return out, err
		}
		out = append(out, tok)
		if tok.Kind == TokEOF {
			return out, nil
		}
	}
}
