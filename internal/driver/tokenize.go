package driver

import (
	"spirit/internal/source"
	"spirit/internal/text"
)

// TokenizeFile loads path and scans it. On a lex error the tokens
// collected so far are still returned alongside the error.
func TokenizeFile(path string) (*source.FileSet, source.FileID, []text.Token, error) {
	fileSet := source.NewFileSet()
	id, err := fileSet.Load(path)
	if err != nil {
		return fileSet, 0, nil, err
	}
	tokens, err := text.Tokenize(fileSet, id)
	return fileSet, id, tokens, err
}
