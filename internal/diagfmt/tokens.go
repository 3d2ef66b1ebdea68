package diagfmt

import (
	"encoding/json"
	"fmt"
	"io"

	"spirit/internal/source"
	"spirit/internal/text"
)

// TokenOutput is the JSON shape of one token.
type TokenOutput struct {
	Kind string      `json:"kind"`
	Text string      `json:"text,omitempty"`
	Span source.Span `json:"span"`
}

func tokenKindName(k text.TokKind) string {
	switch k {
	case text.TokEOF:
		return "eof"
	case text.TokInt:
		return "int"
	case text.TokIdent:
		return "ident"
	case text.TokString:
		return "string"
	case text.TokPunct:
		return "punct"
	}
	return "unknown"
}

// FormatTokensPretty writes one line per token with its position.
func FormatTokensPretty(w io.Writer, tokens []text.Token, fs *source.FileSet) error {
	for i, tok := range tokens {
		start := fs.Position(tok.Span.File, tok.Span.Start)
		end := fs.Position(tok.Span.File, tok.Span.End)

		if _, err := fmt.Fprintf(w, "%3d: %-8s", i+1, tokenKindName(tok.Kind)); err != nil {
			return err
		}
		if tok.Text != "" {
			if _, err := fmt.Fprintf(w, " %q", tok.Text); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, " at %d:%d-%d:%d\n",
			start.Line, start.Col, end.Line, end.Col); err != nil {
			return err
		}
	}
	return nil
}

// FormatTokensJSON writes the token stream as a JSON array.
func FormatTokensJSON(w io.Writer, tokens []text.Token) error {
	output := make([]TokenOutput, 0, len(tokens))
	for _, tok := range tokens {
		output = append(output, TokenOutput{
			Kind: tokenKindName(tok.Kind),
			Text: tok.Text,
			Span: tok.Span,
		})
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}
