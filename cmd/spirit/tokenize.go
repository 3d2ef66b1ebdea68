package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"spirit/internal/diagfmt"
	"spirit/internal/driver"
)

var tokenizeCmd = &cobra.Command{
	Use:   "tokenize [flags] file.sir",
	Short: "Tokenize a textual IR file",
	Long:  `Tokenize scans a textual IR file and dumps its token stream`,
	Args:  cobra.ExactArgs(1),
	RunE:  runTokenize,
}

func init() {
	tokenizeCmd.Flags().String("format", "pretty", "output format (pretty|json)")
}

func runTokenize(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}

	fileSet, _, tokens, lexErr := driver.TokenizeFile(args[0])
	if lexErr != nil && len(tokens) == 0 {
		return fmt.Errorf("tokenize %s: %w", args[0], lexErr)
	}

	switch format {
	case "pretty":
		err = diagfmt.FormatTokensPretty(os.Stdout, tokens, fileSet)
	case "json":
		err = diagfmt.FormatTokensJSON(os.Stdout, tokens)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
	if err != nil {
		return err
	}
	if lexErr != nil {
		return fmt.Errorf("tokenize %s: %w", args[0], lexErr)
	}
	return nil
}
