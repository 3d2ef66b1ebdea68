package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"spirit/internal/driver"
	"spirit/internal/ir"
	"spirit/internal/text"
)

var roundtripCmd = &cobra.Command{
	Use:   "roundtrip [flags] file.sir",
	Short: "Verify print-parse-print stability of a textual IR file",
	Long: `Roundtrip parses a file, prints it canonically, reparses the canonical
text and prints again. The two canonical prints must match byte for byte.`,
	Args: cobra.ExactArgs(1),
	RunE: runRoundtrip,
}

func runRoundtrip(cmd *cobra.Command, args []string) error {
	opts, err := checkOptions(cmd)
	if err != nil {
		return err
	}
	// The cache short-circuits the second parse; skip it here.
	opts.Cache = nil

	fileSet, res := driver.CheckFile(args[0], opts)
	reportBag(cmd, res.Bag, fileSet)
	if res.Err != nil {
		return fmt.Errorf("roundtrip %s: %w", args[0], res.Err)
	}

	reparsed, err := text.ParseModule(args[0], res.Canonical, ir.NewContext())
	if err != nil {
		return fmt.Errorf("reparse canonical text of %s: %w", args[0], err)
	}
	second := text.PrintModule(reparsed)
	if second != res.Canonical {
		return fmt.Errorf("roundtrip %s: canonical text is not a fixed point", args[0])
	}
	if !quiet(cmd) {
		fmt.Fprintf(os.Stdout, "%s: round trip stable (%d bytes canonical)\n", args[0], len(res.Canonical))
	}
	return nil
}
