package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"spirit/internal/driver"
)

var parseCmd = &cobra.Command{
	Use:   "parse [flags] file.sir",
	Short: "Parse and validate a textual IR file",
	Long:  `Parse checks a textual IR file and prints its canonical form`,
	Args:  cobra.ExactArgs(1),
	RunE:  runParse,
}

func init() {
	parseCmd.Flags().Bool("print", true, "print the canonical module text")
}

func runParse(cmd *cobra.Command, args []string) error {
	opts, err := checkOptions(cmd)
	if err != nil {
		return err
	}

	fileSet, res := driver.CheckFile(args[0], opts)
	reportBag(cmd, res.Bag, fileSet)
	if res.Err != nil {
		return fmt.Errorf("parse %s: %w", args[0], res.Err)
	}
	if showTimings(cmd) {
		fmt.Fprintf(os.Stderr, "%s: %s\n", args[0], res.Elapsed)
	}
	if doPrint, _ := cmd.Flags().GetBool("print"); doPrint && !quiet(cmd) {
		fmt.Print(res.Canonical)
	}
	return nil
}
