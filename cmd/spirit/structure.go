package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"spirit/internal/driver"
)

var structureCmd = &cobra.Command{
	Use:   "structure [flags] file.sir",
	Short: "Print the control-flow skeleton of a module",
	Long: `Structure parses a textual IR file and prints its nesting of blocks,
loops and terminators, one line per region`,
	Args: cobra.ExactArgs(1),
	RunE: runStructure,
}

func runStructure(cmd *cobra.Command, args []string) error {
	opts, err := checkOptions(cmd)
	if err != nil {
		return err
	}
	// The outline needs the in-memory module, not the cached text.
	opts.Cache = nil

	fileSet, res := driver.CheckFile(args[0], opts)
	reportBag(cmd, res.Bag, fileSet)
	if res.Err != nil {
		return fmt.Errorf("structure %s: %w", args[0], res.Err)
	}
	fmt.Print(driver.StructureOutline(res.Module))
	return nil
}
