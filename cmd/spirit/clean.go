package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"spirit/internal/driver"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Drop the pipeline disk cache",
	Args:  cobra.NoArgs,
	RunE:  runClean,
}

func runClean(cmd *cobra.Command, _ []string) error {
	cache, err := driver.OpenDiskCache()
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	if err := cache.DropAll(); err != nil {
		return err
	}
	if !quiet(cmd) {
		fmt.Fprintf(os.Stdout, "dropped cache at %s\n", cache.Dir())
	}
	return nil
}
