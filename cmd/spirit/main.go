// Package main implements the spirit CLI.
package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"spirit/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "spirit",
	Short: "Shader IR toolchain",
	Long:  `Spirit parses, validates, round-trips and lowers textual shader IR modules`,
}

func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(tokenizeCmd)
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(roundtripCmd)
	rootCmd.AddCommand(structureCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("quiet", false, "suppress non-essential output")
	rootCmd.PersistentFlags().Bool("timings", false, "show timing information")
	rootCmd.PersistentFlags().Int("max-diagnostics", 100, "maximum number of diagnostics to show")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
