package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"spirit/internal/diag"
	"spirit/internal/diagfmt"
	"spirit/internal/driver"
	"spirit/internal/project"
	"spirit/internal/source"
)

func useColor(cmd *cobra.Command, f *os.File) bool {
	flag, _ := cmd.Root().PersistentFlags().GetString("color")
	switch strings.ToLower(flag) {
	case "on":
		return true
	case "off":
		return false
	default:
		return isTerminal(f)
	}
}

// reportBag prints diagnostics to stderr in a stable order.
func reportBag(cmd *cobra.Command, bag *diag.Bag, fs *source.FileSet) {
	if bag == nil || bag.Len() == 0 {
		return
	}
	bag.Sort()
	bag.Dedup()
	diagfmt.Pretty(os.Stderr, bag, fs, diagfmt.PrettyOpts{
		Color:   useColor(cmd, os.Stderr),
		Context: 2,
	})
}

// checkOptions assembles driver options from flags, layered over the
// project manifest when one is found above the working directory.
func checkOptions(cmd *cobra.Command) (driver.Options, error) {
	manifest := project.DefaultManifest()
	if path, ok, err := project.FindManifest("."); err != nil {
		return driver.Options{}, err
	} else if ok {
		manifest, err = project.LoadManifest(path)
		if err != nil {
			return driver.Options{}, err
		}
	}

	opts := driver.Options{
		Jobs:           manifest.Build.Jobs,
		MaxDiagnostics: manifest.Build.MaxDiagnostics,
	}
	if cmd.Root().PersistentFlags().Changed("max-diagnostics") {
		maxDiags, err := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
		if err != nil {
			return driver.Options{}, err
		}
		opts.MaxDiagnostics = maxDiags
	}
	if manifest.Build.Cache {
		cache, err := driver.OpenDiskCache()
		if err != nil {
			return driver.Options{}, fmt.Errorf("open cache: %w", err)
		}
		opts.Cache = cache
	}
	return opts, nil
}

func quiet(cmd *cobra.Command) bool {
	q, _ := cmd.Root().PersistentFlags().GetBool("quiet")
	return q
}

func showTimings(cmd *cobra.Command) bool {
	t, _ := cmd.Root().PersistentFlags().GetBool("timings")
	return t
}
