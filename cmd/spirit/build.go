package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"spirit/internal/driver"
	"spirit/internal/pipeline"
)

var buildCmd = &cobra.Command{
	Use:   "build [flags] path",
	Short: "Lower textual IR to LLVM assembly",
	Long: `Build checks one file, or every .sir file under a directory, and writes
the lowered LLVM assembly next to each source as a .ll file`,
	Args: cobra.ExactArgs(1),
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringP("output", "o", "", "output path (single file only; - for stdout)")
	buildCmd.Flags().String("ui", "auto", "progress UI (auto|on|off)")
}

func runBuild(cmd *cobra.Command, args []string) error {
	opts, err := checkOptions(cmd)
	if err != nil {
		return err
	}
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	uiValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return err
	}
	mode, err := readUIMode(uiValue)
	if err != nil {
		return err
	}

	info, err := os.Stat(args[0])
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return buildOne(cmd, args[0], output, opts)
	}
	if output != "" {
		return fmt.Errorf("--output only applies to a single file")
	}
	return buildDir(cmd, args[0], opts, mode)
}

func buildOne(cmd *cobra.Command, path, output string, opts driver.Options) error {
	fileSet, res := driver.BuildFile(path, opts)
	reportBag(cmd, res.Bag, fileSet)
	if res.Err != nil {
		return fmt.Errorf("build %s: %w", path, res.Err)
	}
	if showTimings(cmd) {
		fmt.Fprintf(os.Stderr, "%s: %s\n", path, res.Elapsed)
	}
	if output == "-" {
		fmt.Print(res.Assembly)
		return nil
	}
	if output == "" {
		output = outputPath(path)
	}
	if err := os.WriteFile(output, []byte(res.Assembly), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}
	if !quiet(cmd) {
		fmt.Fprintf(os.Stdout, "wrote %s\n", output)
	}
	return nil
}

func buildDir(cmd *cobra.Command, dir string, opts driver.Options, mode uiMode) error {
	files, err := driver.ListFiles(dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		if !quiet(cmd) {
			fmt.Fprintf(os.Stdout, "no %s files under %s\n", driver.FileExt, dir)
		}
		return nil
	}

	build := func(sink pipeline.Sink) error {
		buildOpts := opts
		buildOpts.Sink = sink
		failed := 0
		for _, path := range files {
			fileSet, res := driver.BuildFile(path, buildOpts)
			reportBag(cmd, res.Bag, fileSet)
			if res.Err != nil {
				failed++
				continue
			}
			if err := os.WriteFile(outputPath(path), []byte(res.Assembly), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", outputPath(path), err)
			}
		}
		if failed > 0 {
			return fmt.Errorf("build: %d of %d files failed", failed, len(files))
		}
		return nil
	}

	if shouldUseTUI(mode) {
		return runWithUI(fmt.Sprintf("building %s", dir), files, build)
	}
	return build(opts.Sink)
}

func outputPath(path string) string {
	return strings.TrimSuffix(path, driver.FileExt) + ".ll"
}

func readUIMode(value string) (uiMode, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "auto":
		return uiModeAuto, nil
	case "on":
		return uiModeOn, nil
	case "off":
		return uiModeOff, nil
	default:
		return "", fmt.Errorf("invalid --ui value %q (expected auto|on|off)", value)
	}
}

type uiMode string

const (
	uiModeAuto uiMode = "auto"
	uiModeOn   uiMode = "on"
	uiModeOff  uiMode = "off"
)

func shouldUseTUI(mode uiMode) bool {
	switch mode {
	case uiModeOn:
		return true
	case uiModeOff:
		return false
	default:
		return isTerminal(os.Stdout)
	}
}
