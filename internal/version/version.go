// Package version carries build metadata for the spirit CLI.
package version

import (
	"strings"

	"github.com/fatih/color"
)

// These variables can be overridden at build time via -ldflags.

var (
	versionMajorColor = color.New(color.FgYellow, color.Bold)
	versionMinorColor = color.New(color.FgGreen, color.Bold)
	versionPatchColor = color.New(color.FgBlue, color.Bold)

	// Version is the semantic version of the CLI.
	Version = versionMajorColor.Sprint("0") + "." + versionMinorColor.Sprint("1") + "." + versionPatchColor.Sprint("0") + "-dev"

	// GitCommit is an optional git commit hash.
	GitCommit = ""

	// BuildDate is an optional build date in ISO-8601.
	BuildDate = ""
)

// String assembles the full version line, appending commit and build
// date when they were stamped in.
func String() string {
	var b strings.Builder
	b.WriteString("spirit ")
	b.WriteString(Version)
	if GitCommit != "" {
		b.WriteString(" (")
		b.WriteString(GitCommit)
		b.WriteString(")")
	}
	if BuildDate != "" {
		b.WriteString(" built ")
		b.WriteString(BuildDate)
	}
	return b.String()
}
