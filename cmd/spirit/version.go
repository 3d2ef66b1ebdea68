package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"spirit/internal/version"
)

var versionFormat string

func init() {
	versionCmd.Flags().StringVar(&versionFormat, "format", "pretty", "output format (pretty|json)")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show spirit build fingerprints",
	RunE: func(cmd *cobra.Command, args []string) error {
		switch strings.ToLower(versionFormat) {
		case "pretty":
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
			return nil
		case "json":
			payload := struct {
				Tool      string `json:"tool"`
				Version   string `json:"version"`
				GitCommit string `json:"git_commit,omitempty"`
				BuildDate string `json:"build_date,omitempty"`
			}{
				Tool:      "spirit",
				Version:   version.Version,
				GitCommit: version.GitCommit,
				BuildDate: version.BuildDate,
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(payload)
		default:
			return fmt.Errorf("unsupported format %q (must be pretty or json)", versionFormat)
		}
	},
}
