package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"mcgen/internal/targets"
	"mcgen/internal/version"
)

type versionPayload struct {
	Tool      string   `json:"tool"`
	Version   string   `json:"version"`
	Targets   []string `json:"targets"`
	GitCommit string   `json:"git_commit,omitempty"`
	BuildDate string   `json:"build_date,omitempty"`
	GoVersion string   `json:"go_version,omitempty"`
	Modified  bool     `json:"modified,omitempty"`
}

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show mcgen build metadata and compiled-in targets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := cmd.Flags().GetString("format")
			if err != nil {
				return err
			}
			full, err := cmd.Flags().GetBool("full")
			if err != nil {
				return err
			}
			payload := buildVersionPayload(version.Current(), targets.NewRegistry().Names(), full)
			switch strings.ToLower(format) {
			case "pretty":
				return renderVersionPretty(cmd.OutOrStdout(), payload)
			case "json":
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(payload)
			}
			return fmt.Errorf("unsupported format %q (must be pretty or json)", format)
		},
	}
	cmd.Flags().Bool("full", false, "include commit, build date and toolchain")
	cmd.Flags().String("format", "pretty", "output format (pretty|json)")
	return cmd
}

func buildVersionPayload(info version.Info, names []string, full bool) versionPayload {
	p := versionPayload{Tool: "mcgen", Version: info.Version, Targets: names}
	if full {
		p.GitCommit = orUnknown(info.GitCommit)
		p.BuildDate = orUnknown(info.BuildDate)
		p.GoVersion = info.GoVersion
		p.Modified = info.Modified
	}
	return p
}

func renderVersionPretty(out io.Writer, p versionPayload) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "mcgen %s\n", version.Colored(p.Version))
	fmt.Fprintf(&sb, "targets: %s\n", strings.Join(p.Targets, ", "))
	if p.GitCommit != "" {
		commit := p.GitCommit
		if p.Modified {
			commit += " (modified)"
		}
		fmt.Fprintf(&sb, "commit:  %s\n", commit)
		fmt.Fprintf(&sb, "built:   %s\n", p.BuildDate)
	}
	if p.GoVersion != "" {
		fmt.Fprintf(&sb, "go:      %s\n", p.GoVersion)
	}
	_, err := io.WriteString(out, sb.String())
	return err
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
