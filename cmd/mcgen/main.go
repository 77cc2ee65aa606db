// Package main implements the mcgen CLI.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"mcgen/internal/prof"
	"mcgen/internal/version"
)

func newRootCmd() *cobra.Command {
	var (
		cleanup  func()
		profiler *prof.Session
	)
	root := &cobra.Command{
		Use:           "mcgen",
		Short:         "Machine-level code generation core",
		Long:          `mcgen configures target machines and lowers machine modules through their pass pipelines`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := applyColorFlag(cmd); err != nil {
				return err
			}
			var err error
			if profiler, err = setupProfiling(cmd); err != nil {
				return err
			}
			cleanup, err = setupTracing(cmd)
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if cleanup != nil {
				cleanup()
			}
			return profiler.Stop()
		},
	}

	root.AddCommand(newTargetsCmd())
	root.AddCommand(newLayoutCmd())
	root.AddCommand(newFeaturesCmd())
	root.AddCommand(newLowerCmd())
	root.AddCommand(newVersionCmd())

	root.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	root.PersistentFlags().String("trace", "", "trace output file (\"-\" for stderr)")
	root.PersistentFlags().String("trace-level", "off", "trace level (off|error|phase|detail|debug)")
	root.PersistentFlags().String("trace-mode", "stream", "trace storage (stream|ring)")
	root.PersistentFlags().Int("trace-ring-size", 4096, "ring buffer capacity for ring mode")
	root.PersistentFlags().Duration("trace-heartbeat", 0, "heartbeat interval (0 disables)")
	root.PersistentFlags().String("cpu-profile", "", "write a CPU profile to this file")
	root.PersistentFlags().String("mem-profile", "", "write a heap profile to this file on exit")
	root.PersistentFlags().String("runtime-trace", "", "write a Go runtime trace to this file")
	return root
}

// main runs the root command and exits with status 1 on error.
func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "mcgen: %v\n", err)
		os.Exit(1)
	}
}

func applyColorFlag(cmd *cobra.Command) error {
	value, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "auto":
		color.NoColor = !isTerminal(os.Stdout)
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	default:
		return fmt.Errorf("invalid --color value %q (expected auto|on|off)", value)
	}
	return nil
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
