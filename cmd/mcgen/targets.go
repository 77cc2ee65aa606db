package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"mcgen/internal/target"
	"mcgen/internal/targets"
)

var (
	nameColor    = color.New(color.FgCyan, color.Bold)
	defaultColor = color.New(color.FgGreen)
	dimColor     = color.New(color.Faint)
)

func newTargetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "targets",
		Short: "List registered targets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			printTargets(cmd.OutOrStdout(), targets.NewRegistry().Entries())
			return nil
		},
	}
}

func printTargets(out io.Writer, entries []target.Entry) {
	width := 0
	for _, e := range entries {
		width = max(width, runewidth.StringWidth(e.Name))
	}
	for _, e := range entries {
		fmt.Fprintf(out, "  %s  %s\n", nameColor.Sprint(runewidth.FillRight(e.Name, width)), e.Description)
	}
}

// machineFlags registers the flags shared by layout and features.
func machineFlags(cmd *cobra.Command) {
	cmd.Flags().String("target", "", "registered target name (default: the triple's architecture)")
	cmd.Flags().String("cpu", "", "processor name")
	cmd.Flags().String("features", "", "feature string, e.g. +small-data,-duplex")
}

func constructFromFlags(cmd *cobra.Command, tripleStr string) (*target.Machine, error) {
	name, err := cmd.Flags().GetString("target")
	if err != nil {
		return nil, err
	}
	cpu, err := cmd.Flags().GetString("cpu")
	if err != nil {
		return nil, err
	}
	fs, err := cmd.Flags().GetString("features")
	if err != nil {
		return nil, err
	}
	if tripleStr == "" {
		tripleStr = name
	}
	return targets.NewRegistry().Construct(name, tripleStr, cpu, fs, target.DefaultOptions())
}

func newLayoutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "layout [flags] <triple>",
		Short: "Print the data layout of a target",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tripleStr := ""
			if len(args) == 1 {
				tripleStr = args[0]
			}
			m, err := constructFromFlags(cmd, tripleStr)
			if err != nil {
				return err
			}
			printLayout(cmd.OutOrStdout(), m)
			return nil
		},
	}
	machineFlags(cmd)
	return cmd
}

func printLayout(out io.Writer, m *target.Machine) {
	dl := m.DataLayout()
	asm := m.AsmInfo()
	fmt.Fprintf(out, "%s %s\n", nameColor.Sprint(m.Family()), m.Triple())
	fmt.Fprintf(out, "  layout    %s\n", dl)
	fmt.Fprintf(out, "  endian    %s\n", dl.Endian)
	fmt.Fprintf(out, "  pointer   %d bytes\n", dl.PointerSize())
	fmt.Fprintf(out, "  native    %d bits\n", dl.MaxNativeIntWidth())
	fmt.Fprintf(out, "  object    %s\n", m.ObjectLowering().Name())
	fmt.Fprintf(out, "  comment   %q\n", asm.CommentString)
}

func newFeaturesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "features [flags] <triple>",
		Short: "List the CPUs and features of a target",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tripleStr := ""
			if len(args) == 1 {
				tripleStr = args[0]
			}
			m, err := constructFromFlags(cmd, tripleStr)
			if err != nil {
				return err
			}
			printFeatures(cmd.OutOrStdout(), m)
			return nil
		},
	}
	machineFlags(cmd)
	return cmd
}

func printFeatures(out io.Writer, m *target.Machine) {
	table := m.Features()
	sub := m.Subtarget()

	fmt.Fprintln(out, "cpus:")
	for _, cpu := range table.CPUs {
		line := "  " + cpu.Name
		if len(cpu.Features) > 0 {
			line += dimColor.Sprintf(" (%s)", strings.Join(cpu.Features, ", "))
		}
		if cpu.Name == table.DefaultCPU {
			line += " " + defaultColor.Sprint("default")
		}
		fmt.Fprintln(out, line)
	}

	width := 0
	for _, f := range table.Features {
		width = max(width, runewidth.StringWidth(f.Name))
	}
	fmt.Fprintln(out, "features:")
	for _, f := range table.Features {
		mark := " "
		if sub.Has(f.Name) {
			mark = defaultColor.Sprint("+")
		}
		fmt.Fprintf(out, "  %s %s  %s\n", mark, runewidth.FillRight(f.Name, width), f.Desc)
	}
	if ignored := sub.Ignored(); len(ignored) > 0 {
		fmt.Fprintf(out, "ignored: %s\n", strings.Join(ignored, ", "))
	}
}
