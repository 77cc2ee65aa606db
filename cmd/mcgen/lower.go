package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"mcgen/internal/lowerpipeline"
	"mcgen/internal/observ"
	"mcgen/internal/target"
	"mcgen/internal/targets"
)

var warnColor = color.New(color.FgYellow)

func newLowerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lower [flags] <module>",
		Short: "Lower a machine module through its target pipeline",
		Long: `Lower reads a machine module (.toml text or .mcb binary), configures the
target machine and runs its pass pipeline. Settings from the nearest mcgen.toml
apply unless overridden by flags.`,
		Args: cobra.ExactArgs(1),
		RunE: lowerExecution,
	}
	machineFlags(cmd)
	cmd.Flags().String("triple", "", "target triple (default: the module's triple)")
	cmd.Flags().String("emit", "text", "output format (text|toml|msgpack)")
	cmd.Flags().StringP("output", "o", "", "output file (default: stdout)")
	cmd.Flags().Bool("timings", false, "print stage and pass timings to stderr")
	mode := uiAuto
	cmd.Flags().Var(&mode, "ui", "progress view (auto|on|off)")
	cmd.Flags().String("cache-dir", "", "reuse lowered modules from this directory")
	cmd.Flags().Int("jobs", 0, "functions lowered in parallel (0 = GOMAXPROCS)")
	cmd.Flags().Bool("verify-each", false, "run the verifier after every pass")
	cmd.Flags().Int("small-data-threshold", target.DefaultSmallDataThreshold, "largest constant placed in small data, in bytes")
	cmd.Flags().String("config", "", "configuration file (default: nearest mcgen.toml)")
	return cmd
}

// buildLowerRequest merges mcgen.toml with the flags that were set explicitly.
func buildLowerRequest(cmd *cobra.Command, input string) (*lowerpipeline.Request, error) {
	flags := cmd.Flags()
	configPath, err := flags.GetString("config")
	if err != nil {
		return nil, err
	}
	var cfg *loadedConfig
	if configPath != "" {
		cfg, err = loadConfig(configPath)
	} else {
		cfg, err = discoverConfig(filepath.Dir(input))
	}
	if err != nil {
		return nil, err
	}

	req := &lowerpipeline.Request{Input: input, Options: cfg.options(target.DefaultOptions())}
	if cfg != nil {
		t := cfg.Config.Target
		req.Target, req.Triple, req.CPU, req.Features = t.Name, t.Triple, t.CPU, t.Features
	}

	strs := []struct {
		flag string
		dst  *string
	}{
		{"target", &req.Target},
		{"triple", &req.Triple},
		{"cpu", &req.CPU},
		{"features", &req.Features},
	}
	for _, s := range strs {
		if !flags.Changed(s.flag) {
			continue
		}
		if *s.dst, err = flags.GetString(s.flag); err != nil {
			return nil, err
		}
	}
	if flags.Changed("jobs") {
		if req.Options.Jobs, err = flags.GetInt("jobs"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("small-data-threshold") {
		if req.Options.SmallDataThreshold, err = flags.GetInt("small-data-threshold"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("verify-each") {
		if req.Options.VerifyEach, err = flags.GetBool("verify-each"); err != nil {
			return nil, err
		}
	}

	emitValue, err := flags.GetString("emit")
	if err != nil {
		return nil, err
	}
	emit, ok := lowerpipeline.ParseEmitFormat(strings.ToLower(emitValue))
	if !ok {
		return nil, fmt.Errorf("invalid --emit value %q (expected text|toml|msgpack)", emitValue)
	}
	req.Emit = emit

	cacheDir, err := flags.GetString("cache-dir")
	if err != nil {
		return nil, err
	}
	if cacheDir != "" {
		if req.Cache, err = lowerpipeline.OpenDiskCache(cacheDir); err != nil {
			return nil, err
		}
	}
	return req, nil
}

func lowerExecution(cmd *cobra.Command, args []string) error {
	input := args[0]
	req, err := buildLowerRequest(cmd, input)
	if err != nil {
		return err
	}
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	showTimings, err := cmd.Flags().GetBool("timings")
	if err != nil {
		return err
	}
	mode := uiAuto
	if f := cmd.Flags().Lookup("ui"); f != nil {
		mode = *f.Value.(*uiMode)
	}
	if req.Emit == lowerpipeline.EmitMsgpack && (outputPath == "" || outputPath == "-") && isTerminal(os.Stdout) {
		return fmt.Errorf("refusing to write binary output to a terminal; use -o")
	}

	var out bytes.Buffer
	req.Output = &out
	if showTimings {
		req.Timer = observ.NewTimer()
	}

	reg := targets.NewRegistry()
	var res lowerpipeline.Result
	if mode.enabled(outputPath) {
		res, err = runLowerWithUI(cmd.Context(), "lower "+filepath.Base(input), reg, req)
	} else {
		res, err = lowerpipeline.Lower(cmd.Context(), reg, req)
	}
	if err != nil {
		return err
	}

	stderr := cmd.ErrOrStderr()
	for _, tok := range res.Ignored {
		warnColor.Fprintf(stderr, "warning: '%s' is not a recognized feature or processor for %s; ignoring\n", tok, res.Machine.Family())
	}
	if res.CacheHit {
		fmt.Fprintf(stderr, "%s: reused cached result\n", input)
	}

	if outputPath == "" || outputPath == "-" {
		if _, err := cmd.OutOrStdout().Write(out.Bytes()); err != nil {
			return err
		}
	} else if err := os.WriteFile(outputPath, out.Bytes(), 0o644); err != nil {
		return err
	}

	if showTimings {
		return printStageTimings(stderr, res.Timings, req.Timer)
	}
	return nil
}
