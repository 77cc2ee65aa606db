package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mcgen/internal/target"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, configFileName)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDiscoverConfigWalksUp(t *testing.T) {
	root := t.TempDir()
	path := writeConfig(t, root, `
[target]
name = "hexagon"
triple = "hexagon-unknown-elf"
features = "+small-data"

[codegen]
small-data-threshold = 16
jobs = 2
`)
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	cfg, err := discoverConfig(nested)
	if err != nil {
		t.Fatal(err)
	}
	if cfg == nil || cfg.Path != path {
		t.Fatalf("config = %+v, want %s", cfg, path)
	}
	if cfg.Config.Target.Name != "hexagon" || cfg.Config.Target.Features != "+small-data" {
		t.Fatalf("target = %+v", cfg.Config.Target)
	}
	opts := cfg.options(target.DefaultOptions())
	if opts.SmallDataThreshold != 16 || opts.Jobs != 2 || opts.VerifyEach {
		t.Fatalf("options = %+v", opts)
	}
}

func TestDiscoverConfigMissing(t *testing.T) {
	cfg, err := discoverConfig(t.TempDir())
	if err != nil || cfg != nil {
		t.Fatalf("cfg = %+v, err = %v", cfg, err)
	}
}

func TestConfigKeepsDefaultsForUnsetKeys(t *testing.T) {
	cfg, err := loadConfig(writeConfig(t, t.TempDir(), "[codegen]\nverify-each = true\n"))
	if err != nil {
		t.Fatal(err)
	}
	opts := cfg.options(target.DefaultOptions())
	if opts.SmallDataThreshold != target.DefaultSmallDataThreshold || !opts.VerifyEach {
		t.Fatalf("options = %+v", opts)
	}
	var none *loadedConfig
	if got := none.options(target.DefaultOptions()); got != target.DefaultOptions() {
		t.Fatalf("nil config changed options: %+v", got)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		msg  string
	}{
		{"syntax", "[target\n", "failed to parse TOML"},
		{"unknown key", "[target]\narch = \"bpf\"\n", "unknown keys: target.arch"},
		{"empty name", "[target]\nname = \" \"\n", "[target].name is empty"},
		{"empty triple", "[target]\ntriple = \"\"\n", "[target].triple is empty"},
		{"negative jobs", "[codegen]\njobs = -1\n", "jobs -1 is negative"},
		{"negative threshold", "[codegen]\nsmall-data-threshold = -8\n", "negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadConfig(writeConfig(t, t.TempDir(), tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.msg) {
				t.Fatalf("err = %v, want it to contain %q", err, tt.msg)
			}
		})
	}
}
