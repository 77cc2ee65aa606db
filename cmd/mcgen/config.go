package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"mcgen/internal/target"
)

const configFileName = "mcgen.toml"

type projectConfig struct {
	Target  targetConfig  `toml:"target"`
	Codegen codegenConfig `toml:"codegen"`
}

type targetConfig struct {
	Name     string `toml:"name"`
	Triple   string `toml:"triple"`
	CPU      string `toml:"cpu"`
	Features string `toml:"features"`
}

type codegenConfig struct {
	SmallDataThreshold int  `toml:"small-data-threshold"`
	VerifyEach         bool `toml:"verify-each"`
	Jobs               int  `toml:"jobs"`
}

// loadedConfig is a decoded mcgen.toml together with which keys it set.
type loadedConfig struct {
	Path   string
	Config projectConfig
	meta   toml.MetaData
}

func (c *loadedConfig) defined(key ...string) bool {
	return c != nil && c.meta.IsDefined(key...)
}

// options folds the [codegen] table over base.
func (c *loadedConfig) options(base target.Options) target.Options {
	if c.defined("codegen", "small-data-threshold") {
		base.SmallDataThreshold = c.Config.Codegen.SmallDataThreshold
	}
	if c.defined("codegen", "verify-each") {
		base.VerifyEach = c.Config.Codegen.VerifyEach
	}
	if c.defined("codegen", "jobs") {
		base.Jobs = c.Config.Codegen.Jobs
	}
	return base
}

func findConfigFile(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, configFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// discoverConfig loads the nearest mcgen.toml at or above startDir.
// A missing file is not an error; the result is then nil.
func discoverConfig(startDir string) (*loadedConfig, error) {
	path, ok, err := findConfigFile(startDir)
	if err != nil || !ok {
		return nil, err
	}
	return loadConfig(path)
}

func loadConfig(path string) (*loadedConfig, error) {
	var cfg projectConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if meta.IsDefined("target", "name") && strings.TrimSpace(cfg.Target.Name) == "" {
		return nil, fmt.Errorf("%s: [target].name is empty", path)
	}
	if meta.IsDefined("target", "triple") && strings.TrimSpace(cfg.Target.Triple) == "" {
		return nil, fmt.Errorf("%s: [target].triple is empty", path)
	}
	lc := &loadedConfig{Path: path, Config: cfg, meta: meta}
	if err := lc.options(target.DefaultOptions()).Validate(); err != nil {
		return nil, fmt.Errorf("%s: [codegen]: %w", path, err)
	}
	return lc, nil
}
