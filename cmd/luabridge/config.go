package main

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"
)

const defaultLogLevel = "warn"

// fileConfig mirrors luabridge.toml.
type fileConfig struct {
	ScriptPaths []string `toml:"script_paths"`
	LogLevel    string   `toml:"log_level"`
	OpenLibs    *bool    `toml:"open_libs"`
}

func defaultFileConfig() fileConfig {
	return fileConfig{LogLevel: defaultLogLevel}
}

// openLibs defaults to true; scripts run from the command line expect the
// string and table libraries.
func (c fileConfig) openLibs() bool {
	return c.OpenLibs == nil || *c.OpenLibs
}

// loadFileConfig decodes path. Relative script paths resolve against the
// config file's directory and unknown keys are rejected.
func loadFileConfig(path string) (fileConfig, error) {
	cfg := defaultFileConfig()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return fileConfig{}, fmt.Errorf("config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, key := range undecoded {
			keys[i] = key.String()
		}
		sort.Strings(keys)
		return fileConfig{}, fmt.Errorf("config %s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	dir := filepath.Dir(path)
	for i, p := range cfg.ScriptPaths {
		if !filepath.IsAbs(p) {
			cfg.ScriptPaths[i] = filepath.Join(dir, p)
		}
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaultLogLevel
	}
	return cfg, nil
}

func newLogger(level string) (*zap.Logger, error) {
	atomic, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = atomic
	cfg.DisableStacktrace = true
	return cfg.Build()
}
