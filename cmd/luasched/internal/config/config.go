// Package config loads the luasched CLI configuration file.
//
// Example:
//
//	scheduler:
//	  workers: 8
//	  blocking_workers: 32
//	  spawn_budget: 10000
//	  sleep_floor: 0.004
//	kv:
//	  dir: ./data
//	log:
//	  level: debug
//	  format: json
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/haivivi/luasched/pkg/luasched"
)

// Config is the top-level CLI configuration.
type Config struct {
	Scheduler luasched.Config `yaml:"scheduler"`
	KV        KV              `yaml:"kv"`
	Log       Log             `yaml:"log"`
}

// KV selects the store behind the kv builtins. An empty Dir keeps data in
// memory for the duration of the run.
type KV struct {
	Dir string `yaml:"dir"`
}

type Log struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// Default returns the configuration used without a config file.
func Default() *Config {
	return &Config{
		Scheduler: luasched.DefaultConfig(),
		Log:       Log{Level: "info", Format: "text"},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if _, err := cfg.Log.level(); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func (l Log) level() (slog.Level, error) {
	var lvl slog.Level
	if l.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("log level %q: %w", l.Level, err)
	}
	return lvl, nil
}

// Logger builds the logger described by l. verbose forces debug level.
func (l Log) Logger(w io.Writer, verbose bool) *slog.Logger {
	lvl, err := l.level()
	if err != nil {
		lvl = slog.LevelInfo
	}
	if verbose {
		lvl = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
