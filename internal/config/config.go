// Package config holds the application configuration of the bhtree runner.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zeusync/bhtree/internal/core/observability/log"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	LogLevel string        `yaml:"log_level"`
	Monitor  MonitorConfig `yaml:"monitor"`
	Runner   RunnerConfig  `yaml:"runner"`
	Trees    []TreeConfig  `yaml:"trees"`
}

// MonitorConfig enables the websocket event stream when Addr is set.
type MonitorConfig struct {
	Addr string `yaml:"addr"`
	Path string `yaml:"path"`
}

type RunnerConfig struct {
	// Interval is the default tick period for trees that do not set one.
	Interval time.Duration `yaml:"interval"`
	// MaxTicks stops a tree after that many ticks; zero means unlimited.
	MaxTicks int `yaml:"max_ticks"`
	// Watch reloads tree files when they change on disk.
	Watch bool `yaml:"watch"`
}

// TreeConfig names one tree to run. Subtrees maps node type names to
// definition files that are registered before File is built.
type TreeConfig struct {
	Name     string            `yaml:"name"`
	File     string            `yaml:"file"`
	Interval time.Duration     `yaml:"interval"`
	Subtrees map[string]string `yaml:"subtrees"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Monitor:  MonitorConfig{Path: "/ws"},
		Runner:   RunnerConfig{Interval: 100 * time.Millisecond},
	}
}

// Load reads a YAML file over the defaults. Relative tree and subtree paths
// are resolved against the directory of the file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.resolve(filepath.Dir(path))
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) resolve(dir string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}
	for i := range c.Trees {
		c.Trees[i].File = abs(c.Trees[i].File)
		for typ, p := range c.Trees[i].Subtrees {
			c.Trees[i].Subtrees[typ] = abs(p)
		}
	}
}

func (c *Config) Validate() error {
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Runner.Interval <= 0 {
		return fmt.Errorf("%w: runner.interval must be positive", ErrInvalidConfig)
	}
	if c.Runner.MaxTicks < 0 {
		return fmt.Errorf("%w: runner.max_ticks must not be negative", ErrInvalidConfig)
	}
	seen := make(map[string]bool, len(c.Trees))
	for i, t := range c.Trees {
		if t.File == "" {
			return fmt.Errorf("%w: trees[%d]: file is required", ErrInvalidConfig, i)
		}
		if t.Interval < 0 {
			return fmt.Errorf("%w: trees[%d]: interval must not be negative", ErrInvalidConfig, i)
		}
		name := t.Name
		if name == "" {
			name = t.File
		}
		if seen[name] {
			return fmt.Errorf("%w: duplicate tree %q", ErrInvalidConfig, name)
		}
		seen[name] = true
	}
	return nil
}

// Level returns the parsed log level; Validate guarantees it is valid.
func (c *Config) Level() log.Level {
	level, _ := log.ParseLevel(c.LogLevel)
	return level
}

// TreeInterval is t.Interval or the runner default.
func (c *Config) TreeInterval(t TreeConfig) time.Duration {
	if t.Interval > 0 {
		return t.Interval
	}
	return c.Runner.Interval
}
