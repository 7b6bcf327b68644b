package main

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseConfigFlags(t *testing.T) {
	cfg, err := parseConfig([]string{
		"--tree", "a.yaml",
		"-t", "b.hcl",
		"--ticks", "10",
		"--interval", "50ms",
		"--monitor", ":8089",
		"--log-level", "debug",
		"--watch",
		"c.xml",
	})
	require.NoError(t, err)

	files := make([]string, 0, len(cfg.Trees))
	for _, tc := range cfg.Trees {
		files = append(files, tc.File)
	}
	require.Equal(t, []string{"a.yaml", "b.hcl", "c.xml"}, files)
	require.Equal(t, 10, cfg.Runner.MaxTicks)
	require.Equal(t, 50*time.Millisecond, cfg.Runner.Interval)
	require.True(t, cfg.Runner.Watch)
	require.Equal(t, ":8089", cfg.Monitor.Addr)
	require.Equal(t, "debug", cfg.LogLevel)
}

func TestParseConfigFileWithOverrides(t *testing.T) {
	path := filepath.Join("..", "..", "examples", "trees", "bhtree.yaml")
	cfg, err := parseConfig([]string{"--config", path, "--ticks", "2"})
	require.NoError(t, err)
	require.Equal(t, 2, cfg.Runner.MaxTicks)
	require.NotEmpty(t, cfg.Trees)
	require.Equal(t, filepath.Join("..", "..", "examples", "trees", "main.yaml"), cfg.Trees[0].File)
}

func TestParseConfigRejectsBadValues(t *testing.T) {
	_, err := parseConfig([]string{"--log-level", "loud", "a.yaml"})
	require.Error(t, err)

	_, err = parseConfig([]string{"--interval", "0s", "a.yaml"})
	require.Error(t, err)

	_, err = parseConfig([]string{"--bogus"})
	require.Error(t, err)
}
