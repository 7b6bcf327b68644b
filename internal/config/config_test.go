package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zeusync/bhtree/internal/core/observability/log"
)

func TestLoad(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "bhtree.yaml"))
	require.NoError(t, err)

	require.Equal(t, log.LevelDebug, cfg.Level())
	require.Equal(t, "127.0.0.1:8089", cfg.Monitor.Addr)
	require.Equal(t, "/ws", cfg.Monitor.Path)
	require.Equal(t, RunnerConfig{Interval: 250 * time.Millisecond, MaxTicks: 40, Watch: true}, cfg.Runner)

	require.Len(t, cfg.Trees, 2)
	main := cfg.Trees[0]
	require.Equal(t, filepath.Join("testdata", "trees", "main.yaml"), main.File)
	require.Equal(t, filepath.Join("testdata", "trees", "subtree1.xml"), main.Subtrees["Subtree1"])
	require.Equal(t, 250*time.Millisecond, cfg.TreeInterval(main))

	guard := cfg.Trees[1]
	require.Equal(t, "/srv/trees/guard.hcl", guard.File)
	require.Equal(t, time.Second, cfg.TreeInterval(guard))
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	require.Equal(t, log.LevelInfo, cfg.Level())
	require.Empty(t, cfg.Monitor.Addr)
}

func TestParseErrors(t *testing.T) {
	cases := map[string]string{
		"unknown field": "tress: []\n",
		"bad level":     "log_level: loud\n",
		"zero interval": "runner: {interval: 0s}\n",
		"negative max":  "runner: {max_ticks: -1}\n",
		"missing file":  "trees: [{name: a}]\n",
		"duplicate":     "trees: [{name: a, file: x.yaml}, {name: a, file: y.yaml}]\n",
		"bad duration":  "runner: {interval: soon}\n",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(src))
			require.Error(t, err)
		})
	}

	_, err := Parse([]byte("log_level: loud\n"))
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = Load(filepath.Join("testdata", "missing.yaml"))
	require.Error(t, err)
}
