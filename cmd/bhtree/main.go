package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/zeusync/bhtree/internal/config"
	"github.com/zeusync/bhtree/internal/injector"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "bhtree:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	cfg, err := parseConfig(args)
	if err != nil {
		return err
	}
	if len(cfg.Trees) == 0 {
		return fmt.Errorf("no trees configured, use --config or --tree")
	}

	app, err := injector.InitializeApp(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = app.Logger.Sync() }()

	return app.Run(ctx)
}

// parseConfig loads --config when given and lets explicit flags override it.
func parseConfig(args []string) (*config.Config, error) {
	fs := pflag.NewFlagSet("bhtree", pflag.ContinueOnError)
	var (
		configPath = fs.StringP("config", "c", "", "path to the YAML configuration file")
		trees      = fs.StringArrayP("tree", "t", nil, "tree definition file (yaml, json, hcl or xml); repeatable")
		ticks      = fs.IntP("ticks", "n", 0, "stop each tree after this many ticks (0 = run until interrupted)")
		interval   = fs.DurationP("interval", "i", 0, "tick interval")
		monitor    = fs.StringP("monitor", "m", "", "serve the websocket event stream on this address")
		logLevel   = fs.StringP("log-level", "l", "", "debug, info, warn or error")
		watch      = fs.BoolP("watch", "w", false, "reload tree files when they change")
	)
	fs.SortFlags = false
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	for _, file := range *trees {
		cfg.Trees = append(cfg.Trees, config.TreeConfig{File: file})
	}
	for _, file := range fs.Args() {
		cfg.Trees = append(cfg.Trees, config.TreeConfig{File: file})
	}
	if fs.Changed("ticks") {
		cfg.Runner.MaxTicks = *ticks
	}
	if fs.Changed("interval") {
		cfg.Runner.Interval = *interval
	}
	if fs.Changed("monitor") {
		cfg.Monitor.Addr = *monitor
	}
	if fs.Changed("log-level") {
		cfg.LogLevel = *logLevel
	}
	if fs.Changed("watch") {
		cfg.Runner.Watch = *watch
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
