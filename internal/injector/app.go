package injector

import (
	"context"
	"errors"
	"time"

	"github.com/zeusync/bhtree/internal/config"
	"github.com/zeusync/bhtree/internal/core/events/bus"
	"github.com/zeusync/bhtree/internal/core/loader"
	"github.com/zeusync/bhtree/internal/core/observability/log"
	"github.com/zeusync/bhtree/internal/monitor"
	"github.com/zeusync/bhtree/internal/runner"
)

// App is the assembled process: configuration, logger, bus, registry,
// runner and monitor.
type App struct {
	Config   *config.Config
	Logger   log.Log
	Bus      bus.EventBus
	Registry *loader.Registry
	Runner   *runner.Runner
	Monitor  *monitor.Server
}

// Run loads the configured trees, starts the monitor if an address is set and
// blocks in the runner until ctx is done or every tree hit its tick limit.
func (a *App) Run(ctx context.Context) (err error) {
	for _, tc := range a.Config.Trees {
		if err = a.Runner.Load(tc); err != nil {
			return err
		}
	}

	if a.Config.Monitor.Addr != "" {
		if err = a.Monitor.Start(a.Config.Monitor.Addr); err != nil {
			return err
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			err = errors.Join(err, a.Monitor.Stop(stopCtx))
		}()
	}

	return a.Runner.Run(ctx)
}
