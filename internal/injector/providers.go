package injector

import (
	"github.com/google/wire"

	"github.com/zeusync/bhtree/internal/config"
	"github.com/zeusync/bhtree/internal/core/events/bus"
	"github.com/zeusync/bhtree/internal/core/loader"
	"github.com/zeusync/bhtree/internal/core/observability/log"
	"github.com/zeusync/bhtree/internal/monitor"
	"github.com/zeusync/bhtree/internal/runner"
)

// ProviderSet wires an App from a *config.Config.
var ProviderSet = wire.NewSet(
	ProvideLogger,
	ProvideBus,
	ProvideRegistry,
	ProvideRunner,
	ProvideMonitor,
	wire.Struct(new(App), "*"),
)

func ProvideLogger(cfg *config.Config) log.Log {
	return log.New(cfg.Level())
}

func ProvideBus() bus.EventBus {
	return bus.New()
}

// ProvideRegistry returns a registry holding every built-in node type.
func ProvideRegistry(logger log.Log) (*loader.Registry, error) {
	reg := loader.NewRegistry()
	if err := loader.RegisterBuiltins(reg, logger); err != nil {
		return nil, err
	}
	return reg, nil
}

func ProvideRunner(cfg *config.Config, reg *loader.Registry, events bus.EventBus, logger log.Log) *runner.Runner {
	return runner.New(cfg.Runner, reg, events, logger)
}

// ProvideMonitor always builds the server; App starts it only when an
// address is configured.
func ProvideMonitor(cfg *config.Config, events bus.EventBus, logger log.Log) *monitor.Server {
	return monitor.New(events, logger, cfg.Monitor.Path)
}
