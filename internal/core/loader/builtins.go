package loader

import (
	"errors"
	"fmt"

	"github.com/zeusync/bhtree/internal/core/bt"
	"github.com/zeusync/bhtree/internal/core/leaves"
	"github.com/zeusync/bhtree/internal/core/observability/log"
)

// RegisterBuiltins registers every node type shipped with the module.
// logger is used by LogMessage; nil selects the process default.
func RegisterBuiltins(r *Registry, logger log.Log) error {
	builtins := map[string]Factory{
		"Sequence":    func(a Args) (bt.Node, error) { return bt.NewSequence(a.Name, a.Children...), nil },
		"Selector":    func(a Args) (bt.Node, error) { return bt.NewSelector(a.Name, a.Children...), nil },
		"MemSequence": func(a Args) (bt.Node, error) { return bt.NewMemSequence(a.Name, a.Children...), nil },
		"MemSelector": func(a Args) (bt.Node, error) { return bt.NewMemSelector(a.Name, a.Children...), nil },
		"Parallel":    newParallel,

		"Inverter":  decorator(func(a Args, ch bt.Node) (bt.Node, error) { return bt.NewInverter(a.Name, ch), nil }),
		"Succeeder": decorator(func(a Args, ch bt.Node) (bt.Node, error) { return bt.NewSucceeder(a.Name, ch), nil }),
		"Repeater":  decorator(newRepeater),
		"MaxTime":   decorator(newMaxTime),

		"Wait":    newWait,
		"Success": func(a Args) (bt.Node, error) { return bt.Succeed(a.Name), nil },
		"Failure": func(a Args) (bt.Node, error) { return bt.Fail(a.Name), nil },
		"Running": func(a Args) (bt.Node, error) { return bt.Hold(a.Name), nil },

		"LogMessage": func(a Args) (bt.Node, error) { return leaves.NewLogMessage(a.Name, a.Properties, logger) },
		"SetValue":   func(a Args) (bt.Node, error) { return leaves.NewSetValue(a.Name, a.Properties) },
		"Check":      func(a Args) (bt.Node, error) { return leaves.NewCheck(a.Name, a.Properties) },
	}

	var errs []error
	for typ, f := range builtins {
		if err := r.Register(typ, f); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func decorator(build func(a Args, child bt.Node) (bt.Node, error)) Factory {
	return func(a Args) (bt.Node, error) {
		child, err := a.Single()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", a.Type, err)
		}
		return build(a, child)
	}
}

func props(a Args) bt.Properties { return bt.NewProperties(a.Properties) }

func newParallel(a Args) (bt.Node, error) {
	policy := bt.ParallelRequireAll
	if p, ok := props(a).String("policy"); ok {
		switch p {
		case "all":
		case "one", "any":
			policy = bt.ParallelRequireOne
		default:
			return nil, fmt.Errorf("%w: parallel policy %q", ErrInvalidDefinition, p)
		}
	}
	return bt.NewParallel(a.Name, policy, a.Children...), nil
}

func newRepeater(a Args, child bt.Node) (bt.Node, error) {
	p := props(a)
	times, ok := p.Int("times")
	if !ok || times <= 0 {
		return nil, fmt.Errorf("repeater: %w", bt.ErrInvalidRepeat)
	}
	stop, _ := p.Bool("stop_on_failure")
	return bt.NewRepeater(a.Name, times, stop, child), nil
}

func newMaxTime(a Args, child bt.Node) (bt.Node, error) {
	limit, ok := props(a).Duration("max")
	if !ok || limit <= 0 {
		return nil, fmt.Errorf("%w: max_time needs a positive \"max\"", ErrInvalidDefinition)
	}
	return bt.NewMaxTime(a.Name, limit, child), nil
}

func newWait(a Args) (bt.Node, error) {
	p := props(a)
	d, ok := p.Duration("duration")
	if !ok {
		d, ok = p.Duration("milliseconds")
	}
	if !ok || d < 0 {
		return nil, fmt.Errorf("%w: wait needs a \"duration\"", ErrInvalidDefinition)
	}
	return bt.NewWait(a.Name, d), nil
}
