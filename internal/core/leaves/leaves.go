// Package leaves holds reusable leaf nodes built on the bt engine. They are
// ordinary user leaves: the engine knows nothing about them.
package leaves

import (
	"errors"
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/zeusync/bhtree/internal/core/bt"
	"github.com/zeusync/bhtree/internal/core/observability/log"
)

var (
	ErrMissingProperty = errors.New("missing required property")
	ErrNotBoolean      = errors.New("expression did not evaluate to a boolean")
)

// LogMessage writes its "text" property to the logger and succeeds.
type LogMessage struct {
	bt.BaseNode
	logger log.Log
	text   string
	level  log.Level
}

// NewLogMessage reads "text" and the optional "level" property.
func NewLogMessage(name string, props map[string]any, logger log.Log) (*LogMessage, error) {
	n := &LogMessage{BaseNode: bt.NewBaseNode(name, bt.CategoryAction, props), logger: logger, level: log.LevelInfo}
	n.text, _ = n.Properties().String("text")
	if lvl, ok := n.Properties().String("level"); ok {
		parsed, err := log.ParseLevel(lvl)
		if err != nil {
			return nil, fmt.Errorf("log message %q: %w", name, err)
		}
		n.level = parsed
	}
	if n.logger == nil {
		n.logger = log.Provide()
	}
	return n, nil
}

func (n *LogMessage) Run(t *bt.Tick) (bt.Status, error) {
	if n.text != "" {
		n.logger.Log(n.level, n.text, log.String("node", n.Name()), log.Uint64("seq", t.Seq()))
	}
	return bt.StatusSuccess, nil
}

// SetValue writes its "value" property under its "key" property.
type SetValue struct {
	bt.BaseNode
	key   string
	value any
}

func NewSetValue(name string, props map[string]any) (*SetValue, error) {
	n := &SetValue{BaseNode: bt.NewBaseNode(name, bt.CategoryAction, props)}
	key, ok := n.Properties().String("key")
	if !ok || key == "" {
		return nil, fmt.Errorf("set value %q: key: %w", name, ErrMissingProperty)
	}
	n.key = key
	n.value, _ = n.Properties().Get("value")
	return n, nil
}

func (n *SetValue) Run(t *bt.Tick) (bt.Status, error) {
	t.Blackboard().Set(n.key, n.value)
	return bt.StatusSuccess, nil
}

// Check is a condition written as an expr-lang expression over the
// blackboard, e.g. `hp < 30 && enemy_visible`. Unknown keys evaluate to nil.
type Check struct {
	bt.BaseNode
	source  string
	program *vm.Program
}

// NewCheck compiles the "expr" property; a bad expression is a build error.
func NewCheck(name string, props map[string]any) (*Check, error) {
	n := &Check{BaseNode: bt.NewBaseNode(name, bt.CategoryCondition, props)}
	src, ok := n.Properties().String("expr")
	if !ok || src == "" {
		return nil, fmt.Errorf("check %q: expr: %w", name, ErrMissingProperty)
	}
	program, err := expr.Compile(src, expr.AsBool(), expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("check %q: compile %q: %w", name, src, err)
	}
	n.source = src
	n.program = program
	return n, nil
}

func (n *Check) Expression() string { return n.source }

func (n *Check) Run(t *bt.Tick) (bt.Status, error) {
	out, err := expr.Run(n.program, t.Blackboard().Snapshot())
	if err != nil {
		return bt.StatusFailure, fmt.Errorf("check %q: %w", n.Name(), err)
	}
	ok, isBool := out.(bool)
	if !isBool {
		return bt.StatusFailure, fmt.Errorf("check %q: %w", n.Name(), ErrNotBoolean)
	}
	if ok {
		return bt.StatusSuccess, nil
	}
	return bt.StatusFailure, nil
}
