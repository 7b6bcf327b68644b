package bt

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// NodeID identifies a node for its whole lifetime. It keys the open-node bookkeeping.
type NodeID = uuid.UUID

// Category tags the structural role of a node. It never changes behavior.
type Category string

const (
	CategoryComposite Category = "composite"
	CategoryDecorator Category = "decorator"
	CategoryAction    Category = "action"
	CategoryCondition Category = "condition"
)

// Node is the contract every behavior tree node implements.
//
// Start runs once when the node leaves the closed state, Run runs on every
// visit and End runs once when the node returns a terminal status or is
// aborted. Nodes are built once and reused across ticks; all per-activation
// state belongs in Tick.Memory or the blackboard.
type Node interface {
	ID() NodeID
	Name() string
	Category() Category
	Properties() Properties

	Start(t *Tick) error
	Run(t *Tick) (Status, error)
	End(t *Tick) error
}

// Parent is implemented by nodes that own children (composites and decorators).
type Parent interface {
	Children() []Node
}

// BaseNode carries identity and configuration. Embed it in custom nodes and
// implement Run; Start and End default to no-ops.
type BaseNode struct {
	id       NodeID
	name     string
	category Category
	props    Properties
}

// NewBaseNode assigns a fresh identity.
func NewBaseNode(name string, category Category, props map[string]any) BaseNode {
	return BaseNode{
		id:       uuid.New(),
		name:     name,
		category: category,
		props:    NewProperties(props),
	}
}

func (b *BaseNode) ID() NodeID             { return b.id }
func (b *BaseNode) Name() string           { return b.name }
func (b *BaseNode) Category() Category     { return b.category }
func (b *BaseNode) Properties() Properties { return b.props }
func (b *BaseNode) Start(*Tick) error      { return nil }
func (b *BaseNode) End(*Tick) error        { return nil }

// MergeProperties adds the keys of props that b does not already carry.
// Loaders call it at build time, before the node joins a tree.
func (b *BaseNode) MergeProperties(props map[string]any) {
	if len(props) == 0 {
		return
	}
	if b.props.values == nil {
		b.props.values = make(map[string]any, len(props))
	}
	for k, v := range props {
		if _, ok := b.props.values[k]; !ok {
			b.props.values[k] = v
		}
	}
}

func (b *BaseNode) String() string {
	if b.name != "" {
		return b.name
	}
	return string(b.category) + ":" + b.id.String()[:8]
}

// Properties is a read-only view over the configuration a node was built with.
type Properties struct {
	values map[string]any
}

// NewProperties copies values so later mutation of the source map has no effect.
func NewProperties(values map[string]any) Properties {
	if len(values) == 0 {
		return Properties{}
	}
	cp := make(map[string]any, len(values))
	for k, v := range values {
		cp[k] = v
	}
	return Properties{values: cp}
}

func (p Properties) Get(key string) (any, bool) {
	v, ok := p.values[key]
	return v, ok
}

func (p Properties) Has(key string) bool {
	_, ok := p.values[key]
	return ok
}

func (p Properties) Len() int { return len(p.values) }

// Map returns a copy of the underlying values.
func (p Properties) Map() map[string]any {
	cp := make(map[string]any, len(p.values))
	for k, v := range p.values {
		cp[k] = v
	}
	return cp
}

func (p Properties) String(key string) (string, bool) {
	v, ok := p.values[key]
	if !ok {
		return "", false
	}
	switch vv := v.(type) {
	case string:
		return vv, true
	case fmt.Stringer:
		return vv.String(), true
	default:
		return fmt.Sprint(vv), true
	}
}

func (p Properties) Int(key string) (int, bool) {
	v, ok := p.values[key]
	if !ok {
		return 0, false
	}
	switch vv := v.(type) {
	case int:
		return vv, true
	case int64:
		return int(vv), true
	case int32:
		return int(vv), true
	case uint64:
		return int(vv), true
	case float64:
		return int(vv), true
	case float32:
		return int(vv), true
	case string:
		n, err := strconv.Atoi(vv)
		return n, err == nil
	default:
		return 0, false
	}
}

func (p Properties) Float(key string) (float64, bool) {
	v, ok := p.values[key]
	if !ok {
		return 0, false
	}
	switch vv := v.(type) {
	case float64:
		return vv, true
	case float32:
		return float64(vv), true
	case int:
		return float64(vv), true
	case int64:
		return float64(vv), true
	case string:
		f, err := strconv.ParseFloat(vv, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func (p Properties) Bool(key string) (bool, bool) {
	v, ok := p.values[key]
	if !ok {
		return false, false
	}
	switch vv := v.(type) {
	case bool:
		return vv, true
	case string:
		b, err := strconv.ParseBool(vv)
		return b, err == nil
	default:
		return false, false
	}
}

// Duration accepts time.Duration values, duration strings ("1.5s") and bare
// numbers, which are read as milliseconds.
func (p Properties) Duration(key string) (time.Duration, bool) {
	v, ok := p.values[key]
	if !ok {
		return 0, false
	}
	switch vv := v.(type) {
	case time.Duration:
		return vv, true
	case string:
		if d, err := time.ParseDuration(vv); err == nil {
			return d, true
		}
		ms, err := strconv.ParseFloat(vv, 64)
		if err != nil {
			return 0, false
		}
		return time.Duration(ms * float64(time.Millisecond)), true
	}
	if ms, ok := p.Float(key); ok {
		return time.Duration(ms * float64(time.Millisecond)), true
	}
	return 0, false
}
