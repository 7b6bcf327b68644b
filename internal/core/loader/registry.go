package loader

import (
	"fmt"
	"sort"
	"sync"

	"github.com/zeusync/bhtree/internal/core/bt"
)

// Args is what a Factory receives: the node configuration plus its already
// built children.
type Args struct {
	Type       string
	Name       string
	Properties map[string]any
	Children   []bt.Node
	Path       string
}

// Single returns the only child, for decorators. Zero children is reported
// as bt.ErrMissingChild.
func (a Args) Single() (bt.Node, error) {
	switch len(a.Children) {
	case 0:
		return nil, bt.ErrMissingChild
	case 1:
		return a.Children[0], nil
	default:
		return nil, fmt.Errorf("%w: %s takes one child, got %d", ErrInvalidDefinition, a.Type, len(a.Children))
	}
}

// Factory builds a node of one registered type.
type Factory func(args Args) (bt.Node, error)

// Registry maps node type names to factories. It is populated before any
// definition is built and is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	subtrees  map[string]*Definition
}

func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		subtrees:  make(map[string]*Definition),
	}
}

// Register adds a factory. Type names are unique.
func (r *Registry) Register(typ string, f Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[typ]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateType, typ)
	}
	if _, exists := r.subtrees[typ]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateType, typ)
	}
	r.factories[typ] = f
	return nil
}

// RegisterSubtree makes a whole definition usable as a node type. Each use
// builds a fresh copy so no node is ever shared between parents.
func (r *Registry) RegisterSubtree(typ string, def *Definition) error {
	if err := def.Validate(); err != nil {
		return fmt.Errorf("subtree %s: %w", typ, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[typ]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateType, typ)
	}
	if _, exists := r.subtrees[typ]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateType, typ)
	}
	r.subtrees[typ] = def
	return nil
}

// Clone returns an independent registry with the same types, so callers can
// add subtrees without affecting the original.
func (r *Registry) Clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c := NewRegistry()
	for t, f := range r.factories {
		c.factories[t] = f
	}
	for t, d := range r.subtrees {
		c.subtrees[t] = d
	}
	return c
}

// Types lists the registered node types, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.factories)+len(r.subtrees))
	for t := range r.factories {
		types = append(types, t)
	}
	for t := range r.subtrees {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

func (r *Registry) lookup(typ string) (Factory, *Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if f, ok := r.factories[typ]; ok {
		return f, nil, true
	}
	if d, ok := r.subtrees[typ]; ok {
		return nil, d, true
	}
	return nil, nil, false
}

// Build turns a definition into a node graph.
func (r *Registry) Build(def *Definition) (bt.Node, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	b := &builder{reg: r, active: make(map[string]bool)}
	return b.build(def.Root, "root")
}

// BuildTree builds the nodes and wraps them in a bt.Tree whose blackboard is
// seeded from the definition. opts are applied after the definition's name.
func (r *Registry) BuildTree(def *Definition, opts ...bt.TreeOption) (*bt.Tree, error) {
	root, err := r.Build(def)
	if err != nil {
		return nil, err
	}
	all := make([]bt.TreeOption, 0, len(opts)+1)
	if def.Name != "" {
		all = append(all, bt.WithName(def.Name))
	}
	all = append(all, opts...)
	return bt.NewTree(root, bt.NewBlackboard(def.Blackboard), all...)
}

// propertyMerger is satisfied by every node embedding bt.BaseNode.
type propertyMerger interface {
	MergeProperties(props map[string]any)
}

type builder struct {
	reg    *Registry
	active map[string]bool
}

func (b *builder) build(spec *NodeSpec, path string) (bt.Node, error) {
	factory, subtree, ok := b.reg.lookup(spec.Type)
	if !ok {
		return nil, fmt.Errorf("%s: %w: %s", path, ErrUnknownNodeType, spec.Type)
	}

	if subtree != nil {
		if len(spec.Children) > 0 || spec.Child != nil {
			return nil, fmt.Errorf("%s: %w: subtree %s", path, ErrUnexpectedChildren, spec.Type)
		}
		if b.active[spec.Type] {
			return nil, fmt.Errorf("%s: %w: %s", path, ErrRecursiveSubtree, spec.Type)
		}
		b.active[spec.Type] = true
		defer delete(b.active, spec.Type)
		root := *subtree.Root
		if spec.Name != "" {
			root.Name = spec.Name
		}
		return b.build(&root, path+"/"+root.label(0))
	}

	specs := spec.Children
	if spec.Child != nil {
		specs = []*NodeSpec{spec.Child}
	}
	children := make([]bt.Node, 0, len(specs))
	for i, cs := range specs {
		ch, err := b.build(cs, path+"/"+cs.label(i))
		if err != nil {
			return nil, err
		}
		children = append(children, ch)
	}

	node, err := factory(Args{
		Type:       spec.Type,
		Name:       spec.Name,
		Properties: spec.Properties,
		Children:   children,
		Path:       path,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if _, isParent := node.(bt.Parent); !isParent && len(children) > 0 {
		return nil, fmt.Errorf("%s: %w: %s", path, ErrUnexpectedChildren, spec.Type)
	}
	if m, ok := node.(propertyMerger); ok {
		m.MergeProperties(spec.Properties)
	}
	return node, nil
}
