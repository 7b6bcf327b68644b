// Package loader builds behavior trees from declarative descriptions.
//
// A Definition is format independent; YAML, JSON, HCL and XML decoders all
// produce one. A Registry maps node type names to factories and turns a
// Definition into a bt.Node graph. The engine itself never sees any of this.
package loader

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

var (
	ErrUnknownNodeType    = errors.New("unknown node type")
	ErrUnsupportedFormat  = errors.New("unsupported definition format")
	ErrInvalidDefinition  = errors.New("invalid definition")
	ErrDuplicateType      = errors.New("node type already registered")
	ErrRecursiveSubtree   = errors.New("subtree includes itself")
	ErrUnexpectedChildren = errors.New("node type does not accept children")
)

// Definition describes one tree.
type Definition struct {
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Blackboard  map[string]any `json:"blackboard,omitempty" yaml:"blackboard,omitempty"`
	Root        *NodeSpec      `json:"root" yaml:"root"`
}

// NodeSpec describes one node and, recursively, its children. Decorators may
// use either Child or a single-element Children list.
type NodeSpec struct {
	Type       string         `json:"type" yaml:"type"`
	Name       string         `json:"name,omitempty" yaml:"name,omitempty"`
	Properties map[string]any `json:"properties,omitempty" yaml:"properties,omitempty"`
	Children   []*NodeSpec    `json:"children,omitempty" yaml:"children,omitempty"`
	Child      *NodeSpec      `json:"child,omitempty" yaml:"child,omitempty"`
}

// Validate checks the shape of the definition; it does not resolve types.
func (d *Definition) Validate() error {
	if d == nil {
		return fmt.Errorf("%w: nil definition", ErrInvalidDefinition)
	}
	if d.Root == nil {
		return fmt.Errorf("%w: %q has no root node", ErrInvalidDefinition, d.Name)
	}
	return d.Root.validate("root")
}

func (s *NodeSpec) validate(path string) error {
	if s == nil {
		return fmt.Errorf("%w: %s: empty node", ErrInvalidDefinition, path)
	}
	if s.Type == "" {
		return fmt.Errorf("%w: %s: node type is required", ErrInvalidDefinition, path)
	}
	if s.Child != nil && len(s.Children) > 0 {
		return fmt.Errorf("%w: %s: both child and children are set", ErrInvalidDefinition, path)
	}
	if s.Child != nil {
		if err := s.Child.validate(path + "/" + s.Child.label(0)); err != nil {
			return err
		}
	}
	for i, ch := range s.Children {
		if err := ch.validate(path + "/" + ch.label(i)); err != nil {
			return err
		}
	}
	return nil
}

func (s *NodeSpec) label(i int) string {
	if s == nil {
		return fmt.Sprintf("#%d", i)
	}
	if s.Name != "" {
		return s.Type + ":" + s.Name
	}
	return fmt.Sprintf("%s#%d", s.Type, i)
}

// Fingerprint hashes the canonical JSON form of the definition. Equal
// definitions have equal fingerprints whatever format they came from, as
// long as property values decode to the same JSON.
func (d *Definition) Fingerprint() (uint64, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return 0, fmt.Errorf("fingerprint %q: %w", d.Name, err)
	}
	return xxhash.Sum64(data), nil
}
