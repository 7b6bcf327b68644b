package bt

import (
	"fmt"
	"strings"
)

// Validate checks that root forms a proper tree: no nil nodes, every node has
// an identity, every decorator has its child and no node is reachable twice.
// Cycles are reported as shared nodes.
func Validate(root Node) error {
	seen := make(map[NodeID][]string)
	return validate(root, []string{label(root, 0)}, seen)
}

func validate(n Node, path []string, seen map[NodeID][]string) error {
	where := strings.Join(path, "/")
	if isNil(n) {
		return fmt.Errorf("%s: %w", where, ErrNilNode)
	}
	id := n.ID()
	if id == (NodeID{}) {
		return fmt.Errorf("%s: %w", where, ErrUninitializedNode)
	}
	if first, dup := seen[id]; dup {
		return fmt.Errorf("%s (first seen at %s): %w", where, strings.Join(first, "/"), ErrSharedNode)
	}
	seen[id] = path

	if d, ok := n.(interface{ Child() Node }); ok && isNil(d.Child()) {
		return fmt.Errorf("%s: %w", where, ErrMissingChild)
	}
	p, ok := n.(Parent)
	if !ok {
		return nil
	}
	for i, ch := range p.Children() {
		childPath := append(path[:len(path):len(path)], label(ch, i))
		if err := validate(ch, childPath, seen); err != nil {
			return err
		}
	}
	return nil
}

func label(n Node, i int) string {
	if isNil(n) {
		return fmt.Sprintf("#%d", i)
	}
	if name := n.Name(); name != "" {
		return name
	}
	return fmt.Sprintf("%s#%d", n.Category(), i)
}
