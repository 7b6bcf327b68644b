package bt

import "errors"

var (
	// ErrMissingChild is returned when a decorator has no child to delegate to.
	ErrMissingChild = errors.New("decorator has no child")
	// ErrSharedNode is returned when a node is reachable more than once from a root.
	ErrSharedNode = errors.New("node is reachable more than once")
	// ErrNilNode is returned when a nil node is found where a node is required.
	ErrNilNode = errors.New("nil node")
	// ErrNilRoot is returned by NewTree when no root is given.
	ErrNilRoot = errors.New("tree has no root")
	// ErrUninitializedNode is returned for nodes that were not built with NewBaseNode.
	ErrUninitializedNode = errors.New("node has no identity")
	// ErrInvalidStatus is returned when a Run hook reports a status outside the enumeration.
	ErrInvalidStatus = errors.New("invalid status")
	// ErrInvalidRepeat is returned by a Repeater configured with a non-positive count.
	ErrInvalidRepeat = errors.New("repeat count must be positive")
)
