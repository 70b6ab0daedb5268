package bridge

import (
	"errors"
	"fmt"
)

var (
	// ErrNodeNotFound indicates no node with the given canonical id is on the canvas.
	ErrNodeNotFound = errors.New("node not found")

	// ErrConnectionsLocked indicates a connection was requested while in view mode.
	ErrConnectionsLocked = errors.New("connections are locked in view mode")

	// ErrNoPendingConnection indicates a wire drop without a wire being dragged.
	ErrNoPendingConnection = errors.New("no connection in progress")

	// ErrInvalidMode indicates an unknown connection mode.
	ErrInvalidMode = errors.New("invalid connection mode")
)

// ItemError reports the failure of one item during a bulk load.
type ItemError struct {
	Kind string // "node" or "edge"
	ID   string // Node id, or "source->target" for edges
	Err  error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("failed to load %s %s: %v", e.Kind, e.ID, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}

// NodeError wraps a failed operation on a single node.
type NodeError struct {
	Op     string
	NodeID string
	Err    error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("%s operation failed for node %s: %v", e.Op, e.NodeID, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}

// IsNodeNotFound checks if an error indicates a missing node.
func IsNodeNotFound(err error) bool {
	return errors.Is(err, ErrNodeNotFound)
}
