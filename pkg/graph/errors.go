package graph

import (
	"errors"
	"fmt"
)

// Sentinel errors for programmatic checking via errors.Is.
var (
	// ErrDanglingEdge indicates an edge references a node id that is not in the document.
	ErrDanglingEdge = errors.New("dangling edge")

	// ErrDuplicateID indicates two nodes share the same id.
	ErrDuplicateID = errors.New("duplicate node id")

	// ErrInvalidNode indicates a node is missing required fields.
	ErrInvalidNode = errors.New("invalid node")

	// ErrMalformedFlowData indicates persisted flow data could not be parsed.
	ErrMalformedFlowData = errors.New("malformed flow data")
)

// DanglingEdgeError reports an edge whose endpoint does not exist.
type DanglingEdgeError struct {
	Edge    Edge
	Missing string // The endpoint id that could not be resolved
}

func (e *DanglingEdgeError) Error() string {
	return fmt.Sprintf("%s: %s -> %s references missing node %q", ErrDanglingEdge, e.Edge.Source, e.Edge.Target, e.Missing)
}

func (e *DanglingEdgeError) Unwrap() error {
	return ErrDanglingEdge
}

// DuplicateIDError reports a node id that occurs more than once.
type DuplicateIDError struct {
	ID string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("%s: %q", ErrDuplicateID, e.ID)
}

func (e *DuplicateIDError) Unwrap() error {
	return ErrDuplicateID
}

// IsDanglingEdge checks if an error indicates a dangling edge.
func IsDanglingEdge(err error) bool {
	return errors.Is(err, ErrDanglingEdge)
}

// IsDuplicateID checks if an error indicates a duplicate node id.
func IsDuplicateID(err error) bool {
	return errors.Is(err, ErrDuplicateID)
}
