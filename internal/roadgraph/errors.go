package roadgraph

import "errors"

var (
	// ErrInvalidNode is returned for an empty id or non-finite coordinates.
	ErrInvalidNode = errors.New("invalid node")

	// ErrDuplicateNode is returned when a node id is added twice.
	ErrDuplicateNode = errors.New("duplicate node id")

	// ErrNodeNotFound is returned when an edge references a missing node.
	ErrNodeNotFound = errors.New("node not found")

	// ErrInvalidWeight is returned for a non-positive or non-finite base weight.
	ErrInvalidWeight = errors.New("base weight must be positive and finite")

	// ErrEdgeNotFound is returned by the overlay when neither direction of
	// a road exists.
	ErrEdgeNotFound = errors.New("edge not found")

	// ErrInvalidFactor is returned for a jam factor that is not a positive
	// finite number.
	ErrInvalidFactor = errors.New("jam factor must be positive and finite")
)
