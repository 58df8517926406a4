package routing

import "errors"

var (
	// ErrInvalidConfig is returned by Config.Validate.
	ErrInvalidConfig = errors.New("invalid routing config")

	// ErrRouteBlocked is returned when a path crosses a blocked or
	// non-finite segment.
	ErrRouteBlocked = errors.New("route blocked")

	// ErrNoPassage is returned by Reroute when no path to the destination
	// remains.
	ErrNoPassage = errors.New("blocked, no passage")

	// ErrInvalidProgress is returned by Reroute for a segment index outside
	// the route.
	ErrInvalidProgress = errors.New("traversed segment index out of range")
)
