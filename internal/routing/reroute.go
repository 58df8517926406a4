package routing

import (
	"fmt"

	"roadnav/internal/roadgraph"
)

// Route is a planned journey with its driving instructions. Blocked is set
// when the remainder could not be planned; Path then holds the part already
// driven.
type Route struct {
	Path         Path
	Cost         float64
	Legs         []float64
	Instructions []Instruction
	Blocked      bool
}

// NewRoute wraps a search result and generates its instructions.
func NewRoute(g *roadgraph.Graph, r Result) Route {
	if !r.Found() {
		return Route{Cost: r.Cost, Instructions: []Instruction{{Kind: KindBlocked}}, Blocked: true}
	}
	return Route{
		Path:         r.Path,
		Cost:         r.Cost,
		Legs:         r.Legs,
		Instructions: GenerateInstructions(g, r.Path),
	}
}

// Destination is the last junction of the route.
func (r Route) Destination() (roadgraph.NodeID, bool) {
	if len(r.Path) == 0 {
		return "", false
	}
	return r.Path[len(r.Path)-1], true
}

// Crosses reports whether the route drives u->v or v->u.
func (r Route) Crosses(u, v roadgraph.NodeID) bool {
	for i := 0; i+1 < len(r.Path); i++ {
		a, b := r.Path[i], r.Path[i+1]
		if (a == u && b == v) || (a == v && b == u) {
			return true
		}
	}
	return false
}

// Reroute plans again from the end of segment traversed to the original
// destination and splices the result behind the part already driven. The
// instructions cover the new remainder only.
// traversed is the index of the last fully driven segment, -1 when the
// vehicle is still at the start. When no passage remains the returned route
// keeps the driven prefix, is marked Blocked and the error is ErrNoPassage.
func Reroute(p *Planner, route Route, traversed int) (Route, error) {
	if len(route.Path) < 2 {
		return route, fmt.Errorf("route of %d junctions: %w", len(route.Path), ErrInvalidProgress)
	}
	if traversed < -1 || traversed > len(route.Path)-2 {
		return route, fmt.Errorf("segment %d of %d: %w", traversed, len(route.Path)-1, ErrInvalidProgress)
	}

	pos := traversed + 1
	dest := route.Path[len(route.Path)-1]
	prefix := append(Path(nil), route.Path[:pos+1]...)
	var prefixLegs []float64
	if len(route.Legs) >= pos {
		prefixLegs = append(prefixLegs, route.Legs[:pos]...)
	} else {
		_, legs := PathCost(p.Graph(), prefix, p.Config())
		prefixLegs = legs
	}
	driven := 0.0
	for _, l := range prefixLegs {
		driven += l
	}

	var heading roadgraph.NodeID
	if pos > 0 {
		heading = route.Path[pos-1]
	}
	res := p.SearchFrom(heading, route.Path[pos], dest)
	if !res.Found() {
		return Route{
			Path:         prefix,
			Cost:         res.Cost,
			Legs:         prefixLegs,
			Instructions: []Instruction{{Kind: KindBlocked}},
			Blocked:      true,
		}, fmt.Errorf("reroute %s to %s: %w", route.Path[pos], dest, ErrNoPassage)
	}

	path := append(prefix[:len(prefix)-1:len(prefix)-1], res.Path...)
	legs := append(prefixLegs[:len(prefixLegs):len(prefixLegs)], res.Legs...)
	return Route{
		Path:         path,
		Cost:         driven + res.Cost,
		Legs:         legs,
		Instructions: GenerateInstructions(p.Graph(), res.Path),
	}, nil
}
