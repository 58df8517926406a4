package roadgraph

import (
	"fmt"
	"math"
	"sort"
)

// DefaultJamFactor is the weight multiplier of a jammed road.
const DefaultJamFactor = 5.0

// Pair is a directed (from, to) reference to a road.
type Pair struct {
	From NodeID
	To   NodeID
}

// Disruption describes a road currently deviating from its base weight.
type Disruption struct {
	From       NodeID
	To         NodeID
	Status     EdgeStatus
	Multiplier float64
}

// Overlay mutates edge weights and statuses in place and remembers which
// roads it touched so that ResetAll can restore them exactly.
type Overlay struct {
	graph     *Graph
	jamFactor float64
	affected  map[Pair]struct{}
}

// NewOverlay returns an overlay over g. A non-positive jamFactor falls back
// to DefaultJamFactor.
func NewOverlay(g *Graph, jamFactor float64) *Overlay {
	if !(jamFactor > 0) || math.IsInf(jamFactor, 0) {
		jamFactor = DefaultJamFactor
	}
	return &Overlay{
		graph:     g,
		jamFactor: jamFactor,
		affected:  make(map[Pair]struct{}),
	}
}

// JamFactor is the factor used when ApplyJam is called with factor 0.
func (o *Overlay) JamFactor() float64 { return o.jamFactor }

// ApplyJam multiplies the base weight of u->v and v->u by factor. A zero
// factor means the overlay's default.
func (o *Overlay) ApplyJam(u, v NodeID, factor float64) error {
	if factor == 0 {
		factor = o.jamFactor
	}
	if !(factor > 0) || math.IsInf(factor, 0) {
		return fmt.Errorf("jam %s-%s: %w", u, v, ErrInvalidFactor)
	}
	return o.update(u, v, StatusJammed, factor)
}

// BlockRoad makes u->v and v->u impassable.
func (o *Overlay) BlockRoad(u, v NodeID) error {
	return o.update(u, v, StatusBlocked, math.Inf(1))
}

// ClearRoad restores a single road in both directions.
func (o *Overlay) ClearRoad(u, v NodeID) error {
	if len(o.graph.EdgesBetween(u, v)) == 0 && len(o.graph.EdgesBetween(v, u)) == 0 {
		return fmt.Errorf("clear %s-%s: %w", u, v, ErrEdgeNotFound)
	}
	o.resetPair(u, v)
	delete(o.affected, Pair{u, v})
	delete(o.affected, Pair{v, u})
	return nil
}

// ResetAll restores every affected road to its base weight and normal status.
func (o *Overlay) ResetAll() {
	for p := range o.affected {
		o.resetPair(p.From, p.To)
	}
	clear(o.affected)
}

// Affected returns the recorded roads with the state of their forward edge,
// sorted by (From, To).
func (o *Overlay) Affected() []Disruption {
	out := make([]Disruption, 0, len(o.affected))
	for p := range o.affected {
		d := Disruption{From: p.From, To: p.To, Status: StatusNormal, Multiplier: 1}
		if e, ok := o.firstEdge(p.From, p.To); ok {
			d.Status, d.Multiplier = e.status, e.multiplier
		} else if e, ok := o.firstEdge(p.To, p.From); ok {
			d.Status, d.Multiplier = e.status, e.multiplier
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out
}

// Len is the number of recorded roads.
func (o *Overlay) Len() int { return len(o.affected) }

func (o *Overlay) update(u, v NodeID, status EdgeStatus, multiplier float64) error {
	forward := o.graph.EdgesBetween(u, v)
	reverse := o.graph.EdgesBetween(v, u)
	if len(forward) == 0 && len(reverse) == 0 {
		return fmt.Errorf("%s %s-%s: %w", status, u, v, ErrEdgeNotFound)
	}
	for _, e := range forward {
		e.set(status, multiplier)
	}
	for _, e := range reverse {
		e.set(status, multiplier)
	}
	o.affected[Pair{u, v}] = struct{}{}
	return nil
}

func (o *Overlay) resetPair(u, v NodeID) {
	for _, e := range o.graph.EdgesBetween(u, v) {
		e.reset()
	}
	for _, e := range o.graph.EdgesBetween(v, u) {
		e.reset()
	}
}

func (o *Overlay) firstEdge(u, v NodeID) (*Edge, bool) {
	for _, e := range o.graph.edges[u] {
		if e.to == v {
			return e, true
		}
	}
	return nil, false
}
