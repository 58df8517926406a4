// Package spatial is a fixed-resolution spatial hash over the edges of a road
// graph. It answers "which roads are near this point" and "which roads are in
// this box" without scanning the whole network.
//
// An edge is registered in the cell of each endpoint only; long edges are not
// rasterized along their length, which is sufficient for dense street grids.
// The grid is built once from a graph snapshot and is read-only afterwards, so
// it may be queried from multiple goroutines. Weight and status changes do not
// invalidate it; adding or removing nodes or edges requires a rebuild.
package spatial

import (
	"math"
	"sort"

	"github.com/paulmach/orb"

	"roadnav/internal/roadgraph"
)

// Default grid resolution.
const (
	DefaultRows = 50
	DefaultCols = 50
)

// EdgeRef identifies a directed edge by its endpoints.
type EdgeRef struct {
	From roadgraph.NodeID
	To   roadgraph.NodeID
}

type cell struct{ row, col int }

// Grid is the spatial hash.
type Grid struct {
	rows, cols int
	bound      orb.Bound
	latStep    float64
	lonStep    float64
	cells      map[cell][]EdgeRef
	refs       int
}

// Build indexes every edge of g on a rows x cols grid over the node bounding
// box. Non-positive dimensions fall back to the defaults.
func Build(g *roadgraph.Graph, rows, cols int) *Grid {
	if rows <= 0 {
		rows = DefaultRows
	}
	if cols <= 0 {
		cols = DefaultCols
	}
	b := g.Bounds()
	grid := &Grid{
		rows:    rows,
		cols:    cols,
		bound:   b,
		latStep: step(b.Max.Lat()-b.Min.Lat(), rows),
		lonStep: step(b.Max.Lon()-b.Min.Lon(), cols),
		cells:   make(map[cell][]EdgeRef),
	}

	g.Edges(func(from roadgraph.NodeID, e *roadgraph.Edge) bool {
		u, okU := g.Node(from)
		v, okV := g.Node(e.To())
		if !okU || !okV {
			return true
		}
		ref := EdgeRef{From: from, To: e.To()}
		cu := grid.cellOf(u.Lat, u.Lon)
		cv := grid.cellOf(v.Lat, v.Lon)
		grid.add(cu, ref)
		if cu != cv {
			grid.add(cv, ref)
		}
		return true
	})
	return grid
}

// step returns the cell size for an axis. A degenerate axis gets 1.0 so that
// every coordinate lands in the first cell instead of dividing by zero.
func step(span float64, n int) float64 {
	s := span / float64(n)
	if s <= 0 || math.IsNaN(s) || math.IsInf(s, 0) {
		return 1.0
	}
	return s
}

func (gr *Grid) add(c cell, ref EdgeRef) {
	gr.cells[c] = append(gr.cells[c], ref)
	gr.refs++
}

// Dims returns the number of rows and columns.
func (gr *Grid) Dims() (rows, cols int) { return gr.rows, gr.cols }

// References is the total number of edge registrations across all cells.
func (gr *Grid) References() int { return gr.refs }

// CellOf returns the clamped cell indices containing the coordinate.
func (gr *Grid) CellOf(lat, lon float64) (row, col int) {
	c := gr.cellOf(lat, lon)
	return c.row, c.col
}

func (gr *Grid) cellOf(lat, lon float64) cell {
	r := int(math.Floor((lat - gr.bound.Min.Lat()) / gr.latStep))
	c := int(math.Floor((lon - gr.bound.Min.Lon()) / gr.lonStep))
	return cell{row: clamp(r, 0, gr.rows-1), col: clamp(c, 0, gr.cols-1)}
}

// QueryPoint returns the edges registered in the 3x3 block of cells around
// the coordinate. An edge may appear more than once.
func (gr *Grid) QueryPoint(lat, lon float64) []EdgeRef {
	center := gr.cellOf(lat, lon)
	var out []EdgeRef
	for dr := -1; dr <= 1; dr++ {
		for dc := -1; dc <= 1; dc++ {
			r, c := center.row+dr, center.col+dc
			if r < 0 || r >= gr.rows || c < 0 || c >= gr.cols {
				continue
			}
			out = append(out, gr.cells[cell{r, c}]...)
		}
	}
	return out
}

// QueryBBox returns the distinct edges registered in every cell intersecting
// the box, sorted by (From, To).
func (gr *Grid) QueryBBox(minLat, maxLat, minLon, maxLon float64) []EdgeRef {
	a := gr.cellOf(minLat, minLon)
	b := gr.cellOf(maxLat, maxLon)
	r0, r1 := min(a.row, b.row), max(a.row, b.row)
	c0, c1 := min(a.col, b.col), max(a.col, b.col)

	seen := make(map[EdgeRef]struct{})
	for r := r0; r <= r1; r++ {
		for c := c0; c <= c1; c++ {
			for _, ref := range gr.cells[cell{r, c}] {
				seen[ref] = struct{}{}
			}
		}
	}
	out := make([]EdgeRef, 0, len(seen))
	for ref := range seen {
		out = append(out, ref)
	}
	sortRefs(out)
	return out
}

func sortRefs(refs []EdgeRef) {
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].From != refs[j].From {
			return refs[i].From < refs[j].From
		}
		return refs[i].To < refs[j].To
	})
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
