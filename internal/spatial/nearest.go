package spatial

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"roadnav/internal/roadgraph"
)

// NearestEdge returns the edge closest to the coordinate among the grid
// candidates around it, with its distance in meters. maxMeters <= 0 means no
// limit. ok is false when no candidate is within range.
func (gr *Grid) NearestEdge(g *roadgraph.Graph, lat, lon, maxMeters float64) (ref EdgeRef, dist float64, ok bool) {
	dist = math.Inf(1)
	seen := make(map[EdgeRef]struct{})
	for _, cand := range gr.QueryPoint(lat, lon) {
		if _, dup := seen[cand]; dup {
			continue
		}
		seen[cand] = struct{}{}

		u, okU := g.Node(cand.From)
		v, okV := g.Node(cand.To)
		if !okU || !okV {
			continue
		}
		d := pointSegmentMeters(lat, lon, u, v)
		if maxMeters > 0 && d > maxMeters {
			continue
		}
		if d < dist || (d == dist && ok && less(cand, ref)) {
			ref, dist, ok = cand, d, true
		}
	}
	return ref, dist, ok
}

// NearestNode returns the endpoint of a nearby edge closest to the
// coordinate, by great-circle distance.
func (gr *Grid) NearestNode(g *roadgraph.Graph, lat, lon, maxMeters float64) (id roadgraph.NodeID, dist float64, ok bool) {
	dist = math.Inf(1)
	probe := orb.Point{lon, lat}
	seen := make(map[roadgraph.NodeID]struct{})
	for _, cand := range gr.QueryPoint(lat, lon) {
		for _, nid := range [2]roadgraph.NodeID{cand.From, cand.To} {
			if _, dup := seen[nid]; dup {
				continue
			}
			seen[nid] = struct{}{}
			n, found := g.Node(nid)
			if !found {
				continue
			}
			d := geo.DistanceHaversine(probe, orb.Point{n.Lon, n.Lat})
			if maxMeters > 0 && d > maxMeters {
				continue
			}
			if d < dist || (d == dist && ok && nid < id) {
				id, dist, ok = nid, d, true
			}
		}
	}
	return id, dist, ok
}

// pointSegmentMeters projects onto a local equirectangular plane centered on
// the probe and returns the distance to the segment u-v.
func pointSegmentMeters(lat, lon float64, u, v *roadgraph.Node) float64 {
	k := math.Pi / 180 * orb.EarthRadius
	cosLat := math.Cos(lat * math.Pi / 180)
	ux, uy := (u.Lon-lon)*cosLat*k, (u.Lat-lat)*k
	vx, vy := (v.Lon-lon)*cosLat*k, (v.Lat-lat)*k

	dx, dy := vx-ux, vy-uy
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return math.Hypot(ux, uy)
	}
	t := -(ux*dx + uy*dy) / lenSq
	t = math.Max(0, math.Min(1, t))
	return math.Hypot(ux+t*dx, uy+t*dy)
}

func less(a, b EdgeRef) bool {
	if a.From != b.From {
		return a.From < b.From
	}
	return a.To < b.To
}
