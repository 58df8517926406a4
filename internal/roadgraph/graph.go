package roadgraph

import (
	"fmt"
	"math"
	"sort"

	"github.com/paulmach/orb"
)

// Graph is a directed weighted multigraph of junctions and road segments.
type Graph struct {
	nodes   map[NodeID]*Node
	edges   map[NodeID][]*Edge
	streets map[string][]NodeID
	nEdges  int
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		nodes:   make(map[NodeID]*Node),
		edges:   make(map[NodeID][]*Edge),
		streets: make(map[string][]NodeID),
	}
}

// AddNode adds a junction.
func (g *Graph) AddNode(id NodeID, lat, lon float64) error {
	if id == "" || !finite(lat) || !finite(lon) {
		return fmt.Errorf("add node %q: %w", id, ErrInvalidNode)
	}
	if _, ok := g.nodes[id]; ok {
		return fmt.Errorf("add node %q: %w", id, ErrDuplicateNode)
	}
	g.nodes[id] = &Node{ID: id, Lat: lat, Lon: lon}
	g.edges[id] = nil
	return nil
}

// AddEdge adds a directed edge u->v. Both endpoints must exist.
func (g *Graph) AddEdge(u, v NodeID, baseWeight float64, class RoadClass, name string) error {
	if _, ok := g.nodes[u]; !ok {
		return fmt.Errorf("add edge %s->%s: source: %w", u, v, ErrNodeNotFound)
	}
	if _, ok := g.nodes[v]; !ok {
		return fmt.Errorf("add edge %s->%s: target: %w", u, v, ErrNodeNotFound)
	}
	if !finite(baseWeight) || baseWeight <= 0 {
		return fmt.Errorf("add edge %s->%s: %w", u, v, ErrInvalidWeight)
	}
	if class == "" {
		class = ClassUnknown
	}
	if name == "" {
		name = UnknownRoadName
	}
	g.edges[u] = append(g.edges[u], &Edge{
		to:         v,
		baseWeight: baseWeight,
		weight:     baseWeight,
		multiplier: 1,
		class:      class,
		name:       name,
		status:     StatusNormal,
	})
	g.nEdges++
	if name != UnknownRoadName {
		g.indexStreet(name, u)
	}
	return nil
}

// AddRoad adds u->v and, unless oneway, v->u with the same attributes.
func (g *Graph) AddRoad(u, v NodeID, baseWeight float64, class RoadClass, name string, oneway bool) error {
	if err := g.AddEdge(u, v, baseWeight, class, name); err != nil {
		return err
	}
	if oneway {
		return nil
	}
	return g.AddEdge(v, u, baseWeight, class, name)
}

func (g *Graph) indexStreet(name string, u NodeID) {
	key := NormalizeStreetName(name)
	if key == "" {
		return
	}
	for _, id := range g.streets[key] {
		if id == u {
			return
		}
	}
	g.streets[key] = append(g.streets[key], u)
}

// Neighbors returns the outgoing edges of u, or nil if u is unknown.
// The returned slice belongs to the graph and must not be modified.
func (g *Graph) Neighbors(u NodeID) []*Edge {
	return g.edges[u]
}

// Node returns the junction with the given id.
func (g *Graph) Node(id NodeID) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

func (g *Graph) HasNode(id NodeID) bool {
	_, ok := g.nodes[id]
	return ok
}

func (g *Graph) NodeCount() int { return len(g.nodes) }

func (g *Graph) EdgeCount() int { return g.nEdges }

// Nodes returns all node ids in sorted order.
func (g *Graph) Nodes() []NodeID {
	ids := make([]NodeID, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Edges calls fn for every edge, sources in sorted order. Iteration stops
// when fn returns false.
func (g *Graph) Edges(fn func(from NodeID, e *Edge) bool) {
	for _, u := range g.Nodes() {
		for _, e := range g.edges[u] {
			if !fn(u, e) {
				return
			}
		}
	}
}

// EdgesBetween returns every parallel edge u->v.
func (g *Graph) EdgesBetween(u, v NodeID) []*Edge {
	var out []*Edge
	for _, e := range g.edges[u] {
		if e.to == v {
			out = append(out, e)
		}
	}
	return out
}

// FindEdge returns the cheapest edge u->v under current weights.
func (g *Graph) FindEdge(u, v NodeID) (*Edge, bool) {
	var best *Edge
	for _, e := range g.edges[u] {
		if e.to != v {
			continue
		}
		if best == nil || e.weight < best.weight {
			best = e
		}
	}
	return best, best != nil
}

// LookupStreet returns the source junctions of edges carrying the name.
func (g *Graph) LookupStreet(name string) []NodeID {
	ids := g.streets[NormalizeStreetName(name)]
	out := make([]NodeID, len(ids))
	copy(out, ids)
	return out
}

// Bounds returns the bounding box of all nodes. X is longitude, Y latitude.
func (g *Graph) Bounds() orb.Bound {
	first := true
	var b orb.Bound
	for _, n := range g.nodes {
		p := orb.Point{n.Lon, n.Lat}
		if first {
			b = p.Bound()
			first = false
			continue
		}
		b = b.Extend(p)
	}
	return b
}

// KeepLargestComponent keeps only the largest weakly connected component and
// drops edges pointing outside of it. Ties keep the component containing the
// smallest node id.
func (g *Graph) KeepLargestComponent() (kept, removed int) {
	undirected := make(map[NodeID][]NodeID, len(g.nodes))
	for u, es := range g.edges {
		for _, e := range es {
			if _, ok := g.nodes[e.to]; !ok {
				continue
			}
			undirected[u] = append(undirected[u], e.to)
			undirected[e.to] = append(undirected[e.to], u)
		}
	}

	visited := make(map[NodeID]bool, len(g.nodes))
	var largest map[NodeID]bool
	for _, start := range g.Nodes() {
		if visited[start] {
			continue
		}
		component := map[NodeID]bool{start: true}
		visited[start] = true
		stack := []NodeID{start}
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for _, nb := range undirected[cur] {
				if !visited[nb] {
					visited[nb] = true
					component[nb] = true
					stack = append(stack, nb)
				}
			}
		}
		if len(component) > len(largest) {
			largest = component
		}
	}

	for id := range g.nodes {
		if !largest[id] {
			delete(g.nodes, id)
			delete(g.edges, id)
			removed++
		}
	}
	g.nEdges = 0
	for u, es := range g.edges {
		cleaned := es[:0]
		for _, e := range es {
			if largest[e.to] {
				cleaned = append(cleaned, e)
			}
		}
		g.edges[u] = cleaned
		g.nEdges += len(cleaned)
	}
	for key, ids := range g.streets {
		cleaned := ids[:0]
		for _, id := range ids {
			if largest[id] {
				cleaned = append(cleaned, id)
			}
		}
		if len(cleaned) == 0 {
			delete(g.streets, key)
			continue
		}
		g.streets[key] = cleaned
	}
	return len(g.nodes), removed
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
