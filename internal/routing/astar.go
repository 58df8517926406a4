// Package routing plans turn-penalized, traffic-aware routes over a
// roadgraph.Graph and turns them into driving instructions.
package routing

import (
	"container/heap"
	"math"

	"roadnav/internal/roadgraph"
)

// Path is an ordered sequence of junctions. An empty path means no route.
type Path []roadgraph.NodeID

// Stats counts the work done by a single search.
type Stats struct {
	Expanded int
	Pushed   int
	Stale    int
}

// Result is the outcome of a search. Cost is +Inf and Path empty when the
// destination is unreachable. Legs[i] is the cost of Path[i] -> Path[i+1]
// including the turn penalty paid on entering it.
type Result struct {
	Path      Path
	Cost      float64
	Legs      []float64
	Stats     Stats
	Truncated bool
}

// Found reports whether the search produced a route.
func (r Result) Found() bool { return len(r.Path) > 0 }

// state is the arrival at node coming from prev. Turn penalties depend on
// the incoming direction, so two arrivals at the same junction are distinct.
type state struct {
	prev roadgraph.NodeID
	node roadgraph.NodeID
}

// Planner runs A* searches over a graph. It reads current edge weights on
// every call, so overlay mutations are picked up without rebuilding.
type Planner struct {
	graph *roadgraph.Graph
	cfg   Config
}

// NewPlanner returns a planner over g using cfg as given.
func NewPlanner(g *roadgraph.Graph, cfg Config) *Planner {
	return &Planner{graph: g, cfg: cfg}
}

func (p *Planner) Graph() *roadgraph.Graph { return p.graph }

func (p *Planner) Config() Config { return p.cfg }

// Plan returns the cheapest path from start to end and its cost, or
// (nil, +Inf) when there is none or an endpoint is unknown.
func (p *Planner) Plan(start, end roadgraph.NodeID) (Path, float64) {
	r := p.Search(start, end)
	return r.Path, r.Cost
}

// Search is Plan with the per-leg costs and search statistics.
func (p *Planner) Search(start, end roadgraph.NodeID) Result {
	return p.SearchFrom("", start, end)
}

// SearchFrom searches as if the vehicle had just arrived at start from prev,
// so a sharp turn at start is penalized. An empty or unknown prev means no
// incoming heading.
func (p *Planner) SearchFrom(prev, start, end roadgraph.NodeID) Result {
	res := Result{Cost: math.Inf(1)}
	g := p.graph
	goal, ok := g.Node(end)
	if !ok || !g.HasNode(start) {
		return res
	}
	if start == end {
		res.Path, res.Cost, res.Legs = Path{start}, 0, []float64{}
		return res
	}
	if !g.HasNode(prev) {
		prev = ""
	}

	hCache := make(map[roadgraph.NodeID]float64)
	h := func(id roadgraph.NodeID) float64 {
		if v, ok := hCache[id]; ok {
			return v
		}
		n, _ := g.Node(id)
		v := Heuristic(n, goal)
		hCache[id] = v
		return v
	}

	origin := state{prev: prev, node: start}
	gScore := map[state]float64{origin: 0}
	previous := make(map[state]state)

	pq := &PriorityQueue{}
	heap.Init(pq)
	var seq uint64
	push := func(s state, f float64) {
		seq++
		res.Stats.Pushed++
		heap.Push(pq, &Item{State: s, Priority: f, Seq: seq})
	}
	push(origin, h(start))

	for pq.Len() > 0 {
		item := heap.Pop(pq).(*Item)
		cur := item.State
		gCur := gScore[cur]
		if item.Priority > gCur+h(cur.node)+p.cfg.StaleEpsilon {
			res.Stats.Stale++
			continue
		}

		if cur.node == end {
			states := Travel(previous, origin, cur)
			if states == nil {
				return res
			}
			path := make(Path, len(states))
			for i, s := range states {
				path[i] = s.node
			}
			res.Path = path
			res.Cost, res.Legs = pathCost(g, prev, path, p.cfg)
			return res
		}

		if p.cfg.MaxExpansions > 0 && res.Stats.Expanded >= p.cfg.MaxExpansions {
			res.Truncated = true
			return res
		}
		res.Stats.Expanded++

		for _, e := range g.Neighbors(cur.node) {
			next := state{prev: cur.node, node: e.To()}
			tentative := gCur + (e.Weight() + p.turnCost(cur.prev, cur.node, e.To()))
			if old, seen := gScore[next]; seen && tentative >= old {
				continue
			}
			if math.IsInf(tentative, 1) || math.IsNaN(tentative) {
				continue
			}
			gScore[next] = tentative
			previous[next] = cur
			push(next, tentative+h(next.node))
		}
	}
	return res
}

// turnCost is the penalty for entering u->v after arriving at u from prev.
func (p *Planner) turnCost(prev, u, v roadgraph.NodeID) float64 {
	return turnPenalty(p.graph, prev, u, v, p.cfg)
}

func turnPenalty(g *roadgraph.Graph, prev, u, v roadgraph.NodeID, cfg Config) float64 {
	if prev == "" || cfg.TurnPenalty == 0 {
		return 0
	}
	pn, ok1 := g.Node(prev)
	un, ok2 := g.Node(u)
	vn, ok3 := g.Node(v)
	if !ok1 || !ok2 || !ok3 {
		return 0
	}
	if TurnIsSharp(pn, un, vn, cfg.SharpTurnDot) {
		return cfg.TurnPenalty
	}
	return 0
}

// PathCost returns the cost of driving path under current weights with the
// turn penalties of cfg, and the cost of each leg. A missing or blocked
// segment makes the total +Inf.
func PathCost(g *roadgraph.Graph, path Path, cfg Config) (total float64, legs []float64) {
	return pathCost(g, "", path, cfg)
}

func pathCost(g *roadgraph.Graph, prev roadgraph.NodeID, path Path, cfg Config) (float64, []float64) {
	if len(path) == 0 {
		return math.Inf(1), nil
	}
	legs := make([]float64, 0, len(path)-1)
	total := 0.0
	for i := 0; i+1 < len(path); i++ {
		u, v := path[i], path[i+1]
		leg := math.Inf(1)
		if e, ok := g.FindEdge(u, v); ok {
			from := prev
			if i > 0 {
				from = path[i-1]
			}
			leg = e.Weight() + turnPenalty(g, from, u, v, cfg)
		}
		legs = append(legs, leg)
		total += leg
	}
	return total, legs
}
