package routing

import (
	"roadnav/internal/roadgraph"
)

// Reachable splits the nodes of g into those reachable from start over
// passable edges and the rest. Both slices are sorted. An unknown start
// makes every node inaccessible.
func Reachable(g *roadgraph.Graph, start roadgraph.NodeID) (accessible, inaccessible []roadgraph.NodeID) {
	accessible = []roadgraph.NodeID{}
	inaccessible = []roadgraph.NodeID{}
	if !g.HasNode(start) {
		return accessible, append(inaccessible, g.Nodes()...)
	}

	visited := map[roadgraph.NodeID]bool{start: true}
	queue := []roadgraph.NodeID{start}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, e := range g.Neighbors(current) {
			if e.Passable() && !visited[e.To()] {
				visited[e.To()] = true
				queue = append(queue, e.To())
			}
		}
	}

	for _, id := range g.Nodes() {
		if visited[id] {
			accessible = append(accessible, id)
		} else {
			inaccessible = append(inaccessible, id)
		}
	}
	return accessible, inaccessible
}
