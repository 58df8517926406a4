package spatial

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roadnav/internal/roadgraph"
)

// lattice builds an n x n street grid with spacing deg degrees.
func lattice(t *testing.T, n int, deg float64) *roadgraph.Graph {
	t.Helper()
	g := roadgraph.New()
	id := func(r, c int) roadgraph.NodeID { return roadgraph.NodeID(fmt.Sprintf("%d_%d", r, c)) }
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			require.NoError(t, g.AddNode(id(r, c), 45+float64(r)*deg, 16+float64(c)*deg))
		}
	}
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			if c+1 < n {
				require.NoError(t, g.AddRoad(id(r, c), id(r, c+1), 100, roadgraph.ClassResidential, fmt.Sprintf("Row %d", r), false))
			}
			if r+1 < n {
				require.NoError(t, g.AddRoad(id(r, c), id(r+1, c), 100, roadgraph.ClassResidential, fmt.Sprintf("Col %d", c), false))
			}
		}
	}
	return g
}

func allEdges(g *roadgraph.Graph) []EdgeRef {
	seen := map[EdgeRef]struct{}{}
	g.Edges(func(from roadgraph.NodeID, e *roadgraph.Edge) bool {
		seen[EdgeRef{From: from, To: e.To()}] = struct{}{}
		return true
	})
	out := make([]EdgeRef, 0, len(seen))
	for r := range seen {
		out = append(out, r)
	}
	sortRefs(out)
	return out
}

func TestBuild_Defaults(t *testing.T) {
	g := lattice(t, 3, 0.001)
	grid := Build(g, 0, -1)

	rows, cols := grid.Dims()
	assert.Equal(t, DefaultRows, rows)
	assert.Equal(t, DefaultCols, cols)
	assert.GreaterOrEqual(t, grid.References(), g.EdgeCount())
	assert.LessOrEqual(t, grid.References(), 2*g.EdgeCount())
}

func TestCellOf_Clamps(t *testing.T) {
	g := lattice(t, 4, 0.01)
	grid := Build(g, 10, 20)

	tests := []struct {
		name     string
		lat, lon float64
		row, col int
	}{
		{"min corner", 45, 16, 0, 0},
		{"max corner", 45.03, 16.03, 9, 19},
		{"far below", 10, 0, 0, 0},
		{"far above", 80, 100, 9, 19},
		{"interior", 45.016, 16.008, 5, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, c := grid.CellOf(tt.lat, tt.lon)
			assert.Equal(t, tt.row, r)
			assert.Equal(t, tt.col, c)
		})
	}
}

func TestQueryBBox_FullBoxMatchesAllEdges(t *testing.T) {
	for _, dims := range [][2]int{{1, 1}, {3, 7}, {50, 50}} {
		g := lattice(t, 6, 0.002)
		grid := Build(g, dims[0], dims[1])
		b := g.Bounds()

		got := grid.QueryBBox(b.Min.Lat(), b.Max.Lat(), b.Min.Lon(), b.Max.Lon())
		assert.Equal(t, allEdges(g), got, "grid %v", dims)
	}
}

func TestQueryBBox_SwappedCornersAndSubset(t *testing.T) {
	g := lattice(t, 5, 0.01)
	grid := Build(g, 4, 4)

	full := grid.QueryBBox(45.04, 45, 16.04, 16)
	assert.Len(t, full, g.EdgeCount())

	corner := grid.QueryBBox(45, 45.001, 16, 16.001)
	assert.NotEmpty(t, corner)
	assert.Less(t, len(corner), len(full))
	assert.Contains(t, corner, EdgeRef{From: "0_0", To: "0_1"})
}

func TestQueryPoint_NeighbourhoodContainsLocalEdges(t *testing.T) {
	g := lattice(t, 8, 0.001)
	grid := Build(g, 7, 7)

	got := grid.QueryPoint(45.0035, 16.0035)
	set := map[EdgeRef]bool{}
	for _, r := range got {
		set[r] = true
	}
	assert.True(t, set[EdgeRef{From: "3_3", To: "3_4"}])
	assert.True(t, set[EdgeRef{From: "4_4", To: "3_4"}])
	assert.False(t, set[EdgeRef{From: "0_0", To: "0_1"}], "far edge should not be a candidate")
}

func TestBuild_DegenerateBoundingBox(t *testing.T) {
	g := roadgraph.New()
	require.NoError(t, g.AddNode("a", 45.1, 15.9))
	require.NoError(t, g.AddNode("b", 45.1, 15.9))
	require.NoError(t, g.AddRoad("a", "b", 1, roadgraph.ClassService, "", false))

	grid := Build(g, 10, 10)

	r, c := grid.CellOf(45.1, 15.9)
	assert.Equal(t, 0, r)
	assert.Equal(t, 0, c)
	assert.Len(t, grid.QueryPoint(45.1, 15.9), 2)
	assert.Len(t, grid.QueryBBox(0, 90, 0, 180), 2)
}

func TestBuild_EmptyGraph(t *testing.T) {
	grid := Build(roadgraph.New(), 5, 5)
	assert.Empty(t, grid.QueryPoint(1, 1))
	assert.Empty(t, grid.QueryBBox(-90, 90, -180, 180))
}

func TestNearestEdge(t *testing.T) {
	g := lattice(t, 5, 0.001)
	grid := Build(g, 5, 5)

	// just north of the middle of the segment 2_1 - 2_2
	ref, dist, ok := grid.NearestEdge(g, 45.00201, 16.0015, 0)
	require.True(t, ok)
	assert.ElementsMatch(t, []roadgraph.NodeID{"2_1", "2_2"}, []roadgraph.NodeID{ref.From, ref.To})
	assert.InDelta(t, 1.1, dist, 0.2)

	_, _, ok = grid.NearestEdge(g, 45.0025, 16.0025, 5)
	assert.False(t, ok, "centre of a block is ~55m from any road")
}

func TestNearestNode(t *testing.T) {
	g := lattice(t, 5, 0.001)
	grid := Build(g, 5, 5)

	id, dist, ok := grid.NearestNode(g, 45.00302, 16.00099, 50)
	require.True(t, ok)
	assert.Equal(t, roadgraph.NodeID("3_1"), id)
	assert.Less(t, dist, 5.0)

	_, _, ok = grid.NearestNode(g, 46, 17, 50)
	assert.False(t, ok)
}

func TestQueryBBox_RandomGraphs(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for iter := 0; iter < 20; iter++ {
		g := roadgraph.New()
		n := 5 + rng.Intn(30)
		for i := 0; i < n; i++ {
			require.NoError(t, g.AddNode(roadgraph.NodeID(fmt.Sprint(i)), 45+rng.Float64()*0.1, 15+rng.Float64()*0.1))
		}
		for i := 0; i < n*2; i++ {
			u, v := rng.Intn(n), rng.Intn(n)
			if u == v {
				continue
			}
			require.NoError(t, g.AddEdge(roadgraph.NodeID(fmt.Sprint(u)), roadgraph.NodeID(fmt.Sprint(v)), 1+rng.Float64(), roadgraph.ClassPrimary, ""))
		}
		grid := Build(g, 1+rng.Intn(20), 1+rng.Intn(20))
		b := g.Bounds()
		assert.Equal(t, allEdges(g), grid.QueryBBox(b.Min.Lat(), b.Max.Lat(), b.Min.Lon(), b.Max.Lon()))
	}
}
