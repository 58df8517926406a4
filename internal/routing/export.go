package routing

import (
	"bufio"
	"fmt"
	"io"

	"github.com/twpayne/go-polyline"

	"roadnav/internal/roadgraph"
)

const directionsTitle = "ROUTE DIRECTIONS"

// WriteDirections writes a two line header followed by one instruction per
// line.
func WriteDirections(w io.Writer, ins []Instruction) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, directionsTitle)
	fmt.Fprintln(bw, "================")
	for _, in := range ins {
		fmt.Fprintln(bw, in.Text())
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write directions: %w", err)
	}
	return nil
}

// EncodePolyline returns the route geometry in the Google polyline format.
// Unknown junctions are skipped.
func EncodePolyline(g *roadgraph.Graph, path Path) string {
	coords := make([][]float64, 0, len(path))
	for _, id := range path {
		n, ok := g.Node(id)
		if !ok {
			continue
		}
		coords = append(coords, []float64{n.Lat, n.Lon})
	}
	return string(polyline.EncodeCoords(coords))
}
