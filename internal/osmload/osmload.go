// Package osmload builds a roadgraph.Graph from an OpenStreetMap extract in
// XML or PBF format.
package osmload

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/paulmach/osm/osmxml"

	"roadnav/internal/roadgraph"
)

// POI is a tagged point of interest found in the extract.
type POI struct {
	ID   osm.NodeID
	Lat  float64
	Lon  float64
	Kind string
	Name string
}

// Network is the result of a load.
type Network struct {
	Graph *roadgraph.Graph
	POIs  []POI
	// Removed is the number of junctions dropped outside the largest
	// connected component.
	Removed int
}

type Options struct {
	// KeepAll skips the largest component filter.
	KeepAll bool
	Logger  *slog.Logger
}

// scanner is implemented by the osmxml and osmpbf scanners.
type scanner interface {
	Scan() bool
	Object() osm.Object
	Err() error
	Close() error
}

// LoadFile opens path and loads it, using the PBF decoder for .pbf files.
func LoadFile(ctx context.Context, path string, opts Options) (*Network, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open osm file: %w", err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".pbf") {
		return load(ctx, osmpbf.New(ctx, f, runtime.GOMAXPROCS(-1)), opts)
	}
	return Load(ctx, f, opts)
}

// Load reads OSM XML from r.
func Load(ctx context.Context, r io.Reader, opts Options) (*Network, error) {
	return load(ctx, osmxml.New(ctx, r), opts)
}

type point struct{ lat, lon float64 }

func load(ctx context.Context, sc scanner, opts Options) (*Network, error) {
	defer sc.Close()

	coords := make(map[osm.NodeID]point)
	var ways []*osm.Way
	var pois []POI
	for sc.Scan() {
		switch o := sc.Object().(type) {
		case *osm.Node:
			coords[o.ID] = point{o.Lat, o.Lon}
			if kind := poiKind(o.Tags); kind != "" {
				name := o.Tags.Find("name")
				if name == "" {
					name = "Unknown"
				}
				pois = append(pois, POI{ID: o.ID, Lat: o.Lat, Lon: o.Lon, Kind: kind, Name: name})
			}
		case *osm.Way:
			if roadgraph.ParseRoadClass(o.Tags.Find("highway")).Routable() {
				ways = append(ways, o)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan osm: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g := roadgraph.New()
	for _, w := range ways {
		if err := addWay(g, coords, w); err != nil {
			return nil, fmt.Errorf("way %d: %w", w.ID, err)
		}
	}

	net := &Network{Graph: g, POIs: pois}
	if !opts.KeepAll && g.NodeCount() > 0 {
		_, net.Removed = g.KeepLargestComponent()
	}
	if opts.Logger != nil {
		opts.Logger.Info("osm network loaded",
			"ways", len(ways),
			"junctions", g.NodeCount(),
			"edges", g.EdgeCount(),
			"removed", net.Removed,
			"pois", len(pois),
		)
	}
	return net, nil
}

func addWay(g *roadgraph.Graph, coords map[osm.NodeID]point, w *osm.Way) error {
	class := roadgraph.ParseRoadClass(w.Tags.Find("highway"))
	name := w.Tags.Find("name")
	dir := direction(w.Tags)

	for i := 0; i+1 < len(w.Nodes); i++ {
		a, b := w.Nodes[i].ID, w.Nodes[i+1].ID
		pa, okA := coords[a]
		pb, okB := coords[b]
		if !okA || !okB || a == b {
			continue
		}
		u, v := nodeID(a), nodeID(b)
		for _, n := range [2]struct {
			id roadgraph.NodeID
			p  point
		}{{u, pa}, {v, pb}} {
			if !g.HasNode(n.id) {
				if err := g.AddNode(n.id, n.p.lat, n.p.lon); err != nil {
					return err
				}
			}
		}

		length := geo.DistanceHaversine(orb.Point{pa.lon, pa.lat}, orb.Point{pb.lon, pb.lat})
		if length <= 0 {
			continue
		}
		var err error
		switch dir {
		case forward:
			err = g.AddEdge(u, v, length, class, name)
		case backward:
			err = g.AddEdge(v, u, length, class, name)
		default:
			err = g.AddRoad(u, v, length, class, name, false)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func nodeID(id osm.NodeID) roadgraph.NodeID {
	return roadgraph.NodeID(fmt.Sprint(int64(id)))
}

type travel int

const (
	both travel = iota
	forward
	backward
)

func direction(tags osm.Tags) travel {
	switch tags.Find("oneway") {
	case "yes", "true", "1":
		return forward
	case "-1", "reverse":
		return backward
	case "no", "false", "0":
		return both
	}
	if tags.Find("junction") == "roundabout" {
		return forward
	}
	return both
}

func poiKind(tags osm.Tags) string {
	if v := tags.Find("amenity"); v != "" {
		return v
	}
	if tags.Find("shop") != "" {
		return "shop"
	}
	return tags.Find("leisure")
}
