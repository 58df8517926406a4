package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"roadnav/internal/config"
	"roadnav/internal/osmload"
	"roadnav/internal/roadgraph"
	"roadnav/internal/routing"
)

var (
	routeOSM   string
	routeFrom  string
	routeTo    string
	routeOut   string
	routeBlock []string
	routeJam   []string

	routeCmd = &cobra.Command{
		Use:   "route",
		Short: "Plan a single route from an OSM file and print its directions",
		Example: `  roadnav route --osm town.osm --from 101 --to 205
  roadnav route --osm town.osm --from 101 --to 205 --block 150,151 --out directions.txt`,
		RunE: runRoute,
	}
)

func init() {
	f := routeCmd.Flags()
	f.StringVar(&routeOSM, "osm", "", "OSM XML or PBF file (defaults to graph.osm_file)")
	f.StringVar(&routeFrom, "from", "", "start junction id")
	f.StringVar(&routeTo, "to", "", "destination junction id")
	f.StringVar(&routeOut, "out", "", "write the directions to this file")
	f.StringArrayVar(&routeBlock, "block", nil, "block the road between two junctions, as u,v")
	f.StringArrayVar(&routeJam, "jam", nil, "jam the road between two junctions, as u,v")
	_ = routeCmd.MarkFlagRequired("from")
	_ = routeCmd.MarkFlagRequired("to")
}

func runRoute(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	logger := config.NewLogger(cfg.Log, os.Stderr)

	file := routeOSM
	if file == "" {
		file = cfg.Graph.OSMFile
	}
	net, err := osmload.LoadFile(cmd.Context(), file, osmload.Options{Logger: logger})
	if err != nil {
		return err
	}
	g := net.Graph

	overlay := roadgraph.NewOverlay(g, cfg.Routing.JamFactor)
	for _, pair := range routeBlock {
		u, v, err := parsePair(pair)
		if err != nil {
			return err
		}
		if err := overlay.BlockRoad(u, v); err != nil {
			return err
		}
	}
	for _, pair := range routeJam {
		u, v, err := parsePair(pair)
		if err != nil {
			return err
		}
		if err := overlay.ApplyJam(u, v, 0); err != nil {
			return err
		}
	}

	from, to := roadgraph.NodeID(routeFrom), roadgraph.NodeID(routeTo)
	for _, id := range []roadgraph.NodeID{from, to} {
		if !g.HasNode(id) {
			return fmt.Errorf("junction %s is not on the road network", id)
		}
	}

	res := routing.NewPlanner(g, cfg.Routing).Search(from, to)
	route := routing.NewRoute(g, res)

	out := cmd.OutOrStdout()
	if route.Blocked {
		fmt.Fprintf(out, "No route from %s to %s.\n", from, to)
	} else {
		fmt.Fprintf(out, "Route: %d junctions, cost %.1f\n", len(route.Path), route.Cost)
		if eta, err := routing.EstimateTravelTime(g, route.Path, cfg.Routing); err == nil {
			fmt.Fprintf(out, "Estimated time: %s\n", eta.Round(time.Second))
		}
	}
	if err := routing.WriteDirections(out, route.Instructions); err != nil {
		return err
	}

	if routeOut != "" {
		f, err := os.Create(routeOut)
		if err != nil {
			return fmt.Errorf("create %s: %w", routeOut, err)
		}
		if err := routing.WriteDirections(f, route.Instructions); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintf(out, "Directions saved to %s\n", routeOut)
	}
	return nil
}

func parsePair(s string) (roadgraph.NodeID, roadgraph.NodeID, error) {
	u, v, ok := strings.Cut(s, ",")
	u, v = strings.TrimSpace(u), strings.TrimSpace(v)
	if !ok || u == "" || v == "" {
		return "", "", fmt.Errorf("road %q: want two junction ids as u,v", s)
	}
	return roadgraph.NodeID(u), roadgraph.NodeID(v), nil
}
