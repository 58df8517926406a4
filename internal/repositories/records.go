package repositories

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"roadnav/internal/models"
	"roadnav/internal/roadgraph"
)

// ErrBadRecord is returned when a stored junction or road lacks a required
// property or has one of the wrong type.
var ErrBadRecord = errors.New("malformed record")

func junctionFromValues(v map[string]any) (models.Junction, error) {
	id, ok := v["id"].(string)
	if !ok || id == "" {
		return models.Junction{}, fmt.Errorf("junction id %v: %w", v["id"], ErrBadRecord)
	}
	lat, okLat := toFloat(v["lat"])
	lon, okLon := toFloat(v["lon"])
	if !okLat || !okLon {
		return models.Junction{}, fmt.Errorf("junction %s coordinates: %w", id, ErrBadRecord)
	}
	return models.Junction{ID: id, Lat: lat, Lon: lon}, nil
}

func roadFromValues(v map[string]any) (models.Road, error) {
	source, okS := v["source"].(string)
	target, okT := v["target"].(string)
	if !okS || !okT {
		return models.Road{}, fmt.Errorf("road %v-%v: %w", v["source"], v["target"], ErrBadRecord)
	}
	road := models.Road{Source: source, Target: target, Status: "normal"}
	if length, ok := toFloat(v["length"]); ok {
		road.LengthM = length
	}
	if class, ok := v["class"].(string); ok {
		road.Class = class
	}
	if name, ok := v["name"].(string); ok {
		road.Name = name
	}
	if oneway, ok := v["oneway"].(bool); ok {
		road.Oneway = oneway
	}
	if status, ok := v["status"].(string); ok && status != "" {
		road.Status = status
	}
	if m, ok := toFloat(v["multiplier"]); ok {
		road.Multiplier = m
	}
	return road, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}

// BuildGraph turns stored junctions and roads into a graph. A road whose
// stored length is missing or shorter than the great-circle distance between
// its junctions gets the great-circle distance. Roads that are not one-way
// are added in both directions. Only the largest connected component is
// kept. Stored jams and blocks inside it are returned rather than applied.
func BuildGraph(junctions []models.Junction, roads []models.Road) (*roadgraph.Graph, []roadgraph.Disruption, error) {
	g := roadgraph.New()
	for _, j := range junctions {
		if err := g.AddNode(roadgraph.NodeID(j.ID), j.Lat, j.Lon); err != nil {
			return nil, nil, err
		}
	}

	var disruptions []roadgraph.Disruption
	for _, road := range roads {
		u, v := roadgraph.NodeID(road.Source), roadgraph.NodeID(road.Target)
		un, okU := g.Node(u)
		vn, okV := g.Node(v)
		if !okU || !okV {
			return nil, nil, fmt.Errorf("road %s-%s: %w", u, v, roadgraph.ErrNodeNotFound)
		}
		length := geo.DistanceHaversine(orb.Point{un.Lon, un.Lat}, orb.Point{vn.Lon, vn.Lat})
		if road.LengthM > length && !math.IsInf(road.LengthM, 0) {
			length = road.LengthM
		}
		if length <= 0 {
			// coincident junctions
			length = math.SmallestNonzeroFloat64
		}
		if err := g.AddRoad(u, v, length, roadgraph.ParseRoadClass(road.Class), road.Name, road.Oneway); err != nil {
			return nil, nil, err
		}

		switch status := roadgraph.ParseEdgeStatus(road.Status); status {
		case roadgraph.StatusJammed, roadgraph.StatusBlocked:
			disruptions = append(disruptions, roadgraph.Disruption{From: u, To: v, Status: status, Multiplier: road.Multiplier})
		}
	}

	if g.NodeCount() == 0 {
		return g, disruptions, nil
	}
	g.KeepLargestComponent()
	kept := disruptions[:0]
	for _, d := range disruptions {
		if g.HasNode(d.From) && g.HasNode(d.To) {
			kept = append(kept, d)
		}
	}
	return g, kept, nil
}

// GraphRecords flattens g into storable junctions and roads. Every directed
// edge becomes a one-way road so that BuildGraph restores the same edges.
func GraphRecords(g *roadgraph.Graph) ([]models.Junction, []models.Road) {
	ids := g.Nodes()
	junctions := make([]models.Junction, 0, len(ids))
	for _, id := range ids {
		n, _ := g.Node(id)
		junctions = append(junctions, models.Junction{ID: string(id), Lat: n.Lat, Lon: n.Lon})
	}

	roads := make([]models.Road, 0, g.EdgeCount())
	g.Edges(func(from roadgraph.NodeID, e *roadgraph.Edge) bool {
		roads = append(roads, models.Road{
			Source:  string(from),
			Target:  string(e.To()),
			LengthM: e.BaseWeight(),
			Class:   string(e.Class()),
			Name:    e.Name(),
			Oneway:  true,
			Status:  roadgraph.StatusNormal.String(),
		})
		return true
	})
	return junctions, roads
}
