package repositories

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"roadnav/internal/models"
	"roadnav/internal/roadgraph"
)

// RoadRepository reads the road network from Neo4j and mirrors traffic
// changes back to it. Junctions are (:Junction {id, lat, lon}) nodes and
// roads are [:ROAD {length, class, name, oneway, status, multiplier}]
// relationships.
type RoadRepository struct {
	Driver   neo4j.DriverWithContext
	Database string
}

func NewRoadRepository(driver neo4j.DriverWithContext, database string) *RoadRepository {
	return &RoadRepository{Driver: driver, Database: database}
}

func (r *RoadRepository) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return r.Driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode, DatabaseName: r.Database})
}

func (r *RoadRepository) FindJunctions(ctx context.Context) ([]models.Junction, error) {
	session := r.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
        MATCH (j:Junction)
        RETURN j.id AS id, j.lat AS lat, j.lon AS lon
        ORDER BY j.id
        `
		result, err := tx.Run(ctx, query, nil)
		if err != nil {
			return nil, err
		}

		var junctions []models.Junction
		for result.Next(ctx) {
			j, err := junctionFromValues(result.Record().AsMap())
			if err != nil {
				return nil, err
			}
			junctions = append(junctions, j)
		}
		return junctions, result.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("error fetching junctions: %w", err)
	}
	return result.([]models.Junction), nil
}

func (r *RoadRepository) FindRoads(ctx context.Context) ([]models.Road, error) {
	return r.findRoads(ctx, "")
}

// FindDisruptedRoads returns the roads stored as jammed or blocked.
func (r *RoadRepository) FindDisruptedRoads(ctx context.Context) ([]models.Road, error) {
	return r.findRoads(ctx, "WHERE coalesce(r.status, 'normal') <> 'normal'")
}

func (r *RoadRepository) findRoads(ctx context.Context, where string) ([]models.Road, error) {
	session := r.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
        MATCH (s:Junction)-[r:ROAD]->(t:Junction)
        ` + where + `
        RETURN s.id AS source, t.id AS target, r.length AS length, r.class AS class,
               r.name AS name, coalesce(r.oneway, false) AS oneway,
               coalesce(r.status, 'normal') AS status, r.multiplier AS multiplier
        ORDER BY source, target
        `
		result, err := tx.Run(ctx, query, nil)
		if err != nil {
			return nil, err
		}

		var roads []models.Road
		for result.Next(ctx) {
			road, err := roadFromValues(result.Record().AsMap())
			if err != nil {
				return nil, err
			}
			roads = append(roads, road)
		}
		return roads, result.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("error fetching roads: %w", err)
	}
	return result.([]models.Road), nil
}

// LoadGraph reads the whole network into a graph and returns the stored
// disruptions so the caller can replay them through an overlay.
func (r *RoadRepository) LoadGraph(ctx context.Context) (*roadgraph.Graph, []roadgraph.Disruption, error) {
	junctions, err := r.FindJunctions(ctx)
	if err != nil {
		return nil, nil, err
	}
	roads, err := r.FindRoads(ctx)
	if err != nil {
		return nil, nil, err
	}
	return BuildGraph(junctions, roads)
}

// SaveRoadStatus records the traffic status of a road in both directions,
// the way a closed street is flagged inactive.
func (r *RoadRepository) SaveRoadStatus(ctx context.Context, from, to roadgraph.NodeID, status roadgraph.EdgeStatus, multiplier float64) error {
	session := r.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
        MATCH (a:Junction)-[rel:ROAD]-(b:Junction)
        WHERE a.id = $from AND b.id = $to
        SET rel.status = $status, rel.multiplier = $multiplier, rel.activa = $active
        RETURN count(rel) AS updated
        `
		params := map[string]any{
			"from":       string(from),
			"to":         string(to),
			"status":     status.String(),
			"multiplier": storedMultiplier(status, multiplier),
			"active":     status != roadgraph.StatusBlocked,
		}
		result, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})
	if err != nil {
		return fmt.Errorf("error saving status of road between %s and %s: %w", from, to, err)
	}
	return nil
}

// ResetRoadStatus marks every stored road as normal.
func (r *RoadRepository) ResetRoadStatus(ctx context.Context) error {
	session := r.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
        MATCH (:Junction)-[rel:ROAD]->(:Junction)
        WHERE coalesce(rel.status, 'normal') <> 'normal'
        SET rel.status = 'normal', rel.multiplier = 1.0, rel.activa = true
        `
		result, err := tx.Run(ctx, query, nil)
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})
	if err != nil {
		return fmt.Errorf("error resetting road status: %w", err)
	}
	return nil
}

// SaveNetwork writes junctions and roads, merging on ids. It is used to seed
// a database from an OSM extract.
func (r *RoadRepository) SaveNetwork(ctx context.Context, junctions []models.Junction, roads []models.Road) error {
	session := r.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, j := range junctions {
			query := `MERGE (j:Junction {id: $id}) SET j.lat = $lat, j.lon = $lon`
			if _, err := tx.Run(ctx, query, map[string]any{"id": j.ID, "lat": j.Lat, "lon": j.Lon}); err != nil {
				return nil, fmt.Errorf("error saving junction %s: %w", j.ID, err)
			}
		}
		for _, road := range roads {
			query := `
            MATCH (s:Junction {id: $source}), (t:Junction {id: $target})
            MERGE (s)-[r:ROAD]->(t)
            SET r.length = $length, r.class = $class, r.name = $name, r.oneway = $oneway,
                r.status = 'normal', r.multiplier = 1.0, r.activa = true
            `
			params := map[string]any{
				"source": road.Source,
				"target": road.Target,
				"length": road.LengthM,
				"class":  road.Class,
				"name":   road.Name,
				"oneway": road.Oneway,
			}
			if _, err := tx.Run(ctx, query, params); err != nil {
				return nil, fmt.Errorf("error saving road %s-%s: %w", road.Source, road.Target, err)
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("error in SaveNetwork: %w", err)
	}
	return nil
}

func storedMultiplier(status roadgraph.EdgeStatus, multiplier float64) float64 {
	if status == roadgraph.StatusJammed {
		return multiplier
	}
	return 1.0
}
