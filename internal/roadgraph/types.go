// Package roadgraph holds the directed road network used for routing and the
// traffic overlay, which is the only code allowed to change edge costs.
//
// A Graph is built once by a loader (OSM file, Neo4j) and is read-mostly
// afterwards. Edge weight and status change only through an Overlay, so the
// invariant Weight() == BaseWeight() * multiplier(Status()) always holds.
//
// Graph and Overlay are not safe for concurrent use. Callers that share a
// graph between goroutines must serialize planning and mutation.
package roadgraph

import (
	"math"
	"strings"
)

// NodeID identifies a junction. It is opaque and never empty.
type NodeID string

// UnknownRoadName is used for edges without a name.
const UnknownRoadName = "Unknown Road"

// RoadClass is the category of a road, following OSM highway values.
type RoadClass string

const (
	ClassMotorway      RoadClass = "motorway"
	ClassTrunk         RoadClass = "trunk"
	ClassPrimary       RoadClass = "primary"
	ClassSecondary     RoadClass = "secondary"
	ClassTertiary      RoadClass = "tertiary"
	ClassUnclassified  RoadClass = "unclassified"
	ClassResidential   RoadClass = "residential"
	ClassLivingStreet  RoadClass = "living_street"
	ClassService       RoadClass = "service"
	ClassMotorwayLink  RoadClass = "motorway_link"
	ClassTrunkLink     RoadClass = "trunk_link"
	ClassPrimaryLink   RoadClass = "primary_link"
	ClassSecondaryLink RoadClass = "secondary_link"
	ClassTertiaryLink  RoadClass = "tertiary_link"
	ClassUnknown       RoadClass = "unknown"
)

var knownClasses = map[RoadClass]bool{
	ClassMotorway: true, ClassTrunk: true, ClassPrimary: true, ClassSecondary: true,
	ClassTertiary: true, ClassUnclassified: true, ClassResidential: true,
	ClassLivingStreet: true, ClassService: true, ClassMotorwayLink: true,
	ClassTrunkLink: true, ClassPrimaryLink: true, ClassSecondaryLink: true,
	ClassTertiaryLink: true, ClassUnknown: true,
}

// ParseRoadClass maps a highway tag to a RoadClass. Anything unrecognized
// becomes ClassUnknown.
func ParseRoadClass(s string) RoadClass {
	c := RoadClass(strings.ToLower(strings.TrimSpace(s)))
	if knownClasses[c] {
		return c
	}
	return ClassUnknown
}

// Routable reports whether the class is one the loaders keep.
func (c RoadClass) Routable() bool {
	return knownClasses[c] && c != ClassUnknown
}

// EdgeStatus is the traffic state of an edge.
type EdgeStatus int

const (
	StatusNormal EdgeStatus = iota
	StatusJammed
	StatusBlocked
)

func (s EdgeStatus) String() string {
	switch s {
	case StatusNormal:
		return "normal"
	case StatusJammed:
		return "jammed"
	case StatusBlocked:
		return "blocked"
	default:
		return "unknown"
	}
}

// ParseEdgeStatus is the inverse of String. Unknown values map to normal.
func ParseEdgeStatus(s string) EdgeStatus {
	switch strings.ToLower(s) {
	case "jammed":
		return StatusJammed
	case "blocked":
		return StatusBlocked
	default:
		return StatusNormal
	}
}

// Node is a junction with WGS84 coordinates in degrees.
type Node struct {
	ID  NodeID
	Lat float64
	Lon float64
}

// Edge is a directed road segment owned by its source node.
type Edge struct {
	to         NodeID
	baseWeight float64
	weight     float64
	multiplier float64
	class      RoadClass
	name       string
	status     EdgeStatus
}

func (e *Edge) To() NodeID { return e.to }

// BaseWeight is the physical length in meters.
func (e *Edge) BaseWeight() float64 { return e.baseWeight }

// Weight is the current traversal cost. It is +Inf for blocked edges.
func (e *Edge) Weight() float64 { return e.weight }

// Multiplier is the factor applied to the base weight by the current status.
func (e *Edge) Multiplier() float64 { return e.multiplier }

func (e *Edge) Class() RoadClass { return e.class }

func (e *Edge) Name() string { return e.name }

func (e *Edge) Status() EdgeStatus { return e.status }

// Passable reports whether the edge has a finite cost.
func (e *Edge) Passable() bool {
	return e.status != StatusBlocked && !math.IsInf(e.weight, 1) && !math.IsNaN(e.weight)
}

func (e *Edge) set(status EdgeStatus, multiplier float64) {
	e.status = status
	e.multiplier = multiplier
	if status == StatusBlocked {
		e.weight = math.Inf(1)
		return
	}
	e.weight = e.baseWeight * multiplier
}

func (e *Edge) reset() {
	e.status = StatusNormal
	e.multiplier = 1
	e.weight = e.baseWeight
}

// NormalizeStreetName is the key used by the street index.
func NormalizeStreetName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
