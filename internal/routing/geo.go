package routing

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"roadnav/internal/roadgraph"
)

// Maneuver is the direction of a turn between two consecutive segments.
type Maneuver string

const (
	Straight Maneuver = "straight"
	Left     Maneuver = "left"
	Right    Maneuver = "right"
)

// straightSine is the sine of the largest heading change still reported as
// going straight, about 10 degrees.
const straightSine = 0.17

// meanEarthRadius is the IUGG mean radius in meters. It is smaller than
// orb.EarthRadius, so the heuristic stays below haversine lengths computed
// with either radius.
const meanEarthRadius = 6371000.0

// Heuristic returns the great-circle distance in meters from n to goal on a
// sphere of the mean Earth radius. It never exceeds the remaining cost as
// long as edge weights are not shorter than the haversine distance between
// their endpoints.
func Heuristic(n, goal *roadgraph.Node) float64 {
	d := geo.DistanceHaversine(orb.Point{n.Lon, n.Lat}, orb.Point{goal.Lon, goal.Lat})
	return d * meanEarthRadius / orb.EarthRadius
}

// turnVectors projects p->u and u->v onto a plane with longitude scaled by
// the cosine of the mean latitude of the three points.
func turnVectors(p, u, v *roadgraph.Node) (ax, ay, bx, by float64) {
	cosLat := math.Cos((p.Lat + u.Lat + v.Lat) / 3 * math.Pi / 180)
	ax, ay = (u.Lon-p.Lon)*cosLat, u.Lat-p.Lat
	bx, by = (v.Lon-u.Lon)*cosLat, v.Lat-u.Lat
	return ax, ay, bx, by
}

// TurnDot returns the dot product of the normalized directions p->u and
// u->v. ok is false when either direction has zero length.
func TurnDot(p, u, v *roadgraph.Node) (dot float64, ok bool) {
	ax, ay, bx, by := turnVectors(p, u, v)
	la, lb := math.Hypot(ax, ay), math.Hypot(bx, by)
	if la == 0 || lb == 0 {
		return 0, false
	}
	return (ax*bx + ay*by) / (la * lb), true
}

// TurnIsSharp reports whether the turn p->u->v is sharper than threshold.
// Coincident points never make a sharp turn.
func TurnIsSharp(p, u, v *roadgraph.Node, threshold float64) bool {
	dot, ok := TurnDot(p, u, v)
	return ok && sharp(dot, threshold)
}

func sharp(dot, threshold float64) bool { return dot < threshold }

// TurnDirection classifies the turn p->u->v by the sign of the cross product
// of its normalized projected directions.
func TurnDirection(p, u, v *roadgraph.Node) Maneuver {
	ax, ay, bx, by := turnVectors(p, u, v)
	la, lb := math.Hypot(ax, ay), math.Hypot(bx, by)
	if la == 0 || lb == 0 {
		return Straight
	}
	cross := (ax*by - ay*bx) / (la * lb)
	switch {
	case cross > straightSine:
		return Left
	case cross < -straightSine:
		return Right
	default:
		return Straight
	}
}
