package routing

import (
	"fmt"
	"math"
	"time"

	"roadnav/internal/roadgraph"
)

// InstructionKind tells how an instruction is rendered.
type InstructionKind string

const (
	KindDepart  InstructionKind = "depart"
	KindTurn    InstructionKind = "turn"
	KindArrive  InstructionKind = "arrive"
	KindArrived InstructionKind = "arrived"
	KindBlocked InstructionKind = "blocked"
)

// Instruction is one turn-by-turn step. DistanceM is the physical length
// driven before the step: the previous road for a turn, the last road for
// arrive.
type Instruction struct {
	Kind      InstructionKind `json:"kind"`
	Road      string          `json:"road,omitempty"`
	DistanceM float64         `json:"distance_m,omitempty"`
	Maneuver  Maneuver        `json:"maneuver,omitempty"`
}

func (in Instruction) Text() string {
	switch in.Kind {
	case KindDepart:
		return fmt.Sprintf("Head along %s", in.Road)
	case KindTurn:
		switch in.Maneuver {
		case Left, Right:
			return fmt.Sprintf("Drive %dm, then turn %s onto %s", int(in.DistanceM), in.Maneuver, in.Road)
		default:
			return fmt.Sprintf("Drive %dm, then continue onto %s", int(in.DistanceM), in.Road)
		}
	case KindArrive:
		return fmt.Sprintf("Drive %dm to the destination.", int(in.DistanceM))
	case KindArrived:
		return "You have arrived at your destination."
	case KindBlocked:
		return "Route blocked, no passage."
	}
	return ""
}

// Texts renders every instruction.
func Texts(ins []Instruction) []string {
	out := make([]string, len(ins))
	for i, in := range ins {
		out[i] = in.Text()
	}
	return out
}

// GenerateInstructions describes path as a sequence of steps, one per change
// of road name. A path shorter than two junctions yields a single arrived
// step. A path crossing a missing, blocked or non-finite segment yields a
// single blocked step and nothing else.
func GenerateInstructions(g *roadgraph.Graph, path Path) []Instruction {
	if len(path) < 2 {
		return []Instruction{{Kind: KindArrived}}
	}

	edges := make([]*roadgraph.Edge, len(path)-1)
	for i := range edges {
		e, ok := g.FindEdge(path[i], path[i+1])
		if !ok || !finite(e.Weight()) || !finite(e.BaseWeight()) {
			return []Instruction{{Kind: KindBlocked}}
		}
		edges[i] = e
	}

	current := edges[0].Name()
	out := []Instruction{{Kind: KindDepart, Road: current}}
	driven := 0.0
	for i, e := range edges {
		if e.Name() != current {
			step := Instruction{Kind: KindTurn, Road: e.Name(), DistanceM: driven, Maneuver: Straight}
			p, ok1 := g.Node(path[i-1])
			u, ok2 := g.Node(path[i])
			v, ok3 := g.Node(path[i+1])
			if ok1 && ok2 && ok3 {
				step.Maneuver = TurnDirection(p, u, v)
			}
			out = append(out, step)
			current = e.Name()
			driven = 0
		}
		driven += e.BaseWeight()
	}
	return append(out, Instruction{Kind: KindArrive, DistanceM: driven})
}

// EstimateTravelTime sums base length over speed for every segment, using
// the jammed speed on jammed roads. It returns ErrRouteBlocked when a segment
// is missing, blocked or non-finite.
func EstimateTravelTime(g *roadgraph.Graph, path Path, cfg Config) (time.Duration, error) {
	seconds := 0.0
	for i := 0; i+1 < len(path); i++ {
		e, ok := g.FindEdge(path[i], path[i+1])
		if !ok || !finite(e.Weight()) {
			return 0, fmt.Errorf("segment %s-%s: %w", path[i], path[i+1], ErrRouteBlocked)
		}
		kmh := cfg.SpeedFor(e.Class(), e.Status())
		if !(kmh > 0) {
			return 0, fmt.Errorf("segment %s-%s: %w", path[i], path[i+1], ErrRouteBlocked)
		}
		seconds += e.BaseWeight() / (kmh / 3.6)
	}
	if !finite(seconds) {
		return 0, ErrRouteBlocked
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

func finite(f float64) bool {
	return !math.IsInf(f, 0) && !math.IsNaN(f)
}
