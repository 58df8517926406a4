package routing

import (
	"fmt"
	"math"

	"roadnav/internal/roadgraph"
)

// Config holds the tunables of the planner and the travel time estimator.
// The turn penalty and the sharp turn threshold are empirical values.
type Config struct {
	// TurnPenalty is added to the cost of an edge entered through a sharp
	// turn, in meters.
	TurnPenalty float64 `yaml:"turn_penalty"`
	// SharpTurnDot is the dot product of the normalized incoming and outgoing
	// directions below which a turn is sharp. 0.5 is roughly 60 degrees.
	SharpTurnDot float64 `yaml:"sharp_turn_dot"`
	// StaleEpsilon is the tolerance used to detect outdated queue entries.
	StaleEpsilon float64 `yaml:"stale_epsilon"`
	// JamFactor is the weight multiplier of a jammed road when none is given.
	JamFactor float64 `yaml:"jam_factor"`
	// SpeedLimits maps road classes to km/h.
	SpeedLimits map[roadgraph.RoadClass]float64 `yaml:"speed_limits"`
	// JammedSpeed is the km/h used on jammed roads.
	JammedSpeed float64 `yaml:"jammed_speed"`
	// DefaultSpeed is the km/h for classes missing from SpeedLimits.
	DefaultSpeed float64 `yaml:"default_speed"`
	// MaxExpansions bounds a single search. 0 means unbounded.
	MaxExpansions int `yaml:"max_expansions"`
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	return Config{
		TurnPenalty:  20,
		SharpTurnDot: 0.5,
		StaleEpsilon: 1e-9,
		JamFactor:    roadgraph.DefaultJamFactor,
		SpeedLimits: map[roadgraph.RoadClass]float64{
			roadgraph.ClassMotorway:     130,
			roadgraph.ClassTrunk:        110,
			roadgraph.ClassPrimary:      80,
			roadgraph.ClassSecondary:    60,
			roadgraph.ClassTertiary:     50,
			roadgraph.ClassResidential:  30,
			roadgraph.ClassMotorwayLink: 60,
			roadgraph.ClassPrimaryLink:  50,
			roadgraph.ClassUnknown:      30,
		},
		JammedSpeed:  10,
		DefaultSpeed: 30,
	}
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	switch {
	case !nonNegative(c.TurnPenalty):
		return fmt.Errorf("turn_penalty %v: %w", c.TurnPenalty, ErrInvalidConfig)
	case math.IsNaN(c.SharpTurnDot) || c.SharpTurnDot < -1 || c.SharpTurnDot > 1:
		return fmt.Errorf("sharp_turn_dot %v: %w", c.SharpTurnDot, ErrInvalidConfig)
	case !nonNegative(c.StaleEpsilon):
		return fmt.Errorf("stale_epsilon %v: %w", c.StaleEpsilon, ErrInvalidConfig)
	case !positive(c.JamFactor):
		return fmt.Errorf("jam_factor %v: %w", c.JamFactor, ErrInvalidConfig)
	case !positive(c.JammedSpeed):
		return fmt.Errorf("jammed_speed %v: %w", c.JammedSpeed, ErrInvalidConfig)
	case !positive(c.DefaultSpeed):
		return fmt.Errorf("default_speed %v: %w", c.DefaultSpeed, ErrInvalidConfig)
	case c.MaxExpansions < 0:
		return fmt.Errorf("max_expansions %d: %w", c.MaxExpansions, ErrInvalidConfig)
	}
	for class, kmh := range c.SpeedLimits {
		if !positive(kmh) {
			return fmt.Errorf("speed_limits[%s] %v: %w", class, kmh, ErrInvalidConfig)
		}
	}
	return nil
}

// SpeedFor returns the km/h used for an edge of the given class and status.
// Blocked edges have speed 0.
func (c Config) SpeedFor(class roadgraph.RoadClass, status roadgraph.EdgeStatus) float64 {
	switch status {
	case roadgraph.StatusBlocked:
		return 0
	case roadgraph.StatusJammed:
		return c.JammedSpeed
	}
	if kmh, ok := c.SpeedLimits[class]; ok {
		return kmh
	}
	return c.DefaultSpeed
}

func positive(f float64) bool { return f > 0 && !math.IsInf(f, 1) }

func nonNegative(f float64) bool { return f >= 0 && !math.IsInf(f, 1) }
