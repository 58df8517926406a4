package models

// Route is a planned journey as returned by the API.
type Route struct {
	ID           string        `json:"id"`
	From         string        `json:"from"`
	To           string        `json:"to"`
	Path         []string      `json:"path"`
	Cost         *float64      `json:"cost"`
	Legs         []float64     `json:"legs"`
	ETASeconds   *float64      `json:"eta_seconds,omitempty"`
	Instructions []Instruction `json:"instructions"`
	Polyline     string        `json:"polyline,omitempty"`
	Blocked      bool          `json:"blocked"`
	Expanded     int           `json:"expanded,omitempty"`
}

type Instruction struct {
	Kind      string  `json:"kind"`
	Road      string  `json:"road,omitempty"`
	DistanceM float64 `json:"distance_m,omitempty"`
	Maneuver  string  `json:"maneuver,omitempty"`
	Text      string  `json:"text"`
}
