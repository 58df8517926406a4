package models

// Junction is a road network node as stored in Neo4j.
type Junction struct {
	ID  string  `json:"id"`
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Road is a stored road between two junctions. A zero LengthM means the
// length is derived from the junction coordinates.
type Road struct {
	Source     string  `json:"source"`
	Target     string  `json:"target"`
	LengthM    float64 `json:"length_m"`
	Class      string  `json:"class"`
	Name       string  `json:"name"`
	Oneway     bool    `json:"oneway"`
	Status     string  `json:"status"`
	Multiplier float64 `json:"multiplier,omitempty"`
}

// RoadRequest names a road by its endpoints.
type RoadRequest struct {
	From string `json:"from" validate:"required"`
	To   string `json:"to" validate:"required,nefield=From"`
}

// JamRequest jams a road. A zero factor means the configured default.
type JamRequest struct {
	From   string  `json:"from" validate:"required"`
	To     string  `json:"to" validate:"required,nefield=From"`
	Factor float64 `json:"factor" validate:"omitempty,gt=0,lte=1000"`
}

// RerouteRequest reports progress along a route: the index of the last
// fully driven segment, -1 when still at the start.
type RerouteRequest struct {
	Traversed *int `json:"traversed" validate:"required,min=-1"`
}

// TrafficChange is the outcome of a traffic mutation.
type TrafficChange struct {
	From           string   `json:"from,omitempty"`
	To             string   `json:"to,omitempty"`
	Status         string   `json:"status"`
	AffectedRoutes []string `json:"affected_routes"`
}
