package models

// GraphData is a map fragment for drawing: junctions and the roads between
// them.
type GraphData struct {
	Nodes []Node `json:"nodes"`
	Links []Link `json:"links"`
}

type Node struct {
	ID  string  `json:"id"`
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type Link struct {
	Source     string  `json:"source"`
	Target     string  `json:"target"`
	Name       string  `json:"name"`
	Class      string  `json:"class"`
	Status     string  `json:"status"`
	LengthM    float64 `json:"length_m"`
	Multiplier float64 `json:"multiplier,omitempty"`
	Passable   bool    `json:"passable"`
}
