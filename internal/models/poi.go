package models

// POI is a named place on the map, such as a shop or a park.
type POI struct {
	ID   int64   `json:"id"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
	Kind string  `json:"kind"`
	Name string  `json:"name"`
}
