package models

// Level is one row of the static level table.
type Level struct {
	Level     int    `json:"level"`
	Name      string `json:"name"`
	MinPoints int    `json:"minPoints"`
	Icon      string `json:"icon"`
}

// Achievement describes a permanent milestone.
type Achievement struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}
