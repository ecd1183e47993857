package models

// Color is an RGB triple. Each channel is 0-255.
type Color struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// NeutralGray is the color every player starts with on join.
var NeutralGray = Color{R: 127, G: 127, B: 127}

// Player is a single member of a session, identified by username within that session.
type Player struct {
	Username string `json:"username"`
	Color    Color  `json:"color"`
}
