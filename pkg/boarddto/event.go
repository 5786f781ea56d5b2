package boarddto

import "time"

type Capture struct {
	Piece int       `json:"piece"`
	Color string    `json:"color"`
	Kind  string    `json:"kind"`
	Slot  Placement `json:"slot"`
}

type Move struct {
	Seq     int       `json:"seq"`
	Piece   int       `json:"piece"`
	Color   string    `json:"color"`
	Kind    string    `json:"kind"`
	From    Placement `json:"from"`
	To      Placement `json:"to"`
	Capture *Capture  `json:"capture,omitempty"`
}

type Event struct {
	Type    string    `json:"type"`
	Move    *Move     `json:"move,omitempty"`
	Reason  string    `json:"reason,omitempty"`
	State   State     `json:"state"`
	ClockMS int64     `json:"clock_ms"`
	At      time.Time `json:"at"`
	// Summary is a one-line human readable rendering of the event.
	Summary string `json:"summary,omitempty"`
}
