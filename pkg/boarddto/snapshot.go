package boarddto

type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Placement is where a piece is: "board" with a square name, or "captured"
// / "staging" with a slot index.
type Placement struct {
	Kind   string `json:"kind"`
	Square string `json:"square,omitempty"`
	Slot   *int   `json:"slot,omitempty"`
}

type PieceView struct {
	ID        int       `json:"id"`
	Color     string    `json:"color"`
	Kind      string    `json:"kind"`
	Placement Placement `json:"placement"`
	Position  Vec3      `json:"position"`
	Visible   bool      `json:"visible"`
}

type State struct {
	SessionID   string `json:"session_id"`
	ActiveColor string `json:"active_color"`
	Running     bool   `json:"running"`
	InFlight    bool   `json:"in_flight"`
	Moves       int    `json:"moves"`
}

type Snapshot struct {
	State          State            `json:"state"`
	Phase          string           `json:"phase"`
	Progress       float64          `json:"progress"`
	ClockMS        int64            `json:"clock_ms"`
	Pieces         []PieceView      `json:"pieces"`
	CaptureAreas   map[string][]int `json:"capture_areas"`
	FEN            string           `json:"fen,omitempty"`
	Pending        bool             `json:"pending"`
	PendingAfterMS int64            `json:"pending_after_ms,omitempty"`
	Camera         int              `json:"camera"`
	CameraName     string           `json:"camera_name,omitempty"`
	Hover          string           `json:"hover,omitempty"`
}
