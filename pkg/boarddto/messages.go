package boarddto

// Websocket message types.
const (
	MsgKey      = "key"
	MsgPointer  = "pointer"
	MsgResize   = "resize"
	MsgEvent    = "event"
	MsgSnapshot = "snapshot"
	MsgError    = "error"
	MsgHover    = "hover"
)

// ClientMessage is sent by websocket clients.
type ClientMessage struct {
	Type   string  `json:"type"`
	Key    string  `json:"key,omitempty"`
	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
	Width  int     `json:"width,omitempty"`
	Height int     `json:"height,omitempty"`
}

// ServerMessage is pushed to websocket clients.
type ServerMessage struct {
	Type     string       `json:"type"`
	Event    *Event       `json:"event,omitempty"`
	Snapshot *Snapshot    `json:"snapshot,omitempty"`
	Pick     *PickResult  `json:"pick,omitempty"`
	Error    *DomainError `json:"error,omitempty"`
}

type KeyResult struct {
	Action  string `json:"action"`
	Applied bool   `json:"applied"`
	Running bool   `json:"running"`
	Camera  int    `json:"camera"`
}

type PickResult struct {
	Square string `json:"square,omitempty"`
	Hit    bool   `json:"hit"`
	Text   string `json:"text,omitempty"`
}

type ResizeResult struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type Health struct {
	Status    string `json:"status"`
	SessionID string `json:"session_id"`
	Frames    int64  `json:"frames"`
}
