// Package input maps key presses and pointer motion onto the session and
// view controllers, the way the browser page mapped its keydown and
// mousemove listeners.
package input

import (
	"errors"
	"fmt"
	"strings"

	"github.com/park285/cheese-hopboard/internal/board"
	"github.com/park285/cheese-hopboard/internal/msgcat"
	"go.uber.org/zap"
)

var ErrUnknownKey = errors.New("unknown key")

type Action int

const (
	ActionNone Action = iota
	ActionSelectCamera
	ActionReset
	ActionToggleRunning
)

func (a Action) String() string {
	switch a {
	case ActionSelectCamera:
		return "select_camera"
	case ActionReset:
		return "reset"
	case ActionToggleRunning:
		return "toggle_running"
	default:
		return "none"
	}
}

// ParseKey maps a key name to an action. Digits select a camera by index;
// "r"/"R" reset; " " or "space" toggles auto-play.
func ParseKey(key string) (Action, int, error) {
	switch key {
	case "r", "R":
		return ActionReset, 0, nil
	case " ", "space", "Space":
		return ActionToggleRunning, 0, nil
	}
	if len(key) == 1 && key[0] >= '0' && key[0] <= '9' {
		return ActionSelectCamera, int(key[0] - '0'), nil
	}
	return ActionNone, 0, fmt.Errorf("%w: %q", ErrUnknownKey, key)
}

// Session is the part of the session controller the keyboard drives.
type Session interface {
	ToggleRunning() bool
	Reset() error
}

// View is the part of the view controller the keyboard and pointer drive.
type View interface {
	Select(i int) bool
	Pick(coords board.Coords, x, y float64) (board.Square, bool)
}

// Result says what a key press did.
type Result struct {
	Action  Action
	Camera  int
	Applied bool
	Running bool
}

// Handler is not safe for concurrent use; it runs on the frame loop.
type Handler struct {
	session Session
	view    View
	coords  board.Coords
	catalog *msgcat.Catalog
	logger  *zap.Logger

	hover      *board.Square
	hoverAt    [2]float64
	pointerSet bool
}

func NewHandler(s Session, v View, coords board.Coords, cat *msgcat.Catalog, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{session: s, view: v, coords: coords, catalog: cat, logger: logger}
}

// Key applies one key press. Unknown keys are reported and change nothing;
// a digit without a matching camera is ignored.
func (h *Handler) Key(key string) (Result, error) {
	action, idx, err := ParseKey(key)
	if err != nil {
		return Result{}, err
	}
	res := Result{Action: action}
	switch action {
	case ActionSelectCamera:
		res.Camera = idx
		res.Applied = h.view.Select(idx)
		// the hovered square depends on the camera
		h.refreshHover()
	case ActionReset:
		if err := h.session.Reset(); err != nil {
			return res, err
		}
		res.Applied = true
	case ActionToggleRunning:
		res.Running = h.session.ToggleRunning()
		res.Applied = true
	}
	h.logger.Debug("key_input", zap.String("key", strings.TrimSpace(key)), zap.Stringer("action", action), zap.Bool("applied", res.Applied))
	return res, nil
}

// Pointer records the pointer position and returns the square under it.
func (h *Handler) Pointer(x, y float64) (board.Square, bool) {
	h.hoverAt = [2]float64{x, y}
	h.pointerSet = true
	sq, ok := h.view.Pick(h.coords, x, y)
	if !ok {
		h.hover = nil
		return board.Square{}, false
	}
	h.hover = &sq
	return sq, true
}

// Hover returns the square under the pointer, if any.
func (h *Handler) Hover() (board.Square, bool) {
	if h.hover == nil {
		return board.Square{}, false
	}
	return *h.hover, true
}

// HoverText is the HUD readout for the hovered square, empty when the
// pointer is off the board.
func (h *Handler) HoverText() string {
	sq, ok := h.Hover()
	if !ok {
		return ""
	}
	return h.catalog.Text("hud.hover", map[string]any{"Square": sq.String()}, "Square: "+sq.String())
}

func (h *Handler) refreshHover() {
	if h.pointerSet {
		h.Pointer(h.hoverAt[0], h.hoverAt[1])
	}
}
