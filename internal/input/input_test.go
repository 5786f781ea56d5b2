package input

import (
	"errors"
	"testing"

	"github.com/park285/cheese-hopboard/internal/board"
	"github.com/park285/cheese-hopboard/internal/msgcat"
	"github.com/park285/cheese-hopboard/internal/view"
)

type fakeSession struct {
	running bool
	resets  int
	err     error
}

func (f *fakeSession) ToggleRunning() bool { f.running = !f.running; return f.running }
func (f *fakeSession) Reset() error        { f.resets++; return f.err }

func newHandler(t *testing.T) (*Handler, *fakeSession, *view.Controller) {
	t.Helper()
	v, err := view.New(view.DefaultCameras(), 800, 800)
	if err != nil {
		t.Fatalf("view.New: %v", err)
	}
	cat, err := msgcat.New("")
	if err != nil {
		t.Fatalf("msgcat.New: %v", err)
	}
	s := &fakeSession{}
	return NewHandler(s, v, board.DefaultCoords(), cat, nil), s, v
}

func TestParseKey(t *testing.T) {
	cases := []struct {
		key    string
		action Action
		idx    int
	}{
		{"0", ActionSelectCamera, 0},
		{"3", ActionSelectCamera, 3},
		{"9", ActionSelectCamera, 9},
		{"r", ActionReset, 0},
		{"R", ActionReset, 0},
		{" ", ActionToggleRunning, 0},
		{"space", ActionToggleRunning, 0},
	}
	for _, tc := range cases {
		a, i, err := ParseKey(tc.key)
		if err != nil || a != tc.action || i != tc.idx {
			t.Fatalf("ParseKey(%q) = %s,%d,%v", tc.key, a, i, err)
		}
	}
	for _, k := range []string{"", "x", "10", "enter"} {
		if _, _, err := ParseKey(k); !errors.Is(err, ErrUnknownKey) {
			t.Fatalf("ParseKey(%q) err = %v", k, err)
		}
	}
}

func TestKeysDriveSessionAndView(t *testing.T) {
	h, s, v := newHandler(t)

	res, err := h.Key(" ")
	if err != nil || !res.Running || !s.running {
		t.Fatalf("space: %+v %v", res, err)
	}
	res, _ = h.Key(" ")
	if res.Running || s.running {
		t.Fatalf("second space did not pause")
	}
	if _, err := h.Key("R"); err != nil || s.resets != 1 {
		t.Fatalf("reset: resets=%d err=%v", s.resets, err)
	}
	if res, _ := h.Key("2"); !res.Applied || v.ActiveIndex() != 2 {
		t.Fatalf("camera 2: %+v active=%d", res, v.ActiveIndex())
	}
	if res, _ := h.Key("7"); res.Applied || v.ActiveIndex() != 2 {
		t.Fatalf("camera 7 should be ignored: %+v active=%d", res, v.ActiveIndex())
	}
}

func TestResetErrorSurfaces(t *testing.T) {
	h, s, _ := newHandler(t)
	s.err = errors.New("boom")
	if _, err := h.Key("r"); err == nil {
		t.Fatalf("expected reset error")
	}
}

func TestPointerHover(t *testing.T) {
	h, _, v := newHandler(t)
	v.Select(0)
	coords := board.DefaultCoords()
	want := board.Square{File: 4, Rank: 3}
	x, z := coords.ToWorld(want)
	// top camera: H=12 over 800px, screen up is world -z
	px := 400 + x/12*400
	py := 400 + z/12*400

	sq, ok := h.Pointer(px, py)
	if !ok || sq != want {
		t.Fatalf("Pointer = %s,%v want %s", sq, ok, want)
	}
	if got := h.HoverText(); got != "Square: "+want.String() {
		t.Fatalf("hover text = %q", got)
	}
	if _, ok := h.Pointer(5, 5); ok {
		t.Fatalf("corner pointer hit the board")
	}
	if h.HoverText() != "" {
		t.Fatalf("hover text not cleared")
	}
}

func TestCameraSwitchRefreshesHover(t *testing.T) {
	h, _, v := newHandler(t)
	v.Select(0)
	h.Pointer(400+0.5/12*400, 400+0.5/12*400)
	before, _ := h.Hover()
	h.Key("3")
	after, ok := h.Hover()
	if ok && after == before {
		t.Fatalf("hover not recomputed after camera switch: %s", after)
	}
}
