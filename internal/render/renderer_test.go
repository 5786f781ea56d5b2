package render

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/park285/cheese-hopboard/internal/board"
	"github.com/park285/cheese-hopboard/internal/scene"
	"github.com/park285/cheese-hopboard/internal/view"
	"golang.org/x/image/font/basicfont"
)

type solidModel struct {
	img *image.RGBA
}

func newSolidModel(c color.RGBA) solidModel {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return solidModel{img: img}
}

func (m solidModel) Image() image.Image { return m.img }
func (m solidModel) Height() float64    { return 1 }

func topView(t *testing.T) *view.Controller {
	t.Helper()
	v, err := view.New(view.DefaultCameras(), 240, 240)
	if err != nil {
		t.Fatalf("view.New: %v", err)
	}
	return v
}

func TestRenderBoardUnderTopCamera(t *testing.T) {
	coords := board.DefaultCoords()
	r := New(coords)
	v := topView(t)
	img, err := r.Render(context.Background(), scene.New(coords), v, Options{})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if img.Bounds().Dx() != 240 || img.Bounds().Dy() != 240 {
		t.Fatalf("bounds = %v", img.Bounds())
	}
	for _, sq := range []board.Square{{File: 0, Rank: 0}, {File: 3, Rank: 4}, {File: 7, Rank: 7}} {
		x, z := coords.ToWorld(sq)
		px, py, _, err := v.Project(scene.V(x, 0, z))
		if err != nil {
			t.Fatalf("Project %s: %v", sq, err)
		}
		want := lightSquare
		if (sq.File+sq.Rank)%2 == 0 {
			want = darkSquare
		}
		if got := img.RGBAAt(int(px), int(py)); got != want {
			t.Fatalf("%s pixel = %v, want %v", sq, got, want)
		}
	}
	if got := img.RGBAAt(2, 120); got != backgroundColor {
		t.Fatalf("margin pixel = %v", got)
	}
}

func TestRenderDrawsAttachedPiecesOnly(t *testing.T) {
	coords := board.DefaultCoords()
	r := New(coords)
	v := topView(t)
	scn := scene.New(coords)
	red := color.RGBA{R: 250, A: 255}
	sq := board.Square{File: 4, Rank: 3}
	scn.Add(1, newSolidModel(red), "K", scn.SquarePosition(sq), scene.GroupBoard)

	x, z := coords.ToWorld(sq)
	px, py, _, _ := v.Project(scene.V(x, 0, z))

	img, err := r.Render(context.Background(), scn, v, Options{})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got := img.RGBAAt(int(px), int(py)); got.R < 200 || got.G > 40 {
		t.Fatalf("piece pixel = %v", got)
	}

	scn.Detach(1)
	img, _ = r.Render(context.Background(), scn, v, Options{})
	if got := img.RGBAAt(int(px), int(py)); got == red {
		t.Fatalf("detached piece still drawn")
	}
}

func TestRenderHighlightAndHUD(t *testing.T) {
	coords := board.DefaultCoords()
	r := New(coords)
	v := topView(t)
	sq := board.Square{File: 2, Rank: 2}
	plain, _ := r.Render(context.Background(), scene.New(coords), v, Options{})
	lit, _ := r.Render(context.Background(), scene.New(coords), v, Options{Highlight: &sq, Hover: "Square: c3", Title: "hopboard"})

	x, z := coords.ToWorld(sq)
	px, py, _, _ := v.Project(scene.V(x, 0, z))
	if plain.RGBAAt(int(px), int(py)) == lit.RGBAAt(int(px), int(py)) {
		t.Fatalf("highlight not drawn")
	}
	tx, ty := hudMargin+hudRadius+2, hudMargin+hudPanelH/2
	if plain.RGBAAt(tx, ty) == lit.RGBAAt(tx, ty) {
		t.Fatalf("title panel not drawn")
	}
	hy := 240 - hudMargin - hudPanelH/2
	if plain.RGBAAt(tx, hy) == lit.RGBAAt(tx, hy) {
		t.Fatalf("hover panel not drawn")
	}
}

func TestRenderPNGDecodes(t *testing.T) {
	coords := board.DefaultCoords()
	v := topView(t)
	v.Select(1)
	b, err := New(coords).RenderPNG(context.Background(), scene.New(coords), v, Options{Status: "paused"})
	if err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds().Dx() != 240 {
		t.Fatalf("bounds = %v", img.Bounds())
	}
}

func TestRenderHonoursCancelledContext(t *testing.T) {
	coords := board.DefaultCoords()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(coords).Render(ctx, scene.New(coords), topView(t), Options{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}

func TestTruncateWithEllipsis(t *testing.T) {
	face := basicfont.Face7x13
	if got := truncateWithEllipsis(face, "  short ", 100); got != "short" {
		t.Fatalf("got %q", got)
	}
	if got := truncateWithEllipsis(face, "a fairly long status line", 70); got != "a fairl..." {
		t.Fatalf("got %q", got)
	}
	if got := truncateWithEllipsis(face, "abc", 10); got != "" {
		t.Fatalf("got %q", got)
	}
}
