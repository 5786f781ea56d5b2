// Package render draws the scene through the active camera into an RGBA
// frame: board squares and holding trays as projected quads, pieces as
// depth-sorted billboards, and a text HUD on top.
package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"math"
	"sort"

	"github.com/park285/cheese-hopboard/internal/board"
	"github.com/park285/cheese-hopboard/internal/scene"
	"github.com/park285/cheese-hopboard/internal/view"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

// Options carries the per-frame overlay.
type Options struct {
	Title  string
	Status string
	// Hover is the bottom-left readout, e.g. "Square: e4".
	Hover string
	// Highlight, if set, tints one square.
	Highlight *board.Square
}

type Renderer struct {
	coords board.Coords
	face   font.Face
}

func New(coords board.Coords) *Renderer {
	return &Renderer{coords: coords, face: basicfont.Face7x13}
}

var (
	backgroundColor  = color.RGBA{R: 24, G: 26, B: 38, A: 255}
	lightSquare      = color.RGBA{233, 207, 163, 255}
	darkSquare       = color.RGBA{187, 136, 96, 255}
	trayColor        = color.NRGBA{R: 92, G: 98, B: 124, A: 150}
	highlightColor   = color.NRGBA{R: 255, G: 228, B: 120, A: 140}
	pieceShadowColor = color.NRGBA{0, 0, 0, 70}
	hudPanelColor    = color.NRGBA{R: 28, G: 31, B: 46, A: 230}
	hudShadowColor   = color.NRGBA{0, 0, 0, 50}
	hudTextPrimary   = color.NRGBA{R: 236, G: 239, B: 255, A: 255}
	hudTextSecondary = color.NRGBA{R: 204, G: 210, B: 236, A: 255}
)

const (
	hudMargin    = 10
	hudPanelH    = 24
	hudPaddingX  = 12
	hudRadius    = 8
	hudShadowY   = 3
	minSpritePx  = 4
	spriteFactor = 0.9
)

// Render draws one frame of the scene through v's active camera.
func (r *Renderer) Render(ctx context.Context, scn *scene.Scene, v *view.Controller, opts Options) (*image.RGBA, error) {
	if scn == nil || v == nil {
		return nil, fmt.Errorf("render: scene and view are required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w, h := v.Size()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, imagedraw.Src)

	r.drawTrays(img, v)
	r.drawSquares(img, v)
	if opts.Highlight != nil {
		r.drawSquareOverlay(img, v, *opts.Highlight, highlightColor)
	}
	r.drawPieces(img, scn, v)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.drawHUD(img, opts)
	return img, nil
}

// RenderPNG renders and encodes the frame.
func (r *Renderer) RenderPNG(ctx context.Context, scn *scene.Scene, v *view.Controller, opts Options) ([]byte, error) {
	img, err := r.Render(ctx, scn, v, opts)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) drawSquares(img *image.RGBA, v *view.Controller) {
	for _, sq := range r.coords.Squares() {
		clr := lightSquare
		if (sq.File+sq.Rank)%2 == 0 {
			clr = darkSquare
		}
		r.drawSquareOverlay(img, v, sq, clr)
	}
}

func (r *Renderer) drawSquareOverlay(img *image.RGBA, v *view.Controller, sq board.Square, clr color.Color) {
	x, z := r.coords.ToWorld(sq)
	half := r.coords.SquareSize / 2
	r.fillWorldRect(img, v, x-half, z-half, x+half, z+half, clr)
}

// drawTrays shades both capture areas and both staging rows.
func (r *Renderer) drawTrays(img *image.RGBA, v *view.Controller) {
	s := r.coords.SquareSize
	half := s / 2
	for _, white := range []bool{true, false} {
		x0, z0 := r.coords.CaptureSlotWorld(white, 0, 0)
		x1, z1 := r.coords.CaptureSlotWorld(white, r.coords.Size-1, 1)
		r.fillWorldRect(img, v, x0-half, z0-half, x1+half, z1+half, trayColor)

		x0, z0 = r.coords.StagingSlotWorld(white, 0)
		x1, z1 = r.coords.StagingSlotWorld(white, r.coords.StagingSlots()-1)
		r.fillWorldRect(img, v, x0-half, z0-half, x1+half, z1+half, trayColor)
	}
}

// fillWorldRect projects an axis-aligned rectangle on the y=0 plane and
// fills it. Rectangles with a corner off screen are skipped.
func (r *Renderer) fillWorldRect(img *image.RGBA, v *view.Controller, x0, z0, x1, z1 float64, clr color.Color) {
	corners := [4]scene.Vec3{
		scene.V(x0, 0, z0), scene.V(x1, 0, z0), scene.V(x1, 0, z1), scene.V(x0, 0, z1),
	}
	var pts [4]pointF
	for i, c := range corners {
		px, py, _, err := v.Project(c)
		if err != nil {
			return
		}
		pts[i] = pointF{X: px, Y: py}
	}
	fillQuad(img, pts[0], pts[1], pts[2], pts[3], clr)
}

type sprite struct {
	img   image.Image
	rect  image.Rectangle
	base  image.Point
	depth float64
}

// drawPieces draws each attached entity as an upright billboard standing on
// its projected base point, far to near.
func (r *Renderer) drawPieces(img *image.RGBA, scn *scene.Scene, v *view.Controller) {
	var sprites []sprite
	for _, e := range scn.Entities() {
		if e.Model == nil || e.Model.Image() == nil {
			continue
		}
		if s, ok := r.placeSprite(v, e); ok {
			sprites = append(sprites, s)
		}
	}
	sort.SliceStable(sprites, func(i, j int) bool { return sprites[i].depth > sprites[j].depth })
	for _, s := range sprites {
		drawDisc(img, s.base, max(s.rect.Dx()/5, 1), pieceShadowColor)
		xdraw.ApproxBiLinear.Scale(img, s.rect, s.img, s.img.Bounds(), xdraw.Over, nil)
	}
}

func (r *Renderer) placeSprite(v *view.Controller, e *scene.Entity) (sprite, bool) {
	pos := e.Position()
	bx, by, depth, err := v.Project(pos)
	if err != nil {
		return sprite{}, false
	}
	tx, ty, _, err := v.Project(pos.Add(scene.Vec3{Y: e.Model.Height()}))
	if err != nil {
		return sprite{}, false
	}
	sx, sy, _, err := v.Project(pos.Add(scene.Vec3{X: r.coords.SquareSize}))
	if err != nil {
		return sprite{}, false
	}
	upright := math.Hypot(tx-bx, ty-by)
	across := math.Hypot(sx-bx, sy-by) * spriteFactor
	size := int(math.Round(math.Max(upright, across)))
	if size < minSpritePx {
		return sprite{}, false
	}

	// Looking straight down the piece has no upright extent; centre it.
	top := int(math.Round(by)) - size
	if upright < across/2 {
		top = int(math.Round(by)) - size/2
	}
	left := int(math.Round(bx)) - size/2
	return sprite{
		img:   e.Model.Image(),
		rect:  image.Rect(left, top, left+size, top+size),
		base:  image.Pt(int(math.Round(bx)), int(math.Round(by))),
		depth: depth,
	}, true
}

func (r *Renderer) drawHUD(img *image.RGBA, opts Options) {
	drawer := &font.Drawer{Dst: img, Face: r.face}
	bounds := img.Bounds()
	maxWidth := bounds.Dx() - 2*hudMargin

	y := hudMargin
	for _, line := range []struct {
		text string
		clr  color.Color
	}{
		{opts.Title, hudTextPrimary},
		{opts.Status, hudTextSecondary},
	} {
		if line.text == "" {
			continue
		}
		r.drawPanel(img, drawer, image.Pt(hudMargin, y), line.text, maxWidth, line.clr)
		y += hudPanelH + hudMargin/2
	}
	if opts.Hover != "" {
		r.drawPanel(img, drawer, image.Pt(hudMargin, bounds.Max.Y-hudMargin-hudPanelH), opts.Hover, maxWidth, hudTextPrimary)
	}
}

func (r *Renderer) drawPanel(img *image.RGBA, drawer *font.Drawer, at image.Point, text string, maxWidth int, clr color.Color) {
	text = truncateWithEllipsis(r.face, text, maxWidth-2*hudPaddingX)
	if text == "" {
		return
	}
	width := min(drawer.MeasureString(text).Round()+2*hudPaddingX, maxWidth)
	rect := image.Rect(at.X, at.Y, at.X+width, at.Y+hudPanelH)
	drawRoundedPanel(img, rect.Add(image.Pt(0, hudShadowY)), hudRadius, hudShadowColor)
	drawRoundedPanel(img, rect, hudRadius, hudPanelColor)
	drawCenteredString(drawer, rect, text, clr)
}
