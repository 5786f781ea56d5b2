package render

import (
	"image"
	"image/color"
	imagedraw "image/draw"
	"math"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

type pointF struct {
	X float64
	Y float64
}

func fillQuad(img *image.RGBA, p0, p1, p2, p3 pointF, clr color.Color) {
	fillTriangleF(img, p0, p1, p2, clr)
	fillTriangleF(img, p0, p2, p3, clr)
}

func fillTriangleF(img *image.RGBA, a, b, c pointF, clr color.Color) {
	bounds := img.Bounds()
	minX := max(int(math.Floor(min(a.X, b.X, c.X))), bounds.Min.X)
	maxX := min(int(math.Ceil(max(a.X, b.X, c.X))), bounds.Max.X-1)
	minY := max(int(math.Floor(min(a.Y, b.Y, c.Y))), bounds.Min.Y)
	maxY := min(int(math.Ceil(max(a.Y, b.Y, c.Y))), bounds.Max.Y-1)

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			if pointInTriangleFloat(float64(x)+0.5, float64(y)+0.5, a, b, c) {
				blendPixel(img, x, y, clr)
			}
		}
	}
}

// pointInTriangleFloat accepts either winding.
func pointInTriangleFloat(x, y float64, a, b, c pointF) bool {
	denom := (b.Y-c.Y)*(a.X-c.X) + (c.X-b.X)*(a.Y-c.Y)
	if denom == 0 {
		return false
	}
	alpha := ((b.Y-c.Y)*(x-c.X) + (c.X-b.X)*(y-c.Y)) / denom
	beta := ((c.Y-a.Y)*(x-c.X) + (a.X-c.X)*(y-c.Y)) / denom
	gamma := 1 - alpha - beta
	return alpha >= 0 && beta >= 0 && gamma >= 0
}

func blendPixel(img *image.RGBA, x, y int, clr color.Color) {
	if !(image.Point{X: x, Y: y}).In(img.Bounds()) {
		return
	}
	sr, sg, sb, sa := clr.RGBA()
	srcA := float64(sa) / 65535.0
	if srcA <= 0 {
		return
	}
	// RGBA() is premultiplied
	dst := img.RGBAAt(x, y)
	inv := 1 - srcA
	img.SetRGBA(x, y, color.RGBA{
		R: floatToUint8(float64(sr)/257 + float64(dst.R)*inv),
		G: floatToUint8(float64(sg)/257 + float64(dst.G)*inv),
		B: floatToUint8(float64(sb)/257 + float64(dst.B)*inv),
		A: floatToUint8(srcA*255 + float64(dst.A)*inv),
	})
}

func floatToUint8(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}

func drawDisc(img *image.RGBA, center image.Point, radius int, clr color.Color) {
	if radius <= 0 {
		blendPixel(img, center.X, center.Y, clr)
		return
	}
	rSquared := radius * radius
	for y := -radius; y <= radius; y++ {
		for x := -radius; x <= radius; x++ {
			if x*x+y*y > rSquared {
				continue
			}
			blendPixel(img, center.X+x, center.Y+y, clr)
		}
	}
}

// drawRoundedPanel fills rect with rounded corners. Corner discs overlap the
// edge strips, so translucent colours darken slightly at the corners.
func drawRoundedPanel(img *image.RGBA, rect image.Rectangle, radius int, clr color.Color) {
	if rect.Empty() {
		return
	}
	radius = max(radius, 0)
	radius = min(radius, rect.Dx()/2, rect.Dy()/2)
	fill := image.NewUniform(clr)
	if radius == 0 {
		imagedraw.Draw(img, rect, fill, image.Point{}, imagedraw.Over)
		return
	}

	core := image.Rect(rect.Min.X+radius, rect.Min.Y, rect.Max.X-radius, rect.Max.Y)
	imagedraw.Draw(img, core, fill, image.Point{}, imagedraw.Over)
	left := image.Rect(rect.Min.X, rect.Min.Y+radius, rect.Min.X+radius, rect.Max.Y-radius)
	imagedraw.Draw(img, left, fill, image.Point{}, imagedraw.Over)
	right := image.Rect(rect.Max.X-radius, rect.Min.Y+radius, rect.Max.X, rect.Max.Y-radius)
	imagedraw.Draw(img, right, fill, image.Point{}, imagedraw.Over)

	for _, c := range []image.Point{
		{rect.Min.X + radius, rect.Min.Y + radius},
		{rect.Max.X - radius - 1, rect.Min.Y + radius},
		{rect.Min.X + radius, rect.Max.Y - radius - 1},
		{rect.Max.X - radius - 1, rect.Max.Y - radius - 1},
	} {
		drawCornerQuadrant(img, c, radius, rect, clr)
	}
}

// drawCornerQuadrant paints the part of a corner disc that lies outside the
// strips already drawn.
func drawCornerQuadrant(img *image.RGBA, center image.Point, radius int, rect image.Rectangle, clr color.Color) {
	rSquared := radius * radius
	for y := -radius; y <= radius; y++ {
		for x := -radius; x <= radius; x++ {
			if x*x+y*y > rSquared {
				continue
			}
			px, py := center.X+x, center.Y+y
			inCoreX := px >= rect.Min.X+radius && px < rect.Max.X-radius
			inSideY := py >= rect.Min.Y+radius && py < rect.Max.Y-radius
			if inCoreX || inSideY || !(image.Point{X: px, Y: py}).In(rect) {
				continue
			}
			blendPixel(img, px, py, clr)
		}
	}
}

func truncateWithEllipsis(face font.Face, text string, maxWidth int) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || maxWidth <= 0 || face == nil {
		return trimmed
	}

	drawer := font.Drawer{Face: face}
	if drawer.MeasureString(trimmed).Round() <= maxWidth {
		return trimmed
	}

	ellipsis := "..."
	if drawer.MeasureString(ellipsis).Round() > maxWidth {
		return ""
	}

	runes := []rune(trimmed)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		candidate := string(runes) + ellipsis
		if drawer.MeasureString(candidate).Round() <= maxWidth {
			return candidate
		}
	}
	return ellipsis
}

func drawCenteredString(drawer *font.Drawer, rect image.Rectangle, text string, clr color.Color) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	metrics := drawer.Face.Metrics()
	width := drawer.MeasureString(text).Round()
	x := max(rect.Min.X+(rect.Dx()-width)/2, rect.Min.X)
	baseline := rect.Min.Y + (rect.Dy()+metrics.Ascent.Ceil()-metrics.Descent.Ceil())/2
	drawer.Src = image.NewUniform(clr)
	drawer.Dot = fixed.P(x, baseline)
	drawer.DrawString(text)
}
