// Package assets loads the twelve piece models from SVG sources and
// rasterizes them into sprites the renderer can scale.
package assets

import (
	"bytes"
	"embed"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io/fs"
	"sync"

	"github.com/park285/cheese-hopboard/internal/pieces"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

//go:embed pieces/*.svg
var pieceFiles embed.FS

// DefaultSpriteSize is the rasterized edge length in pixels.
const DefaultSpriteSize = 128

// AssetLoadError reports a piece model that could not be read or parsed.
// Loading is all-or-nothing, so callers treat it as fatal.
type AssetLoadError struct {
	Name string
	Err  error
}

func (e *AssetLoadError) Error() string {
	return fmt.Sprintf("load piece asset %s: %v", e.Name, e.Err)
}

func (e *AssetLoadError) Unwrap() error { return e.Err }

// model heights in world units, by kind
var kindHeights = map[pieces.Kind]float64{
	pieces.Pawn:   0.8,
	pieces.Rook:   0.95,
	pieces.Knight: 1.05,
	pieces.Bishop: 1.15,
	pieces.Queen:  1.3,
	pieces.King:   1.4,
}

// Model is a loaded piece sprite.
type Model struct {
	name   string
	img    image.Image
	height float64
}

func (m *Model) Name() string       { return m.name }
func (m *Model) Image() image.Image { return m.img }
func (m *Model) Height() float64    { return m.height }

type modelKey struct {
	color pieces.Color
	kind  pieces.Kind
}

// Loader reads SVG sources from a filesystem and caches the rasterized
// models. It is safe for concurrent use.
type Loader struct {
	fsys fs.FS
	size int

	mu    sync.RWMutex
	cache map[modelKey]*Model
}

// NewLoader uses the embedded piece set when fsys is nil.
func NewLoader(fsys fs.FS, size int) *Loader {
	if fsys == nil {
		fsys = pieceFiles
	}
	if size <= 0 {
		size = DefaultSpriteSize
	}
	return &Loader{fsys: fsys, size: size, cache: map[modelKey]*Model{}}
}

// Name is the source path of a piece model, e.g. "pieces/wK.svg".
func Name(c pieces.Color, k pieces.Kind) string {
	prefix := "w"
	if c == pieces.Black {
		prefix = "b"
	}
	return fmt.Sprintf("pieces/%s%s.svg", prefix, k.Letter())
}

func (l *Loader) Load(c pieces.Color, k pieces.Kind) (*Model, error) {
	key := modelKey{color: c, kind: k}

	l.mu.RLock()
	if m, ok := l.cache[key]; ok {
		l.mu.RUnlock()
		return m, nil
	}
	l.mu.RUnlock()

	name := Name(c, k)
	data, err := fs.ReadFile(l.fsys, name)
	if err != nil {
		return nil, &AssetLoadError{Name: name, Err: err}
	}
	img, err := rasterize(data, l.size)
	if err != nil {
		return nil, &AssetLoadError{Name: name, Err: err}
	}
	m := &Model{name: name, img: img, height: kindHeights[k]}

	l.mu.Lock()
	l.cache[key] = m
	l.mu.Unlock()
	return m, nil
}

// LoadAll loads every color and kind. Any failure aborts the whole set.
func (l *Loader) LoadAll() (map[pieces.Color]map[pieces.Kind]*Model, error) {
	out := map[pieces.Color]map[pieces.Kind]*Model{}
	for _, c := range []pieces.Color{pieces.White, pieces.Black} {
		out[c] = map[pieces.Kind]*Model{}
		for _, k := range pieces.Kinds() {
			m, err := l.Load(c, k)
			if err != nil {
				return nil, err
			}
			out[c][k] = m
		}
	}
	return out, nil
}

func rasterize(data []byte, size int) (image.Image, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(sanitizeSVG(data)))
	if err != nil {
		return nil, fmt.Errorf("parse svg: %w", err)
	}
	if icon.ViewBox.W <= 0 {
		icon.ViewBox.W = float64(size)
	}
	if icon.ViewBox.H <= 0 {
		icon.ViewBox.H = float64(size)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)
	return img, nil
}

// sanitizeSVG patches colour notations oksvg rejects.
func sanitizeSVG(svg []byte) []byte {
	fixed := bytes.ReplaceAll(svg, []byte("fill:000000"), []byte("fill:#000000"))
	fixed = bytes.ReplaceAll(fixed, []byte("fill: 000000"), []byte("fill:#000000"))
	fixed = bytes.ReplaceAll(fixed, []byte("stroke: 000000"), []byte("stroke:#000000"))
	fixed = bytes.ReplaceAll(fixed, []byte("fill: #"), []byte("fill:#"))
	fixed = bytes.ReplaceAll(fixed, []byte("stroke: #"), []byte("stroke:#"))
	return fixed
}
