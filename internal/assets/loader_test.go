package assets

import (
	"errors"
	"io/fs"
	"testing"
	"testing/fstest"

	"github.com/park285/cheese-hopboard/internal/pieces"
)

func opaquePixels(t *testing.T, m *Model) int {
	t.Helper()
	img := m.Image()
	n := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a > 0 {
				n++
			}
		}
	}
	return n
}

func TestLoadAllEmbedded(t *testing.T) {
	l := NewLoader(nil, 48)
	set, err := l.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	count := 0
	for c, kinds := range set {
		for k, m := range kinds {
			count++
			if m.Name() != Name(c, k) {
				t.Fatalf("name = %s, want %s", m.Name(), Name(c, k))
			}
			if b := m.Image().Bounds(); b.Dx() != 48 || b.Dy() != 48 {
				t.Fatalf("%s bounds = %v", m.Name(), b)
			}
			if m.Height() <= 0 {
				t.Fatalf("%s height = %v", m.Name(), m.Height())
			}
			if opaquePixels(t, m) == 0 {
				t.Fatalf("%s rasterized to nothing", m.Name())
			}
		}
	}
	if count != 12 {
		t.Fatalf("models = %d, want 12", count)
	}
	if set[pieces.White][pieces.King].Height() <= set[pieces.White][pieces.Pawn].Height() {
		t.Fatalf("king not taller than pawn")
	}
}

func TestLoadCaches(t *testing.T) {
	l := NewLoader(nil, 32)
	a, err := l.Load(pieces.Black, pieces.Queen)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	b, _ := l.Load(pieces.Black, pieces.Queen)
	if a != b {
		t.Fatalf("second Load did not hit the cache")
	}
}

func TestMissingAssetIsLoadError(t *testing.T) {
	fsys := fstest.MapFS{
		"pieces/wP.svg": {Data: []byte(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 45 45"><circle cx="22" cy="22" r="10" style="fill:#fff"/></svg>`)},
	}
	l := NewLoader(fsys, 16)
	if _, err := l.Load(pieces.White, pieces.Pawn); err != nil {
		t.Fatalf("Load wP: %v", err)
	}
	_, err := l.LoadAll()
	var le *AssetLoadError
	if !errors.As(err, &le) {
		t.Fatalf("err = %v, want *AssetLoadError", err)
	}
	if le.Name != "pieces/wR.svg" || !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("load error = %+v", le)
	}
}

func TestMalformedSVGIsLoadError(t *testing.T) {
	fsys := fstest.MapFS{"pieces/bN.svg": {Data: []byte(`<svg><path d="M 0,0`)}}
	_, err := NewLoader(fsys, 16).Load(pieces.Black, pieces.Knight)
	var le *AssetLoadError
	if !errors.As(err, &le) || le.Name != "pieces/bN.svg" {
		t.Fatalf("err = %v", err)
	}
}

func TestSanitizeSVG(t *testing.T) {
	got := string(sanitizeSVG([]byte(`style="fill: 000000;stroke: #ffffff"`)))
	if got != `style="fill:#000000;stroke:#ffffff"` {
		t.Fatalf("sanitized = %s", got)
	}
}
