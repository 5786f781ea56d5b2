// Package view holds the fixed cameras of the board and maps between world
// and screen space for the active one.
package view

import (
	"errors"

	"github.com/park285/cheese-hopboard/internal/board"
	"github.com/park285/cheese-hopboard/internal/scene"
)

var (
	ErrNoCameras   = errors.New("view: at least one camera is required")
	ErrBadSize     = errors.New("view: width and height must be positive")
	ErrOffScreen   = errors.New("view: point is not on screen")
	ErrMissedPlane = errors.New("view: ray does not hit the board plane")
)

// Controller owns an ordered camera list and the viewport size.
type Controller struct {
	cameras []*Camera
	active  int
	width   int
	height  int
}

// New builds a controller over copies of the given cameras with the first
// one active.
func New(cams []Camera, width, height int) (*Controller, error) {
	if len(cams) == 0 {
		return nil, ErrNoCameras
	}
	if width <= 0 || height <= 0 {
		return nil, ErrBadSize
	}
	v := &Controller{}
	for i := range cams {
		c := cams[i]
		v.cameras = append(v.cameras, &c)
	}
	v.Resize(width, height)
	return v, nil
}

func (v *Controller) Len() int         { return len(v.cameras) }
func (v *Controller) ActiveIndex() int { return v.active }
func (v *Controller) Active() Camera   { return *v.cameras[v.active] }
func (v *Controller) Size() (w, h int) { return v.width, v.height }

// Camera returns a copy of camera i.
func (v *Controller) Camera(i int) (Camera, bool) {
	if i < 0 || i >= len(v.cameras) {
		return Camera{}, false
	}
	return *v.cameras[i], true
}

// Select makes camera i active. Out-of-range indices are ignored.
func (v *Controller) Select(i int) bool {
	if i < 0 || i >= len(v.cameras) {
		return false
	}
	v.active = i
	return true
}

// Resize recomputes every camera's projection for the new viewport. A
// non-positive dimension leaves everything unchanged.
func (v *Controller) Resize(width, height int) bool {
	if width <= 0 || height <= 0 {
		return false
	}
	v.width, v.height = width, height
	aspect := float64(width) / float64(height)
	for _, c := range v.cameras {
		c.updateProjection(aspect)
	}
	return true
}

// Project maps a world point to pixel coordinates of the active camera.
// depth grows away from the camera.
func (v *Controller) Project(p scene.Vec3) (x, y, depth float64, err error) {
	nx, ny, depth, ok := v.cameras[v.active].ndc(p)
	if !ok {
		return 0, 0, depth, ErrOffScreen
	}
	x = (nx + 1) / 2 * float64(v.width)
	y = (1 - ny) / 2 * float64(v.height)
	return x, y, depth, nil
}

// Unproject intersects the pixel's view ray with the board plane y=0.
func (v *Controller) Unproject(px, py float64) (scene.Vec3, error) {
	nx := px/float64(v.width)*2 - 1
	ny := 1 - py/float64(v.height)*2
	origin, dir := v.cameras[v.active].ray(nx, ny)
	if dir.Y > -1e-9 && dir.Y < 1e-9 {
		return scene.Vec3{}, ErrMissedPlane
	}
	t := -origin.Y / dir.Y
	if t <= 0 {
		return scene.Vec3{}, ErrMissedPlane
	}
	return origin.Add(dir.Scale(t)), nil
}

// Pick returns the board square under the pixel, if any.
func (v *Controller) Pick(coords board.Coords, px, py float64) (board.Square, bool) {
	hit, err := v.Unproject(px, py)
	if err != nil {
		return board.Square{}, false
	}
	return coords.Containing(hit.X, hit.Z)
}
