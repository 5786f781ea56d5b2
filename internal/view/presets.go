package view

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/park285/cheese-hopboard/internal/scene"
	yaml "gopkg.in/yaml.v3"
)

const (
	defaultNear = 0.1
	defaultFar  = 100
	defaultFOV  = 45
)

// DefaultCameras is the built-in set: top-down orthographic, white's and
// black's side, and a side view. All look at the board centre.
func DefaultCameras() []Camera {
	return []Camera{
		{Name: "top", Projection: Orthographic, HalfHeight: 12, Near: defaultNear, Far: defaultFar, Position: scene.V(0, 15, 0)},
		{Name: "white", Projection: Perspective, FOV: defaultFOV, Near: defaultNear, Far: defaultFar, Position: scene.V(0, 8, 12)},
		{Name: "black", Projection: Perspective, FOV: defaultFOV, Near: defaultNear, Far: defaultFar, Position: scene.V(0, 8, -12)},
		{Name: "side", Projection: Perspective, FOV: defaultFOV, Near: defaultNear, Far: defaultFar, Position: scene.V(12, 8, 0)},
	}
}

type presetFile struct {
	Cameras []presetCamera `yaml:"cameras"`
}

type presetCamera struct {
	Name       string     `yaml:"name"`
	Type       string     `yaml:"type"`
	FOV        float64    `yaml:"fov"`
	HalfHeight float64    `yaml:"half_height"`
	Near       float64    `yaml:"near"`
	Far        float64    `yaml:"far"`
	Position   [3]float64 `yaml:"position"`
	Target     [3]float64 `yaml:"target"`
}

// ParsePresets decodes a YAML camera list. Missing near/far/fov take the
// defaults; an orthographic camera needs a positive half_height.
func ParsePresets(b []byte) ([]Camera, error) {
	var f presetFile
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse camera presets: %w", err)
	}
	if len(f.Cameras) == 0 {
		return nil, ErrNoCameras
	}
	out := make([]Camera, 0, len(f.Cameras))
	for i, pc := range f.Cameras {
		c := Camera{
			Name:       pc.Name,
			FOV:        pc.FOV,
			HalfHeight: pc.HalfHeight,
			Near:       pc.Near,
			Far:        pc.Far,
			Position:   scene.V(pc.Position[0], pc.Position[1], pc.Position[2]),
			Target:     scene.V(pc.Target[0], pc.Target[1], pc.Target[2]),
		}
		switch strings.ToLower(strings.TrimSpace(pc.Type)) {
		case "ortho", "orthographic":
			c.Projection = Orthographic
			if c.HalfHeight <= 0 {
				return nil, fmt.Errorf("camera %d (%s): half_height must be positive", i, pc.Name)
			}
		case "", "persp", "perspective":
			c.Projection = Perspective
			if c.FOV == 0 {
				c.FOV = defaultFOV
			}
			if c.FOV <= 0 || c.FOV >= 180 {
				return nil, fmt.Errorf("camera %d (%s): fov out of range", i, pc.Name)
			}
		default:
			return nil, fmt.Errorf("camera %d (%s): unknown type %q", i, pc.Name, pc.Type)
		}
		if c.Near == 0 {
			c.Near = defaultNear
		}
		if c.Far == 0 {
			c.Far = defaultFar
		}
		if c.Near <= 0 || c.Far <= c.Near {
			return nil, fmt.Errorf("camera %d (%s): need 0 < near < far", i, pc.Name)
		}
		if c.Position == c.Target {
			return nil, fmt.Errorf("camera %d (%s): position equals target", i, pc.Name)
		}
		if c.Name == "" {
			c.Name = fmt.Sprintf("camera%d", i)
		}
		out = append(out, c)
	}
	return out, nil
}

// LoadPresets reads cameras from a YAML file; an empty path yields the
// defaults.
func LoadPresets(path string) ([]Camera, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultCameras(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read camera presets: %w", err)
	}
	return ParsePresets(b)
}
