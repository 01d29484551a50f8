// Package scene turns a decoded mesh and a render configuration into a
// displayable scene description and rasterizes it.
package scene

import (
	"image"
	"image/png"
	"io"

	"github.com/soypat/stlview/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// Layout describes the fixed output canvas.
type Layout struct {
	Width  int `json:"width"`
	Height int `json:"height"`
	// Supersample renders at Supersample times the canvas resolution and
	// downsamples the result for antialiasing. Values below 1 mean 1.
	Supersample int    `json:"-"`
	Background  string `json:"background"`
	ShowAxes    bool   `json:"showAxes"`
	Margin      int    `json:"margin"`
}

// DefaultLayout returns a 800x600 canvas with axes hidden and no margins.
func DefaultLayout() Layout {
	return Layout{
		Width:       800,
		Height:      600,
		Supersample: 2,
		Background:  "#FFFFFF",
	}
}

// Lighting holds the surface shading coefficients, each in [0,1].
type Lighting struct {
	Ambient   float64 `json:"ambient"`
	Diffuse   float64 `json:"diffuse"`
	Roughness float64 `json:"roughness"`
	Specular  float64 `json:"specular"`
}

// Scene is the complete description of one render: geometry as flat
// coordinate arrays with per-triangle index arrays, material, lighting,
// camera and canvas layout.
type Scene struct {
	Name     string    `json:"name"`
	X        []float64 `json:"x"`
	Y        []float64 `json:"y"`
	Z        []float64 `json:"z"`
	I        []int     `json:"i"`
	J        []int     `json:"j"`
	K        []int     `json:"k"`
	Color    string    `json:"color"`
	Opacity  float64   `json:"opacity"`
	Lighting Lighting  `json:"lighting"`
	Eye      r3.Vec    `json:"eye"`
	Layout   Layout    `json:"layout"`
}

// Build describes mesh m rendered with cfg on layout. It does not modify
// its arguments. An unknown color falls back to DefaultColor.
func Build(m *mesh.Mesh, cfg Config, layout Layout) *Scene {
	verts := m.Vertices()
	idx := m.Indices()
	s := &Scene{
		Name:    m.Name,
		X:       make([]float64, len(verts)),
		Y:       make([]float64, len(verts)),
		Z:       make([]float64, len(verts)),
		I:       make([]int, len(idx)),
		J:       make([]int, len(idx)),
		K:       make([]int, len(idx)),
		Opacity: cfg.Opacity,
		Lighting: Lighting{
			Ambient:   cfg.Ambient,
			Diffuse:   cfg.Diffuse,
			Roughness: cfg.Roughness,
			Specular:  cfg.Specular,
		},
		Eye:    cfg.Eye,
		Layout: layout,
	}
	for i, v := range verts {
		s.X[i], s.Y[i], s.Z[i] = v.X, v.Y, v.Z
	}
	for i, t := range idx {
		s.I[i], s.J[i], s.K[i] = t[0], t[1], t[2]
	}
	c, ok := LookupColor(cfg.Color)
	if !ok {
		c, _ = LookupColor(DefaultColor)
	}
	s.Color = c.Hex
	return s
}

// EncodePNG writes img to w in PNG format.
func EncodePNG(w io.Writer, img image.Image) error {
	return png.Encode(w, img)
}
