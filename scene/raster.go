package scene

import (
	"image"
	"math"

	"github.com/fogleman/fauxgl"
	"github.com/nfnt/resize"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	fovy = 30 // vertical field of view in degrees
	near = 0.1
	far  = 100
	// eyeScale maps the unit-less eye offset onto the bi-unit cube the
	// mesh is fitted to.
	eyeScale = 2
	// minEyeDistance keeps the camera out of the mesh center.
	minEyeDistance = 1e-3
	// lightScale keeps default ambient plus diffuse light below saturation.
	lightScale = 0.6
)

// Rasterize renders the scene to an image of Layout.Width by Layout.Height
// pixels. The mesh is fit in a bi-unit cube centered at the origin and
// viewed from Eye with Z up.
func (s *Scene) Rasterize() image.Image {
	width, height := s.Layout.Width, s.Layout.Height
	scale := s.Layout.Supersample
	if scale < 1 {
		scale = 1
	}
	var (
		eye    = s.eye()
		center = fauxgl.V(0, 0, 0)
		up     = upVector(eye)
	)
	context := fauxgl.NewContext(width*scale, height*scale)
	context.ClearColorBufferWith(fauxgl.HexColor(s.Layout.Background))
	context.AlphaBlend = true
	if len(s.I) > 0 {
		m := s.fauxglMesh()
		// fit mesh in a bi-unit cube centered at the origin
		m.BiUnitCube()
		aspect := float64(width) / float64(height)
		matrix := fauxgl.LookAt(eye, center, up).Perspective(fovy, aspect, near, far)
		context.Shader = newLightingShader(matrix, eye, s.Lighting, fauxgl.HexColor(s.Color), s.Opacity)
		context.DrawMesh(m)
	}
	img := context.Image()
	if scale == 1 {
		return img
	}
	// downsample image for antialiasing
	return resize.Resize(uint(width), uint(height), img, resize.Bilinear)
}

func (s *Scene) fauxglMesh() *fauxgl.Mesh {
	p := func(i int) fauxgl.Vector { return fauxgl.V(s.X[i], s.Y[i], s.Z[i]) }
	triangles := make([]*fauxgl.Triangle, len(s.I))
	for t := range triangles {
		triangles[t] = fauxgl.NewTriangleForPoints(p(s.I[t]), p(s.J[t]), p(s.K[t]))
	}
	return fauxgl.NewTriangleMesh(triangles)
}

func (s *Scene) eye() fauxgl.Vector {
	e := r3.Scale(eyeScale, s.Eye)
	if r3.Norm(e) < minEyeDistance {
		e = r3.Vec{Z: minEyeDistance}
	}
	return fauxgl.V(e.X, e.Y, e.Z)
}

// upVector returns Z unless the camera looks along Z, in which case Y is used.
func upVector(eye fauxgl.Vector) fauxgl.Vector {
	dir := eye.Normalize()
	if math.Abs(dir.Z) > 0.999 {
		return fauxgl.V(0, 1, 0)
	}
	return fauxgl.V(0, 0, 1)
}

// lightingShader shades both faces of a triangle with ambient, Lambert
// diffuse and Phong specular terms. Roughness controls the specular
// highlight size. The light travels with the camera.
type lightingShader struct {
	matrix   fauxgl.Matrix
	camera   fauxgl.Vector
	light    fauxgl.Vector
	color    fauxgl.Color
	lighting Lighting
	power    float64
}

func newLightingShader(matrix fauxgl.Matrix, camera fauxgl.Vector, l Lighting, color fauxgl.Color, opacity float64) *lightingShader {
	color.A = clamp01(opacity)
	return &lightingShader{
		matrix:   matrix,
		camera:   camera,
		light:    camera.Normalize().Add(fauxgl.V(0, 0, 0.5)).Normalize(),
		color:    color,
		lighting: l,
		power:    shininess(l.Roughness),
	}
}

// shininess maps roughness in [0,1] to a Phong exponent, rough surfaces
// getting wide dull highlights.
func shininess(roughness float64) float64 {
	return 2 + 126*(1-clamp01(roughness))
}

func (sh *lightingShader) Vertex(v fauxgl.Vertex) fauxgl.Vertex {
	v.Output = sh.matrix.MulPositionW(v.Position)
	return v
}

func (sh *lightingShader) Fragment(v fauxgl.Vertex) fauxgl.Color {
	view := sh.camera.Sub(v.Position).Normalize()
	normal := v.Normal
	if normal.Dot(view) < 0 {
		normal = normal.Negate()
	}
	diffuse := math.Max(normal.Dot(sh.light), 0)
	intensity := lightScale * (sh.lighting.Ambient + sh.lighting.Diffuse*diffuse)
	var specular float64
	if diffuse > 0 && sh.lighting.Specular > 0 {
		// reflect light about the normal.
		reflected := normal.MulScalar(2 * normal.Dot(sh.light)).Sub(sh.light)
		specular = sh.lighting.Specular * math.Pow(math.Max(reflected.Dot(view), 0), sh.power)
	}
	return fauxgl.Color{
		R: clamp01(sh.color.R*intensity + specular),
		G: clamp01(sh.color.G*intensity + specular),
		B: clamp01(sh.color.B*intensity + specular),
		A: sh.color.A,
	}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
