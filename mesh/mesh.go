// Package mesh decodes triangulated surface files into flat geometry arrays.
package mesh

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Triangle is a single planar face defined by three vertices.
type Triangle [3]r3.Vec

// Mesh is an ordered list of triangles as read from a file. Vertices
// shared between faces are not deduplicated.
type Mesh struct {
	Name      string
	Triangles []Triangle
}

// Vertices returns the flattened vertex list. Triangle i occupies
// positions 3i, 3i+1 and 3i+2.
func (m *Mesh) Vertices() []r3.Vec {
	v := make([]r3.Vec, 0, 3*len(m.Triangles))
	for _, t := range m.Triangles {
		v = append(v, t[0], t[1], t[2])
	}
	return v
}

// Indices returns one index triple per triangle referencing Vertices.
func (m *Mesh) Indices() [][3]int {
	idx := make([][3]int, len(m.Triangles))
	for i := range idx {
		idx[i] = [3]int{3 * i, 3*i + 1, 3*i + 2}
	}
	return idx
}

// Bounds returns the axis aligned bounding box of all vertices.
// An empty mesh returns the zero Box.
func (m *Mesh) Bounds() r3.Box {
	if len(m.Triangles) == 0 {
		return r3.Box{}
	}
	inf := math.Inf(1)
	b := r3.Box{
		Min: r3.Vec{X: inf, Y: inf, Z: inf},
		Max: r3.Vec{X: -inf, Y: -inf, Z: -inf},
	}
	for _, t := range m.Triangles {
		for _, v := range t {
			b.Min = minElem(b.Min, v)
			b.Max = maxElem(b.Max, v)
		}
	}
	return b
}

// SurfaceArea returns the summed area of all triangles.
func (m *Mesh) SurfaceArea() (area float64) {
	for _, t := range m.Triangles {
		area += t.Area()
	}
	return area
}

// Normal returns the unit normal of the triangle following the
// counter-clockwise winding rule. Degenerate triangles return the zero vector.
func (t Triangle) Normal() r3.Vec {
	n := r3.Cross(r3.Sub(t[1], t[0]), r3.Sub(t[2], t[0]))
	l := r3.Norm(n)
	if l == 0 {
		return r3.Vec{}
	}
	return r3.Scale(1/l, n)
}

// Area returns the area of the triangle.
func (t Triangle) Area() float64 {
	return 0.5 * r3.Norm(r3.Cross(r3.Sub(t[1], t[0]), r3.Sub(t[2], t[0])))
}

func minElem(a, b r3.Vec) r3.Vec {
	return r3.Vec{X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y), Z: math.Min(a.Z, b.Z)}
}

func maxElem(a, b r3.Vec) r3.Vec {
	return r3.Vec{X: math.Max(a.X, b.X), Y: math.Max(a.Y, b.Y), Z: math.Max(a.Z, b.Z)}
}
