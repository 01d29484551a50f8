package mesh

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/chewxy/math32"
	"github.com/hschendel/stl"
	"gonum.org/v1/gonum/spatial/r3"
)

// Extension is the only file extension accepted as mesh input.
const Extension = ".stl"

// DecodeError is returned when a mesh file is missing, corrupt or in an
// unsupported format.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

var (
	errNoTriangles = errors.New("file contains no triangles")
	errBadVertex   = errors.New("inf/NaN STL triangle vertex")
)

// Decode reads the ASCII or binary STL file at path. Any failure is
// returned as a *DecodeError and no geometry is produced.
func Decode(path string) (*Mesh, error) {
	fp, err := os.Open(path)
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	defer fp.Close()
	return DecodeReader(path, fp)
}

// DecodeReader reads STL data from r, which must be positioned at the start
// of the file. name is used for error messages and to derive the mesh name
// when the file does not carry one.
func DecodeReader(name string, r io.ReadSeeker) (*Mesh, error) {
	solid, err := stl.ReadAll(r)
	if err != nil {
		return nil, &DecodeError{Path: name, Err: err}
	}
	if len(solid.Triangles) == 0 {
		return nil, &DecodeError{Path: name, Err: errNoTriangles}
	}
	m := &Mesh{
		Name:      strings.Trim(solid.Name, " \t\r\n\x00"),
		Triangles: make([]Triangle, len(solid.Triangles)),
	}
	if m.Name == "" {
		m.Name = strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	}
	for i, t := range solid.Triangles {
		if bad3F32(t.Vertices[0]) || bad3F32(t.Vertices[1]) || bad3F32(t.Vertices[2]) {
			return nil, &DecodeError{Path: name, Err: fmt.Errorf("triangle %d: %w", i, errBadVertex)}
		}
		m.Triangles[i] = Triangle{
			r3From3F32(t.Vertices[0]),
			r3From3F32(t.Vertices[1]),
			r3From3F32(t.Vertices[2]),
		}
	}
	return m, nil
}

// WriteSTL writes mesh triangles to a writer in binary STL file format.
func WriteSTL(w io.Writer, m *Mesh) error {
	if len(m.Triangles) == 0 {
		return errNoTriangles
	}
	header := stlHeader{
		Count: uint32(len(m.Triangles)),
	}
	copy(header.Header[:], m.Name)
	if err := binary.Write(w, binary.LittleEndian, &header); err != nil {
		return err
	}
	var (
		b [stlTriangleSize]byte
		d stlTriangle
	)
	for _, triangle := range m.Triangles {
		d.Normal = f32From3(triangle.Normal())
		d.Vertex1 = f32From3(triangle[0])
		d.Vertex2 = f32From3(triangle[1])
		d.Vertex3 = f32From3(triangle[2])
		d.put(b[:])
		if _, err := w.Write(b[:]); err != nil {
			return err
		}
	}
	return nil
}

const stlTriangleSize = 50

// stlHeader defines the STL file header.
type stlHeader struct {
	Header [80]uint8
	Count  uint32 // Number of triangles
}

// stlTriangle defines the triangle data within an STL file.
type stlTriangle struct {
	Normal  [3]float32
	Vertex1 [3]float32
	Vertex2 [3]float32
	Vertex3 [3]float32
}

func (t stlTriangle) put(b []byte) {
	if len(b) < stlTriangleSize {
		panic("need length 50 to marshal stlTriangle")
	}
	put3F32(b, t.Normal)
	put3F32(b[12:], t.Vertex1)
	put3F32(b[24:], t.Vertex2)
	put3F32(b[36:], t.Vertex3)
	binary.LittleEndian.PutUint16(b[48:], 0) // no attributes.
}

func put3F32(b []byte, f [3]float32) {
	_ = b[11] // early bounds check
	binary.LittleEndian.PutUint32(b, math.Float32bits(f[0]))
	binary.LittleEndian.PutUint32(b[4:], math.Float32bits(f[1]))
	binary.LittleEndian.PutUint32(b[8:], math.Float32bits(f[2]))
}

func bad3F32(f stl.Vec3) bool {
	return math32.IsNaN(f[0]) || math32.IsInf(f[0], 0) ||
		math32.IsNaN(f[1]) || math32.IsInf(f[1], 0) ||
		math32.IsNaN(f[2]) || math32.IsInf(f[2], 0)
}

func r3From3F32(f stl.Vec3) r3.Vec {
	return r3.Vec{X: float64(f[0]), Y: float64(f[1]), Z: float64(f[2])}
}

func f32From3(v r3.Vec) [3]float32 {
	return [3]float32{float32(v.X), float32(v.Y), float32(v.Z)}
}
