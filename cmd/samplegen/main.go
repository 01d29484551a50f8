// Command samplegen writes a threaded bolt mesh that can replace the
// bundled sphere as the viewer's default mesh.
//
//	go run ./cmd/samplegen -o bolt.stl
//	go run ./cmd/stlview -mesh bolt.stl
package main

import (
	"flag"
	"os"
	"path/filepath"

	"github.com/deadsy/sdfx/obj"
	sdfxrender "github.com/deadsy/sdfx/render"
	"github.com/soypat/stlview/internal/logger"
	"github.com/soypat/stlview/mesh"
	"go.uber.org/zap"
)

func main() {
	var (
		output = flag.String("o", "bolt.stl", "output STL path")
		cells  = flag.Int("cells", 120, "marching cubes cells along the longest axis")
		name   = flag.String("name", "bolt", "solid name written to the STL header")
	)
	flag.Parse()
	if err := logger.Init("info", ""); err != nil {
		os.Exit(1)
	}
	defer logger.Sync()

	object, err := obj.Bolt(&obj.BoltParms{
		Thread:      "npt_1/2",
		Style:       "hex",
		Tolerance:   0.1,
		TotalLength: 20,
		ShankLength: 10,
	})
	if err != nil {
		logger.Fatal("building sample", zap.Error(err))
	}
	dir, err := os.MkdirTemp("", "samplegen-")
	if err != nil {
		logger.Fatal("creating work directory", zap.Error(err))
	}
	defer os.RemoveAll(dir)
	raw := filepath.Join(dir, "raw.stl")
	sdfxrender.ToSTL(object, *cells, raw, &sdfxrender.MarchingCubesOctree{})

	// Read the triangles back the way the viewer will, then write the
	// named file with normals recomputed from the winding.
	m, err := mesh.Decode(raw)
	if err != nil {
		logger.Fatal("generated sample unreadable", zap.Error(err))
	}
	m.Name = *name
	if err := writeMesh(*output, m); err != nil {
		logger.Fatal("writing sample", zap.Error(err))
	}
	b := m.Bounds()
	logger.Log.Info("sample written",
		zap.String("path", *output),
		zap.String("name", m.Name),
		zap.Int("triangles", len(m.Triangles)),
		zap.Float64("area", m.SurfaceArea()),
		zap.Float64s("min", []float64{b.Min.X, b.Min.Y, b.Min.Z}),
		zap.Float64s("max", []float64{b.Max.X, b.Max.Y, b.Max.Z}),
	)
}

func writeMesh(path string, m *mesh.Mesh) error {
	fp, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := mesh.WriteSTL(fp, m); err != nil {
		fp.Close()
		return err
	}
	return fp.Close()
}
