// Package upload stages user supplied mesh files on disk for decoding.
package upload

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/soypat/stlview/mesh"
)

var (
	// ErrExtension is returned for uploads that are not STL files.
	ErrExtension = errors.New("only " + mesh.Extension + " files are accepted")
	// ErrNoDefault is returned when no upload was given and the bundled
	// default mesh does not exist.
	ErrNoDefault = errors.New("default mesh file not found")
)

// Source is a readable mesh file path. Close must be called once the file
// has been decoded; for uploads it removes the staged temporary file.
type Source struct {
	Path string
	// Uploaded is true when Path is a staged upload rather than the default.
	Uploaded bool
	// Name is the user facing file name.
	Name string
}

// Close removes the staged upload, if any. It is safe to call more than once.
func (s *Source) Close() error {
	if !s.Uploaded || s.Path == "" {
		return nil
	}
	err := os.Remove(s.Path)
	s.Path = ""
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Acquire returns a path to a mesh file. If src is non-nil its contents are
// copied to a new temporary file in tmpDir (os.TempDir when empty) and that
// path is returned. Otherwise defaultPath is returned; the server takes
// this branch once at startup to load the bundled mesh.
func Acquire(src io.Reader, filename, defaultPath, tmpDir string) (*Source, error) {
	if src == nil {
		if err := CheckDefault(defaultPath); err != nil {
			return nil, err
		}
		return &Source{Path: defaultPath, Name: filepath.Base(defaultPath)}, nil
	}
	name := filepath.Base(filename)
	if !strings.EqualFold(filepath.Ext(name), mesh.Extension) {
		return nil, errors.Wrapf(ErrExtension, "upload %q", name)
	}
	fp, err := os.CreateTemp(tmpDir, "upload-*"+mesh.Extension)
	if err != nil {
		return nil, errors.Wrap(err, "staging upload")
	}
	s := &Source{Path: fp.Name(), Uploaded: true, Name: name}
	_, err = io.Copy(fp, src)
	if cerr := fp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		s.Close()
		return nil, errors.Wrap(err, "staging upload")
	}
	return s, nil
}

// CheckDefault reports ErrNoDefault if path is not a readable regular file.
func CheckDefault(path string) error {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return errors.Wrapf(ErrNoDefault, "%s", path)
	}
	return nil
}
