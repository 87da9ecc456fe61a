// Package fsext narrows the afero filesystem API down to what the fuzztrap
// commands need, so the command code and the tests share one Fs type.
package fsext

import (
	"io/fs"

	"github.com/spf13/afero"
)

// Fs is the filesystem every command works against.
type Fs = afero.Fs

// NewOsFs returns an Fs backed by the real filesystem.
func NewOsFs() Fs {
	return afero.NewOsFs()
}

// NewMemMapFs returns an in-memory Fs, mostly for tests.
func NewMemMapFs() Fs {
	return afero.NewMemMapFs()
}

// WriteFile writes data to the named file on the given Fs.
func WriteFile(fs Fs, filename string, data []byte, perm fs.FileMode) error {
	return afero.WriteFile(fs, filename, data, perm)
}

// ReadFile reads the whole named file from the given Fs.
func ReadFile(fs Fs, filename string) ([]byte, error) {
	return afero.ReadFile(fs, filename)
}

// Exists reports whether the path exists on the given Fs.
func Exists(fs Fs, path string) (bool, error) {
	return afero.Exists(fs, path)
}

// IsOsFs reports whether the Fs is backed by the real filesystem, as
// opposed to an in-memory or otherwise virtual implementation.
func IsOsFs(fs Fs) bool {
	_, ok := fs.(*afero.OsFs)
	return ok
}
