package scan

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/exp/mmap"

	"github.com/fuzztrap/fuzztrap/lib/fsext"
)

// Source is a read-only view of an image file.
type Source interface {
	io.ReaderAt
	Len() int
}

// Open returns a Source for the image at path. Gzip compressed images
// are inflated into memory; plain files are memory mapped when the path
// points at the real filesystem and read whole otherwise. The returned
// close func releases whatever Open acquired.
func Open(fs fsext.Fs, path string) (Source, func() error, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, nil, err
	}

	header := make([]byte, 2)
	if n, _ := io.ReadFull(f, header); n == 2 && header[0] == 0x1f && header[1] == 0x8b {
		defer func() { _ = f.Close() }()
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return nil, nil, err
		}
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, nil, err
		}
		data, err := io.ReadAll(zr)
		if cerr := zr.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return nil, nil, err
		}
		return bytes.NewReader(data), nopClose, nil
	}
	_ = f.Close()

	if fsext.IsOsFs(fs) {
		if r, err := mmap.Open(path); err == nil {
			return r, r.Close, nil
		}
	}

	data, err := fsext.ReadFile(fs, path)
	if err != nil {
		return nil, nil, err
	}
	return bytes.NewReader(data), nopClose, nil
}

func nopClose() error { return nil }
