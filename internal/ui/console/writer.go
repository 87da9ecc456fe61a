// Package console contains the writers the CLI uses for stdout and stderr.
package console

import (
	"io"
	"sync"

	"golang.org/x/term"
)

const defaultTermWidth = 80

// Writer syncs writes with a mutex and knows whether it points at a TTY.
type Writer struct {
	RawOutFd int
	Mutex    *sync.Mutex
	Writer   io.Writer
	IsTTY    bool
}

func (w *Writer) Write(p []byte) (n int, err error) {
	w.Mutex.Lock()
	n, err = w.Writer.Write(p)
	w.Mutex.Unlock()
	return n, err
}

// TermWidth returns the terminal window width in characters, or a
// default of 80 when the writer is not a TTY or the lookup fails.
func (w *Writer) TermWidth() int {
	if !w.IsTTY {
		return defaultTermWidth
	}
	width, _, err := term.GetSize(w.RawOutFd)
	if width <= 0 || err != nil {
		return defaultTermWidth
	}
	return width
}
