// Package testutils holds the shared helpers of the fuzztrap tests.
package testutils

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
)

// testWriter forwards everything written to it to the test's own log, so
// output shows up attached to the right test.
type testWriter struct{ testing.TB }

func (tw testWriter) Write(p []byte) (n int, err error) {
	tw.Logf("%s", p)
	return len(p), nil
}

// NewTestOutput returns an io.Writer that logs through the given test.
func NewTestOutput(tb testing.TB) io.Writer {
	return testWriter{tb}
}

// NewLogger returns a logger that logs through the given test, or discards
// everything when tb is nil.
func NewLogger(tb testing.TB) logrus.FieldLogger {
	l := logrus.New()
	l.SetLevel(logrus.InfoLevel)
	if tb == nil {
		l.SetOutput(io.Discard)
	} else {
		l.SetOutput(NewTestOutput(tb))
	}
	return l
}
