// Package errext contains extensions for normal Go errors that tell the top
// of the CLI how an error should be presented and which exit code it carries.
package errext

import (
	"errors"

	"github.com/fuzztrap/fuzztrap/errext/exitcodes"
)

// HasExitCode is an error that knows which code the process should exit with
// when it bubbles up to the top of the scope. Codes should stay between 0 and
// 125 so every shell passes them through unmangled.
type HasExitCode interface {
	error
	ExitCode() exitcodes.ExitCode
}

// WithExitCodeIfNone attaches the given exit code to the error, unless some
// error in its chain already carries one. A nil error stays nil.
func WithExitCodeIfNone(err error, exitCode exitcodes.ExitCode) error {
	if err == nil {
		return nil
	}
	var ecerr HasExitCode
	if errors.As(err, &ecerr) {
		return err
	}
	return withExitCode{err, exitCode}
}

type withExitCode struct {
	error
	exitCode exitcodes.ExitCode
}

func (w withExitCode) Unwrap() error {
	return w.error
}

func (w withExitCode) ExitCode() exitcodes.ExitCode {
	return w.exitCode
}

var _ HasExitCode = withExitCode{}
