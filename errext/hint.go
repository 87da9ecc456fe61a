package errext

import "errors"

// HasHint is an error carrying some advice for the user on top of the failure
// itself, e.g. the flag or config change that would avoid it.
type HasHint interface {
	error
	Hint() string
}

// WithHint attaches a hint to the given error. A nil error stays nil. When an
// error down the chain already carries a hint, both are kept and rendered as
// "new hint (old hint)".
func WithHint(err error, hint string) error {
	if err == nil {
		return nil
	}
	return withHint{err, hint}
}

type withHint struct {
	error
	hint string
}

func (w withHint) Unwrap() error {
	return w.error
}

func (w withHint) Hint() string {
	hint := w.hint
	var prev HasHint
	if errors.As(w.error, &prev) {
		hint = hint + " (" + prev.Hint() + ")"
	}
	return hint
}

var _ HasHint = withHint{}
