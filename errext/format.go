package errext

import "errors"

// Format renders the given error as a log message and a map of extra log
// fields. A hint attached anywhere in the error chain becomes a "hint" field,
// so the advice stands apart from the failure itself.
func Format(err error) (string, map[string]interface{}) {
	if err == nil {
		return "", nil
	}

	fields := make(map[string]interface{})
	var herr HasHint
	if errors.As(err, &herr) {
		fields["hint"] = herr.Hint()
	}

	return err.Error(), fields
}
