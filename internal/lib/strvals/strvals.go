// Package strvals parses comma separated key=value configuration
// lines, like the ones given to --log-output.
package strvals

import (
	"fmt"
	"strings"
)

// Token is a single key=value element of a configuration line.
type Token struct {
	Key   string
	Value string
}

// Parse splits a configuration line into its key=value tokens. Values
// may contain '=' characters, keys may not be empty.
func Parse(s string) ([]Token, error) {
	if s == "" {
		return nil, nil
	}

	parts := strings.Split(s, ",")
	tokens := make([]Token, 0, len(parts))
	for _, part := range parts {
		key, value, found := strings.Cut(part, "=")
		if !found {
			return nil, fmt.Errorf("%q is not a key=value pair", part)
		}
		if key == "" {
			return nil, fmt.Errorf("%q has an empty key", part)
		}
		tokens = append(tokens, Token{Key: key, Value: value})
	}
	return tokens, nil
}
