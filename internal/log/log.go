// Package log implements logrus hooks used by the fuzztrap CLI.
package log

import (
	"context"

	"github.com/sirupsen/logrus"
)

// AsyncHook is a logrus hook that buffers entries and needs a running
// Listen goroutine to flush them.
type AsyncHook interface {
	logrus.Hook
	Listen(ctx context.Context)
}
