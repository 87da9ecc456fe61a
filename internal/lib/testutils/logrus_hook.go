package testutils

import (
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// SimpleLogrusHook is a logrus.Hook that buffers every entry fired at it,
// so tests can assert on what a command logged.
type SimpleLogrusHook struct {
	HookedLevels []logrus.Level
	mutex        sync.Mutex
	entries      []logrus.Entry
}

// NewLogHook returns a hook for the given levels, or for all levels when
// none are given.
func NewLogHook(levels ...logrus.Level) *SimpleLogrusHook {
	if len(levels) == 0 {
		levels = logrus.AllLevels
	}
	return &SimpleLogrusHook{HookedLevels: levels}
}

// Levels returns the levels the hook was built with.
func (h *SimpleLogrusHook) Levels() []logrus.Level {
	return h.HookedLevels
}

// Fire buffers the given entry.
func (h *SimpleLogrusHook) Fire(e *logrus.Entry) error {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.entries = append(h.entries, *e)
	return nil
}

// Drain returns the buffered entries and empties the buffer.
func (h *SimpleLogrusHook) Drain() []logrus.Entry {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	res := h.entries
	h.entries = nil
	return res
}

var _ logrus.Hook = &SimpleLogrusHook{}

// LogContains reports whether entries holds a message of the given level
// containing the given text.
func LogContains(entries []logrus.Entry, level logrus.Level, text string) bool {
	for _, entry := range entries {
		if entry.Level == level && strings.Contains(entry.Message, text) {
			return true
		}
	}
	return false
}

// FilterEntries returns the entries of the given level whose message
// contains the given text.
func FilterEntries(entries []logrus.Entry, level logrus.Level, text string) []logrus.Entry {
	filtered := make([]logrus.Entry, 0)
	for _, entry := range entries {
		if entry.Level == level && strings.Contains(entry.Message, text) {
			filtered = append(filtered, entry)
		}
	}
	return filtered
}
