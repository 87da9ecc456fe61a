package log

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// parseLevels turns a level name into the list of levels a hook configured
// for it should fire on, i.e. the given level and everything more severe.
func parseLevels(level string) ([]logrus.Level, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("unknown log level %q", level)
	}
	levels := make([]logrus.Level, 0, len(logrus.AllLevels))
	for _, l := range logrus.AllLevels {
		if l <= lvl {
			levels = append(levels, l)
		}
	}
	return levels, nil
}
