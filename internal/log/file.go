package log

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/fuzztrap/fuzztrap/internal/lib/strvals"
	"github.com/fuzztrap/fuzztrap/lib/fsext"
)

// Entries are handed to the writing goroutine through a buffered channel,
// so Fire does not block the logging call sites.
const lineChanSize = 100

// fileHook buffers formatted entries and appends them to a local file
// from its Listen goroutine.
type fileHook struct {
	fs             fsext.Fs
	fallbackLogger logrus.FieldLogger
	lines          chan []byte
	path           string
	file           io.WriteCloser
	buf            *bufio.Writer
	levels         []logrus.Level
}

// FileHookFromConfigLine builds a file hook from a `file=path,level=info`
// style config line.
func FileHookFromConfigLine(
	fs fsext.Fs, getCwd func() (string, error),
	fallbackLogger logrus.FieldLogger, line string,
) (AsyncHook, error) {
	hook := &fileHook{
		fs:             fs,
		fallbackLogger: fallbackLogger,
		levels:         logrus.AllLevels,
		lines:          make(chan []byte, lineChanSize),
	}

	if prefix, _, _ := strings.Cut(line, "="); prefix != "file" {
		return nil, fmt.Errorf("logfile configuration should look like `file=./path.log` but is `%s`", line)
	}
	if err := hook.parseLine(line); err != nil {
		return nil, err
	}
	if err := hook.openFile(getCwd); err != nil {
		return nil, err
	}
	return hook, nil
}

func (h *fileHook) parseLine(line string) error {
	tokens, err := strvals.Parse(line)
	if err != nil {
		return fmt.Errorf("could not parse the logfile configuration: %w", err)
	}

	for _, token := range tokens {
		switch token.Key {
		case "file":
			if token.Value == "" {
				return errors.New("the logfile path must not be empty")
			}
			h.path = token.Value
		case "level":
			h.levels, err = parseLevels(token.Value)
			if err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown logfile option %q", token.Key)
		}
	}
	return nil
}

func (h *fileHook) openFile(getCwd func() (string, error)) error {
	path := h.path
	if !filepath.IsAbs(path) {
		cwd, err := getCwd()
		if err != nil {
			return fmt.Errorf("could not resolve the relative logfile path '%s': %w", path, err)
		}
		path = filepath.Join(cwd, path)
	}

	if _, err := h.fs.Stat(filepath.Dir(path)); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("the logfile directory '%s' does not exist", filepath.Dir(path))
	}

	file, err := h.fs.OpenFile(path, syscall.O_WRONLY|syscall.O_APPEND|syscall.O_CREAT, 0o600)
	if err != nil {
		return fmt.Errorf("could not open the logfile %s: %w", path, err)
	}

	h.file = file
	h.buf = bufio.NewWriter(file)
	return nil
}

func (h *fileHook) write(line []byte) {
	if _, err := h.buf.Write(line); err != nil {
		h.fallbackLogger.Errorf("could not write a log message to the logfile: %v", err)
	}
}

// Listen writes out queued entries until ctx is done, then drains whatever
// is still buffered, flushes and closes the file. The CLI cancels the
// context only after the command has finished logging, so nothing fires
// into the channel past that point.
func (h *fileHook) Listen(ctx context.Context) {
	for {
		select {
		case line := <-h.lines:
			h.write(line)
		case <-ctx.Done():
			for {
				select {
				case line := <-h.lines:
					h.write(line)
				default:
					if err := h.buf.Flush(); err != nil {
						h.fallbackLogger.Errorf("could not flush the logfile buffer: %v", err)
					}
					if err := h.file.Close(); err != nil {
						h.fallbackLogger.Errorf("could not close the logfile: %v", err)
					}
					return
				}
			}
		}
	}
}

// Fire queues one formatted entry for the writing goroutine.
func (h *fileHook) Fire(entry *logrus.Entry) error {
	line, err := entry.Bytes()
	if err != nil {
		return fmt.Errorf("could not format a log entry: %w", err)
	}
	h.lines <- line
	return nil
}

// Levels returns the levels the hook is configured for.
func (h *fileHook) Levels() []logrus.Level {
	return h.levels
}
