// Package logging builds the process-wide logger: a console sink at the
// configured level and a daily JSON file that always records debug.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type Options struct {
	Level   string // console level, info when empty or unknown
	NoColor bool
	Dir     string    // file sink directory; no file when empty
	Console io.Writer // defaults to stderr
	Now     func() time.Time
}

// New returns the logger and a closer for the file sink.
func New(opts Options) (*logrus.Logger, io.Closer, error) {
	if opts.Console == nil {
		opts.Console = os.Stderr
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		level = logrus.InfoLevel
	}

	log := logrus.New()
	log.SetOutput(io.Discard)
	log.SetLevel(logrus.DebugLevel)

	log.AddHook(&writerHook{
		w:      opts.Console,
		levels: levelsUpTo(level),
		formatter: &logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.DateTime,
			DisableColors:   opts.NoColor,
			ForceColors:     !opts.NoColor,
		},
	})

	if opts.Dir == "" {
		return log, io.NopCloser(nil), nil
	}
	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	fh := &dailyFileHook{dir: opts.Dir, now: opts.Now, formatter: &logrus.JSONFormatter{}}
	if err := fh.rotate(); err != nil {
		return nil, nil, err
	}
	log.AddHook(fh)
	return log, fh, nil
}

func levelsUpTo(max logrus.Level) []logrus.Level {
	var out []logrus.Level
	for _, l := range logrus.AllLevels {
		if l <= max {
			out = append(out, l)
		}
	}
	return out
}

// FileName is the log file for day.
func FileName(day time.Time) string {
	return "dca_" + day.Format("20060102") + ".log"
}

type writerHook struct {
	mu        sync.Mutex
	w         io.Writer
	levels    []logrus.Level
	formatter logrus.Formatter
}

func (h *writerHook) Levels() []logrus.Level { return h.levels }

func (h *writerHook) Fire(e *logrus.Entry) error {
	b, err := h.formatter.Format(e)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = h.w.Write(b)
	return err
}

// dailyFileHook writes every entry to dca_YYYYMMDD.log, switching files
// when the local date changes.
type dailyFileHook struct {
	mu        sync.Mutex
	dir       string
	now       func() time.Time
	formatter logrus.Formatter
	day       string
	f         *os.File
}

func (h *dailyFileHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h *dailyFileHook) Fire(e *logrus.Entry) error {
	b, err := h.formatter.Format(e)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.day != FileName(h.now()) {
		if err := h.rotateLocked(); err != nil {
			return err
		}
	}
	_, err = h.f.Write(b)
	return err
}

func (h *dailyFileHook) rotate() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rotateLocked()
}

func (h *dailyFileHook) rotateLocked() error {
	name := FileName(h.now())
	f, err := os.OpenFile(filepath.Join(h.dir, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	if h.f != nil {
		_ = h.f.Close()
	}
	h.f, h.day = f, name
	return nil
}

func (h *dailyFileHook) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.f == nil {
		return nil
	}
	err := h.f.Close()
	h.f, h.day = nil, ""
	return err
}
