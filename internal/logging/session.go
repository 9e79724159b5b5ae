// Package logging implements the per-run session log: every record goes to a
// session file and a colored console mirror, and on Close the session file is
// folded into the cumulative, size-capped log.
package logging

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
)

const (
	// StampLayout formats the session start in file names.
	StampLayout = "2006_01_02_15_04_05"

	sessionBanner = "—————————— NEW SESSION ——————————"
)

var traceSeparator = strings.Repeat("—", 100)

// Session is one run's log.
type Session struct {
	start       time.Time
	sessionPath string
	logPath     string
	maxSize     int64
	level       *slog.LevelVar
	sink        *sink
	now         func() time.Time

	closeOnce sync.Once
	closeErr  error
}

type sessionOptions struct {
	console io.Writer
	maxSize int64
	level   slog.Level
	now     func() time.Time
}

// SessionOption configures a Session.
type SessionOption func(*sessionOptions)

// WithConsole mirrors records to w instead of stdout.
func WithConsole(w io.Writer) SessionOption {
	return func(o *sessionOptions) { o.console = w }
}

// WithMaxSize caps the cumulative log at n bytes.
func WithMaxSize(n int64) SessionOption {
	return func(o *sessionOptions) { o.maxSize = n }
}

// WithLevel sets the minimum level for records logged through Slog.
func WithLevel(level slog.Level) SessionOption {
	return func(o *sessionOptions) { o.level = level }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) SessionOption {
	return func(o *sessionOptions) { o.now = now }
}

// NewSession creates dir if needed, opens a fresh session file for className
// and writes the session banner.
func NewSession(dir, className string, opts ...SessionOption) (*Session, error) {
	o := sessionOptions{
		console: os.Stdout,
		maxSize: DefaultMaxLogSize,
		level:   slog.LevelInfo,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.console == nil {
		o.console = io.Discard
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create log dir")
	}

	start := o.now()
	name := strings.ToLower(className)
	sessionPath := filepath.Join(dir, fmt.Sprintf("%s_session_%s.log", name, start.Format(StampLayout)))

	f, err := os.Create(sessionPath)
	if err != nil {
		return nil, errors.Wrap(err, "create session log")
	}

	level := new(slog.LevelVar)
	level.Set(o.level)

	s := &Session{
		start:       start,
		sessionPath: sessionPath,
		logPath:     filepath.Join(dir, name+".log"),
		maxSize:     o.maxSize,
		level:       level,
		sink:        newSink(f, o.console),
		now:         o.now,
	}

	s.sink.write(start, slog.LevelInfo, sessionBanner,
		fmt.Sprintf("%s\n—— [TIME]  %s ——", sessionBanner, start.Format("2006-01-02 15:04:05")))
	return s, nil
}

// Start is the session start time.
func (s *Session) Start() time.Time { return s.start }

// SessionPath is the transient per-run file.
func (s *Session) SessionPath() string { return s.sessionPath }

// LogPath is the cumulative log file.
func (s *Session) LogPath() string { return s.logPath }

// Slog returns a structured logger that writes through this session.
func (s *Session) Slog() *slog.Logger {
	return slog.New(&handler{sink: s.sink, level: s.level})
}

// Info logs a routine event.
func (s *Session) Info(msg string) {
	s.sink.write(s.now(), slog.LevelInfo, msg, msg)
}

// Message logs a highlighted informational line.
func (s *Session) Message(msg string) {
	s.sink.write(s.now(), LevelMessage, msg, msg)
}

// Warning logs a recoverable anomaly.
func (s *Session) Warning(msg string) {
	s.sink.write(s.now(), slog.LevelWarn, msg, msg)
}

// Error logs msg followed by err. When err carries a stack trace, the file
// line also gets the trace between separator rules; the console shows only
// the text.
func (s *Session) Error(msg string, err error) {
	text := msg
	if err != nil {
		text += err.Error()
	}

	fileText := text
	if trace := stackTrace(err); trace != "" {
		fileText += "\n\n" + traceSeparator + "\n" + trace + traceSeparator + "\n"
	}
	s.sink.write(s.now(), slog.LevelError, fileText, text)
}

// Time logs msg followed by the time elapsed since the session started.
func (s *Session) Time(msg string) {
	s.TimeSince(msg, s.start)
}

// TimeSince logs msg followed by the time elapsed since start.
func (s *Session) TimeSince(msg string, start time.Time) {
	text := msg + s.now().Sub(start).String()
	s.sink.write(s.now(), slog.LevelInfo, text, text+"\n")
}

// Close merges the session file into the cumulative log and removes it.
// It runs once; later calls return the first result. A failure is logged
// and returned, and the session file is left in place.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		if err := s.merge(); err != nil {
			s.closeErr = err
			s.Error("failed to finalize the log: ", err)
		}
		_ = s.sink.detach()
	})
	return s.closeErr
}

func (s *Session) merge() error {
	s.sink.mu.Lock()
	if s.sink.file != nil {
		_ = s.sink.file.Sync()
	}
	s.sink.mu.Unlock()

	session, err := os.ReadFile(s.sessionPath)
	if err != nil {
		return errors.Wrap(err, "read session log")
	}

	prior, err := os.ReadFile(s.logPath)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errors.Wrap(err, "read cumulative log")
	}
	prior = bytes.ToValidUTF8(prior, []byte("�"))

	if err := os.WriteFile(s.logPath, Merge(session, prior, s.maxSize), 0o644); err != nil {
		return errors.Wrap(err, "write cumulative log")
	}

	if err := s.sink.detach(); err != nil {
		return errors.Wrap(err, "close session log")
	}
	if err := os.Remove(s.sessionPath); err != nil {
		return errors.Wrap(err, "remove session log")
	}
	return nil
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// stackTrace renders the innermost recorded stack of err, one frame per
// line, or "" when err carries none.
func stackTrace(err error) string {
	if err == nil {
		return ""
	}
	var st stackTracer
	for e := err; e != nil; e = errors.Unwrap(e) {
		if t, ok := e.(stackTracer); ok {
			st = t
		}
	}
	if st == nil {
		return ""
	}
	trace := strings.TrimLeft(fmt.Sprintf("%+v", st.StackTrace()), "\n")
	return trace + "\n"
}
