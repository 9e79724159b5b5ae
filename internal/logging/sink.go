package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// LevelMessage is an info-level record rendered in the "message" color.
const LevelMessage = slog.LevelInfo + 1

const fileTimeLayout = "2006-01-02_15:04:05"

// sink is the single writer behind a Session and every slog.Logger derived
// from it: one line per record to the session file, one colored line to the console.
type sink struct {
	mu      sync.Mutex
	file    *os.File
	console io.Writer
	styles  map[slog.Level]lipgloss.Style
	plain   lipgloss.Style
}

func newSink(file *os.File, console io.Writer) *sink {
	r := lipgloss.NewRenderer(console)
	return &sink{
		file:    file,
		console: console,
		styles: map[slog.Level]lipgloss.Style{
			slog.LevelDebug: r.NewStyle().Foreground(lipgloss.Color("8")),
			slog.LevelInfo:  r.NewStyle().Foreground(lipgloss.Color("14")),
			LevelMessage:    r.NewStyle().Foreground(lipgloss.Color("11")),
			slog.LevelWarn:  r.NewStyle().Foreground(lipgloss.Color("13")),
			slog.LevelError: r.NewStyle().Foreground(lipgloss.Color("9")),
		},
		plain: r.NewStyle(),
	}
}

// write never fails; I/O errors are dropped so logging cannot break the flow.
func (s *sink) write(t time.Time, level slog.Level, fileText, consoleText string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file != nil {
		_, _ = fmt.Fprintf(s.file, "%s [%s] %s\n", t.Format(fileTimeLayout), levelName(level), fileText)
	}
	if s.console != nil && consoleText != "" {
		_, _ = fmt.Fprintln(s.console, s.style(level).Render(consoleText))
	}
}

func (s *sink) style(level slog.Level) lipgloss.Style {
	if st, ok := s.styles[level]; ok {
		return st
	}
	switch {
	case level >= slog.LevelError:
		return s.styles[slog.LevelError]
	case level >= slog.LevelWarn:
		return s.styles[slog.LevelWarn]
	case level >= slog.LevelInfo:
		return s.styles[slog.LevelInfo]
	}
	return s.plain
}

// detach closes the session file; later records reach the console only.
func (s *sink) detach() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

func levelName(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARNING"
	case level >= slog.LevelInfo:
		return "INFO"
	}
	return "DEBUG"
}
