// Console handlers for the broker's logs. The default logger writes
// JSON to stderr; an operator running a broker interactively can switch
// to the plain or colored text handler.

package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
)

// ParseLevel maps a level name onto a slog level. The match is
// case-insensitive. Unrecognised strings return Info.
func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// TextHandler renders records as plain text in the format:
//
//	[2024-01-01 12:00:00] INFO  message key=value
//
// Attributes are sorted by key for deterministic output. Groups are not
// used by this codebase and are flattened.
type TextHandler struct {
	mu    *sync.Mutex
	w     io.Writer
	level slog.Level
	color bool
	attrs []slog.Attr

	// TimeFormat controls the timestamp layout. Defaults to
	// "2006-01-02 15:04:05" when empty.
	TimeFormat string
}

// NewTextHandler creates a text handler writing to w at the given level.
func NewTextHandler(w io.Writer, level slog.Level) *TextHandler {
	return &TextHandler{mu: new(sync.Mutex), w: w, level: level}
}

// NewColorHandler creates a text handler with ANSI-colored level names:
// debug gray, info green, warn yellow, error red.
func NewColorHandler(w io.Writer, level slog.Level) *TextHandler {
	h := NewTextHandler(w, level)
	h.color = true
	return h
}

// Enabled reports whether records at the given level are emitted.
func (h *TextHandler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level
}

// WithAttrs returns a handler that prepends the given attributes.
func (h *TextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &clone
}

// WithGroup returns the handler unchanged; groups are flattened.
func (h *TextHandler) WithGroup(string) slog.Handler {
	return h
}

// Handle writes one formatted line.
func (h *TextHandler) Handle(_ context.Context, r slog.Record) error {
	tf := h.TimeFormat
	if tf == "" {
		tf = "2006-01-02 15:04:05"
	}

	var b strings.Builder
	b.WriteString("[")
	b.WriteString(r.Time.Format(tf))
	b.WriteString("] ")
	if h.color {
		b.WriteString(colorForLevel(r.Level))
	}
	// Pad level name to 5 chars for alignment (DEBUG/INFO /WARN /ERROR).
	fmt.Fprintf(&b, "%-5s", r.Level.String())
	if h.color {
		b.WriteString(ansiReset)
	}
	b.WriteString(" ")
	b.WriteString(r.Message)

	fields := make(map[string]string, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		fields[a.Key] = fmt.Sprintf("%v", a.Value.Any())
	}
	r.Attrs(func(a slog.Attr) bool {
		fields[a.Key] = fmt.Sprintf("%v", a.Value.Any())
		return true
	})
	for _, k := range sortedKeys(fields) {
		b.WriteString(" ")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(fields[k])
	}
	b.WriteString("\n")

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

// ANSI color escape codes used by the color handler.
const (
	ansiReset  = "\033[0m"
	ansiGray   = "\033[37m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiRed    = "\033[31m"
)

// colorForLevel returns the ANSI escape sequence for the given level.
func colorForLevel(level slog.Level) string {
	switch {
	case level < slog.LevelInfo:
		return ansiGray
	case level < slog.LevelWarn:
		return ansiGreen
	case level < slog.LevelError:
		return ansiYellow
	default:
		return ansiRed
	}
}

// sortedKeys returns the map keys in sorted order.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
