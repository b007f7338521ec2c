// Package logging provides the slog handlers used by the server.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// Supported values for the --log-format flag.
const (
	FormatHuman = "human"
	FormatText  = "text"
	FormatJSON  = "json"
)

// New returns a logger writing to w in the given format at the given level.
func New(w io.Writer, level slog.Level, format string) (*slog.Logger, error) {
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(format) {
	case FormatHuman, "":
		return slog.New(NewHumanReadableHandler(w, opts)), nil
	case FormatText:
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case FormatJSON:
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return nil, fmt.Errorf("unknown log format: %q (want %s, %s or %s)", format, FormatHuman, FormatText, FormatJSON)
}

// ParseLevel converts a level name such as "debug" or "warn" to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

// HumanReadableHandler is a slog handler that writes the message followed by
// its attributes in parentheses: `msg (key=value, key=value)`.
type HumanReadableHandler struct {
	mu     *sync.Mutex
	writer io.Writer
	opts   slog.HandlerOptions
	attrs  []slog.Attr
	group  string
}

// NewHumanReadableHandler creates a new human-readable log handler.
func NewHumanReadableHandler(w io.Writer, opts *slog.HandlerOptions) *HumanReadableHandler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}
	return &HumanReadableHandler{
		mu:     &sync.Mutex{},
		writer: w,
		opts:   *opts,
	}
}

// Enabled reports whether the handler handles records at the given level.
func (h *HumanReadableHandler) Enabled(ctx context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.opts.Level != nil {
		minLevel = h.opts.Level.Level()
	}
	return level >= minLevel
}

// Handle formats and writes the log record.
func (h *HumanReadableHandler) Handle(ctx context.Context, r slog.Record) error {
	// time, level and msg go through ReplaceAttr like any other attribute so
	// callers can drop them.
	attrs := []slog.Attr{
		slog.Time(slog.TimeKey, r.Time),
		slog.Any(slog.LevelKey, r.Level),
		slog.String(slog.MessageKey, r.Message),
	}
	attrs = append(attrs, h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, h.qualify(a))
		return true
	})

	var msg string
	var rest []slog.Attr
	for _, a := range attrs {
		if h.opts.ReplaceAttr != nil {
			a = h.opts.ReplaceAttr(nil, a)
		}
		if a.Key == "" {
			continue
		}
		if a.Key == slog.MessageKey {
			msg = a.Value.String()
			continue
		}
		rest = append(rest, a)
	}

	var buf strings.Builder
	buf.WriteString(msg)
	if len(rest) > 0 {
		if msg != "" {
			buf.WriteString(" (")
		}
		for i, a := range rest {
			if i > 0 {
				buf.WriteString(", ")
			}
			buf.WriteString(a.Key)
			buf.WriteByte('=')
			writeValue(&buf, a.Value)
		}
		if msg != "" {
			buf.WriteByte(')')
		}
	}
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.writer, buf.String())
	return err
}

// writeValue quotes strings containing spaces or '='.
func writeValue(buf *strings.Builder, v slog.Value) {
	v = v.Resolve()
	if v.Kind() == slog.KindString {
		s := v.String()
		if strings.ContainsAny(s, " =") {
			fmt.Fprintf(buf, "%q", s)
			return
		}
		buf.WriteString(s)
		return
	}
	fmt.Fprintf(buf, "%v", v.Any())
}

// qualify prefixes the attribute key with the handler's group, if any.
func (h *HumanReadableHandler) qualify(a slog.Attr) slog.Attr {
	if h.group != "" {
		a.Key = h.group + "." + a.Key
	}
	return a
}

// WithAttrs returns a handler that adds attrs to every record.
func (h *HumanReadableHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	clone := *h
	clone.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	clone.attrs = append(clone.attrs, h.attrs...)
	for _, a := range attrs {
		clone.attrs = append(clone.attrs, h.qualify(a))
	}
	return &clone
}

// WithGroup returns a handler that prefixes subsequent attribute keys with name.
func (h *HumanReadableHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	if h.group != "" {
		clone.group = h.group + "." + name
	} else {
		clone.group = name
	}
	return &clone
}
