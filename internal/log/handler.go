package log

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"
)

// DefaultMaxValueLen is the longest string attribute written unchanged.
const DefaultMaxValueLen = 200

// MaskValue replaces the value of credential attributes.
const MaskValue = "***REDACTED***"

// truncationSuffix marks a shortened value.
const truncationSuffix = "..."

// sensitiveKeywords mark attribute keys whose values are never logged.
var sensitiveKeywords = []string{
	"authorization", "cookie", "password", "secret", "token", "api-key", "api_key", "apikey",
}

// TruncatingHandler wraps an slog.Handler, shortening long string values and
// masking credentials before the record reaches the wrapped handler.
type TruncatingHandler struct {
	handler slog.Handler
	maxLen  int
}

// NewTruncatingHandler wraps handler. Values longer than maxLen runes are
// cut and suffixed with "..."; maxLen <= 0 selects DefaultMaxValueLen.
// A nil handler falls back to slog.Default().Handler().
func NewTruncatingHandler(handler slog.Handler, maxLen int) *TruncatingHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	if maxLen <= 0 {
		maxLen = DefaultMaxValueLen
	}
	return &TruncatingHandler{handler: handler, maxLen: maxLen}
}

// Enabled delegates to the wrapped handler.
func (h *TruncatingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle rewrites the record's attributes and passes it on.
func (h *TruncatingHandler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, h.truncate(r.Message), r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(h.rewrite(a))
		return true
	})
	return h.handler.Handle(ctx, out)
}

// WithAttrs returns a handler with the rewritten attributes added.
func (h *TruncatingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	rewritten := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		rewritten[i] = h.rewrite(a)
	}
	return &TruncatingHandler{handler: h.handler.WithAttrs(rewritten), maxLen: h.maxLen}
}

// WithGroup returns a handler with the given group name.
func (h *TruncatingHandler) WithGroup(name string) slog.Handler {
	return &TruncatingHandler{handler: h.handler.WithGroup(name), maxLen: h.maxLen}
}

// rewrite masks or truncates one attribute, descending into groups.
func (h *TruncatingHandler) rewrite(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()

	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		rewritten := make([]slog.Attr, len(attrs))
		for i, ga := range attrs {
			rewritten[i] = h.rewrite(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(rewritten...)}
	}

	if isSensitiveKey(a.Key) {
		return slog.String(a.Key, MaskValue)
	}

	if a.Value.Kind() == slog.KindString {
		return slog.String(a.Key, h.truncate(a.Value.String()))
	}
	return a
}

// truncate cuts s to maxLen runes.
func (h *TruncatingHandler) truncate(s string) string {
	if utf8.RuneCountInString(s) <= h.maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:h.maxLen]) + truncationSuffix
}

func isSensitiveKey(key string) bool {
	key = strings.ToLower(key)
	for _, kw := range sensitiveKeywords {
		if strings.Contains(key, kw) {
			return true
		}
	}
	return false
}

// level maps the verbose switch to a minimum level.
func level(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return slog.LevelWarn
}

// NewLogger creates a text logger writing to w.
// verbose selects Debug, otherwise only warnings and errors are written.
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	text := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level(verbose)})
	return slog.New(NewTruncatingHandler(text, DefaultMaxValueLen))
}

// NewJSONLogger creates a JSON logger writing to w, for log aggregation.
func NewJSONLogger(w io.Writer, verbose bool) *slog.Logger {
	jsonHandler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level(verbose)})
	return slog.New(NewTruncatingHandler(jsonHandler, DefaultMaxValueLen))
}
