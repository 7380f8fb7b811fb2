package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func newTestLogger(buf *bytes.Buffer, maxLen int) *slog.Logger {
	h := slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(NewTruncatingHandler(h, maxLen))
}

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("invalid log line %q: %v", buf.String(), err)
	}
	return m
}

// TestTruncatingHandler_Truncates tests shortening of long values.
func TestTruncatingHandler_Truncates(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value string
		want  string
	}{
		{name: "short value unchanged", value: "IR-4(1)", want: "IR-4(1)"},
		{name: "exact length unchanged", value: "0123456789", want: "0123456789"},
		{name: "long value cut", value: "0123456789abc", want: "0123456789..."},
		{name: "multibyte runes are not split", value: "ééééééééééé", want: "éééééééééé..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			newTestLogger(&buf, 10).Info("msg", "description", tt.value)

			if got := decode(t, &buf)["description"]; got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

// TestTruncatingHandler_Masks tests masking of credential attributes.
func TestTruncatingHandler_Masks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		key      string
		wantMask bool
	}{
		{key: "Authorization", wantMask: true},
		{key: "cookie", wantMask: true},
		{key: "x_api_key", wantMask: true},
		{key: "access_token", wantMask: true},
		{key: "framework", wantMask: false},
		{key: "control_id", wantMask: false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			newTestLogger(&buf, 0).Info("msg", tt.key, "value")

			got := decode(t, &buf)[tt.key]
			if (got == MaskValue) != tt.wantMask {
				t.Errorf("key %q: got %q, wantMask=%v", tt.key, got, tt.wantMask)
			}
		})
	}
}

// TestTruncatingHandler_Groups tests attributes inside groups and WithAttrs.
func TestTruncatingHandler_Groups(t *testing.T) {
	t.Parallel()

	t.Run("group attributes", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		newTestLogger(&buf, 5).Info("msg", slog.Group("request",
			slog.String("url", "https://example.com/page"),
			slog.String("authorization", "Bearer x"),
		))

		req, ok := decode(t, &buf)["request"].(map[string]any)
		if !ok {
			t.Fatalf("expected request group")
		}
		if req["url"] != "https..." {
			t.Errorf("unexpected url %q", req["url"])
		}
		if req["authorization"] != MaskValue {
			t.Errorf("expected masked authorization, got %q", req["authorization"])
		}
	})

	t.Run("WithAttrs and WithGroup", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := newTestLogger(&buf, 5).With("token", "abc", "rule", "cloudtrail-enabled").WithGroup("g")
		logger.Info("msg", "n", 3)

		m := decode(t, &buf)
		if m["token"] != MaskValue {
			t.Errorf("expected masked token, got %q", m["token"])
		}
		if m["rule"] != "cloud..." {
			t.Errorf("unexpected rule %q", m["rule"])
		}
		g, ok := m["g"].(map[string]any)
		if !ok || g["n"] != float64(3) {
			t.Errorf("unexpected group %v", m["g"])
		}
	})

	t.Run("non-string values untouched", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		newTestLogger(&buf, 1).Info("msg", "records", 12345, "ok", true)

		m := decode(t, &buf)
		if m["records"] != float64(12345) || m["ok"] != true {
			t.Errorf("unexpected values %v", m)
		}
	})
}

// TestNewLogger tests the logger constructors.
func TestNewLogger(t *testing.T) {
	t.Parallel()

	t.Run("quiet logger hides info", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := NewLogger(&buf, false)
		logger.Info("hidden")
		logger.Warn("shown")

		if strings.Contains(buf.String(), "hidden") {
			t.Error("expected info to be suppressed")
		}
		if !strings.Contains(buf.String(), "shown") {
			t.Error("expected warning to be written")
		}
	})

	t.Run("verbose logger shows debug", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		NewLogger(&buf, true).Debug("details")
		if !strings.Contains(buf.String(), "details") {
			t.Error("expected debug output")
		}
	})

	t.Run("json logger", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		NewJSONLogger(&buf, false).Warn("warned", "framework", "x")
		m := decode(t, &buf)
		if m["msg"] != "warned" || m["framework"] != "x" {
			t.Errorf("unexpected record %v", m)
		}
	})

	t.Run("nil handler falls back to default", func(t *testing.T) {
		t.Parallel()

		if NewTruncatingHandler(nil, 0).handler == nil {
			t.Error("expected fallback handler")
		}
	})
}
