package aggflat

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"go.uber.org/zap"
)

func TestInternalLogger_ForwardsToSlog(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	zl := newInternalLogger(l).Named("cache").With(zap.String("prefix", "aggflat:"))
	zl.Debug("dropped")
	zl.Warn("Cache read failed", zap.String("key", "k1"), zap.Error(errors.New("boom")))

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("expected exactly one JSON record, got %q: %v", buf.String(), err)
	}
	want := map[string]any{
		"level":  "WARN",
		"msg":    "Cache read failed",
		"logger": "cache",
		"prefix": "aggflat:",
		"key":    "k1",
		"error":  "boom",
	}
	for k, v := range want {
		if rec[k] != v {
			t.Errorf("%s = %v, want %v", k, rec[k], v)
		}
	}
}

func TestInternalLogger_NilDiscards(t *testing.T) {
	zl := newInternalLogger(nil)
	if zl.Core().Enabled(zap.ErrorLevel) {
		t.Error("expected a no-op logger")
	}
}
