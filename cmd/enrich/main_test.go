package main

import (
	"context"
	"log/slog"
	"testing"

	charm "github.com/charmbracelet/log"

	"github.com/use-agent/enrich/config"
)

func TestInitLogger(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	tests := []struct {
		format string
		check  func(slog.Handler) bool
	}{
		{"json", func(h slog.Handler) bool { _, ok := h.(*slog.JSONHandler); return ok }},
		{"text", func(h slog.Handler) bool { _, ok := h.(*slog.TextHandler); return ok }},
		{"pretty", func(h slog.Handler) bool { _, ok := h.(*charm.Logger); return ok }},
		{"", func(h slog.Handler) bool { _, ok := h.(*slog.JSONHandler); return ok }},
	}
	for _, tt := range tests {
		initLogger(config.LogConfig{Level: "warn", Format: tt.format})
		h := slog.Default().Handler()
		if !tt.check(h) {
			t.Errorf("format %q: handler %T", tt.format, h)
		}
		if h.Enabled(context.Background(), slog.LevelInfo) {
			t.Errorf("format %q: info enabled at warn level", tt.format)
		}
		if !h.Enabled(context.Background(), slog.LevelError) {
			t.Errorf("format %q: error disabled at warn level", tt.format)
		}
	}
}
