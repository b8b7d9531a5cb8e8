package main

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/rpgvault/ingest/internal/ingesterr"
)

func TestParseLogLevel(t *testing.T) {
	cases := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"DEBUG", slog.LevelDebug, false},
		{"", slog.LevelInfo, false},
		{"info", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"bogus", slog.LevelInfo, true},
	}
	for _, c := range cases {
		got, err := parseLogLevel(c.in)
		if (err != nil) != c.wantErr {
			t.Errorf("parseLogLevel(%q) error = %v, wantErr %v", c.in, err, c.wantErr)
		}
		if got != c.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestExitCodeFor(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"untagged", errors.New("boom"), 1},
		{"bad_session", ingesterr.New(ingesterr.KindBadSession, "upload", "", nil), 2},
		{"catalog_missing", ingesterr.New(ingesterr.KindCatalogMissing, "analyze", "", nil), 3},
		{"pdf_unreadable", ingesterr.New(ingesterr.KindPDFUnreadable, "extract", "", nil), 4},
		{"store_unreachable", ingesterr.New(ingesterr.KindStoreUnreachable, "extract", "", nil), 5},
		{"rejected_duplicate", ingesterr.New(ingesterr.KindRejectedDuplicate, "extract", "", nil), 6},
		{"cancelled", ingesterr.New(ingesterr.KindCancelled, "extract", "", nil), 130},
	}
	for _, c := range cases {
		if got := exitCodeFor(c.err); got != c.want {
			t.Errorf("%s: exitCodeFor() = %d, want %d", c.name, got, c.want)
		}
	}
}
