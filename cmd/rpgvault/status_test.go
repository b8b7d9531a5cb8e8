package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/rpgvault/ingest/internal/model"
	"github.com/rpgvault/ingest/internal/pipeline"
)

func capturedSnapshot(t *testing.T, snap pipeline.Snapshot) string {
	t.Helper()
	cmd := &cobra.Command{}
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	printSnapshot(cmd, snap)
	return buf.String()
}

func TestPrintSnapshotWithError(t *testing.T) {
	out := capturedSnapshot(t, pipeline.Snapshot{
		ID:    "sess-1",
		Stage: pipeline.StageFailedExtraction,
		Err:   errors.New("boom"),
	})
	if !strings.Contains(out, "sess-1") || !strings.Contains(out, "error=boom") {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestPrintSnapshotWithVerdict(t *testing.T) {
	out := capturedSnapshot(t, pipeline.Snapshot{
		ID:      "sess-2",
		Stage:   pipeline.StageIdentified,
		Percent: 40,
		Verdict: &model.Verdict{Game: "dnd_5e", Book: "phb"},
	})
	if !strings.Contains(out, "game=dnd_5e") || !strings.Contains(out, "book=phb") {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestPrintSnapshotPlain(t *testing.T) {
	out := capturedSnapshot(t, pipeline.Snapshot{
		ID:      "sess-3",
		Stage:   pipeline.StageUploaded,
		Percent: 10,
	})
	if !strings.Contains(out, "sess-3") || !strings.Contains(out, "stage=uploaded") {
		t.Errorf("unexpected output: %q", out)
	}
}
