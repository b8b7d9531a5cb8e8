package pipeline

import (
	"testing"

	"github.com/rpgvault/ingest/internal/model"
)

func TestSessionTransitionIsMonotonic(t *testing.T) {
	sess := newSession(NewSessionID(), model.Document{})
	sess.transition(StageUploaded, 100, "")
	sess.transition(StageIdentifying, 50, "")

	// A lower-index stage after a higher one is ignored.
	sess.transition(StageUploaded, 10, "regressed")

	if sess.Status().Stage != StageIdentifying {
		t.Errorf("stage regressed to %s, want identifying held", sess.Status().Stage)
	}
}

func TestSessionTransitionPercentNeverDecreasesWithinAStage(t *testing.T) {
	sess := newSession(NewSessionID(), model.Document{})
	sess.transition(StageExtracting, 50, "")
	sess.transition(StageExtracting, 30, "")

	if got := sess.Status().Percent; got != 50 {
		t.Errorf("percent regressed to %d, want held at 50", got)
	}
}

func TestSessionTerminalStateIsAbsorbing(t *testing.T) {
	sess := newSession(NewSessionID(), model.Document{})
	sess.transition(StageCompleted, 100, "")
	sess.transition(StageFailedExtraction, 100, "late failure")

	if got := sess.Status().Stage; got != StageCompleted {
		t.Errorf("terminal stage was overwritten: got %s, want completed", got)
	}
}

func TestSessionCancelIsIdempotent(t *testing.T) {
	sess := newSession(NewSessionID(), model.Document{})
	sess.requestCancel()
	sess.requestCancel()
	if !sess.IsCancelRequested() {
		t.Error("expected cancel requested")
	}
}

func TestSessionVerdictAndArtifactRoundTrip(t *testing.T) {
	sess := newSession(NewSessionID(), model.Document{})
	if _, ok := sess.getVerdict(); ok {
		t.Error("expected no verdict before setVerdict")
	}
	v := model.Verdict{Game: "dnd", Book: "phb"}
	sess.setVerdict(v)
	got, ok := sess.getVerdict()
	if !ok || got.Game != "dnd" || got.Book != "phb" {
		t.Errorf("getVerdict() = %+v, %v", got, ok)
	}

	if _, ok := sess.getArtifact(); ok {
		t.Error("expected no artifact before setArtifact")
	}
	a := model.Artifact{Verdict: v}
	sess.setArtifact(a)
	gotA, ok := sess.getArtifact()
	if !ok || gotA.Verdict.Game != "dnd" {
		t.Errorf("getArtifact() = %+v, %v", gotA, ok)
	}
}

func TestSessionProviderRoundTrip(t *testing.T) {
	sess := newSession(NewSessionID(), model.Document{})
	if got := sess.getProvider(); got != "" {
		t.Errorf("getProvider() = %q before setProvider, want empty", got)
	}
	sess.setProvider("cloud-a")
	if got := sess.getProvider(); got != "cloud-a" {
		t.Errorf("getProvider() = %q, want cloud-a", got)
	}
}
