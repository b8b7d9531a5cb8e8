package pipeline

import "testing"

func TestStageIsTerminal(t *testing.T) {
	terminal := []Stage{
		StageCompleted, StageFailedIdentification, StageFailedExtraction,
		StageFailedPersistence, StageRejectedDuplicate, StageCancelled,
	}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("%s: expected terminal", s)
		}
	}

	nonTerminal := []Stage{
		StageCreated, StageUploaded, StageIdentifying, StageIdentified,
		StageDedupCheck, StageExtracting, StageEnhancing, StageCategorizing,
		StageScoring, StageNovelCharacters, StagePersisting,
	}
	for _, s := range nonTerminal {
		if s.IsTerminal() {
			t.Errorf("%s: expected non-terminal", s)
		}
	}
}

func TestStageIndexMonotonicOrder(t *testing.T) {
	seq := []Stage{
		StageCreated, StageUploaded, StageIdentifying, StageIdentified,
		StageDedupCheck, StageExtracting, StageEnhancing, StageCategorizing,
		StageScoring, StageNovelCharacters, StagePersisting, StageCompleted,
	}
	for i := 1; i < len(seq); i++ {
		if seq[i-1].Index() >= seq[i].Index() {
			t.Errorf("expected %s.Index() < %s.Index(), got %d >= %d",
				seq[i-1], seq[i], seq[i-1].Index(), seq[i].Index())
		}
	}
}

func TestStageIndexUnknownIsNegativeOne(t *testing.T) {
	if got := Stage("not_a_real_stage").Index(); got != -1 {
		t.Errorf("Index() = %d, want -1", got)
	}
}
