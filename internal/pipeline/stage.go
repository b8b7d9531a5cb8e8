// Package pipeline drives a document from upload through
// identification, extraction, categorization, scoring, and dual-backend
// persistence as a session-keyed state machine. Per-page fan-out runs on
// a bounded panjf2000/ants pool.
package pipeline

// Stage is one state in the session state machine.
type Stage string

const (
	StageCreated         Stage = "created"
	StageUploaded        Stage = "uploaded"
	StageIdentifying     Stage = "identifying"
	StageIdentified      Stage = "identified"
	StageDedupCheck      Stage = "dedup_check"
	StageExtracting      Stage = "extracting"
	StageEnhancing       Stage = "enhancing"
	StageCategorizing    Stage = "categorizing"
	StageScoring         Stage = "scoring"
	StageNovelCharacters Stage = "novel_characters"
	StagePersisting      Stage = "persisting"
	StageCompleted       Stage = "completed"

	// Error / terminal states.
	StageFailedIdentification Stage = "failed_identification"
	StageFailedExtraction     Stage = "failed_extraction"
	StageFailedPersistence    Stage = "failed_persistence"
	StageRejectedDuplicate    Stage = "rejected_duplicate"
	StageCancelled            Stage = "cancelled"
)

// order gives every non-terminal stage an index so monotonicity is
// checkable: a session's stage index must never decrease, except into a
// terminal state, which may be reached from anywhere.
var order = map[Stage]int{
	StageCreated:         0,
	StageUploaded:        1,
	StageIdentifying:     2,
	StageIdentified:      3,
	StageDedupCheck:      4,
	StageExtracting:      5,
	StageEnhancing:       6,
	StageCategorizing:    7,
	StageScoring:         8,
	StageNovelCharacters: 9,
	StagePersisting:      10,
	StageCompleted:       11,
}

// IsTerminal reports whether s is an absorbing state.
func (s Stage) IsTerminal() bool {
	switch s {
	case StageCompleted, StageFailedIdentification, StageFailedExtraction,
		StageFailedPersistence, StageRejectedDuplicate, StageCancelled:
		return true
	default:
		return false
	}
}

// Index returns the stage's position in the non-terminal progression, or
// -1 for a terminal/error stage (which has no fixed position).
func (s Stage) Index() int {
	if i, ok := order[s]; ok {
		return i
	}
	return -1
}
