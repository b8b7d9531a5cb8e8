package pipeline

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rpgvault/ingest/internal/model"
)

// NewSessionID mints an opaque, URL-safe session id: a UUIDv4 (122 bits
// of randomness).
func NewSessionID() string {
	id := uuid.New()
	return id.String()
}

// Session is the stateful container for one ingest operation: created
// at upload, destroyed on terminal state or expiry. All mutable fields
// are guarded by mu; callers use the accessor methods below rather than
// touching fields directly.
type Session struct {
	mu sync.RWMutex

	id          string
	document    model.Document
	stage       Stage
	percent     int
	verdict     *model.Verdict
	artifact    *model.Artifact
	err         error
	note        string
	createdAt   time.Time
	lastTouched time.Time
	cancelled   bool
	isbn        string // canonical ISBN of the tentative dedup entry, if any
	provider    string // AI provider name resolved at analyze(), reused by extract()

	bus *broadcaster
}

func newSession(id string, doc model.Document) *Session {
	now := time.Now()
	return &Session{
		id:          id,
		document:    doc,
		stage:       StageCreated,
		createdAt:   now,
		lastTouched: now,
		bus:         newBroadcaster(),
	}
}

// ID returns the session's opaque identifier.
func (s *Session) ID() string { return s.id }

// Snapshot is the read-only view returned by status().
type Snapshot struct {
	ID          string
	Stage       Stage
	Percent     int
	Verdict     *model.Verdict
	Err         error
	Note        string
	CreatedAt   time.Time
	LastTouched time.Time
}

// Status returns a point-in-time snapshot.
func (s *Session) Status() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		ID: s.id, Stage: s.stage, Percent: s.percent, Verdict: s.verdict,
		Err: s.err, Note: s.note, CreatedAt: s.createdAt, LastTouched: s.lastTouched,
	}
}

// IsCancelRequested reports whether Cancel has been called; each stage
// checks this before starting per-page work and between sections.
func (s *Session) IsCancelRequested() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cancelled
}

func (s *Session) requestCancel() {
	s.mu.Lock()
	s.cancelled = true
	s.mu.Unlock()
}

// transition moves the session to stage at percent, emitting a progress
// event. Stage index and percent never regress outside a move into a
// terminal state.
func (s *Session) transition(stage Stage, percent int, note string) {
	s.mu.Lock()
	if s.stage.IsTerminal() {
		s.mu.Unlock()
		return
	}
	if !stage.IsTerminal() && stage.Index() < s.stage.Index() {
		s.mu.Unlock()
		return
	}
	if stage == s.stage && percent < s.percent {
		percent = s.percent
	}
	s.stage = stage
	s.percent = percent
	s.note = note
	s.lastTouched = time.Now()
	terminal := stage.IsTerminal()
	ev := ProgressEvent{SessionID: s.id, Stage: stage, Percent: percent, Note: note}
	s.mu.Unlock()

	s.bus.Publish(ev)
	if terminal {
		s.bus.Close()
	}
}

func (s *Session) setVerdict(v model.Verdict) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verdict = &v
}

func (s *Session) getVerdict() (model.Verdict, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.verdict == nil {
		return model.Verdict{}, false
	}
	return *s.verdict, true
}

func (s *Session) setArtifact(a model.Artifact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifact = &a
}

func (s *Session) getArtifact() (model.Artifact, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.artifact == nil {
		return model.Artifact{}, false
	}
	return *s.artifact, true
}

func (s *Session) fail(stage Stage, err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	s.transition(stage, 100, err.Error())
}

func (s *Session) setProvider(name string) {
	s.mu.Lock()
	s.provider = name
	s.mu.Unlock()
}

func (s *Session) getProvider() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.provider
}

func (s *Session) setISBN(isbn string) {
	s.mu.Lock()
	s.isbn = isbn
	s.mu.Unlock()
}

func (s *Session) getISBN() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isbn
}

func (s *Session) subscribe() (<-chan ProgressEvent, func()) {
	return s.bus.Subscribe(32)
}

func (s *Session) expired(ttl time.Duration) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.stage.IsTerminal() {
		return false // never sweep a non-terminal running session
	}
	return time.Since(s.lastTouched) > ttl
}
