// Package model holds the fixed record types shared across the ingest
// pipeline. The schema is closed: open-ended data is allowed only under
// Verdict's dedicated Extra field so readers can trust the rest of each
// struct.
package model

import "time"

// ContentKind is the document content class.
type ContentKind string

const (
	KindSourceMaterial ContentKind = "source_material"
	KindNovel          ContentKind = "novel"
)

// Derivation records how a Verdict was obtained.
type Derivation string

const (
	DerivationExplicitTitle   Derivation = "explicit_title"
	DerivationAIInference     Derivation = "ai_inference"
	DerivationManualOverride  Derivation = "manual_override"
	DerivationFallbackKeyword Derivation = "fallback_keyword"
)

// Document is a byte blob with an origin name.
type Document struct {
	Bytes      []byte
	OriginName string
	ByteLength int64
	SHA256     string
	UploadedAt time.Time
}

// Verdict is the classification output consumed by all downstream stages.
type Verdict struct {
	Kind       ContentKind
	Game       string
	Edition    string
	Book       string
	BookTitle  string
	Publisher  string
	ISBN10     string
	ISBN13     string
	Confidence float64
	Rationale  string
	Derivation Derivation
	Extra      map[string]string
}

// Table is a detected table region.
type Table struct {
	ID      string
	Page    int
	Ordinal int
	Headers []string
	Rows    [][]string
}

// Section is an extraction unit identified by (page, ordinal).
type Section struct {
	Page               int
	Ordinal            int
	RawText            string
	EnhancedText       string
	Category           string
	CategoryConfidence float64
	HasTable           bool
	Tables             []Table
}

// CategoryCounts is a per-category histogram.
type CategoryCounts map[string]int

// AggregateCounts summarizes an artifact's extraction.
type AggregateCounts struct {
	Pages      int
	Words      int
	Sections   int
	ByCategory CategoryCounts
}

// QualityMetrics is the text enhancer's output metrics record.
type QualityMetrics struct {
	BeforeScore      float64
	AfterScore       float64
	Grade            string
	RunOnSplits      int
	MissingSpaces    int
	OCRSubstitutions int
	SpellCorrections int
}

// ConfidenceRecord is the confidence scorer's output.
type ConfidenceRecord struct {
	TextConfidence   float64
	LayoutConfidence float64
	OCRConfidence    float64
	TableConfidence  float64
	Overall          float64
	Grade            string
}

// CharacterRecord is one discovered/enhanced novel character.
type CharacterRecord struct {
	ID           string
	Name         string
	PageMentions int
	Quotes       []CharacterQuote
	Personality  []string
	Behavior     []string
}

// CharacterQuote is a verbatim quote attributed to a character.
type CharacterQuote struct {
	Text string
	Page int
}

// CharacterGraph is the character pass's parallel output: discovered
// characters plus an adjacency map of relationships keyed by character id,
// kept separate from Section/Artifact so no cyclic references are needed.
type CharacterGraph struct {
	Characters    []CharacterRecord
	Relationships map[string][]string
}

// Artifact is the full result of one pipeline run.
type Artifact struct {
	Verdict    Verdict
	Sections   []Section
	Counts     AggregateCounts
	Confidence ConfidenceRecord
	Quality    QualityMetrics
	Characters *CharacterGraph
	IngestedAt time.Time
}

// RegistryStatus is a Duplicate Registry Entry's lifecycle status.
type RegistryStatus string

const (
	RegistryStatusCompleted  RegistryStatus = "completed"
	RegistryStatusSuperseded RegistryStatus = "superseded"
)

// RegistryEntry is keyed by canonical ISBN-13.
type RegistryEntry struct {
	ISBN            string
	BookTitle       string
	Author          string
	FirstIngestedAt time.Time
	LastSessionID   string
	SectionCount    int
	WordCount       int
	Status          RegistryStatus
}

// CollectionLayout chooses how CollectionAddress lays out persisted names.
type CollectionLayout string

const (
	LayoutSeparate         CollectionLayout = "separate"
	LayoutSingleWithFolder CollectionLayout = "single_with_folder"
)

// CollectionAddress is the deterministic name/path derived from a verdict.
type CollectionAddress struct {
	Layout     CollectionLayout
	Collection string
	FolderPath string // only set for LayoutSingleWithFolder
}
