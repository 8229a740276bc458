package model

import "time"

// DocumentTier classifies how much trust a document's content carries.
// Only Tier A documents may serve as evidence for a VerifiedAssertion.
type DocumentTier string

const (
	TierA DocumentTier = "A"
	TierB DocumentTier = "B"
	TierC DocumentTier = "C"
)

// DocumentSource names a trusted connector origin.
type DocumentSource string

const (
	SourceCSMS            DocumentSource = "CSMS"
	SourceFederalRegister  DocumentSource = "FEDERAL_REGISTER"
	SourceUSITC            DocumentSource = "USITC"
)

// FetchLogEntry records one fetch attempt by a connector.
type FetchLogEntry struct {
	FetchedAt  time.Time
	Success    bool
	Error      string
	HTTPStatus int
}

// Document is a fetched, tier-classified source record (§3 Document).
// Uniqueness: (Source, CanonicalID).
type Document struct {
	ID string

	Source        DocumentSource
	Tier          DocumentTier
	ConnectorName string
	CanonicalID   string
	URL           string
	Title         string
	PublishedAt   time.Time
	EffectiveStart *time.Time

	SHA256Raw  string
	StorageURI string

	ExtractedText    string
	HTSCodesMentioned []string
	ProgramsMentioned []ProgramID

	ExtractionFailed bool
	FetchLog         []FetchLogEntry
}

// DocumentChunk is a contiguous slice of a Document's ExtractedText (§3
// DocumentChunk, §4.4). Uniqueness: (DocumentID, ChunkIndex).
//
// Invariant: Text occurs verbatim in the owning document's
// ExtractedText[CharStart:CharEnd], subject to the position-recovery
// tolerance applied at chunk-build time.
type DocumentChunk struct {
	ID         string
	DocumentID string
	ChunkIndex int

	CharStart int
	CharEnd   int
	Text      string
	TextHash  string

	EmbeddingID string
}
