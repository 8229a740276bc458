package model

import "time"

// AssertionType names the kind of fact a VerifiedAssertion records.
type AssertionType string

const (
	AssertionInScope    AssertionType = "IN_SCOPE"
	AssertionOutOfScope AssertionType = "OUT_OF_SCOPE"
	AssertionRate       AssertionType = "RATE"
)

// VerifiedAssertion is a fact admitted by the Write Gate: a program's
// scope/rate claim about an HTS code, backed by a verbatim quote from a
// Tier-A document chunk (§3 VerifiedAssertion, §4.6).
//
// Uniqueness: (ProgramID, HTSCodeNorm, Material, AssertionType,
// EffectiveStart). Invariant: EvidenceQuote is a substring of the
// referenced chunk's text, and the referenced document has Tier A.
type VerifiedAssertion struct {
	ID string

	ProgramID    ProgramID
	HTSCodeNorm  string
	HTSDigits    HTSPrecision
	Material     string // optional, "" when not material-specific

	AssertionType AssertionType
	ClaimCode     string // Ch99 heading, when AssertionType implies a claim
	DisclaimCode  string
	DutyRate      *float64

	EffectiveStart time.Time
	EffectiveEnd   *time.Time

	DocumentID string
	ChunkID    string

	EvidenceQuote     string
	EvidenceQuoteHash string

	ReaderOutput    string // raw JSON, for audit
	ValidatorOutput string // raw JSON, for audit

	VerifiedAt time.Time
	VerifiedBy string // "reader+validator" or reviewer identity on manual resolution
}

// CoversDate reports whether entryDate falls within the assertion's
// end-exclusive effective window.
func (a VerifiedAssertion) CoversDate(entryDate time.Time) bool {
	if entryDate.Before(a.EffectiveStart) {
		return false
	}
	if a.EffectiveEnd != nil && !entryDate.Before(*a.EffectiveEnd) {
		return false
	}
	return true
}
