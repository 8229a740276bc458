package model

import "fmt"

// UntrustedSourceError means a connector refused to fetch a URL because it
// does not match the trusted-domain allowlist. Never retried automatically.
type UntrustedSourceError struct {
	URL    string
	Reason string
}

func (e *UntrustedSourceError) Error() string {
	return fmt.Sprintf("untrusted source %q: %s", e.URL, e.Reason)
}

// FetchError is a transport-level failure fetching a document. Callers
// surface it inside a ConnectorResult with Success=false and may retry with
// exponential backoff up to a bounded attempt count.
type FetchError struct {
	URL        string
	Attempt    int
	HTTPStatus int
	Err        error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch error for %q (attempt %d, status %d): %v", e.URL, e.Attempt, e.HTTPStatus, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError means the chunker or text extractor failed on a document. It is
// recorded on the Document as ExtractionFailed=true and does not block other
// documents in the batch.
type ParseError struct {
	DocumentID string
	Err        error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error on document %q: %v", e.DocumentID, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// WriteGateRejection means one or more mechanical admission checks failed.
// The attempt is recorded to the Review Queue with full context; it never
// overrides into the verified store.
type WriteGateRejection struct {
	BlockReason BlockReason
	Details     string
}

func (e *WriteGateRejection) Error() string {
	return fmt.Sprintf("write gate rejected: %s: %s", e.BlockReason, e.Details)
}

// DataIntegrityError means overlapping effective windows or non-cent-sum
// slice math was detected. Fatal: aborts the current operation and must
// never be silently swallowed.
type DataIntegrityError struct {
	Details string
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("data integrity error: %s", e.Details)
}

// InvalidMaterialAllocation means declared material values do not sum to
// within the declared product value (§4.9 Step 1, §8).
type InvalidMaterialAllocation struct {
	DeclaredValueCents int64
	MaterialSumCents   int64
}

func (e *InvalidMaterialAllocation) Error() string {
	return fmt.Sprintf("material allocation %d exceeds declared value %d", e.MaterialSumCents, e.DeclaredValueCents)
}

// NotApplicable is a normal outcome, not an error: a program simply does not
// apply to the given (hts, country, entry_date). Callers should check for
// this with errors.Is / errors.As and treat it as "no slice", never log it
// as a failure.
type NotApplicable struct {
	ProgramID ProgramID
	Reason    string
}

func (e *NotApplicable) Error() string {
	return fmt.Sprintf("%s not applicable: %s", e.ProgramID, e.Reason)
}
