package model

import "time"

// SourceVersion is an audit-trail record of one ingestion run against one
// upstream data source, so a historical evaluation can be reproduced
// against the exact source it was derived from (SPEC_FULL.md §3
// supplement, grounded on original_source's SourceVersion model).
type SourceVersion struct {
	ID string

	SourceType  string // e.g. "csv_bulk_load", "csms_fetch", "federal_register_fetch"
	Publisher   string
	URLOrPath   string
	ContentHash string
	RetrievedAt time.Time
	RowCount    int
}

// HTSCodeHistory is a validity window for an HTS code itself, distinct
// from program applicability (SPEC_FULL.md §3 supplement; consumed by the
// Section-301 Evaluator's HTS validation step).
type HTSCodeHistory struct {
	HTSCode         string
	EffectiveStart  time.Time
	EffectiveEnd    *time.Time
	SupersededByHTS string
}
