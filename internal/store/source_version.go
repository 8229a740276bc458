package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tariffstack/internal/model"
)

// InsertSourceVersion records one ingestion run against an upstream source,
// the audit backbone every TariffMeasure/ExclusionClaim row's
// source_version_id can be traced back to (SPEC_FULL.md §3 supplement).
func (s *Store) InsertSourceVersion(ctx context.Context, v model.SourceVersion) (model.SourceVersion, error) {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if v.RetrievedAt.IsZero() {
		v.RetrievedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO source_version
		(id, source_type, publisher, url_or_path, content_hash, retrieved_at, row_count)
		VALUES (?,?,?,?,?,?,?)`,
		v.ID, v.SourceType, v.Publisher, v.URLOrPath, v.ContentHash, formatTime(v.RetrievedAt), v.RowCount)
	if err != nil {
		return model.SourceVersion{}, fmt.Errorf("insert source version: %w", err)
	}
	return v, nil
}

// InsertHTSHistory records a validity window for an HTS code itself,
// distinct from program applicability (SPEC_FULL.md §3 supplement; used by
// Section-301 Step 2 HTS validation).
func (s *Store) InsertHTSHistory(ctx context.Context, h model.HTSCodeHistory) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO hts_code_history
		(hts_code, effective_start, effective_end, superseded_by_hts) VALUES (?,?,?,?)`,
		h.HTSCode, formatTime(h.EffectiveStart), nullEndTime(h.EffectiveEnd), nullString(h.SupersededByHTS))
	if err != nil {
		return fmt.Errorf("insert hts history: %w", err)
	}
	return nil
}

// IsHTSValid reports whether hts has a validity window covering entryDate.
func (s *Store) IsHTSValid(ctx context.Context, hts string, entryDate time.Time) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM hts_code_history
		WHERE hts_code = ? AND effective_start <= ? AND (effective_end IS NULL OR effective_end > ?)`,
		model.NormalizeHTS(hts), formatTime(entryDate), formatTime(entryDate)).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check hts validity: %w", err)
	}
	return count > 0, nil
}
