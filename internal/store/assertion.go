package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tariffstack/internal/logging"
	"tariffstack/internal/model"
)

// InsertAssertion atomically closes any current VerifiedAssertion row for
// the same (program, hts, material, assertion_type) and inserts a
// replacement, under a single SERIALIZABLE transaction — the Write Gate's
// SCD-2 closure (§4.6).
func (s *Store) InsertAssertion(ctx context.Context, a model.VerifiedAssertion) (model.VerifiedAssertion, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.VerifiedAt.IsZero() {
		a.VerifiedAt = time.Now().UTC()
	}

	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `UPDATE verified_assertion SET effective_end = ?
			WHERE program_id = ? AND hts_code_norm = ? AND material = ? AND assertion_type = ?
			AND effective_end IS NULL`,
			formatTime(a.EffectiveStart), string(a.ProgramID), a.HTSCodeNorm, a.Material, string(a.AssertionType))
		if err != nil {
			return fmt.Errorf("close prior assertion: %w", err)
		}

		_, err = tx.ExecContext(ctx, `INSERT INTO verified_assertion
			(id, program_id, hts_code_norm, hts_digits, material, assertion_type, claim_code, disclaim_code,
			 duty_rate, effective_start, effective_end, document_id, chunk_id, evidence_quote,
			 evidence_quote_hash, reader_output, validator_output, verified_at, verified_by)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
			a.ID, string(a.ProgramID), a.HTSCodeNorm, int(a.HTSDigits), a.Material, string(a.AssertionType),
			nullString(a.ClaimCode), nullString(a.DisclaimCode), nullRate(a.DutyRate),
			formatTime(a.EffectiveStart), nullEndTime(a.EffectiveEnd), a.DocumentID, a.ChunkID,
			a.EvidenceQuote, a.EvidenceQuoteHash, nullString(a.ReaderOutput), nullString(a.ValidatorOutput),
			formatTime(a.VerifiedAt), a.VerifiedBy)
		if err != nil {
			return fmt.Errorf("insert assertion: %w", err)
		}
		return nil
	})
	if err != nil {
		return model.VerifiedAssertion{}, err
	}
	logging.WriteGate("admitted verified assertion program=%s hts=%s material=%s type=%s",
		a.ProgramID, a.HTSCodeNorm, a.Material, a.AssertionType)
	return a, nil
}

func nullRate(r *float64) sql.NullFloat64 {
	if r == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *r, Valid: true}
}

// CurrentAssertion returns the current (effective_end IS NULL, or covering
// entryDate) VerifiedAssertion for (program, hts, material, assertion_type),
// for the Verified Assertion Cache read path (C8).
func (s *Store) CurrentAssertion(ctx context.Context, programID model.ProgramID, htsNorm, material string, assertionType model.AssertionType, entryDate time.Time) (model.VerifiedAssertion, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, program_id, hts_code_norm, hts_digits, material, assertion_type,
		claim_code, disclaim_code, duty_rate, effective_start, effective_end, document_id, chunk_id,
		evidence_quote, evidence_quote_hash, reader_output, validator_output, verified_at, verified_by
		FROM verified_assertion
		WHERE program_id = ? AND hts_code_norm = ? AND material = ? AND assertion_type = ?
		AND effective_start <= ? AND (effective_end IS NULL OR effective_end > ?)
		ORDER BY effective_start DESC LIMIT 1`,
		string(programID), htsNorm, material, string(assertionType), formatTime(entryDate), formatTime(entryDate))

	var a model.VerifiedAssertion
	var claimCode, disclaimCode, readerOut, validatorOut, effEnd sql.NullString
	var dutyRate sql.NullFloat64
	var digits int
	var effStart, verifiedAt string
	err := row.Scan(&a.ID, &a.ProgramID, &a.HTSCodeNorm, &digits, &a.Material, &a.AssertionType,
		&claimCode, &disclaimCode, &dutyRate, &effStart, &effEnd, &a.DocumentID, &a.ChunkID,
		&a.EvidenceQuote, &a.EvidenceQuoteHash, &readerOut, &validatorOut, &verifiedAt, &a.VerifiedBy)
	if err == sql.ErrNoRows {
		return model.VerifiedAssertion{}, false, nil
	}
	if err != nil {
		return model.VerifiedAssertion{}, false, fmt.Errorf("lookup assertion: %w", err)
	}
	a.HTSDigits = model.HTSPrecision(digits)
	a.ClaimCode = claimCode.String
	a.DisclaimCode = disclaimCode.String
	a.ReaderOutput = readerOut.String
	a.ValidatorOutput = validatorOut.String
	if dutyRate.Valid {
		a.DutyRate = &dutyRate.Float64
	}
	if t, perr := parseTime(effStart); perr == nil {
		a.EffectiveStart = t
	}
	if t, perr := parseTime(verifiedAt); perr == nil {
		a.VerifiedAt = t
	}
	if effEnd.Valid {
		if t, perr := parseTime(effEnd.String); perr == nil {
			a.EffectiveEnd = &t
		}
	}
	return a, true, nil
}
