package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"tariffstack/internal/model"
)

func joinCSV(vals []string) string { return strings.Join(vals, ",") }

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func scanExclusion(row interface{ Scan(dest ...any) error }) (model.ExclusionClaim, error) {
	var e model.ExclusionClaim
	var sourceHeading, descText, scopeHash sql.NullString
	var hts10, hts8 string
	var effStart string
	var effEnd sql.NullString
	var verifReq int
	err := row.Scan(&e.ExclusionID, &e.NoteBucket, &e.ClaimCh99Heading, &sourceHeading,
		&hts10, &hts8, &descText, &scopeHash, &effStart, &effEnd, &verifReq)
	if err != nil {
		return model.ExclusionClaim{}, err
	}
	e.SourceHeading = sourceHeading.String
	e.HTSConstraints = model.HTSConstraints{HTS10Exact: splitCSV(hts10), HTS8Prefix: splitCSV(hts8)}
	e.DescriptionScope = descText.String
	e.ScopeTextHash = scopeHash.String
	e.VerificationNeeded = verifReq != 0
	if t, perr := parseTime(effStart); perr == nil {
		e.EffectiveWindow.Start = t
	}
	if effEnd.Valid {
		if t, perr := parseTime(effEnd.String); perr == nil {
			e.EffectiveWindow.End = &t
		}
	}
	return e, nil
}

const exclusionColumns = `id, note_bucket, claim_ch99_heading, source_heading,
	hts10_exact, hts8_prefix, description_scope_text, scope_text_hash,
	effective_start, effective_end, verification_required`

// InsertExclusion inserts a new ExclusionClaim row.
func (s *Store) InsertExclusion(ctx context.Context, e model.ExclusionClaim) (model.ExclusionClaim, error) {
	if e.ExclusionID == "" {
		e.ExclusionID = uuid.NewString()
	}
	verif := 0
	if e.VerificationNeeded {
		verif = 1
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO exclusion_claim
		(id, note_bucket, claim_ch99_heading, source_heading, hts10_exact, hts8_prefix,
		 description_scope_text, scope_text_hash, effective_start, effective_end, verification_required)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		e.ExclusionID, e.NoteBucket, e.ClaimCh99Heading, nullString(e.SourceHeading),
		joinCSV(e.HTSConstraints.HTS10Exact), joinCSV(e.HTSConstraints.HTS8Prefix),
		nullString(e.DescriptionScope), nullString(e.ScopeTextHash),
		formatTime(e.EffectiveWindow.Start), nullEndTime(e.EffectiveWindow.End), verif)
	if err != nil {
		return model.ExclusionClaim{}, fmt.Errorf("insert exclusion: %w", err)
	}
	return e, nil
}

// ExclusionsForBucket returns every current ExclusionClaim in noteBucket
// covering entryDate, for Section-301 exclusion matching (§4.8 Step 4).
func (s *Store) ExclusionsForBucket(ctx context.Context, noteBucket string, entryDate time.Time) ([]model.ExclusionClaim, error) {
	query := fmt.Sprintf(`SELECT %s FROM exclusion_claim
		WHERE note_bucket = ? AND effective_start <= ? AND (effective_end IS NULL OR effective_end > ?)`, exclusionColumns)
	rows, err := s.db.QueryContext(ctx, query, noteBucket, formatTime(entryDate), formatTime(entryDate))
	if err != nil {
		return nil, fmt.Errorf("query exclusions: %w", err)
	}
	defer rows.Close()

	var out []model.ExclusionClaim
	for rows.Next() {
		e, err := scanExclusion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// MatchExclusion returns the first ExclusionClaim in noteBucket (of those
// covering entryDate) whose HTS constraints match the given HTS code, or
// false if none match.
func (s *Store) MatchExclusion(ctx context.Context, noteBucket, hts string, entryDate time.Time) (model.ExclusionClaim, bool, error) {
	normalized := model.NormalizeHTS(hts)
	hts8, hts10 := model.HTS8(normalized), model.HTS10(normalized)

	claims, err := s.ExclusionsForBucket(ctx, noteBucket, entryDate)
	if err != nil {
		return model.ExclusionClaim{}, false, err
	}
	for _, c := range claims {
		if c.HTSConstraints.Matches(hts8, hts10) {
			return c, true, nil
		}
	}
	return model.ExclusionClaim{}, false, nil
}
