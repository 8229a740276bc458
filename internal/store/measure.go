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

const timeLayout = time.RFC3339

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) (time.Time, error) { return time.Parse(timeLayout, s) }

func scanMeasure(row interface {
	Scan(dest ...any) error
}) (model.TariffMeasure, error) {
	var m model.TariffMeasure
	var effStart, effEnd, sourceVersionID, supersedes, supersededBy sql.NullString
	var rate float64
	err := row.Scan(
		&m.ID, &m.ProgramID, &m.Ch99Heading, &m.ScopeHTSType, &m.ScopeHTSValue,
		&effStart, &effEnd, &rate, &m.RateStatus, &m.Role, &m.ArticleType,
		&sourceVersionID, &supersedes, &supersededBy,
	)
	if err != nil {
		return model.TariffMeasure{}, err
	}
	m.AdditionalRate = rate
	if effStart.Valid {
		if t, perr := parseTime(effStart.String); perr == nil {
			m.EffectiveStart = t
		}
	}
	if effEnd.Valid {
		t, perr := parseTime(effEnd.String)
		if perr == nil {
			m.EffectiveEnd = &t
		}
	}
	m.SourceVersionID = sourceVersionID.String
	m.SupersedesID = supersedes.String
	m.SupersededByID = supersededBy.String
	return m, nil
}

const measureColumns = `id, program_id, ch99_heading, scope_hts_type, scope_hts_value,
	effective_start, effective_end, additional_rate, rate_status, role, article_type,
	source_version_id, supersedes_id, superseded_by_id`

// LookupMeasures returns every current TariffMeasure for programID covering
// hts at entryDate, preferring HTS10-scoped rows over HTS8-scoped rows when
// both exist for the same program (§3: HTS10 > HTS8, most-specific wins; no
// implicit 8->6->4 fallback).
func (s *Store) LookupMeasures(ctx context.Context, programID model.ProgramID, hts string, entryDate time.Time) ([]model.TariffMeasure, error) {
	normalized := model.NormalizeHTS(hts)
	hts8 := model.HTS8(normalized)
	hts10 := model.HTS10(normalized)

	var hts10Rows, hts8Rows []model.TariffMeasure
	if hts10 != "" {
		rows, err := s.queryMeasures(ctx, programID, model.ScopeHTS10, hts10, entryDate)
		if err != nil {
			return nil, err
		}
		hts10Rows = rows
	}
	if len(hts10Rows) > 0 {
		return hts10Rows, nil
	}
	if hts8 != "" {
		rows, err := s.queryMeasures(ctx, programID, model.ScopeHTS8, hts8, entryDate)
		if err != nil {
			return nil, err
		}
		hts8Rows = rows
	}
	return hts8Rows, nil
}

func (s *Store) queryMeasures(ctx context.Context, programID model.ProgramID, scopeType model.ScopeHTSType, scopeValue string, entryDate time.Time) ([]model.TariffMeasure, error) {
	query := fmt.Sprintf(`SELECT %s FROM tariff_measure
		WHERE program_id = ? AND scope_hts_type = ? AND scope_hts_value = ?
		AND effective_start <= ? AND (effective_end IS NULL OR effective_end > ?)`, measureColumns)
	rows, err := s.db.QueryContext(ctx, query, string(programID), string(scopeType), scopeValue,
		formatTime(entryDate), formatTime(entryDate))
	if err != nil {
		return nil, fmt.Errorf("query measures: %w", err)
	}
	defer rows.Close()

	var out []model.TariffMeasure
	for rows.Next() {
		m, err := scanMeasure(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// AllCurrentMeasures returns every TariffMeasure row current as of asOf,
// across all programs and HTS scopes. Used once at startup to seed
// rules.Matcher's measure_scope facts, since the engine's own join
// needs the whole scope table rather than one program/HTS lookup at a
// time the way LookupMeasures answers a single calculation.
func (s *Store) AllCurrentMeasures(ctx context.Context, asOf time.Time) ([]model.TariffMeasure, error) {
	query := fmt.Sprintf(`SELECT %s FROM tariff_measure
		WHERE effective_start <= ? AND (effective_end IS NULL OR effective_end > ?)`, measureColumns)
	rows, err := s.db.QueryContext(ctx, query, formatTime(asOf), formatTime(asOf))
	if err != nil {
		return nil, fmt.Errorf("query all current measures: %w", err)
	}
	defer rows.Close()

	var out []model.TariffMeasure
	for rows.Next() {
		m, err := scanMeasure(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// InsertMeasure inserts a brand-new TariffMeasure row with no prior version.
func (s *Store) InsertMeasure(ctx context.Context, m model.TariffMeasure) (model.TariffMeasure, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO tariff_measure
		(id, program_id, ch99_heading, scope_hts_type, scope_hts_value, effective_start, effective_end,
		 additional_rate, rate_status, role, article_type, source_version_id, supersedes_id, superseded_by_id)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		m.ID, string(m.ProgramID), m.Ch99Heading, string(m.ScopeHTSType), m.ScopeHTSValue,
		formatTime(m.EffectiveStart), nullEndTime(m.EffectiveEnd), m.AdditionalRate,
		string(m.RateStatus), string(m.Role), string(m.ArticleType),
		nullString(m.SourceVersionID), nullString(m.SupersedesID), nullString(m.SupersededByID))
	if err != nil {
		return model.TariffMeasure{}, fmt.Errorf("insert measure: %w", err)
	}
	return m, nil
}

func nullEndTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

// SupersedeMeasure atomically closes the current open row for
// (program_id, scope_hts_type, scope_hts_value) at newMeasure.EffectiveStart
// and inserts newMeasure as its replacement, within one SERIALIZABLE
// transaction (§5). If no open row exists, newMeasure is simply inserted.
// Returns DataIntegrityError if more than one open row is found (violates
// "at most one current impose row per (program, scope)", §3/§8).
func (s *Store) SupersedeMeasure(ctx context.Context, newMeasure model.TariffMeasure) (model.TariffMeasure, error) {
	if newMeasure.ID == "" {
		newMeasure.ID = uuid.NewString()
	}

	var result model.TariffMeasure
	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, fmt.Sprintf(`SELECT %s FROM tariff_measure
			WHERE program_id = ? AND scope_hts_type = ? AND scope_hts_value = ? AND effective_end IS NULL`, measureColumns),
			string(newMeasure.ProgramID), string(newMeasure.ScopeHTSType), newMeasure.ScopeHTSValue)
		if err != nil {
			return fmt.Errorf("query open measure: %w", err)
		}
		var open []model.TariffMeasure
		for rows.Next() {
			m, err := scanMeasure(rows)
			if err != nil {
				rows.Close()
				return err
			}
			open = append(open, m)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
		if len(open) > 1 {
			return &model.DataIntegrityError{Details: fmt.Sprintf(
				"%d open TariffMeasure rows for program=%s scope=%s/%s, expected at most 1",
				len(open), newMeasure.ProgramID, newMeasure.ScopeHTSType, newMeasure.ScopeHTSValue)}
		}

		if len(open) == 1 {
			prior := open[0]
			res, err := tx.ExecContext(ctx,
				`UPDATE tariff_measure SET effective_end = ?, superseded_by_id = ?
				 WHERE id = ? AND effective_end IS NULL`,
				formatTime(newMeasure.EffectiveStart), newMeasure.ID, prior.ID)
			if err != nil {
				return fmt.Errorf("close prior measure: %w", err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			if n == 0 {
				// lost the compare-and-swap race to a concurrent supersession
				return &model.DataIntegrityError{Details: fmt.Sprintf(
					"concurrent supersession of measure %s, retry", prior.ID)}
			}
			newMeasure.SupersedesID = prior.ID
		}

		_, err = tx.ExecContext(ctx, `INSERT INTO tariff_measure
			(id, program_id, ch99_heading, scope_hts_type, scope_hts_value, effective_start, effective_end,
			 additional_rate, rate_status, role, article_type, source_version_id, supersedes_id, superseded_by_id)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
			newMeasure.ID, string(newMeasure.ProgramID), newMeasure.Ch99Heading, string(newMeasure.ScopeHTSType),
			newMeasure.ScopeHTSValue, formatTime(newMeasure.EffectiveStart), nullEndTime(newMeasure.EffectiveEnd),
			newMeasure.AdditionalRate, string(newMeasure.RateStatus), string(newMeasure.Role),
			string(newMeasure.ArticleType), nullString(newMeasure.SourceVersionID),
			nullString(newMeasure.SupersedesID), nullString(newMeasure.SupersededByID))
		if err != nil {
			return fmt.Errorf("insert new measure: %w", err)
		}
		result = newMeasure
		return nil
	})
	if err != nil {
		return model.TariffMeasure{}, err
	}
	logging.Store("superseded measure program=%s scope=%s/%s new_id=%s",
		result.ProgramID, result.ScopeHTSType, result.ScopeHTSValue, result.ID)
	return result, nil
}
