package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tariffstack/internal/model"
)

// InsertCountryMapping inserts a new versioned CountryMapping row.
func (s *Store) InsertCountryMapping(ctx context.Context, m model.CountryMapping) (model.CountryMapping, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO country_mapping
		(id, census_code, ch99_country_code, iso_alpha2, effective_start, effective_end)
		VALUES (?,?,?,?,?,?)`,
		m.ID, m.CensusCode, m.Ch99CountryCode, m.ISOAlpha2, formatTime(m.EffectiveStart), nullEndTime(m.EffectiveEnd))
	if err != nil {
		return model.CountryMapping{}, fmt.Errorf("insert country mapping: %w", err)
	}
	return m, nil
}

// ResolveISOByCensusCode looks up the ISO alpha-2 code for a Census Bureau
// country code, current as of asOf.
func (s *Store) ResolveISOByCensusCode(ctx context.Context, censusCode string, asOf time.Time) (string, error) {
	return s.resolveISO(ctx, "census_code", censusCode, asOf)
}

// ResolveISOByCh99Country looks up the ISO alpha-2 code for a Ch99 country
// heading token (used for IEEPA Reciprocal Annex II headings), current as
// of asOf.
func (s *Store) ResolveISOByCh99Country(ctx context.Context, ch99Code string, asOf time.Time) (string, error) {
	return s.resolveISO(ctx, "ch99_country_code", ch99Code, asOf)
}

func (s *Store) resolveISO(ctx context.Context, column, value string, asOf time.Time) (string, error) {
	var iso string
	query := fmt.Sprintf(`SELECT iso_alpha2 FROM country_mapping
		WHERE %s = ? AND effective_start <= ? AND (effective_end IS NULL OR effective_end > ?)
		LIMIT 1`, column)
	err := s.db.QueryRowContext(ctx, query, value, formatTime(asOf), formatTime(asOf)).Scan(&iso)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("resolve iso by %s: %w", column, err)
	}
	return iso, nil
}
