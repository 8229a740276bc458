package ingestion

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"

	"tariffstack/internal/connectors"
	"tariffstack/internal/logging"
	"tariffstack/internal/model"
)

// IngestCSVRows applies one bulk tariff CSV drop's rows as SCD-2
// TariffMeasure supersessions, recording a SourceVersion for the file
// so every resulting measure traces back to the exact load it came
// from. This is the CSVWatcher handler registered by WatchCSVDir.
func (o *Orchestrator) IngestCSVRows(ctx context.Context, path string, rows []connectors.CSVRow) error {
	hash, err := hashFile(path)
	if err != nil {
		return fmt.Errorf("hash csv %q: %w", path, err)
	}
	version, err := o.store.InsertSourceVersion(ctx, model.SourceVersion{
		SourceType: "csv_bulk_load", Publisher: "bulk_csv_drop", URLOrPath: path,
		ContentHash: hash, RowCount: len(rows),
	})
	if err != nil {
		return fmt.Errorf("record source version for %q: %w", path, err)
	}

	var applied, skipped int
	for _, row := range rows {
		measure, ok := csvRowToMeasure(row, version.ID)
		if !ok {
			skipped++
			continue
		}
		if _, err := o.store.SupersedeMeasure(ctx, measure); err != nil {
			return fmt.Errorf("apply csv row hts=%s program=%s: %w", row.HTSCode, row.ProgramID, err)
		}
		applied++
	}

	logging.Ingestion("applied csv %s rows=%d applied=%d skipped=%d", path, len(rows), applied, skipped)
	return nil
}

// csvRowToMeasure converts one parsed CSVRow into an impose
// TariffMeasure, scoped at HTS10 when the code carries statistical
// precision and HTS8 otherwise. DisclaimHeading carries no separate
// TariffMeasure field — disclaim lines are derived at calculation time
// from Program.DisclaimBehavior (§4.9 Step 4), not stored per-measure —
// so it is neither persisted nor logged here.
func csvRowToMeasure(row connectors.CSVRow, sourceVersionID string) (model.TariffMeasure, bool) {
	normalized := model.NormalizeHTS(row.HTSCode)
	hts10 := model.HTS10(normalized)
	hts8 := model.HTS8(normalized)

	scopeType, scopeValue := model.ScopeHTS8, hts8
	if hts10 != "" {
		scopeType, scopeValue = model.ScopeHTS10, hts10
	}
	if scopeValue == "" {
		return model.TariffMeasure{}, false
	}

	return model.TariffMeasure{
		ProgramID: row.ProgramID, Ch99Heading: row.ClaimHeading,
		ScopeHTSType: scopeType, ScopeHTSValue: scopeValue,
		EffectiveStart: row.EffectiveStart, AdditionalRate: row.DutyRate,
		RateStatus: model.RateConfirmed, Role: model.RoleImpose, ArticleType: model.ArticlePrimary,
		SourceVersionID: sourceVersionID,
	}, true
}

func hashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// WatchCSVDir starts a CSVWatcher over dir, applying every settled
// file through IngestCSVRows.
func (o *Orchestrator) WatchCSVDir(ctx context.Context, dir string) (*connectors.CSVWatcher, error) {
	w, err := connectors.NewCSVWatcher(dir, o.IngestCSVRows)
	if err != nil {
		return nil, err
	}
	if err := w.Start(ctx); err != nil {
		return nil, err
	}
	return w, nil
}
