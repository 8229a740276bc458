package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"tariffstack/internal/connectors"
	"tariffstack/internal/logging"
)

var (
	ingestSource string
	ingestURLs   []string
	ingestCSV    string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Fetch and store documents from a trusted connector, or apply a bulk CSV drop",
	Long: `ingest --source csms --url https://... [--url https://...]
fetches each URL through the named connector (csms, federal_register,
usitc), chunking and storing any new document.

ingest --csv path/to/rows.csv applies a bulk tariff CSV drop as SCD-2
TariffMeasure supersessions instead.`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestSource, "source", "", "connector name: csms, federal_register, usitc")
	ingestCmd.Flags().StringArrayVar(&ingestURLs, "url", nil, "URL to fetch (repeatable)")
	ingestCmd.Flags().StringVar(&ingestCSV, "csv", "", "path to a bulk tariff CSV drop to apply directly")
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx, resolvedConfigPath())
	if err != nil {
		return infraErr(err)
	}
	defer a.close()

	if ingestCSV != "" {
		rows, err := connectors.ParseCSV(ingestCSV)
		if err != nil {
			return validationErr(fmt.Errorf("parse csv %q: %w", ingestCSV, err))
		}
		if err := a.ingestion.IngestCSVRows(ctx, ingestCSV, rows); err != nil {
			return infraErr(err)
		}
		logging.CLI("applied csv drop %s (%d rows)", ingestCSV, len(rows))
		return nil
	}

	if ingestSource == "" || len(ingestURLs) == 0 {
		return validationErr(fmt.Errorf("ingest requires either --csv or both --source and at least one --url"))
	}

	results, err := a.ingestion.IngestBatch(ctx, ingestSource, ingestURLs)
	if err != nil {
		return infraErr(err)
	}

	var failed int
	for _, r := range results {
		switch {
		case r.Err != nil:
			failed++
			fmt.Fprintf(cmd.OutOrStdout(), "FAILED  %s: %v\n", r.URL, r.Err)
		case r.Skipped:
			fmt.Fprintf(cmd.OutOrStdout(), "SKIPPED %s (already ingested, document_id=%s)\n", r.URL, r.DocumentID)
		default:
			fmt.Fprintf(cmd.OutOrStdout(), "OK      %s (document_id=%s)\n", r.URL, r.DocumentID)
		}
	}
	if failed > 0 {
		return infraErr(fmt.Errorf("%d of %d fetches failed", failed, len(results)))
	}
	return nil
}
