package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var reindexChunksCmd = &cobra.Command{
	Use:   "reindex-chunks",
	Short: "Recompute chunk embeddings for every stored document",
	Long: `reindex-chunks re-embeds every document's chunks and upserts
them into the sqlite-vec ANN index, for use after a chunker or
embedding-model change. Requires an embedding engine (GENAI_API_KEY /
llm.api_key configured); without one this command is a validation
error, since there would be nothing to recompute.`,
	RunE: runReindexChunks,
}

func runReindexChunks(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx, resolvedConfigPath())
	if err != nil {
		return infraErr(err)
	}
	defer a.close()

	if a.embedding == nil {
		return validationErr(fmt.Errorf("no embedding engine configured (set GENAI_API_KEY)"))
	}

	n, err := a.ingestion.ReindexChunks(ctx, a.embedding)
	if err != nil {
		return infraErr(err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "reindexed %d chunks\n", n)
	return nil
}
