package ingestion

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"tariffstack/internal/embedding"
	"tariffstack/internal/logging"
)

// ReindexChunks recomputes chunk embeddings for every stored document
// using engine, fanning document-level work out across
// cfg.MaxConcurrentFetches workers with golang.org/x/sync/errgroup.
// This is `tariffctl reindex-chunks`'s driver: a maintenance pass run
// after a chunker or embedding-model change, not part of the normal
// Ingest path (Ingest stores chunks unembedded; embeddings are an
// optional retrieval aid, never load-bearing for a duty calculation).
func (o *Orchestrator) ReindexChunks(ctx context.Context, engine embedding.EmbeddingEngine) (int, error) {
	docs, err := o.store.AllDocuments(ctx)
	if err != nil {
		return 0, fmt.Errorf("list documents: %w", err)
	}

	var total int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.MaxConcurrentFetches)

	for _, doc := range docs {
		doc := doc
		g.Go(func() error {
			n, err := o.reindexDocument(gctx, engine, doc.ID)
			atomic.AddInt64(&total, int64(n))
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return int(total), err
	}
	logging.Ingestion("reindexed %d chunks across %d documents", total, len(docs))
	return int(total), nil
}

// reindexDocument embeds every chunk of documentID, upserts each vector
// into the sqlite-vec chunk_vec0 ANN index (store.UpsertChunkVector,
// see internal/store/vector.go), and stamps embedding_id with the
// engine/chunk pair that produced it. On a build without sqlite-vec,
// UpsertChunkVector is a no-op and the embedding_id stamp is all that
// survives, matching the teacher's "vectorExt may be false" fallback.
func (o *Orchestrator) reindexDocument(ctx context.Context, engine embedding.EmbeddingEngine, documentID string) (int, error) {
	chunks, err := o.store.ChunksForDocument(ctx, documentID)
	if err != nil {
		return 0, fmt.Errorf("chunks for document %s: %w", documentID, err)
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := engine.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed document %s: %w", documentID, err)
	}

	for i, c := range chunks {
		if i >= len(vectors) {
			break
		}
		if err := o.store.UpsertChunkVector(ctx, c.ID, vectors[i]); err != nil {
			return i, fmt.Errorf("index embedding for chunk %s: %w", c.ID, err)
		}
		embeddingID := fmt.Sprintf("%s:%s", engine.Name(), c.ID)
		if err := o.store.SetChunkEmbeddingID(ctx, c.ID, embeddingID); err != nil {
			return i, err
		}
	}
	return len(chunks), nil
}
