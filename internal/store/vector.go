package store

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"tariffstack/internal/logging"
)

// EnableVectorIndex creates the vec0 virtual table used for chunk
// similarity search, sized for dim-dimensional embeddings. If the
// sqlite-vec extension isn't loaded (binary built without the
// sqlite_vec build tag), table creation fails and the store silently
// falls back to recording each chunk's embedding_id alone: NearestChunkIDs
// then always returns (nil, false, nil).
func (s *Store) EnableVectorIndex(dim int) {
	if dim <= 0 || s.db == nil {
		return
	}
	stmt := fmt.Sprintf(`CREATE VIRTUAL TABLE IF NOT EXISTS chunk_vec0
		USING vec0(embedding float[%d], chunk_id TEXT)`, dim)
	if _, err := s.db.Exec(stmt); err != nil {
		logging.Get(logging.CategoryStore).Warn("sqlite-vec chunk_vec0 unavailable, ANN search disabled: %v", err)
		return
	}
	s.vectorExt = true
	logging.Store("sqlite-vec chunk_vec0 index enabled (dimensions=%d)", dim)
}

// VectorIndexEnabled reports whether EnableVectorIndex succeeded.
func (s *Store) VectorIndexEnabled() bool {
	return s.vectorExt
}

// UpsertChunkVector records chunkID's embedding in the vec0 ANN index, a
// no-op when the index isn't enabled.
func (s *Store) UpsertChunkVector(ctx context.Context, chunkID string, vector []float32) error {
	if !s.vectorExt {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO chunk_vec0 (rowid, embedding, chunk_id)
		VALUES ((SELECT rowid FROM chunk_vec0 WHERE chunk_id = ?), ?, ?)`,
		chunkID, encodeVectorBlob(vector), chunkID)
	if err != nil {
		return fmt.Errorf("upsert chunk vector %s: %w", chunkID, err)
	}
	return nil
}

// NearestChunkIDs returns the k chunk IDs closest to query by cosine
// distance via the vec0 index. Returns (nil, false) when the index isn't
// enabled, so callers can fall back to FindChunksByHTS discovery.
func (s *Store) NearestChunkIDs(ctx context.Context, query []float32, k int) ([]string, bool, error) {
	if !s.vectorExt {
		return nil, false, nil
	}
	rows, err := s.db.QueryContext(ctx, `SELECT chunk_id FROM chunk_vec0
		WHERE embedding MATCH ? ORDER BY distance LIMIT ?`, encodeVectorBlob(query), k)
	if err != nil {
		return nil, false, fmt.Errorf("nearest chunk vectors: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, false, err
		}
		ids = append(ids, id)
	}
	return ids, true, rows.Err()
}

// encodeVectorBlob serializes a []float32 as little-endian IEEE-754
// bytes, the raw float32 vector layout sqlite-vec's vec0 module expects.
func encodeVectorBlob(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}
