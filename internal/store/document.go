package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"tariffstack/internal/logging"
	"tariffstack/internal/model"
)

// InsertDocument inserts a Document row. Uniqueness on (source,
// canonical_id) is enforced by the schema; a duplicate insert returns the
// sqlite3 constraint error unchanged so callers can treat it as "already
// ingested" (§8 idempotent ingestion).
func (s *Store) InsertDocument(ctx context.Context, d model.Document) (model.Document, error) {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	var publishedAt, effStart sql.NullString
	if !d.PublishedAt.IsZero() {
		publishedAt = sql.NullString{String: formatTime(d.PublishedAt), Valid: true}
	}
	if d.EffectiveStart != nil {
		effStart = sql.NullString{String: formatTime(*d.EffectiveStart), Valid: true}
	}
	extractionFailed := 0
	if d.ExtractionFailed {
		extractionFailed = 1
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO document
		(id, source, tier, connector_name, canonical_id, url, title, published_at, effective_start,
		 sha256_raw, storage_uri, extracted_text, hts_codes_mentioned, programs_mentioned, extraction_failed)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		d.ID, string(d.Source), string(d.Tier), d.ConnectorName, d.CanonicalID, d.URL,
		nullString(d.Title), publishedAt, effStart, d.SHA256Raw, d.StorageURI, d.ExtractedText,
		joinCSV(d.HTSCodesMentioned), joinPrograms(d.ProgramsMentioned), extractionFailed)
	if err != nil {
		return model.Document{}, fmt.Errorf("insert document: %w", err)
	}
	for _, entry := range d.FetchLog {
		if err := s.appendFetchLog(ctx, d.ID, entry); err != nil {
			return model.Document{}, err
		}
	}
	logging.Store("inserted document source=%s canonical_id=%s tier=%s", d.Source, d.CanonicalID, d.Tier)
	return d, nil
}

func joinPrograms(ps []model.ProgramID) string {
	strs := make([]string, len(ps))
	for i, p := range ps {
		strs[i] = string(p)
	}
	return strings.Join(strs, ",")
}

func (s *Store) appendFetchLog(ctx context.Context, documentID string, e model.FetchLogEntry) error {
	success := 0
	if e.Success {
		success = 1
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO document_fetch_log
		(document_id, fetched_at, success, error, http_status) VALUES (?,?,?,?,?)`,
		documentID, formatTime(e.FetchedAt), success, nullString(e.Error), e.HTTPStatus)
	return err
}

// DocumentByCanonicalID looks up a Document by (source, canonical_id), the
// uniqueness key used to detect already-ingested documents (§8).
func (s *Store) DocumentByCanonicalID(ctx context.Context, source model.DocumentSource, canonicalID string) (model.Document, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, source, tier, connector_name, canonical_id, url, title,
		published_at, effective_start, sha256_raw, storage_uri, extracted_text,
		hts_codes_mentioned, programs_mentioned, extraction_failed
		FROM document WHERE source = ? AND canonical_id = ?`, string(source), canonicalID)
	d, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return model.Document{}, false, nil
	}
	if err != nil {
		return model.Document{}, false, fmt.Errorf("lookup document: %w", err)
	}
	return d, true, nil
}

// DocumentByID loads a Document by primary key, required by the Write
// Gate's "document exists" / "tier A" checks (§4.6).
func (s *Store) DocumentByID(ctx context.Context, id string) (model.Document, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, source, tier, connector_name, canonical_id, url, title,
		published_at, effective_start, sha256_raw, storage_uri, extracted_text,
		hts_codes_mentioned, programs_mentioned, extraction_failed
		FROM document WHERE id = ?`, id)
	d, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return model.Document{}, false, nil
	}
	if err != nil {
		return model.Document{}, false, fmt.Errorf("lookup document: %w", err)
	}
	return d, true, nil
}

func scanDocument(row interface{ Scan(dest ...any) error }) (model.Document, error) {
	var d model.Document
	var title, publishedAt, effStart sql.NullString
	var htsCodes, programs string
	var extractionFailed int
	err := row.Scan(&d.ID, &d.Source, &d.Tier, &d.ConnectorName, &d.CanonicalID, &d.URL, &title,
		&publishedAt, &effStart, &d.SHA256Raw, &d.StorageURI, &d.ExtractedText,
		&htsCodes, &programs, &extractionFailed)
	if err != nil {
		return model.Document{}, err
	}
	d.Title = title.String
	d.ExtractionFailed = extractionFailed != 0
	d.HTSCodesMentioned = splitCSV(htsCodes)
	for _, p := range splitCSV(programs) {
		d.ProgramsMentioned = append(d.ProgramsMentioned, model.ProgramID(p))
	}
	if publishedAt.Valid {
		if t, perr := parseTime(publishedAt.String); perr == nil {
			d.PublishedAt = t
		}
	}
	if effStart.Valid {
		if t, perr := parseTime(effStart.String); perr == nil {
			d.EffectiveStart = &t
		}
	}
	return d, nil
}

// AllDocuments returns every ingested Document, for `tariffctl
// reindex-chunks` to walk when rebuilding chunk embeddings.
func (s *Store) AllDocuments(ctx context.Context) ([]model.Document, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, source, tier, connector_name, canonical_id, url, title,
		published_at, effective_start, sha256_raw, storage_uri, extracted_text,
		hts_codes_mentioned, programs_mentioned, extraction_failed FROM document`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var out []model.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// SetChunkEmbeddingID records the embedding identifier computed for a
// chunk during `tariffctl reindex-chunks`.
func (s *Store) SetChunkEmbeddingID(ctx context.Context, chunkID, embeddingID string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE document_chunk SET embedding_id = ? WHERE id = ?`, embeddingID, chunkID)
	if err != nil {
		return fmt.Errorf("set chunk embedding id: %w", err)
	}
	return nil
}

// InsertChunks writes all of a document's chunks in a single transaction,
// so that (document_id, chunk_index) uniqueness cannot be violated by a
// partial replay (§4.4, §5).
func (s *Store) InsertChunks(ctx context.Context, chunks []model.DocumentChunk) error {
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		for _, c := range chunks {
			if c.ID == "" {
				c.ID = uuid.NewString()
			}
			_, err := tx.ExecContext(ctx, `INSERT INTO document_chunk
				(id, document_id, chunk_index, char_start, char_end, text, text_hash, embedding_id)
				VALUES (?,?,?,?,?,?,?,?)`,
				c.ID, c.DocumentID, c.ChunkIndex, c.CharStart, c.CharEnd, c.Text, c.TextHash, nullString(c.EmbeddingID))
			if err != nil {
				return fmt.Errorf("insert chunk %d: %w", c.ChunkIndex, err)
			}
		}
		return nil
	})
}

// ChunkByID loads a DocumentChunk by primary key, required by the Write
// Gate's "chunk exists" / "quote is a substring" checks (§4.6).
func (s *Store) ChunkByID(ctx context.Context, id string) (model.DocumentChunk, bool, error) {
	var c model.DocumentChunk
	var embeddingID sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT id, document_id, chunk_index, char_start, char_end, text, text_hash, embedding_id
		FROM document_chunk WHERE id = ?`, id).
		Scan(&c.ID, &c.DocumentID, &c.ChunkIndex, &c.CharStart, &c.CharEnd, &c.Text, &c.TextHash, &embeddingID)
	if err == sql.ErrNoRows {
		return model.DocumentChunk{}, false, nil
	}
	if err != nil {
		return model.DocumentChunk{}, false, fmt.Errorf("lookup chunk: %w", err)
	}
	c.EmbeddingID = embeddingID.String
	return c, true, nil
}

// ChunksForDocument returns every chunk belonging to documentID, ordered by
// chunk_index.
func (s *Store) ChunksForDocument(ctx context.Context, documentID string) ([]model.DocumentChunk, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, document_id, chunk_index, char_start, char_end, text, text_hash, embedding_id
		FROM document_chunk WHERE document_id = ? ORDER BY chunk_index`, documentID)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	var out []model.DocumentChunk
	for rows.Next() {
		var c model.DocumentChunk
		var embeddingID sql.NullString
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.ChunkIndex, &c.CharStart, &c.CharEnd, &c.Text, &c.TextHash, &embeddingID); err != nil {
			return nil, err
		}
		c.EmbeddingID = embeddingID.String
		out = append(out, c)
	}
	return out, rows.Err()
}

// FindChunksByHTS returns chunks belonging to Tier-A documents whose
// hts_codes_mentioned column lists htsCode, for the Ingestion
// Orchestrator's discovery-mode retrieval (SPEC_FULL.md §9): the
// mechanical candidate-gathering step that hands the Reader a bounded
// set of chunks to answer from, in place of a vector-similarity index.
func (s *Store) FindChunksByHTS(ctx context.Context, htsCode string) ([]model.DocumentChunk, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT dc.id, dc.document_id, dc.chunk_index, dc.char_start, dc.char_end, dc.text, dc.text_hash, dc.embedding_id
		FROM document_chunk dc JOIN document d ON d.id = dc.document_id
		WHERE d.tier = ? AND (',' || d.hts_codes_mentioned || ',') LIKE '%,' || ? || ',%'
		ORDER BY dc.document_id, dc.chunk_index`, string(model.TierA), htsCode)
	if err != nil {
		return nil, fmt.Errorf("find chunks by hts: %w", err)
	}
	defer rows.Close()

	var out []model.DocumentChunk
	for rows.Next() {
		var c model.DocumentChunk
		var embeddingID sql.NullString
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.ChunkIndex, &c.CharStart, &c.CharEnd, &c.Text, &c.TextHash, &embeddingID); err != nil {
			return nil, err
		}
		c.EmbeddingID = embeddingID.String
		out = append(out, c)
	}
	return out, rows.Err()
}
