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

// InsertReview records a failed verification attempt for human triage
// (§4.6 on-fail path).
func (s *Store) InsertReview(ctx context.Context, r model.NeedsReviewQueue) (model.NeedsReviewQueue, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	if r.Status == "" {
		r.Status = model.ReviewPending
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO needs_review_queue
		(id, hts_code, query_type, material, reader_output, validator_output, block_reason, block_details,
		 status, priority, created_at) VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		r.ID, r.HTSCode, r.QueryType, r.Material, nullString(r.ReaderOutput), nullString(r.ValidatorOutput),
		string(r.BlockReason), nullString(r.BlockDetails), string(r.Status), r.Priority, formatTime(r.CreatedAt))
	if err != nil {
		return model.NeedsReviewQueue{}, fmt.Errorf("insert review: %w", err)
	}
	logging.Review("queued review hts=%s query_type=%s reason=%s priority=%d", r.HTSCode, r.QueryType, r.BlockReason, r.Priority)
	return r, nil
}

// ListReviews returns queue rows, optionally filtered by status ("" = all),
// ordered by priority descending then creation time.
func (s *Store) ListReviews(ctx context.Context, status model.ReviewStatus) ([]model.NeedsReviewQueue, error) {
	query := `SELECT id, hts_code, query_type, material, reader_output, validator_output,
		block_reason, block_details, status, priority, created_at, resolved_at, resolved_by, resolution
		FROM needs_review_queue`
	args := []any{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY priority DESC, created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var out []model.NeedsReviewQueue
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanReview(row interface{ Scan(dest ...any) error }) (model.NeedsReviewQueue, error) {
	var r model.NeedsReviewQueue
	var material, readerOut, validatorOut, blockDetails, resolvedAt, resolvedBy, resolution sql.NullString
	var createdAt string
	err := row.Scan(&r.ID, &r.HTSCode, &r.QueryType, &material, &readerOut, &validatorOut,
		&r.BlockReason, &blockDetails, &r.Status, &r.Priority, &createdAt, &resolvedAt, &resolvedBy, &resolution)
	if err != nil {
		return model.NeedsReviewQueue{}, err
	}
	r.Material = material.String
	r.ReaderOutput = readerOut.String
	r.ValidatorOutput = validatorOut.String
	r.BlockDetails = blockDetails.String
	r.ResolvedBy = resolvedBy.String
	r.Resolution = resolution.String
	if t, perr := parseTime(createdAt); perr == nil {
		r.CreatedAt = t
	}
	if resolvedAt.Valid {
		if t, perr := parseTime(resolvedAt.String); perr == nil {
			r.ResolvedAt = &t
		}
	}
	return r, nil
}

// ResolveReview marks a review row resolved or dismissed with an operator
// note (`tariffctl review resolve|dismiss`, §6).
func (s *Store) ResolveReview(ctx context.Context, id string, status model.ReviewStatus, resolvedBy, resolution string) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `UPDATE needs_review_queue
		SET status = ?, resolved_at = ?, resolved_by = ?, resolution = ? WHERE id = ?`,
		string(status), formatTime(now), resolvedBy, resolution, id)
	if err != nil {
		return fmt.Errorf("resolve review: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("review %s not found", id)
	}
	return nil
}
