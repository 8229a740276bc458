// Package reviewqueue turns a failed Write Gate check (or an
// ambiguous Reader answer) into a NeedsReviewQueue entry, and exposes
// the human-facing list/resolve/dismiss operations the admin CLI
// drives. The persistence itself lives in internal/store; this
// package is the orchestration layer between the evidence pipeline
// and that store.
package reviewqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"tariffstack/internal/llmclient"
	"tariffstack/internal/logging"
	"tariffstack/internal/model"
	"tariffstack/internal/writegate"
)

// Store is the subset of *store.Store this package depends on.
type Store interface {
	InsertReview(ctx context.Context, r model.NeedsReviewQueue) (model.NeedsReviewQueue, error)
	ListReviews(ctx context.Context, status model.ReviewStatus) ([]model.NeedsReviewQueue, error)
	ResolveReview(ctx context.Context, id string, status model.ReviewStatus, resolvedBy, resolution string) error
}

// Queue is the orchestration layer over a Store.
type Queue struct {
	store Store
}

// New builds a Queue over store.
func New(store Store) *Queue {
	return &Queue{store: store}
}

// FromWriteGateFailure classifies a failed writegate.Result into a
// BlockReason and files a NeedsReviewQueue entry.
func (q *Queue) FromWriteGateFailure(ctx context.Context, htsCode, queryType, material string, reader llmclient.ReaderOutput, validator llmclient.ValidatorOutput, gate writegate.Result) (model.NeedsReviewQueue, error) {
	reason := classifyBlockReason(reader, validator, gate)

	readerJSON, _ := json.Marshal(reader)
	validatorJSON, _ := json.Marshal(validator)
	detailsJSON, _ := json.Marshal(gate.Errors)

	entry := model.NeedsReviewQueue{
		HTSCode:        htsCode,
		QueryType:      queryType,
		Material:       material,
		ReaderOutput:   string(readerJSON),
		ValidatorOutput: string(validatorJSON),
		BlockReason:    reason,
		BlockDetails:   string(detailsJSON),
		Status:         model.ReviewPending,
		Priority:       priorityFor(reason),
		CreatedAt:      time.Now().UTC(),
	}

	inserted, err := q.store.InsertReview(ctx, entry)
	if err != nil {
		return model.NeedsReviewQueue{}, fmt.Errorf("file review for hts %s: %w", htsCode, err)
	}

	logging.Review("filed review hts=%s reason=%s priority=%d", htsCode, reason, entry.Priority)
	return inserted, nil
}

// classifyBlockReason maps the Reader/Validator/WriteGate trio onto
// one of the five BlockReason values, mirroring the precedence a human
// reviewer would use: a failed mechanical extraction dominates, then a
// reader output with no citations, then a rejected validator verdict,
// then a write-gate failure, then a reader that could not determine
// scope at all; anything else is filed as a write-gate failure.
func classifyBlockReason(reader llmclient.ReaderOutput, validator llmclient.ValidatorOutput, gate writegate.Result) model.BlockReason {
	switch {
	case !reader.Success:
		return model.BlockExtractionFailed
	case len(reader.Citations) == 0:
		return model.BlockNoCitation
	case !validator.Success || !validator.Verified:
		return model.BlockValidatorRejected
	case !gate.Passed:
		return model.BlockWriteGateFailed
	case reader.Answer == nil || reader.Answer.InScope == nil:
		return model.BlockAmbiguousReader
	default:
		return model.BlockWriteGateFailed
	}
}

func priorityFor(reason model.BlockReason) int {
	switch reason {
	case model.BlockExtractionFailed:
		return 3
	case model.BlockValidatorRejected, model.BlockWriteGateFailed:
		return 2
	default:
		return 1
	}
}

// List returns queued reviews filtered by status ("" for all).
func (q *Queue) List(ctx context.Context, status model.ReviewStatus) ([]model.NeedsReviewQueue, error) {
	return q.store.ListReviews(ctx, status)
}

// Resolve marks a review resolved with a human decision.
func (q *Queue) Resolve(ctx context.Context, id, resolvedBy, resolution string) error {
	return q.store.ResolveReview(ctx, id, model.ReviewResolved, resolvedBy, resolution)
}

// Dismiss marks a review dismissed (reviewed, no action needed).
func (q *Queue) Dismiss(ctx context.Context, id, resolvedBy, resolution string) error {
	return q.store.ResolveReview(ctx, id, model.ReviewDismissed, resolvedBy, resolution)
}
