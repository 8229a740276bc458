package reviewqueue

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"tariffstack/internal/llmclient"
	"tariffstack/internal/model"
	"tariffstack/internal/writegate"
)

type fakeStore struct {
	inserted []model.NeedsReviewQueue
	resolved map[string]model.ReviewStatus
}

func newFakeStore() *fakeStore {
	return &fakeStore{resolved: make(map[string]model.ReviewStatus)}
}

func (f *fakeStore) InsertReview(ctx context.Context, r model.NeedsReviewQueue) (model.NeedsReviewQueue, error) {
	r.ID = "review-1"
	f.inserted = append(f.inserted, r)
	return r, nil
}

func (f *fakeStore) ListReviews(ctx context.Context, status model.ReviewStatus) ([]model.NeedsReviewQueue, error) {
	return f.inserted, nil
}

func (f *fakeStore) ResolveReview(ctx context.Context, id string, status model.ReviewStatus, resolvedBy, resolution string) error {
	f.resolved[id] = status
	return nil
}

func TestFromWriteGateFailureClassifiesExtractionFailed(t *testing.T) {
	store := newFakeStore()
	q := New(store)

	reader := llmclient.ReaderOutput{Success: false, Error: "timeout"}
	validator := llmclient.ValidatorOutput{}
	gate := writegate.Result{Passed: false}

	entry, err := q.FromWriteGateFailure(context.Background(), "7606.12.30", "section_232_scope", "aluminum", reader, validator, gate)
	require.NoError(t, err)
	require.Equal(t, model.BlockExtractionFailed, entry.BlockReason)
	require.Equal(t, 3, entry.Priority)
}

func TestFromWriteGateFailureClassifiesNoCitation(t *testing.T) {
	store := newFakeStore()
	q := New(store)

	reader := llmclient.ReaderOutput{Success: true}
	validator := llmclient.ValidatorOutput{}
	gate := writegate.Result{Passed: false}

	entry, err := q.FromWriteGateFailure(context.Background(), "7606.12.30", "section_232_scope", "aluminum", reader, validator, gate)
	require.NoError(t, err)
	require.Equal(t, model.BlockNoCitation, entry.BlockReason)
}

func TestFromWriteGateFailureClassifiesValidatorRejected(t *testing.T) {
	store := newFakeStore()
	q := New(store)

	inScope := true
	reader := llmclient.ReaderOutput{
		Success: true,
		Answer:  &llmclient.ReaderAnswer{InScope: &inScope},
		Citations: []llmclient.Citation{{DocumentID: "d", ChunkID: "c", Quote: "q"}},
	}
	validator := llmclient.ValidatorOutput{Success: true, Verified: false}
	gate := writegate.Result{Passed: false}

	entry, err := q.FromWriteGateFailure(context.Background(), "7606.12.30", "section_232_scope", "aluminum", reader, validator, gate)
	require.NoError(t, err)
	require.Equal(t, model.BlockValidatorRejected, entry.BlockReason)
}

func TestFromWriteGateFailureClassifiesWriteGateFailed(t *testing.T) {
	store := newFakeStore()
	q := New(store)

	inScope := true
	reader := llmclient.ReaderOutput{
		Success: true,
		Answer:  &llmclient.ReaderAnswer{InScope: &inScope},
		Citations: []llmclient.Citation{{DocumentID: "d", ChunkID: "c", Quote: "q"}},
	}
	validator := llmclient.ValidatorOutput{Success: true, Verified: true}
	gate := writegate.Result{Passed: false, Errors: []string{"document not Tier A"}}

	entry, err := q.FromWriteGateFailure(context.Background(), "7606.12.30", "section_232_scope", "aluminum", reader, validator, gate)
	require.NoError(t, err)
	require.Equal(t, model.BlockWriteGateFailed, entry.BlockReason)
}

func TestResolveAndDismiss(t *testing.T) {
	store := newFakeStore()
	q := New(store)

	require.NoError(t, q.Resolve(context.Background(), "review-1", "alice", "confirmed in scope"))
	require.Equal(t, model.ReviewResolved, store.resolved["review-1"])

	require.NoError(t, q.Dismiss(context.Background(), "review-2", "bob", "duplicate"))
	require.Equal(t, model.ReviewDismissed, store.resolved["review-2"])
}
