package writegate

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"tariffstack/internal/llmclient"
	"tariffstack/internal/model"
)

type fakeDocuments struct {
	docs map[string]model.Document
}

func (f *fakeDocuments) DocumentByID(ctx context.Context, id string) (model.Document, bool, error) {
	d, ok := f.docs[id]
	return d, ok, nil
}

type fakeChunks struct {
	chunks map[string]model.DocumentChunk
}

func (f *fakeChunks) ChunkByID(ctx context.Context, id string) (model.DocumentChunk, bool, error) {
	c, ok := f.chunks[id]
	return c, ok, nil
}

func newTestGate() (*Gate, *fakeDocuments, *fakeChunks) {
	docs := &fakeDocuments{docs: map[string]model.Document{
		"doc-a": {ID: "doc-a", Tier: model.TierA, Source: model.SourceCSMS},
		"doc-b": {ID: "doc-b", Tier: model.TierB, Source: model.SourceUSITC},
	}}
	chunks := &fakeChunks{chunks: map[string]model.DocumentChunk{
		"chunk-1": {ID: "chunk-1", DocumentID: "doc-a", Text: "7606.12.30 is subject to the additional duty under 9903.85.67."},
		"chunk-2": {ID: "chunk-2", DocumentID: "doc-b", Text: "Chapter 76 covers aluminum and articles thereof."},
	}}
	return New(docs, chunks), docs, chunks
}

func TestWriteGatePassesFullyVerifiedCitation(t *testing.T) {
	g, _, _ := newTestGate()
	reader := llmclient.ReaderOutput{
		Citations: []llmclient.Citation{
			{DocumentID: "doc-a", ChunkID: "chunk-1", Quote: "7606.12.30 is subject to the additional duty"},
		},
	}
	validator := llmclient.ValidatorOutput{Success: true, Verified: true}

	result := g.Check(context.Background(), reader, validator, false)
	require.True(t, result.Passed)
	require.Empty(t, result.Errors)
	require.NotEmpty(t, result.Warnings) // single source is a warning, not an error
}

func TestWriteGateFailsOnNoCitations(t *testing.T) {
	g, _, _ := newTestGate()
	result := g.Check(context.Background(), llmclient.ReaderOutput{}, llmclient.ValidatorOutput{Verified: true, Success: true}, false)
	require.False(t, result.Passed)
	require.Contains(t, result.Errors, "No citations to verify")
}

func TestWriteGateFailsOnNonTierADocument(t *testing.T) {
	g, _, _ := newTestGate()
	reader := llmclient.ReaderOutput{
		Citations: []llmclient.Citation{
			{DocumentID: "doc-b", ChunkID: "chunk-2", Quote: "Chapter 76 covers aluminum"},
		},
	}
	validator := llmclient.ValidatorOutput{Success: true, Verified: true}

	result := g.Check(context.Background(), reader, validator, false)
	require.False(t, result.Passed)
	found := false
	for _, e := range result.Errors {
		if strings.Contains(e, "not Tier A") {
			found = true
		}
	}
	require.True(t, found)
}

func TestWriteGateFailsOnNonVerbatimQuote(t *testing.T) {
	g, _, _ := newTestGate()
	reader := llmclient.ReaderOutput{
		Citations: []llmclient.Citation{
			{DocumentID: "doc-a", ChunkID: "chunk-1", Quote: "this text is not in the chunk"},
		},
	}
	validator := llmclient.ValidatorOutput{Success: true, Verified: true}

	result := g.Check(context.Background(), reader, validator, false)
	require.False(t, result.Passed)
}

func TestWriteGateFailsWhenValidatorDidNotVerify(t *testing.T) {
	g, _, _ := newTestGate()
	reader := llmclient.ReaderOutput{
		Citations: []llmclient.Citation{
			{DocumentID: "doc-a", ChunkID: "chunk-1", Quote: "7606.12.30 is subject to the additional duty"},
		},
	}
	validator := llmclient.ValidatorOutput{Success: true, Verified: false, Failures: []llmclient.ValidationFailure{{Reason: "mismatch"}}}

	result := g.Check(context.Background(), reader, validator, false)
	require.False(t, result.Passed)
}

func TestWriteGateRequireMultipleSourcesEscalatesToError(t *testing.T) {
	g, _, _ := newTestGate()
	reader := llmclient.ReaderOutput{
		Citations: []llmclient.Citation{
			{DocumentID: "doc-a", ChunkID: "chunk-1", Quote: "7606.12.30 is subject to the additional duty"},
		},
	}
	validator := llmclient.ValidatorOutput{Success: true, Verified: true}

	result := g.Check(context.Background(), reader, validator, true)
	require.False(t, result.Passed)
	require.Empty(t, result.Warnings)
}

func TestComputeEvidenceHashDeterministic(t *testing.T) {
	h1 := ComputeEvidenceHash("quote", "doc-1", "chunk-1")
	h2 := ComputeEvidenceHash("quote", "doc-1", "chunk-1")
	require.Equal(t, h1, h2)
	require.Len(t, h1, 64)
}
