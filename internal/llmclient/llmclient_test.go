package llmclient

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	response string
	err      error
}

func (f *fakeGenerator) Generate(ctx context.Context, systemPrompt, userPrompt string, temperature float32) (string, error) {
	return f.response, f.err
}

func TestReaderReadNoChunks(t *testing.T) {
	r := NewReader(&fakeGenerator{})
	out := r.Read(context.Background(), "7606.12.30", "section_232_aluminum", "", nil)
	require.False(t, out.Success)
	require.Equal(t, "no chunks provided", out.Error)
}

func TestReaderReadParsesPermissiveJSON(t *testing.T) {
	fake := &fakeGenerator{response: `Sure, here is the answer:
{
    "answer": {
        "in_scope": true,
        "program": "section_232_aluminum",
        "hts_code": "7606.12.30",
        "claim_codes": ["9903.85.67"],
        "disclaim_codes": [],
        "confidence": "high"
    },
    "citations": [
        {"document_id": "doc-1", "chunk_id": "chunk-1", "quote": "7606.12.30 is covered", "why_this_supports": "direct listing"}
    ],
    "missing_info": [],
    "contradictions": []
}
Let me know if you need anything else.`}

	r := NewReader(fake)
	chunks := []ChunkRef{{DocumentID: "doc-1", ChunkID: "chunk-1", Text: "7606.12.30 is covered under the proclamation."}}
	out := r.Read(context.Background(), "7606.12.30", "section_232_aluminum", "aluminum", chunks)

	require.True(t, out.Success)
	require.NotNil(t, out.Answer)
	require.NotNil(t, out.Answer.InScope)
	require.True(t, *out.Answer.InScope)
	require.Len(t, out.Citations, 1)
	require.Equal(t, "7606.12.30 is covered", out.Citations[0].Quote)
}

func TestReaderReadHandlesGenerateError(t *testing.T) {
	fake := &fakeGenerator{err: context.DeadlineExceeded}
	r := NewReader(fake)
	out := r.Read(context.Background(), "7606.12.30", "section_232_aluminum", "", []ChunkRef{{ChunkID: "c1", Text: "x"}})
	require.False(t, out.Success)
	require.NotEmpty(t, out.Error)
}

func TestQuickValidatePassesWhenQuoteVerbatim(t *testing.T) {
	inScope := true
	reader := ReaderOutput{
		Success: true,
		Answer:  &ReaderAnswer{InScope: &inScope},
		Citations: []Citation{
			{DocumentID: "doc-1", ChunkID: "chunk-1", Quote: "7606.12.30 is covered"},
		},
	}
	chunks := []ChunkRef{{ChunkID: "chunk-1", Text: "The proclamation states 7606.12.30 is covered under Annex I."}}

	v := NewValidator(nil)
	out := v.QuickValidate(reader, chunks)
	require.True(t, out.Verified)
	require.Empty(t, out.Failures)
}

func TestQuickValidateFailsOnNonVerbatimQuote(t *testing.T) {
	inScope := true
	reader := ReaderOutput{
		Answer: &ReaderAnswer{InScope: &inScope},
		Citations: []Citation{
			{DocumentID: "doc-1", ChunkID: "chunk-1", Quote: "this text does not appear"},
		},
	}
	chunks := []ChunkRef{{ChunkID: "chunk-1", Text: "Something entirely different."}}

	v := NewValidator(nil)
	out := v.QuickValidate(reader, chunks)
	require.False(t, out.Verified)
	require.Len(t, out.Failures, 1)
	require.Equal(t, "quote not found verbatim in chunk", out.Failures[0].Reason)
}

func TestQuickValidateFailsWhenInScopeTrueWithNoCitations(t *testing.T) {
	inScope := true
	reader := ReaderOutput{Answer: &ReaderAnswer{InScope: &inScope}}
	v := NewValidator(nil)
	out := v.QuickValidate(reader, nil)
	require.False(t, out.Verified)
	require.Len(t, out.Failures, 1)
	require.Equal(t, "in_scope=true but no citations provided", out.Failures[0].Reason)
}

func TestQuickValidatePassesWhenInScopeNull(t *testing.T) {
	reader := ReaderOutput{Answer: &ReaderAnswer{InScope: nil}}
	v := NewValidator(nil)
	out := v.QuickValidate(reader, nil)
	require.True(t, out.Verified)
}
