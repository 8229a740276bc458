package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tariffstack/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestSupersedeMeasureClosesPriorAndInsertsNew(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	first := model.TariffMeasure{
		ProgramID:      model.ProgramSection232Steel,
		Ch99Heading:    "9903.81.87",
		ScopeHTSType:   model.ScopeHTS8,
		ScopeHTSValue:  "73041100",
		EffectiveStart: day("2025-01-01"),
		AdditionalRate: 0.25,
		RateStatus:     model.RateConfirmed,
		Role:           model.RoleImpose,
		ArticleType:    model.ArticlePrimary,
	}
	inserted, err := s.InsertMeasure(ctx, first)
	require.NoError(t, err)

	second := model.TariffMeasure{
		ProgramID:      model.ProgramSection232Steel,
		Ch99Heading:    "9903.81.87",
		ScopeHTSType:   model.ScopeHTS8,
		ScopeHTSValue:  "73041100",
		EffectiveStart: day("2025-06-01"),
		AdditionalRate: 0.50,
		RateStatus:     model.RateConfirmed,
		Role:           model.RoleImpose,
		ArticleType:    model.ArticlePrimary,
	}
	superseded, err := s.SupersedeMeasure(ctx, second)
	require.NoError(t, err)
	require.Equal(t, inserted.ID, superseded.SupersedesID)

	// Before the supersession date, old rate applies.
	rows, err := s.LookupMeasures(ctx, model.ProgramSection232Steel, "7304.11.0000", day("2025-03-01"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, 0.25, rows[0].AdditionalRate)

	// After, new rate applies and exactly one current row exists.
	rows, err = s.LookupMeasures(ctx, model.ProgramSection232Steel, "7304.11.0000", day("2025-07-01"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, 0.50, rows[0].AdditionalRate)
	require.True(t, rows[0].IsCurrent())
}

func TestLookupMeasuresHTS10PrecedesHTS8(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.InsertMeasure(ctx, model.TariffMeasure{
		ProgramID:      model.ProgramSection301Note20,
		Ch99Heading:    "9903.88.03",
		ScopeHTSType:   model.ScopeHTS8,
		ScopeHTSValue:  "85369040",
		EffectiveStart: day("2024-01-01"),
		AdditionalRate: 0.25,
		RateStatus:     model.RateConfirmed,
		Role:           model.RoleImpose,
		ArticleType:    model.ArticlePrimary,
	})
	require.NoError(t, err)

	_, err = s.InsertMeasure(ctx, model.TariffMeasure{
		ProgramID:      model.ProgramSection301Note20,
		Ch99Heading:    "9903.88.04",
		ScopeHTSType:   model.ScopeHTS10,
		ScopeHTSValue:  "8536904000",
		EffectiveStart: day("2024-01-01"),
		AdditionalRate: 0.30,
		RateStatus:     model.RateConfirmed,
		Role:           model.RoleImpose,
		ArticleType:    model.ArticlePrimary,
	})
	require.NoError(t, err)

	rows, err := s.LookupMeasures(ctx, model.ProgramSection301Note20, "8536.90.4000", day("2024-06-01"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "9903.88.04", rows[0].Ch99Heading) // HTS10 match wins, not the HTS8 row
}

func TestSupersedeMeasureRejectsMultipleOpenRows(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	// Insert two open rows directly (bypassing SupersedeMeasure) to simulate
	// a pre-existing data integrity violation.
	for i := 0; i < 2; i++ {
		_, err := s.InsertMeasure(ctx, model.TariffMeasure{
			ProgramID:      model.ProgramIEEPAFentanyl,
			Ch99Heading:    "9903.01.24",
			ScopeHTSType:   model.ScopeHTS8,
			ScopeHTSValue:  "99999999",
			EffectiveStart: day("2025-01-01"),
			AdditionalRate: 0.10,
			RateStatus:     model.RateConfirmed,
			Role:           model.RoleImpose,
			ArticleType:    model.ArticlePrimary,
		})
		require.NoError(t, err)
	}

	_, err := s.SupersedeMeasure(ctx, model.TariffMeasure{
		ProgramID:      model.ProgramIEEPAFentanyl,
		Ch99Heading:    "9903.01.25",
		ScopeHTSType:   model.ScopeHTS8,
		ScopeHTSValue:  "99999999",
		EffectiveStart: day("2025-06-01"),
		AdditionalRate: 0.20,
		RateStatus:     model.RateConfirmed,
		Role:           model.RoleImpose,
		ArticleType:    model.ArticlePrimary,
	})
	require.Error(t, err)
	var dataErr *model.DataIntegrityError
	require.ErrorAs(t, err, &dataErr)
}

func TestInsertAssertionClosesPriorVersion(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	doc, err := s.InsertDocument(ctx, model.Document{
		Source:        model.SourceCSMS,
		Tier:          model.TierA,
		ConnectorName: "csms",
		CanonicalID:   "CSMS#65794272",
		URL:           "https://content.govdelivery.com/example",
		SHA256Raw:     "abc123",
		StorageURI:    "local://csms/CSMS%2365794272/abc123.html",
		ExtractedText: "Section 301 exclusion Note 20(vvv)(i) applies to HTS 8536.90.4000.",
	})
	require.NoError(t, err)

	chunks := []model.DocumentChunk{{
		DocumentID: doc.ID,
		ChunkIndex: 0,
		CharStart:  0,
		CharEnd:    len(doc.ExtractedText),
		Text:       doc.ExtractedText,
		TextHash:   "chunkhash",
	}}
	require.NoError(t, s.InsertChunks(ctx, chunks))

	stored, err := s.ChunksForDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)

	rate := 0.25
	first := model.VerifiedAssertion{
		ProgramID:         model.ProgramSection301Note20,
		HTSCodeNorm:       "8536904000",
		HTSDigits:         model.HTSStatistical,
		AssertionType:     model.AssertionInScope,
		DutyRate:          &rate,
		EffectiveStart:    day("2024-01-01"),
		DocumentID:        doc.ID,
		ChunkID:           stored[0].ID,
		EvidenceQuote:     "Note 20(vvv)(i) applies to HTS 8536.90.4000",
		EvidenceQuoteHash: "evidencehash",
		VerifiedBy:        "reader+validator",
	}
	_, err = s.InsertAssertion(ctx, first)
	require.NoError(t, err)

	second := first
	second.ID = ""
	second.EffectiveStart = day("2025-01-01")
	_, err = s.InsertAssertion(ctx, second)
	require.NoError(t, err)

	current, ok, err := s.CurrentAssertion(ctx, model.ProgramSection301Note20, "8536904000", "", model.AssertionInScope, day("2025-02-01"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, day("2025-01-01"), current.EffectiveStart)

	// The original row is now closed as of the second row's start date.
	old, ok, err := s.CurrentAssertion(ctx, model.ProgramSection301Note20, "8536904000", "", model.AssertionInScope, day("2024-06-01"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, day("2024-01-01"), old.EffectiveStart)
}

func TestDocumentCanonicalIDUniqueness(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	d := model.Document{
		Source:        model.SourceCSMS,
		Tier:          model.TierA,
		ConnectorName: "csms",
		CanonicalID:   "CSMS#65794272",
		URL:           "https://content.govdelivery.com/example",
		SHA256Raw:     "abc123",
		StorageURI:    "local://csms/CSMS%2365794272/abc123.html",
		ExtractedText: "text",
	}
	_, err := s.InsertDocument(ctx, d)
	require.NoError(t, err)

	_, found, err := s.DocumentByCanonicalID(ctx, model.SourceCSMS, "CSMS#65794272")
	require.NoError(t, err)
	require.True(t, found)

	_, err = s.InsertDocument(ctx, d)
	require.Error(t, err) // UNIQUE(source, canonical_id) violated
}
