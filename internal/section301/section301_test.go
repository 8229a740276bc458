package section301

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tariffstack/internal/model"
)

type fakeStore struct {
	validHTS   bool
	measures   map[model.ProgramID][]model.TariffMeasure
	exclusions map[string]model.ExclusionClaim // bucket -> claim
}

func (f *fakeStore) IsHTSValid(ctx context.Context, hts string, entryDate time.Time) (bool, error) {
	return f.validHTS, nil
}

func (f *fakeStore) LookupMeasures(ctx context.Context, programID model.ProgramID, hts string, entryDate time.Time) ([]model.TariffMeasure, error) {
	return f.measures[programID], nil
}

func (f *fakeStore) MatchExclusion(ctx context.Context, noteBucket, hts string, entryDate time.Time) (model.ExclusionClaim, bool, error) {
	c, ok := f.exclusions[noteBucket]
	return c, ok, nil
}

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestEvaluateNotApplicableOutsideCountryGate(t *testing.T) {
	e := NewEvaluator(&fakeStore{validHTS: true}, DefaultCountryPolicy(), 0, nil)
	result, err := e.Evaluate(context.Background(), "85369040", "DE", time.Now())
	require.NoError(t, err)
	require.Equal(t, StatusNotApplicable, result.Status)
}

func TestEvaluateInvalidHTS(t *testing.T) {
	e := NewEvaluator(&fakeStore{validHTS: false}, DefaultCountryPolicy(), 0, nil)
	result, err := e.Evaluate(context.Background(), "85369040", "CN", time.Now())
	require.NoError(t, err)
	require.Equal(t, StatusInvalidHTS, result.Status)
}

func TestEvaluateNoMeasure(t *testing.T) {
	store := &fakeStore{validHTS: true, measures: map[model.ProgramID][]model.TariffMeasure{}}
	e := NewEvaluator(store, DefaultCountryPolicy(), 0, nil)
	result, err := e.Evaluate(context.Background(), "85369040", "CN", time.Now())
	require.NoError(t, err)
	require.Equal(t, StatusNoMeasure, result.Status)
}

func TestEvaluateAppliesWhenNoExclusion(t *testing.T) {
	store := &fakeStore{
		validHTS: true,
		measures: map[model.ProgramID][]model.TariffMeasure{
			model.ProgramSection301Note20: {{
				ID: "m1", ProgramID: model.ProgramSection301Note20, Ch99Heading: "9903.88.01",
				ScopeHTSType: model.ScopeHTS8, ScopeHTSValue: "85369040",
				RateStatus: model.RateConfirmed,
			}},
		},
	}
	e := NewEvaluator(store, DefaultCountryPolicy(), 0, nil)
	result, err := e.Evaluate(context.Background(), "85369040", "CN", time.Now())
	require.NoError(t, err)
	require.Equal(t, StatusApplies, result.Status)
	require.Equal(t, "9903.88.01", result.ImposeCh99)
	require.Equal(t, model.ProgramSection301Note20, result.ProgramID)
}

func TestEvaluateExcludedSubstitutesClaimCode(t *testing.T) {
	store := &fakeStore{
		validHTS: true,
		measures: map[model.ProgramID][]model.TariffMeasure{
			model.ProgramSection301Note20: {{
				ID: "m1", ProgramID: model.ProgramSection301Note20, Ch99Heading: "9903.88.01",
				ScopeHTSType: model.ScopeHTS10, ScopeHTSValue: "8536904000",
				RateStatus: model.RateConfirmed,
			}},
		},
		exclusions: map[string]model.ExclusionClaim{
			"301_NOTE20": {ExclusionID: "ex1", ClaimCh99Heading: "9903.88.69", VerificationNeeded: true},
		},
	}
	e := NewEvaluator(store, DefaultCountryPolicy(), 0, nil)
	result, err := e.Evaluate(context.Background(), "8536904000", "CN", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, StatusExcluded, result.Status)
	require.Equal(t, "9903.88.69", result.ClaimCh99)
	require.True(t, result.VerificationRequired)
}

func TestEvaluateFutureDateRejected(t *testing.T) {
	store := &fakeStore{
		validHTS: true,
		measures: map[model.ProgramID][]model.TariffMeasure{
			model.ProgramSection301Note20: {{ProgramID: model.ProgramSection301Note20, Ch99Heading: "9903.88.01", ScopeHTSType: model.ScopeHTS8, ScopeHTSValue: "85369040"}},
		},
	}
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	e := NewEvaluator(store, DefaultCountryPolicy(), 24*time.Hour, fixedNow(now))
	result, err := e.Evaluate(context.Background(), "85369040", "CN", now.Add(72*time.Hour))
	require.NoError(t, err)
	require.Equal(t, StatusFutureDateRejected, result.Status)
}

func TestBestMeasurePrefersHTS10ThenLatestStart(t *testing.T) {
	older := model.TariffMeasure{ScopeHTSType: model.ScopeHTS8, EffectiveStart: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	newer8 := model.TariffMeasure{ScopeHTSType: model.ScopeHTS8, EffectiveStart: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	hts10 := model.TariffMeasure{ScopeHTSType: model.ScopeHTS10, EffectiveStart: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)}

	best := bestMeasure([]model.TariffMeasure{older, newer8, hts10})
	require.Equal(t, model.ScopeHTS10, best.ScopeHTSType)
}
