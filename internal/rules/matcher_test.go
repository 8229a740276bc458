package rules

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"tariffstack/internal/model"
)

func testPrograms() []model.Program {
	return []model.Program{
		{ID: model.ProgramSection232Aluminum, FilingSequence: 1, CountryScope: model.AllCountriesScope()},
		{ID: model.ProgramSection301Note20, FilingSequence: 2, CountryScope: model.CountrySetScope("CN")},
		{ID: model.ProgramIEEPAReciprocal, FilingSequence: 3, CountryScope: model.AllCountriesScope()},
	}
}

func testMeasures() []model.TariffMeasure {
	return []model.TariffMeasure{
		{ID: "m1", ProgramID: model.ProgramSection232Aluminum, ScopeHTSValue: "7606123000", Role: model.RoleImpose},
		{ID: "m2", ProgramID: model.ProgramSection301Note20, ScopeHTSValue: "7606123000", Role: model.RoleImpose},
		{ID: "m3", ProgramID: model.ProgramIEEPAReciprocal, ScopeHTSValue: "8536904000", Role: model.RoleImpose},
		{ID: "m4", ProgramID: model.ProgramSection232Aluminum, ScopeHTSValue: "76", Role: model.RoleImpose}, // too short, skipped
	}
}

func newTestMatcher(t *testing.T) *Matcher {
	t.Helper()
	m, err := NewMatcher()
	require.NoError(t, err)
	require.NoError(t, m.LoadPrograms(testPrograms()))
	require.NoError(t, m.LoadMeasureScopes(testMeasures()))
	return m
}

func TestApplicableProgramsMatchesHTS8AndCountry(t *testing.T) {
	m := newTestMatcher(t)
	defer m.Close()

	programs, err := m.ApplicablePrograms(context.Background(), "76061230", "CN")
	require.NoError(t, err)
	require.Contains(t, programs, model.ProgramSection232Aluminum)
	require.Contains(t, programs, model.ProgramSection301Note20)
}

func TestApplicableProgramsSection301RestrictedToCN(t *testing.T) {
	m := newTestMatcher(t)
	defer m.Close()

	programs, err := m.ApplicablePrograms(context.Background(), "76061230", "DE")
	require.NoError(t, err)
	require.Contains(t, programs, model.ProgramSection232Aluminum) // all-countries
	require.NotContains(t, programs, model.ProgramSection301Note20) // CN-only
}

func TestApplicableProgramsNoMatchForUnscopedHTS(t *testing.T) {
	m := newTestMatcher(t)
	defer m.Close()

	programs, err := m.ApplicablePrograms(context.Background(), "99999999", "CN")
	require.NoError(t, err)
	require.Empty(t, programs)
}

func TestApplicableProgramsSkipsShortScope(t *testing.T) {
	m := newTestMatcher(t)
	defer m.Close()

	// m4's scope "76" is under 8 digits and must never surface as a match.
	programs, err := m.ApplicablePrograms(context.Background(), "76", "CN")
	require.NoError(t, err)
	require.Empty(t, programs)
}

func TestResetClearsFacts(t *testing.T) {
	m := newTestMatcher(t)
	defer m.Close()

	m.Reset()
	require.NoError(t, m.LoadPrograms(testPrograms()))
	// measure scopes not reloaded after Reset: no facts left.
	programs, err := m.ApplicablePrograms(context.Background(), "76061230", "CN")
	require.NoError(t, err)
	require.Empty(t, programs)
}
