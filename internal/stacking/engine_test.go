package stacking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tariffstack/internal/model"
	"tariffstack/internal/section301"
)

// fakeMatcher returns a fixed candidate set regardless of input,
// standing in for internal/rules.Matcher in these scenario tests.
type fakeMatcher struct {
	programs []model.ProgramID
}

func (f *fakeMatcher) ApplicablePrograms(ctx context.Context, hts8, isoAlpha2 string) ([]model.ProgramID, error) {
	return f.programs, nil
}

type fakeMeasures struct {
	byProgram map[model.ProgramID]model.TariffMeasure
}

func (f *fakeMeasures) LookupMeasures(ctx context.Context, programID model.ProgramID, hts string, entryDate time.Time) ([]model.TariffMeasure, error) {
	if m, ok := f.byProgram[programID]; ok {
		return []model.TariffMeasure{m}, nil
	}
	return nil, nil
}

type fakeSection301 struct {
	result section301.Result
}

func (f *fakeSection301) Evaluate(ctx context.Context, hts, isoAlpha2 string, entryDate time.Time) (section301.Result, error) {
	return f.result, nil
}

func cnEngine() *Engine {
	matcher := &fakeMatcher{programs: []model.ProgramID{
		model.ProgramSection232Copper,
		model.ProgramSection232Steel,
		model.ProgramSection232Aluminum,
		model.ProgramSection301Note20,
	}}
	measures := &fakeMeasures{byProgram: map[model.ProgramID]model.TariffMeasure{
		model.ProgramSection232Copper:   {ID: "copper-m", ProgramID: model.ProgramSection232Copper, Ch99Heading: "9903.78.01", AdditionalRate: 0.50},
		model.ProgramSection232Steel:    {ID: "steel-m", ProgramID: model.ProgramSection232Steel, Ch99Heading: "9903.81.01", AdditionalRate: 0.50},
		model.ProgramSection232Aluminum: {ID: "aluminum-m", ProgramID: model.ProgramSection232Aluminum, Ch99Heading: "9903.85.01", AdditionalRate: 0.25},
	}}
	section301Measure := model.TariffMeasure{ID: "s301-m", ProgramID: model.ProgramSection301Note20, Ch99Heading: "9903.88.01", AdditionalRate: 0.25}
	s301 := &fakeSection301{result: section301.Result{
		Status: section301.StatusApplies, ProgramID: model.ProgramSection301Note20,
		Measure: &section301Measure, ImposeCh99: "9903.88.01",
	}}
	return NewEngine(matcher, measures, s301)
}

func deEngine() *Engine {
	matcher := &fakeMatcher{programs: []model.ProgramID{
		model.ProgramSection232Copper,
		model.ProgramSection232Steel,
		model.ProgramSection232Aluminum,
	}}
	measures := &fakeMeasures{byProgram: map[model.ProgramID]model.TariffMeasure{
		model.ProgramSection232Copper:   {ID: "copper-m", ProgramID: model.ProgramSection232Copper, Ch99Heading: "9903.78.01", AdditionalRate: 0.50},
		model.ProgramSection232Steel:    {ID: "steel-m", ProgramID: model.ProgramSection232Steel, Ch99Heading: "9903.81.01", AdditionalRate: 0.50},
		model.ProgramSection232Aluminum: {ID: "aluminum-m", ProgramID: model.ProgramSection232Aluminum, Ch99Heading: "9903.85.01", AdditionalRate: 0.25},
	}}
	return NewEngine(matcher, measures, &fakeSection301{result: section301.Result{Status: section301.StatusNotApplicable}})
}

// Scenario 1 (spec.md §8): USB-C cable, China, $10,000 declared value,
// materials {copper:$500, steel:$2000, aluminum:$7200}. Expected total
// duty $6,580 across 301 (25%), IEEPA Fentanyl (10% of full value),
// three Section-232 metal claims, and IEEPA Reciprocal (10% of the
// $300 non_metal remainder).
func TestCalculateScenario1ChinaUSBCCable(t *testing.T) {
	e := cnEngine()
	req := model.CalculationRequest{
		HTSCode: "85444200", Country: "CN", EntryDate: "2026-01-01",
		ProductValueCents: 1_000_000,
		Materials:         map[string]int64{"copper": 50_000, "steel": 200_000, "aluminum": 720_000},
	}
	result, err := e.Calculate(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, result.Entries, 4)
	require.Equal(t, int64(658_000), result.TotalDuty.TotalDutyAmountCents)
	require.InDelta(t, 0.658, result.TotalDuty.EffectiveRate, 1e-9)

	nonMetal := sliceByType(result.Entries, model.SliceNonMetal)
	require.Equal(t, int64(30_000), nonMetal.LineValueCents)
	require.Equal(t, int64(30_000), result.TotalDuty.Unstacking.RemainingValueCents)
}

// Scenario 2 (spec.md §8): same product, Germany — no Section 301, no
// IEEPA. Only the three Section-232 claims apply, totaling $3,050.
func TestCalculateScenario2GermanyNoTradeRemedy(t *testing.T) {
	e := deEngine()
	req := model.CalculationRequest{
		HTSCode: "85444200", Country: "DE", EntryDate: "2026-01-01",
		ProductValueCents: 1_000_000,
		Materials:         map[string]int64{"copper": 50_000, "steel": 200_000, "aluminum": 720_000},
	}
	result, err := e.Calculate(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, result.Entries, 4)
	require.Equal(t, int64(305_000), result.TotalDuty.TotalDutyAmountCents)

	for _, entry := range result.Entries {
		for _, line := range entry.Stack {
			require.NotEqual(t, model.ProgramSection301Note20, line.ProgramID)
			require.NotEqual(t, model.ProgramIEEPAFentanyl, line.ProgramID)
			require.NotEqual(t, model.ProgramIEEPAReciprocal, line.ProgramID)
		}
	}
}

// Scenario 3 (spec.md §8): China, different material split
// {copper:$3000, steel:$1000, aluminum:$1000} on the same $10,000
// product. Expected total $6,250.
func TestCalculateScenario3ChinaDifferentSplit(t *testing.T) {
	e := cnEngine()
	req := model.CalculationRequest{
		HTSCode: "85444200", Country: "CN", EntryDate: "2026-01-01",
		ProductValueCents: 1_000_000,
		Materials:         map[string]int64{"copper": 300_000, "steel": 100_000, "aluminum": 100_000},
	}
	result, err := e.Calculate(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, int64(625_000), result.TotalDuty.TotalDutyAmountCents)

	nonMetal := sliceByType(result.Entries, model.SliceNonMetal)
	require.Equal(t, int64(500_000), nonMetal.LineValueCents)
}

// Scenario 4 (spec.md §8): exclusion claim substitutes the Chapter 99
// claim code and forces verification_required.
func TestCalculateExclusionScenarioSubstitutesClaimCode(t *testing.T) {
	matcher := &fakeMatcher{programs: []model.ProgramID{model.ProgramSection301Note20}}
	measures := &fakeMeasures{byProgram: map[model.ProgramID]model.TariffMeasure{}}
	section301Measure := model.TariffMeasure{ID: "s301-m", ProgramID: model.ProgramSection301Note20, Ch99Heading: "9903.88.01", AdditionalRate: 0.25}
	exclusion := model.ExclusionClaim{ExclusionID: "ex-1", ClaimCh99Heading: "9903.88.69", VerificationNeeded: true}
	s301 := &fakeSection301{result: section301.Result{
		Status: section301.StatusExcluded, ProgramID: model.ProgramSection301Note20,
		Measure: &section301Measure, Exclusion: &exclusion,
		ImposeCh99: "9903.88.01", ClaimCh99: "9903.88.69", VerificationRequired: true,
	}}
	e := NewEngine(matcher, measures, s301)

	req := model.CalculationRequest{
		HTSCode: "8536904000", Country: "CN", EntryDate: "2026-01-01",
		ProductValueCents: 500_000,
	}
	result, err := e.Calculate(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, result.Entries, 1)

	var found bool
	for _, line := range result.Entries[0].Stack {
		if line.ProgramID == model.ProgramSection301Note20 {
			found = true
			require.Equal(t, model.ActionClaim, line.Action)
			require.Equal(t, "9903.88.69", line.Chapter99Code)
		}
	}
	require.True(t, found)

	var citesExclusion bool
	for _, d := range result.DecisionLog {
		if d.Source == model.DecisionSourceExclusionClaim && d.ID == "ex-1" {
			citesExclusion = true
		}
	}
	require.True(t, citesExclusion)
}

func TestCalculateRejectsOverAllocatedMaterials(t *testing.T) {
	e := deEngine()
	req := model.CalculationRequest{
		HTSCode: "85444200", Country: "DE", EntryDate: "2026-01-01",
		ProductValueCents: 1_000,
		Materials:         map[string]int64{"copper": 2_000},
	}
	_, err := e.Calculate(context.Background(), req)
	require.Error(t, err)
	var allocErr *model.InvalidMaterialAllocation
	require.ErrorAs(t, err, &allocErr)
}

func TestCalculateRejectsBadEntryDate(t *testing.T) {
	e := deEngine()
	req := model.CalculationRequest{HTSCode: "85444200", Country: "DE", EntryDate: "not-a-date", ProductValueCents: 1_000}
	_, err := e.Calculate(context.Background(), req)
	require.Error(t, err)
}
