package stacking

import "tariffstack/internal/model"

// DefaultPrograms is the static Program registry for all seven tariff
// programs (§3 Program, §4.9 Step 1/4). FilingSequence governs per-slice
// stack composition order: the Section-232 material programs run first
// (they define the slices), then Section 301, then the two IEEPA
// programs last (they key off the remaining non_metal value).
func DefaultPrograms() []model.Program {
	return []model.Program{
		{ID: model.ProgramSection232Copper, FilingSequence: 10, DisclaimBehavior: model.DisclaimRequired, CountryScope: model.AllCountriesScope(), Metal: "copper"},
		{ID: model.ProgramSection232Steel, FilingSequence: 20, DisclaimBehavior: model.DisclaimOmit, CountryScope: model.AllCountriesScope(), Metal: "steel"},
		{ID: model.ProgramSection232Aluminum, FilingSequence: 30, DisclaimBehavior: model.DisclaimOmit, CountryScope: model.AllCountriesScope(), Metal: "aluminum"},
		{ID: model.ProgramSection301Note20, FilingSequence: 40, DisclaimBehavior: model.DisclaimNone, CountryScope: model.CountrySetScope("CN")},
		{ID: model.ProgramSection301Note31, FilingSequence: 50, DisclaimBehavior: model.DisclaimNone, CountryScope: model.CountrySetScope("CN")},
		{ID: model.ProgramIEEPAFentanyl, FilingSequence: 60, DisclaimBehavior: model.DisclaimNone, CountryScope: model.CountrySetScope("CN")},
		{ID: model.ProgramIEEPAReciprocal, FilingSequence: 70, DisclaimBehavior: model.DisclaimNone, CountryScope: model.AllCountriesScope()},
	}
}

// IEEPAConfig is the engine-injected policy table for the two IEEPA
// programs. spec.md §4.9 Step 4 keys their applicability and rate off
// country of origin (and, for Reciprocal, an Annex-II HTS carve-out)
// rather than an HTS-scoped TariffMeasure row the way Section 232/301
// do — no store table models that shape, so it lives here as a plain
// injectable table, the same pattern section301.CountryPolicy uses for
// its own country gate.
type IEEPAConfig struct {
	FentanylCountries map[string]bool // ISO alpha-2 -> in scope
	FentanylRate      float64
	FentanylCh99      string

	ReciprocalRates   map[string]float64 // ISO alpha-2 -> ad valorem rate, absent = not in scope
	ReciprocalCh99    string             // "paid" heading, booked on the non_metal slice
	MetalExemptCh99   string             // "exempt" heading booked on metal slices
	AnnexIIExemptHTS8 map[string]bool    // HTS8 codes fully exempted regardless of country
	AnnexIIExemptCh99 string
}

// DefaultIEEPAConfig reflects the two IEEPA orders in force for the
// scenarios spec.md §8 describes: China subject to both Fentanyl (10%)
// and Reciprocal (10%); no other country yet enumerated.
func DefaultIEEPAConfig() IEEPAConfig {
	return IEEPAConfig{
		FentanylCountries: map[string]bool{"CN": true},
		FentanylRate:      0.10,
		FentanylCh99:      "9903.01.20",

		ReciprocalRates:   map[string]float64{"CN": 0.10},
		ReciprocalCh99:    "9903.01.63",
		MetalExemptCh99:   "9903.01.64",
		AnnexIIExemptHTS8: map[string]bool{},
		AnnexIIExemptCh99: "9903.01.65",
	}
}

func metalProgramID(material string) model.ProgramID {
	switch material {
	case "copper":
		return model.ProgramSection232Copper
	case "steel":
		return model.ProgramSection232Steel
	case "aluminum":
		return model.ProgramSection232Aluminum
	default:
		return ""
	}
}
