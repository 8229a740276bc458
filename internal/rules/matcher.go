// Package rules wraps internal/mangle's Google Mangle engine with a
// domain-typed schema for tariff program applicability matching,
// grounded on spec.md §4.9 Step 1 ("Determine applicable programs")
// and §4.10 Step 3 (Section 301 inclusion match). It keeps this
// declarative, combinatorial join — program × country-scope ×
// HTS-scope — separate from the cent-exact money arithmetic in
// internal/stacking, the way original_source keeps a rules table apart
// from its duty calculator.
package rules

import (
	"context"
	"sort"

	"tariffstack/internal/logging"
	"tariffstack/internal/mangle"
	"tariffstack/internal/model"
)

// Matcher evaluates program applicability over a Mangle engine loaded
// with the current set of TariffMeasure scopes and Program country
// scopes. It is not safe for concurrent writers; callers serialize
// LoadMeasureScopes/LoadPrograms against ApplicablePrograms the way
// internal/store serializes writers against its single connection.
type Matcher struct {
	engine *mangle.Engine
}

// NewMatcher builds a Matcher with the program-applicability schema
// loaded and no facts yet.
func NewMatcher() (*Matcher, error) {
	cfg := mangle.DefaultConfig()
	engine, err := mangle.NewEngine(cfg)
	if err != nil {
		return nil, err
	}
	if err := engine.LoadSchemaString(programApplicabilitySchema); err != nil {
		return nil, err
	}
	return &Matcher{engine: engine}, nil
}

// Close releases the underlying engine.
func (m *Matcher) Close() error {
	return m.engine.Close()
}

// LoadPrograms adds program_all_countries/program_country facts for
// the given static Program metadata; facts already loaded are kept.
func (m *Matcher) LoadPrograms(programs []model.Program) error {
	facts := make([]mangle.Fact, 0, len(programs))
	for _, p := range programs {
		if p.CountryScope.AllCountries {
			facts = append(facts, mangle.Fact{Predicate: "program_all_countries", Args: []interface{}{string(p.ID)}})
			continue
		}
		for iso := range p.CountryScope.Countries {
			facts = append(facts, mangle.Fact{Predicate: "program_country", Args: []interface{}{string(p.ID), iso}})
		}
	}
	return m.engine.AddFacts(facts)
}

// LoadMeasureScopes adds one measure_scope fact per TariffMeasure,
// projected to its HTS8 prefix; facts already loaded are kept. Measures with a shorter
// scope than 8 digits are skipped (program applicability never
// operates above tariff-item precision).
func (m *Matcher) LoadMeasureScopes(measures []model.TariffMeasure) error {
	facts := make([]mangle.Fact, 0, len(measures))
	for _, meas := range measures {
		hts8 := measureHTS8(meas)
		if hts8 == "" {
			continue
		}
		facts = append(facts, mangle.Fact{
			Predicate: "measure_scope",
			Args:      []interface{}{meas.ID, string(meas.ProgramID), hts8, string(meas.Role)},
		})
	}
	return m.engine.AddFacts(facts)
}

func measureHTS8(meas model.TariffMeasure) string {
	v := meas.ScopeHTSValue
	if len(v) < 8 {
		return ""
	}
	return v[:8]
}

// ApplicablePrograms returns the ProgramIDs whose measure scope covers
// hts8 and whose country scope admits isoAlpha2, sorted for
// determinism. Callers still must apply TariffMeasure.CoversDate and
// Program.FilingSequence ordering themselves — this only answers the
// scope join, not the temporal or sequencing parts of Step 1.
func (m *Matcher) ApplicablePrograms(ctx context.Context, hts8, isoAlpha2 string) ([]model.ProgramID, error) {
	facts, err := m.engine.GetFacts("applicable_program")
	if err != nil {
		return nil, err
	}

	seen := make(map[model.ProgramID]bool)
	for _, f := range facts {
		if len(f.Args) != 3 {
			continue
		}
		program, ok1 := f.Args[0].(string)
		hts, ok2 := f.Args[1].(string)
		country, ok3 := f.Args[2].(string)
		if !ok1 || !ok2 || !ok3 {
			continue
		}
		if hts == hts8 && country == isoAlpha2 {
			seen[model.ProgramID(program)] = true
		}
	}

	programs := make([]model.ProgramID, 0, len(seen))
	for p := range seen {
		programs = append(programs, p)
	}
	sort.Slice(programs, func(i, j int) bool { return programs[i] < programs[j] })

	logging.RulesDebug("applicable_program hts8=%s country=%s matches=%d", hts8, isoAlpha2, len(programs))
	return programs, nil
}

// Reset clears all loaded facts, keeping the schema, so a caller can
// reload a fresh measure/program set (e.g. after a store write) without
// rebuilding the engine.
func (m *Matcher) Reset() {
	m.engine.Clear()
}
