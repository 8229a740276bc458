package mangle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// applicabilitySchema is a trimmed copy of internal/rules' program
// applicability schema, enough to exercise scope-join evaluation
// without importing internal/rules (which itself depends on this
// package).
const applicabilitySchema = `
Decl measure_scope(MeasureID, Program, Hts8, Role) bound [/string, /string, /string, /string].
Decl program_all_countries(Program) bound [/string].
Decl program_country(Program, Country) bound [/string, /string].

Decl country_in_scope(Program, Country) descr [mode("+", "+")].
country_in_scope(Program, Country) :- program_all_countries(Program).
country_in_scope(Program, Country) :- program_country(Program, Country).

Decl applicable_program(Program, Hts8, Country) descr [mode("-", "+", "+")].
applicable_program(Program, Hts8, Country) :-
	measure_scope(MeasureID, Program, Hts8, "impose"),
	country_in_scope(Program, Country).
`

func newSchemaEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, e.LoadSchemaString(applicabilitySchema))
	return e
}

func TestAddFactsAndGetFactsRoundTrip(t *testing.T) {
	e := newSchemaEngine(t)
	defer e.Close()

	require.NoError(t, e.AddFacts([]Fact{
		{Predicate: "measure_scope", Args: []interface{}{"m1", "section_232_aluminum", "76061230", "impose"}},
		{Predicate: "program_all_countries", Args: []interface{}{"section_232_aluminum"}},
	}))

	facts, err := e.GetFacts("measure_scope")
	require.NoError(t, err)
	require.Len(t, facts, 1)
	require.Equal(t, "m1", facts[0].Args[0])
}

func TestApplicableProgramDerivedForAllCountriesScope(t *testing.T) {
	e := newSchemaEngine(t)
	defer e.Close()

	require.NoError(t, e.AddFacts([]Fact{
		{Predicate: "measure_scope", Args: []interface{}{"m1", "section_232_aluminum", "76061230", "impose"}},
		{Predicate: "program_all_countries", Args: []interface{}{"section_232_aluminum"}},
	}))

	facts, err := e.GetFacts("applicable_program")
	require.NoError(t, err)
	require.Len(t, facts, 1)
	require.Equal(t, "section_232_aluminum", facts[0].Args[0])
	require.Equal(t, "76061230", facts[0].Args[1])
}

func TestApplicableProgramRespectsCountrySet(t *testing.T) {
	e := newSchemaEngine(t)
	defer e.Close()

	require.NoError(t, e.AddFacts([]Fact{
		{Predicate: "measure_scope", Args: []interface{}{"m2", "section_301_note_20", "85444200", "impose"}},
		{Predicate: "program_country", Args: []interface{}{"section_301_note_20", "CN"}},
	}))

	facts, err := e.GetFacts("applicable_program")
	require.NoError(t, err)
	require.Len(t, facts, 1)
	require.Equal(t, "CN", facts[0].Args[2])
}

func TestApplicableProgramIgnoresDisclaimRole(t *testing.T) {
	e := newSchemaEngine(t)
	defer e.Close()

	require.NoError(t, e.AddFacts([]Fact{
		{Predicate: "measure_scope", Args: []interface{}{"m3", "section_232_steel", "76061230", "disclaim"}},
		{Predicate: "program_all_countries", Args: []interface{}{"section_232_steel"}},
	}))

	facts, err := e.GetFacts("applicable_program")
	require.NoError(t, err)
	require.Empty(t, facts)
}

func TestAddFactsRejectsUndeclaredPredicate(t *testing.T) {
	e := newSchemaEngine(t)
	defer e.Close()

	err := e.AddFacts([]Fact{{Predicate: "not_a_predicate", Args: []interface{}{"x"}}})
	require.Error(t, err)
}

func TestAddFactsRejectsArityMismatch(t *testing.T) {
	e := newSchemaEngine(t)
	defer e.Close()

	err := e.AddFacts([]Fact{{Predicate: "program_all_countries", Args: []interface{}{"a", "b"}}})
	require.Error(t, err)
}

func TestFactLimitExceeded(t *testing.T) {
	e, err := NewEngine(Config{FactLimit: 1, AutoEval: true})
	require.NoError(t, err)
	require.NoError(t, e.LoadSchemaString(applicabilitySchema))
	defer e.Close()

	require.NoError(t, e.AddFacts([]Fact{{Predicate: "program_all_countries", Args: []interface{}{"a"}}}))
	err = e.AddFacts([]Fact{{Predicate: "program_all_countries", Args: []interface{}{"b"}}})
	require.Error(t, err)
}

func TestClearRemovesFactsButKeepsSchema(t *testing.T) {
	e := newSchemaEngine(t)
	defer e.Close()

	require.NoError(t, e.AddFacts([]Fact{{Predicate: "program_all_countries", Args: []interface{}{"a"}}}))
	e.Clear()

	facts, err := e.GetFacts("program_all_countries")
	require.NoError(t, err)
	require.Empty(t, facts)

	// Schema is still compiled: re-adding facts works without reloading.
	require.NoError(t, e.AddFacts([]Fact{{Predicate: "program_all_countries", Args: []interface{}{"b"}}}))
}

func TestQueryAppliesBindings(t *testing.T) {
	e := newSchemaEngine(t)
	defer e.Close()

	require.NoError(t, e.AddFacts([]Fact{
		{Predicate: "measure_scope", Args: []interface{}{"m1", "section_232_aluminum", "76061230", "impose"}},
		{Predicate: "program_all_countries", Args: []interface{}{"section_232_aluminum"}},
	}))

	rows, err := e.Query(context.Background(), "applicable_program(Program, Hts8, Country)")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "section_232_aluminum", rows[0]["Program"])
}

func TestGetStatsCountsPerPredicate(t *testing.T) {
	e := newSchemaEngine(t)
	defer e.Close()

	require.NoError(t, e.AddFacts([]Fact{
		{Predicate: "program_all_countries", Args: []interface{}{"a"}},
		{Predicate: "program_all_countries", Args: []interface{}{"b"}},
		{Predicate: "program_country", Args: []interface{}{"c", "CN"}},
	}))

	stats := e.GetStats()
	require.Equal(t, 2, stats.PredicateCounts["program_all_countries"])
	require.Equal(t, 1, stats.PredicateCounts["program_country"])
}

func TestFactStringFormatsNamedAndStringArgs(t *testing.T) {
	f := Fact{Predicate: "measure_scope", Args: []interface{}{"m1", "/section_232_aluminum", "76061230", int64(5)}}
	require.Equal(t, `measure_scope("m1", /section_232_aluminum, "76061230", 5).`, f.String())
}
