package rules

// programApplicabilitySchema declares the facts and rules the Matcher
// evaluates to answer spec.md §4.9 Step 1 — "Determine applicable
// programs. From a ProgramApplicability table: programs whose
// country-scope matches country and whose HTS scope contains hts at
// entry_date." The entry_date join happens in Go (TariffMeasure.CoversDate
// needs exact time arithmetic Mangle has no native support for); this
// schema carries the combinatorial part: which programs have an
// imposing measure scoped to this HTS8 prefix, for a country that
// program's CountryScope admits.
const programApplicabilitySchema = `
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
