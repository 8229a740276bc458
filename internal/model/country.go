package model

import "time"

// CountryMapping versions the crosswalk between Census Bureau country codes,
// Ch99 country-of-origin headings, and ISO alpha-2 codes, since proclamation
// text and entry filings reference countries inconsistently (§3
// CountryMapping).
type CountryMapping struct {
	ID string

	CensusCode      string // e.g. "5700" for China
	Ch99CountryCode string // country token as it appears in Ch99 heading text, if any
	ISOAlpha2       string

	EffectiveStart time.Time
	EffectiveEnd   *time.Time
}

// CoversDate reports whether entryDate falls within the mapping's
// end-exclusive effective window.
func (m CountryMapping) CoversDate(entryDate time.Time) bool {
	if entryDate.Before(m.EffectiveStart) {
		return false
	}
	if m.EffectiveEnd != nil && !entryDate.Before(*m.EffectiveEnd) {
		return false
	}
	return true
}
