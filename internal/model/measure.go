package model

import "time"

// ScopeHTSType records whether a TariffMeasure's scope is keyed at HTS8 or
// HTS10 precision (§3: HTS10 > HTS8, most-specific wins).
type ScopeHTSType string

const (
	ScopeHTS8  ScopeHTSType = "HTS8"
	ScopeHTS10 ScopeHTSType = "HTS10"
)

// RateStatus records whether a measure's additional rate is finalized.
type RateStatus string

const (
	RateConfirmed RateStatus = "confirmed"
	RatePending   RateStatus = "pending"
)

// MeasureRole distinguishes measures that impose an additional duty from
// measures that carve out an exclusion/exemption.
type MeasureRole string

const (
	RoleImpose  MeasureRole = "impose"
	RoleExclude MeasureRole = "exclude"
)

// TariffMeasure is a single SCD-2 versioned row of the Temporal Tariff
// Store (§3 TariffMeasure, §4.1).
type TariffMeasure struct {
	ID string

	ProgramID     ProgramID
	Ch99Heading   string // e.g. "9903.88.69"
	ScopeHTSType  ScopeHTSType
	ScopeHTSValue string // normalized digits, HTS8 or HTS10 per ScopeHTSType

	EffectiveStart time.Time
	EffectiveEnd   *time.Time // nil = currently open (end-exclusive when set)

	AdditionalRate float64 // ad valorem rate, e.g. 0.25 for 25%
	RateStatus     RateStatus
	Role           MeasureRole
	ArticleType    ArticleType

	SourceVersionID string

	// Supersession back-pointers (optional, for audit).
	SupersedesID   string
	SupersededByID string
}

// CoversDate reports whether entryDate falls within the measure's
// end-exclusive effective window: start <= entryDate < end.
func (m TariffMeasure) CoversDate(entryDate time.Time) bool {
	if entryDate.Before(m.EffectiveStart) {
		return false
	}
	if m.EffectiveEnd != nil && !entryDate.Before(*m.EffectiveEnd) {
		return false
	}
	return true
}

// IsCurrent reports whether the measure has not been superseded.
func (m TariffMeasure) IsCurrent() bool {
	return m.EffectiveEnd == nil
}

// DutyBaseIsFullValue reports whether the measure's article type applies to
// the full entered slice value (primary/derivative) rather than declared
// material-content value only (content).
func (m TariffMeasure) DutyBaseIsFullValue() bool {
	return m.ArticleType == ArticlePrimary || m.ArticleType == ArticleDerivative
}
