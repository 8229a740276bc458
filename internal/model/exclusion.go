package model

import "time"

// HTSConstraints describes which HTS codes an ExclusionClaim covers, at
// either exact HTS10 codes or HTS8 prefixes.
type HTSConstraints struct {
	HTS10Exact []string
	HTS8Prefix []string
}

// Matches reports whether the constraints cover the given normalized HTS
// code (by its HTS10 and HTS8 precisions).
func (c HTSConstraints) Matches(hts8, hts10 string) bool {
	for _, v := range c.HTS10Exact {
		if v == hts10 {
			return true
		}
	}
	for _, v := range c.HTS8Prefix {
		if v == hts8 {
			return true
		}
	}
	return false
}

// EffectiveWindow is an end-exclusive date range.
type EffectiveWindow struct {
	Start time.Time
	End   *time.Time
}

// Covers reports whether entryDate falls within the window.
func (w EffectiveWindow) Covers(entryDate time.Time) bool {
	if entryDate.Before(w.Start) {
		return false
	}
	if w.End != nil && !entryDate.Before(*w.End) {
		return false
	}
	return true
}

// ExclusionClaim is a carve-out that, when matched, suppresses the
// corresponding impose TariffMeasure on the same filing line (§3
// ExclusionClaim, §4.1, §4.8 step 4).
type ExclusionClaim struct {
	ExclusionID        string
	NoteBucket         string // e.g. "301_NOTE20"
	ClaimCh99Heading   string // e.g. "9903.88.69"
	SourceHeading      string
	HTSConstraints     HTSConstraints
	DescriptionScope   string
	ScopeTextHash      string
	EffectiveWindow    EffectiveWindow
	VerificationNeeded bool // always true per spec
}
