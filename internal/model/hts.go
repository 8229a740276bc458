// Package model defines the shared data types for tariffstack: HTS codes,
// tariff programs and measures, exclusion claims, country mappings,
// documents and chunks, verified assertions, the review queue, and the ACE
// filing output (entries and stack lines). These types are persisted by
// internal/store and consumed by internal/stacking, internal/section301,
// and internal/writegate.
package model

import (
	"regexp"
	"strings"
)

// HTSPrecision records the stored digit precision of an HTS scope value.
type HTSPrecision int

const (
	HTSHeading    HTSPrecision = 4
	HTSSubheading HTSPrecision = 6
	HTSTariffItem HTSPrecision = 8
	HTSStatistical HTSPrecision = 10
)

var nonDigit = regexp.MustCompile(`[^0-9]`)

// NormalizeHTS strips all non-digit characters from an HTS code, leaving a
// digits-only string (e.g. "8536.90.4000" -> "8536904000").
func NormalizeHTS(hts string) string {
	return nonDigit.ReplaceAllString(hts, "")
}

// HTS8 returns the 8-digit (tariff item) precision of a normalized HTS code.
// Returns "" if the code has fewer than 8 digits.
func HTS8(normalized string) string {
	if len(normalized) < 8 {
		return ""
	}
	return normalized[:8]
}

// HTS10 returns the 10-digit (statistical) precision of a normalized HTS
// code. Returns "" if the code has fewer than 10 digits.
func HTS10(normalized string) string {
	if len(normalized) < 10 {
		return ""
	}
	return normalized[:10]
}

// Digits reports the stored precision of a normalized HTS code: the longest
// of {4,6,8,10} that the code has digits for.
func Digits(normalized string) HTSPrecision {
	switch {
	case len(normalized) >= 10:
		return HTSStatistical
	case len(normalized) >= 8:
		return HTSTariffItem
	case len(normalized) >= 6:
		return HTSSubheading
	default:
		return HTSHeading
	}
}

// FormatHTS renders a normalized digits-only HTS code back into the
// conventional dotted notation (e.g. "8536904000" -> "8536.90.4000").
func FormatHTS(normalized string) string {
	var b strings.Builder
	for i, r := range normalized {
		if i == 4 || i == 6 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return b.String()
}
