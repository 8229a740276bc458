package connectors

import (
	"regexp"
	"strings"
	"time"

	"tariffstack/internal/model"
)

var (
	frCitationPattern = regexp.MustCompile(`\d+\s+FR\s+\d+`)
	frDocNumberPattern = regexp.MustCompile(`\d{4}-\d{5}`)
	frEOPattern        = regexp.MustCompile(`(?i)Executive Order\s+(\d{5})`)
	frProcPattern      = regexp.MustCompile(`(?i)Proclamation\s+(\d{4,5})`)
	frEffectiveDatePattern = regexp.MustCompile(`(?i)effective date:?\s*(\w+ \d{1,2},? \d{4})`)

	annexHTSPattern = regexp.MustCompile(`\b\d{4}\.\d{2}(?:\.\d{2})?\b`)
)

// FederalRegister fetches Federal Register notices and Presidential
// documents (Proclamations, Executive Orders) published at
// federalregister.gov, a Tier-A source for Section 232 and IEEPA
// program text. Ported from
// original_source/app/ingestion/connectors/govinfo.py.
type FederalRegister struct {
	Base
}

// NewFederalRegister builds a ready-to-use Federal Register connector.
func NewFederalRegister() *FederalRegister {
	c := &FederalRegister{}
	c.Base = Base{
		TrustedDomains: map[string]bool{
			"federalregister.gov":     true,
			"www.federalregister.gov": true,
			"api.govinfo.gov":         true,
			"govinfo.gov":             true,
		},
		SourceType: model.SourceFederalRegister,
		Tier:       model.TierA,
		Name:       "federal_register",
		UserAgent:  "tariffstack-ingest/1.0",
	}
	c.Extractor = c
	return c
}

// ExtractCanonicalID prefers a Federal Register document number
// ("2025-12345"), then an Executive Order or Proclamation number, then
// the FR citation itself.
func (c *FederalRegister) ExtractCanonicalID(content, rawURL string) string {
	if m := frDocNumberPattern.FindString(rawURL); m != "" {
		return "FR-DOC-" + m
	}
	if m := frDocNumberPattern.FindString(content); m != "" {
		return "FR-DOC-" + m
	}
	if m := frEOPattern.FindStringSubmatch(content); m != nil {
		return "EO-" + m[1]
	}
	if m := frProcPattern.FindStringSubmatch(content); m != nil {
		return "PROC-" + m[1]
	}
	if m := frCitationPattern.FindString(content); m != "" {
		return "FR-" + m
	}
	return ""
}

// ExtractEffectiveDate finds an "Effective Date:" line in the notice.
func (c *FederalRegister) ExtractEffectiveDate(content string) *time.Time {
	m := frEffectiveDatePattern.FindStringSubmatch(content)
	if m == nil {
		return nil
	}
	for _, layout := range []string{"January 2, 2006", "January 2 2006"} {
		if t, err := time.Parse(layout, m[1]); err == nil {
			return &t
		}
	}
	return nil
}

// ExtractAnnexHTSCodes classifies HTS codes found near a material
// keyword (steel/aluminum/copper) within a 100-character context
// window, adapted from govinfo.py's extract_annex_hts_codes heuristic for
// reading Section 232 annex tables out of proclamation text. The keyword
// nearest before the code wins; when none precedes it, the first of
// steel, aluminum, copper found anywhere in the window is used.
func ExtractAnnexHTSCodes(content string) map[string][]string {
	result := map[string][]string{"steel": nil, "aluminum": nil, "copper": nil, "other": nil}
	lower := strings.ToLower(content)

	locs := annexHTSPattern.FindAllStringIndex(content, -1)
	for _, loc := range locs {
		start := loc[0] - 100
		if start < 0 {
			start = 0
		}
		end := loc[1] + 100
		if end > len(content) {
			end = len(content)
		}
		window := lower[start:end]
		code := content[loc[0]:loc[1]]

		material, best := "other", -1
		for _, m := range []string{"steel", "aluminum", "copper"} {
			if i := strings.LastIndex(lower[start:loc[0]], m); i > best {
				material, best = m, i
			} else if best < 0 && material == "other" && strings.Contains(window, m) {
				material = m
			}
		}
		result[material] = appendUnique(result[material], code)
	}
	return result
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
