package connectors

import (
	"regexp"
	"time"

	"tariffstack/internal/model"
)

var (
	csmsIDPattern   = regexp.MustCompile(`CSMS\s*#?\s*(\d{8})`)
	csmsDatePattern = regexp.MustCompile(`(?i)effective\s+(?:on\s+)?(\w+ \d{1,2},? \d{4})`)
)

// CSMS fetches CBP Cargo Systems Messaging Service bulletins, the
// primary Tier-A source for Section 232 and IEEPA program updates.
// Ported from original_source/app/ingestion/connectors/csms.py.
type CSMS struct {
	Base
}

// NewCSMS builds a ready-to-use CSMS connector.
func NewCSMS() *CSMS {
	c := &CSMS{}
	c.Base = Base{
		TrustedDomains: map[string]bool{
			"content.govdelivery.com": true,
			"www.cbp.gov":             true,
			"cbp.gov":                 true,
		},
		SourceType: model.SourceCSMS,
		Tier:       model.TierA,
		Name:       "csms",
		UserAgent:  "tariffstack-ingest/1.0",
	}
	c.Extractor = c
	return c
}

// ExtractCanonicalID finds a "CSMS #12345678" style message number in
// the content, falling back to the URL's query string.
func (c *CSMS) ExtractCanonicalID(content, rawURL string) string {
	if m := csmsIDPattern.FindStringSubmatch(content); m != nil {
		return "CSMS#" + m[1]
	}
	if m := csmsIDPattern.FindStringSubmatch(rawURL); m != nil {
		return "CSMS#" + m[1]
	}
	return ""
}

// ExtractEffectiveDate looks for an "effective <date>" phrase in the
// bulletin body.
func (c *CSMS) ExtractEffectiveDate(content string) *time.Time {
	m := csmsDatePattern.FindStringSubmatch(content)
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
