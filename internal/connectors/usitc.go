package connectors

import (
	"fmt"
	"regexp"
	"time"

	"tariffstack/internal/model"
)

var (
	usitcChapterPattern  = regexp.MustCompile(`(?i)chapter\s+(\d{1,2})`)
	usitcNotePattern     = regexp.MustCompile(`(?i)(?:U\.?S\.?\s+)?note\s+(\d{1,3})`)
	usitcRevisionPattern = regexp.MustCompile(`(?i)revision\s+(\d+)`)
)

// USITC fetches the authoritative Harmonized Tariff Schedule text and
// chapter notes published at hts.usitc.gov, a Tier-A source for
// Chapter 99 heading text and HTS structural changes. Ported from
// original_source/app/ingestion/connectors/usitc.py.
type USITC struct {
	Base
}

// NewUSITC builds a ready-to-use USITC connector.
func NewUSITC() *USITC {
	c := &USITC{}
	c.Base = Base{
		TrustedDomains: map[string]bool{
			"hts.usitc.gov": true,
			"usitc.gov":     true,
			"www.usitc.gov": true,
		},
		SourceType: model.SourceUSITC,
		Tier:       model.TierA,
		Name:       "usitc",
		UserAgent:  "tariffstack-ingest/1.0",
	}
	c.Extractor = c
	return c
}

// ExtractCanonicalID builds an HTS-CHxx / HTS-NOTExx identifier from
// the chapter or note number mentioned in the page, falling back to
// HTS-CH99 when the page discusses Chapter 99 but names no chapter
// number explicitly.
func (c *USITC) ExtractCanonicalID(content, rawURL string) string {
	if m := usitcChapterPattern.FindStringSubmatch(content); m != nil {
		return fmt.Sprintf("HTS-CH%s", pad2(m[1]))
	}
	if m := usitcNotePattern.FindStringSubmatch(content); m != nil {
		return fmt.Sprintf("HTS-NOTE%s", m[1])
	}
	if chapter99Pattern.MatchString(content) {
		return "HTS-CH99"
	}
	return ""
}

// ExtractEffectiveDate always returns nil: no effective date is
// extracted from USITC pages. The edition a page belongs to is read by
// ExtractRevision instead.
func (c *USITC) ExtractEffectiveDate(content string) *time.Time {
	return nil
}

// ExtractRevision returns the HTS revision number mentioned in the
// page ("Revision 3"), used to detect when a new edition supersedes an
// earlier one.
func ExtractRevision(content string) string {
	if m := usitcRevisionPattern.FindStringSubmatch(content); m != nil {
		return m[1]
	}
	return ""
}

// ExtractChapter99Codes returns every 9903.xx.xx heading mentioned on
// the page, deduplicated.
func ExtractChapter99Codes(content string) []string {
	return findChapter99Codes(content)
}

func pad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}
