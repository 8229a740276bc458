// Package connectors implements the Trusted Connectors (C4): per-source
// fetchers with a hard-coded domain allowlist, audit trail, and
// metadata/text extraction, ported from
// original_source/app/ingestion/connectors/base.py's BaseConnector.
package connectors

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"golang.org/x/net/html"

	"tariffstack/internal/logging"
	"tariffstack/internal/model"
)

// htsPattern matches HTS codes: 4-10 digits with optional dot grouping.
var htsPattern = regexp.MustCompile(`\b\d{4}(?:\.\d{2}){0,3}\b`)

// chapter99Pattern matches Chapter 99 additional-duty headings.
var chapter99Pattern = regexp.MustCompile(`\b9903\.\d{2}\.\d{2}\b`)

// Result is the outcome of one connector fetch, mirroring
// original_source's ConnectorResult dataclass.
type Result struct {
	Success bool
	Error   string

	DocumentID    string
	Source        model.DocumentSource
	Tier          model.DocumentTier
	ConnectorName string
	CanonicalID   string
	URL           string
	Title         string

	RawContent    string
	ExtractedText string
	SHA256Raw     string

	PublishedAt    time.Time
	EffectiveStart *time.Time

	FetchLog model.FetchLogEntry

	HTSCodesFound []string
	ProgramsFound []model.ProgramID
}

// Extractor is implemented by each concrete per-source connector to pull
// source-specific metadata out of fetched content.
type Extractor interface {
	ExtractCanonicalID(content, rawURL string) string
	ExtractEffectiveDate(content string) *time.Time
}

// Base implements shared fetch/extract/audit behavior. Concrete
// connectors embed Base and supply TrustedDomains/SourceType/Tier/Name
// plus an Extractor.
type Base struct {
	TrustedDomains map[string]bool
	SourceType     model.DocumentSource
	Tier           model.DocumentTier
	Name           string
	UserAgent      string
	Timeout        time.Duration
	Extractor      Extractor

	httpClient *http.Client
}

func (b *Base) client() *http.Client {
	if b.httpClient == nil {
		timeout := b.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		b.httpClient = &http.Client{Timeout: timeout}
	}
	return b.httpClient
}

// isTrustedDomain reports whether rawURL's host is in the allowlist,
// exact or as a subdomain, mirroring base.py's _is_trusted_domain.
func (b *Base) isTrustedDomain(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for trusted := range b.TrustedDomains {
		if host == trusted || strings.HasSuffix(host, "."+trusted) {
			return true
		}
	}
	return false
}

// Fetch retrieves rawURL, enforcing the domain allowlist, and returns a
// fully populated Result. Never retried automatically on
// UntrustedSourceError (§7); transport failures come back as a Result
// with Success=false for the Ingestion Orchestrator to retry with backoff.
func (b *Base) Fetch(ctx context.Context, rawURL string) (Result, error) {
	if !b.isTrustedDomain(rawURL) {
		host := ""
		if u, err := url.Parse(rawURL); err == nil {
			host = u.Hostname()
		}
		return Result{}, &model.UntrustedSourceError{
			URL:    rawURL,
			Reason: fmt.Sprintf("domain %q not in %s allowlist", host, b.Name),
		}
	}

	fetchStart := time.Now().UTC()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Result{}, fmt.Errorf("build request for %q: %w", rawURL, err)
	}
	req.Header.Set("User-Agent", b.UserAgent)

	resp, err := b.client().Do(req)
	if err != nil {
		return Result{
			Success:       false,
			Source:        b.SourceType,
			Tier:          b.Tier,
			ConnectorName: b.Name,
			URL:           rawURL,
			Error:         err.Error(),
			FetchLog:      model.FetchLogEntry{FetchedAt: fetchStart, Success: false, Error: err.Error()},
		}, nil
	}
	defer resp.Body.Close()

	body := make([]byte, 0, 64*1024)
	buf := make([]byte, 32*1024)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			body = append(body, buf[:n]...)
		}
		if readErr != nil {
			break
		}
	}
	raw := string(body)

	if resp.StatusCode >= 300 {
		return Result{
			Success:       false,
			Source:        b.SourceType,
			Tier:          b.Tier,
			ConnectorName: b.Name,
			URL:           rawURL,
			Error:         fmt.Sprintf("http status %d", resp.StatusCode),
			FetchLog: model.FetchLogEntry{
				FetchedAt: fetchStart, Success: false,
				Error: fmt.Sprintf("http status %d", resp.StatusCode), HTTPStatus: resp.StatusCode,
			},
		}, nil
	}

	sum := sha256.Sum256(body)
	sha := hex.EncodeToString(sum[:])
	extracted := extractText(raw)
	title := extractTitle(raw)

	canonicalID := ""
	var effectiveStart *time.Time
	if b.Extractor != nil {
		canonicalID = b.Extractor.ExtractCanonicalID(raw, rawURL)
		effectiveStart = b.Extractor.ExtractEffectiveDate(raw)
	}

	logging.Connector("fetched %s source=%s tier=%s canonical_id=%s bytes=%d",
		rawURL, b.SourceType, b.Tier, canonicalID, len(body))

	return Result{
		Success:        true,
		Source:         b.SourceType,
		Tier:           b.Tier,
		ConnectorName:  b.Name,
		CanonicalID:    canonicalID,
		URL:            rawURL,
		Title:          title,
		RawContent:     raw,
		ExtractedText:  extracted,
		SHA256Raw:      sha,
		PublishedAt:    time.Now().UTC(),
		EffectiveStart: effectiveStart,
		FetchLog: model.FetchLogEntry{
			FetchedAt: fetchStart, Success: true, HTTPStatus: resp.StatusCode,
		},
		HTSCodesFound: findHTSCodes(extracted),
		ProgramsFound: findPrograms(extracted),
	}, nil
}

// extractText strips script/style/nav/header/footer and returns visible
// text, one line per non-empty text node, ported from base.py's BeautifulSoup
// pass onto golang.org/x/net/html.
func extractText(rawHTML string) string {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return ""
	}
	var lines []string
	var walk func(n *html.Node, skip bool)
	walk = func(n *html.Node, skip bool) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "nav", "header", "footer":
				return
			}
		}
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" && !skip {
				lines = append(lines, text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, false)
		}
	}
	walk(doc, false)
	return strings.Join(lines, "\n")
}

// extractTitle returns the document's <title> text, falling back to the
// first <h1>.
func extractTitle(rawHTML string) string {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return ""
	}
	var title, h1 string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if n.Data == "title" && title == "" && n.FirstChild != nil {
				title = strings.TrimSpace(n.FirstChild.Data)
			}
			if n.Data == "h1" && h1 == "" && n.FirstChild != nil {
				h1 = strings.TrimSpace(n.FirstChild.Data)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	if title != "" {
		return title
	}
	return h1
}

func findHTSCodes(text string) []string {
	matches := htsPattern.FindAllString(text, -1)
	seen := make(map[string]bool, len(matches))
	var out []string
	for _, m := range matches {
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	sort.Strings(out)
	return out
}

func findChapter99Codes(text string) []string {
	matches := chapter99Pattern.FindAllString(text, -1)
	seen := make(map[string]bool, len(matches))
	var out []string
	for _, m := range matches {
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	return out
}

func findPrograms(text string) []model.ProgramID {
	lower := strings.ToLower(text)
	seen := make(map[model.ProgramID]bool)

	if strings.Contains(lower, "section 232") || strings.Contains(lower, "232") {
		if strings.Contains(lower, "steel") {
			seen[model.ProgramSection232Steel] = true
		}
		if strings.Contains(lower, "aluminum") {
			seen[model.ProgramSection232Aluminum] = true
		}
		if strings.Contains(lower, "copper") {
			seen[model.ProgramSection232Copper] = true
		}
	}
	if strings.Contains(lower, "section 301") {
		seen[model.ProgramSection301Note20] = true
	}
	if strings.Contains(lower, "fentanyl") {
		seen[model.ProgramIEEPAFentanyl] = true
	}
	if strings.Contains(lower, "ieepa") || strings.Contains(lower, "reciprocal") {
		seen[model.ProgramIEEPAReciprocal] = true
	}

	out := make([]model.ProgramID, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
