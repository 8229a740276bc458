package connectors

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tariffstack/internal/model"
)

func TestCSMSExtractCanonicalID(t *testing.T) {
	c := NewCSMS()
	id := c.ExtractCanonicalID("Please see CSMS #65794272 for details.", "")
	require.Equal(t, "CSMS#65794272", id)
}

func TestCSMSRejectsUntrustedDomain(t *testing.T) {
	c := NewCSMS()
	_, err := c.Fetch(context.Background(), "https://example.com/bulletin")
	require.Error(t, err)
	var untrusted *model.UntrustedSourceError
	require.ErrorAs(t, err, &untrusted)
}

func TestCSMSFetchTrustedDomain(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head><title>CSMS Bulletin</title></head>
<body><nav>skip me</nav><p>CSMS #65794272 announces Section 232 steel duties effective January 1, 2025.</p></body></html>`))
	}))
	defer srv.Close()

	c := NewCSMS()
	parsed, err := url.Parse(srv.URL)
	require.NoError(t, err)
	c.TrustedDomains = map[string]bool{parsed.Hostname(): true}

	result, err := c.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, "CSMS#65794272", result.CanonicalID)
	require.Contains(t, result.ExtractedText, "Section 232 steel duties")
	require.NotContains(t, result.ExtractedText, "skip me")
	require.Equal(t, "CSMS Bulletin", result.Title)
	require.NotEmpty(t, result.SHA256Raw)
}

func TestFederalRegisterExtractCanonicalID(t *testing.T) {
	c := NewFederalRegister()
	id := c.ExtractCanonicalID("Federal Register document 2025-12345 implements Proclamation 10895.", "")
	require.Equal(t, "FR-DOC-2025-12345", id)
}

func TestExtractAnnexHTSCodes(t *testing.T) {
	content := "Steel mill products under 7206.10.00 are covered. Aluminum articles under 7601.10.30 are also covered."
	result := ExtractAnnexHTSCodes(content)
	require.Contains(t, result["steel"], "7206.10.00")
	require.Contains(t, result["aluminum"], "7601.10.30")
}

func TestUSITCExtractCanonicalID(t *testing.T) {
	c := NewUSITC()
	require.Equal(t, "HTS-CH72", c.ExtractCanonicalID("This is Chapter 72 of the tariff schedule.", ""))
	require.Equal(t, "HTS-CH99", c.ExtractCanonicalID("See 9903.85.01 for the additional duty.", ""))
}

func TestFindHTSCodesDedupesAndSorts(t *testing.T) {
	codes := findHTSCodes("See 7606.12.30 and also 7606.12.30 and 7601.10.30.")
	require.Equal(t, []string{"7601.10.30", "7606.12.30"}, codes)
}

func TestFindPrograms(t *testing.T) {
	programs := findPrograms("This notice covers Section 232 steel duties and IEEPA reciprocal tariffs.")
	require.Contains(t, programs, model.ProgramSection232Steel)
	require.Contains(t, programs, model.ProgramIEEPAReciprocal)
}

func TestParseCSVSkipsMalformedRows(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "china_tariffs.csv")
	content := "hts_code,program_id,country,duty_rate,claim_heading,disclaim_heading,effective_start\n" +
		"8501.10.00,section_301_note20,CN,0.25,9903.88.01,9903.88.02,2025-01-01\n" +
		"bad,row,missing,date,here\n" +
		"8544.42.90,section_301_note20,CN,0.075,9903.88.15,9903.88.16,2025-03-15\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	rows, err := ParseCSV(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "8501.10.00", rows[0].HTSCode)
	require.Equal(t, model.ProgramSection301Note20, rows[0].ProgramID)
	require.Equal(t, 0.25, rows[0].DutyRate)
	require.True(t, rows[0].EffectiveStart.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestCSVWatcherDetectsSettledFile(t *testing.T) {
	dir := t.TempDir()
	received := make(chan []CSVRow, 1)

	w, err := NewCSVWatcher(dir, func(ctx context.Context, path string, rows []CSVRow) error {
		received <- rows
		return nil
	})
	require.NoError(t, err)
	w.debounceDur = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	content := "hts_code,program_id,country,duty_rate,claim_heading,disclaim_heading,effective_start\n" +
		"8501.10.00,section_301_note20,CN,0.25,9903.88.01,9903.88.02,2025-01-01\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "drop.csv"), []byte(content), 0o644))

	select {
	case rows := <-received:
		require.Len(t, rows, 1)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for csv watcher to process settled file")
	}
}
