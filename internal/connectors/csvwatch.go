package connectors

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"tariffstack/internal/logging"
	"tariffstack/internal/model"
)

// CSVRow is one parsed, not-yet-validated data row from a bulk tariff
// CSV drop (USITC China Tariffs CSV, USTR annex exports). Column
// layout: hts_code,program_id,country,duty_rate,claim_heading,
// disclaim_heading,effective_start.
type CSVRow struct {
	HTSCode          string
	ProgramID        model.ProgramID
	Country          string
	DutyRate         float64
	ClaimHeading     string
	DisclaimHeading  string
	EffectiveStart   time.Time
}

// CSVBatchHandler is invoked once per settled CSV file with its parsed
// rows, for SCD-2 application by the caller (internal/section301 or
// internal/ingestion).
type CSVBatchHandler func(ctx context.Context, path string, rows []CSVRow) error

// CSVWatcher watches a drop folder for bulk CSV loads (USITC China
// Tariffs CSV, USTR FRN exports) and parses settled files, debounced
// the same way the teacher's file watcher debounces rapid saves.
type CSVWatcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	dir         string
	debounceDur time.Duration
	debounceMap map[string]time.Time
	handler     CSVBatchHandler
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
}

// NewCSVWatcher builds a watcher over dir, invoking handler once per
// settled .csv file.
func NewCSVWatcher(dir string, handler CSVBatchHandler) (*CSVWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create csv watcher: %w", err)
	}
	return &CSVWatcher{
		watcher:     w,
		dir:         dir,
		debounceDur: 2 * time.Second,
		debounceMap: make(map[string]time.Time),
		handler:     handler,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start begins watching dir in a background goroutine.
func (w *CSVWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create csv drop dir %q: %w", w.dir, err)
	}
	if err := w.watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watch csv drop dir %q: %w", w.dir, err)
	}
	logging.Connector("csv watcher: watching %s", w.dir)

	go w.run(ctx)
	return nil
}

// Stop halts the watcher and waits for its goroutine to exit.
func (w *CSVWatcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	w.watcher.Close()
}

func (w *CSVWatcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Get(logging.CategoryConnector).Error("csv watcher error: %v", err)
		case <-ticker.C:
			w.processSettled(ctx)
		}
	}
}

func (w *CSVWatcher) handleEvent(event fsnotify.Event) {
	if !strings.EqualFold(filepath.Ext(event.Name), ".csv") {
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}
	w.mu.Lock()
	w.debounceMap[event.Name] = time.Now()
	w.mu.Unlock()
}

func (w *CSVWatcher) processSettled(ctx context.Context) {
	w.mu.Lock()
	now := time.Now()
	var settled []string
	for path, last := range w.debounceMap {
		if now.Sub(last) >= w.debounceDur {
			settled = append(settled, path)
			delete(w.debounceMap, path)
		}
	}
	w.mu.Unlock()

	for _, path := range settled {
		rows, err := ParseCSV(path)
		if err != nil {
			logging.Get(logging.CategoryConnector).Error("csv watcher: parse %s: %v", path, err)
			continue
		}
		if err := w.handler(ctx, path, rows); err != nil {
			logging.Get(logging.CategoryConnector).Error("csv watcher: handle %s: %v", path, err)
		}
	}
}

// ParseCSV reads a bulk tariff CSV drop from path into rows, skipping
// the header row. Malformed rows are skipped with a logged warning
// rather than aborting the whole file, since one bad row in a
// thousand-row bulk drop should not block the rest.
func ParseCSV(path string) ([]CSVRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header of %q: %w", path, err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}

	var rows []CSVRow
	lineNum := 1
	for {
		record, err := r.Read()
		lineNum++
		if err == io.EOF {
			break
		}
		if err != nil {
			logging.ConnectorDebug("csv %s: line %d: %v", path, lineNum, err)
			continue
		}
		row, ok := parseCSVRecord(record, idx)
		if !ok {
			logging.ConnectorDebug("csv %s: line %d: skipped, missing required field", path, lineNum)
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseCSVRecord(record []string, idx map[string]int) (CSVRow, bool) {
	get := func(col string) string {
		i, ok := idx[col]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	hts := get("hts_code")
	program := get("program_id")
	if hts == "" || program == "" {
		return CSVRow{}, false
	}

	rate, _ := strconv.ParseFloat(get("duty_rate"), 64)

	effectiveStart, err := time.Parse("2006-01-02", get("effective_start"))
	if err != nil {
		return CSVRow{}, false
	}

	return CSVRow{
		HTSCode:         hts,
		ProgramID:       model.ProgramID(program),
		Country:         get("country"),
		DutyRate:        rate,
		ClaimHeading:    get("claim_heading"),
		DisclaimHeading: get("disclaim_heading"),
		EffectiveStart:  effectiveStart,
	}, true
}
