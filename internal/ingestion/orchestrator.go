// Package ingestion implements the Ingestion Orchestrator (C12): the
// driver that composes the trusted connectors, chunker, two-LLM
// Reader/Validator pair, mechanical Write Gate, and the Needs-Review
// queue into the end-to-end pipeline spec.md §4 describes. It is the
// only caller that sequences those packages together; each of them
// remains independently testable behind its own narrow interface.
package ingestion

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"tariffstack/internal/blob"
	"tariffstack/internal/chunker"
	"tariffstack/internal/connectors"
	"tariffstack/internal/llmclient"
	"tariffstack/internal/logging"
	"tariffstack/internal/model"
	"tariffstack/internal/reviewqueue"
	"tariffstack/internal/writegate"
)

// Store is the subset of *store.Store the orchestrator drives directly
// (reviewqueue and writegate take their own narrower slices of it).
type Store interface {
	DocumentByCanonicalID(ctx context.Context, source model.DocumentSource, canonicalID string) (model.Document, bool, error)
	InsertDocument(ctx context.Context, d model.Document) (model.Document, error)
	InsertChunks(ctx context.Context, chunks []model.DocumentChunk) error
	ChunksForDocument(ctx context.Context, documentID string) ([]model.DocumentChunk, error)
	InsertAssertion(ctx context.Context, a model.VerifiedAssertion) (model.VerifiedAssertion, error)
	InsertSourceVersion(ctx context.Context, v model.SourceVersion) (model.SourceVersion, error)
	SupersedeMeasure(ctx context.Context, m model.TariffMeasure) (model.TariffMeasure, error)
	FindChunksByHTS(ctx context.Context, htsCode string) ([]model.DocumentChunk, error)
	AllDocuments(ctx context.Context) ([]model.Document, error)
	SetChunkEmbeddingID(ctx context.Context, chunkID, embeddingID string) error
	UpsertChunkVector(ctx context.Context, chunkID string, vector []float32) error
	writegate.DocumentLookup
	writegate.ChunkLookup
}

// Connector is the interface every per-source fetcher in
// internal/connectors satisfies through its embedded Base.
type Connector interface {
	Fetch(ctx context.Context, rawURL string) (connectors.Result, error)
}

// Config controls fan-out concurrency and retry behavior.
type Config struct {
	MaxConcurrentFetches int
	MaxRetries           int
	RetryBackoff         time.Duration
	RequireMultipleSources bool
}

// DefaultConfig mirrors internal/config.ConnectorsConfig's default retry
// count, with a modest parallel fan-out width.
func DefaultConfig() Config {
	return Config{
		MaxConcurrentFetches:  4,
		MaxRetries:             3,
		RetryBackoff:           time.Second,
		RequireMultipleSources: false,
	}
}

// Orchestrator wires one of each pipeline stage together. Reader and
// Validator are optional: with a nil Reader every Verify call fails the
// write gate for lack of citations and is filed to the review queue; with
// a nil Validator, Verify checks the Reader's output with the mechanical
// QuickValidate instead.
type Orchestrator struct {
	cfg        Config
	store      Store
	connectors map[string]Connector
	chunker    *chunker.Chunker
	reader     *llmclient.Reader
	validator  *llmclient.Validator
	gate       *writegate.Gate
	reviews    *reviewqueue.Queue
}

// New builds an Orchestrator. connectorsByName keys each connector by
// the name tariffctl's --connector flag accepts ("csms",
// "federal_register", "usitc"). reader/validator may be nil.
func New(cfg Config, st Store, connectorsByName map[string]Connector, reader *llmclient.Reader, validator *llmclient.Validator) *Orchestrator {
	return &Orchestrator{
		cfg:        cfg,
		store:      st,
		connectors: connectorsByName,
		chunker:    chunker.New(),
		reader:     reader,
		validator:  validator,
		gate:       writegate.New(st, st),
		reviews:    reviewqueue.New(st),
	}
}

// FetchResult is the per-URL outcome of an Ingest/IngestBatch call.
type FetchResult struct {
	URL        string
	DocumentID string
	Skipped    bool // already ingested, by (source, canonical_id)
	Err        error
}

// Ingest fetches rawURL through the named connector, persists its
// blob, Document row, and chunks, skipping re-ingestion if a document
// with the same (source, canonical_id) already exists (§8 idempotent
// ingestion).
func (o *Orchestrator) Ingest(ctx context.Context, connectorName, rawURL string) (FetchResult, error) {
	conn, ok := o.connectors[connectorName]
	if !ok {
		return FetchResult{URL: rawURL}, fmt.Errorf("unknown connector %q", connectorName)
	}

	result, err := o.fetchWithRetry(ctx, conn, rawURL)
	if err != nil {
		return FetchResult{URL: rawURL, Err: err}, err
	}
	if !result.Success {
		err := fmt.Errorf("fetch %s: %s", rawURL, result.Error)
		return FetchResult{URL: rawURL, Err: err}, err
	}

	if existing, found, err := o.store.DocumentByCanonicalID(ctx, result.Source, result.CanonicalID); err != nil {
		return FetchResult{URL: rawURL}, err
	} else if found {
		logging.Ingestion("skip already-ingested source=%s canonical_id=%s", result.Source, result.CanonicalID)
		return FetchResult{URL: rawURL, DocumentID: existing.ID, Skipped: true}, nil
	}

	uri, err := blob.Current().Put(
		blob.Key(string(result.Source), result.CanonicalID, []byte(result.RawContent), ".html"),
		[]byte(result.RawContent), "text/html")
	if err != nil {
		return FetchResult{URL: rawURL}, fmt.Errorf("store blob for %s: %w", rawURL, err)
	}

	doc := model.Document{
		Source: result.Source, Tier: result.Tier, ConnectorName: result.ConnectorName,
		CanonicalID: result.CanonicalID, URL: result.URL, Title: result.Title,
		PublishedAt: result.PublishedAt, EffectiveStart: result.EffectiveStart,
		SHA256Raw: result.SHA256Raw, StorageURI: uri, ExtractedText: result.ExtractedText,
		HTSCodesMentioned: result.HTSCodesFound, ProgramsMentioned: result.ProgramsFound,
		FetchLog: []model.FetchLogEntry{result.FetchLog},
	}
	doc, err = o.store.InsertDocument(ctx, doc)
	if err != nil {
		return FetchResult{URL: rawURL}, err
	}

	chunks := o.chunker.ChunkText(doc.ExtractedText, doc.ID)
	if len(chunks) > 0 {
		if err := o.store.InsertChunks(ctx, chunks); err != nil {
			return FetchResult{URL: rawURL, DocumentID: doc.ID}, err
		}
	}

	logging.Ingestion("ingested %s source=%s canonical_id=%s chunks=%d", rawURL, doc.Source, doc.CanonicalID, len(chunks))
	return FetchResult{URL: rawURL, DocumentID: doc.ID}, nil
}

// fetchWithRetry retries transport failures (Result.Success=false, no
// UntrustedSourceError) for up to cfg.MaxRetries attempts, waiting
// cfg.RetryBackoff after the first failure and doubling the wait after
// each further one; an UntrustedSourceError is never retried (§7).
func (o *Orchestrator) fetchWithRetry(ctx context.Context, conn Connector, rawURL string) (connectors.Result, error) {
	var last connectors.Result
	var lastErr error
	for attempt := 1; attempt <= o.cfg.MaxRetries; attempt++ {
		result, err := conn.Fetch(ctx, rawURL)
		if err != nil {
			return connectors.Result{}, err // untrusted source or request-build failure: no retry
		}
		if result.Success {
			return result, nil
		}
		last, lastErr = result, fmt.Errorf("%s", result.Error)
		logging.Get(logging.CategoryIngestion).Warn("fetch %s attempt %d/%d failed: %s", rawURL, attempt, o.cfg.MaxRetries, result.Error)
		select {
		case <-ctx.Done():
			return connectors.Result{}, ctx.Err()
		case <-time.After(o.cfg.RetryBackoff << (attempt - 1)):
		}
	}
	return last, lastErr
}

// IngestBatch fans Ingest out over urls with bounded concurrency,
// returning one FetchResult per URL in input order. A failure on one
// URL does not cancel the others.
func (o *Orchestrator) IngestBatch(ctx context.Context, connectorName string, urls []string) ([]FetchResult, error) {
	results := make([]FetchResult, len(urls))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.MaxConcurrentFetches)

	for i, u := range urls {
		i, u := i, u
		g.Go(func() error {
			r, err := o.Ingest(gctx, connectorName, u)
			r.Err = err
			results[i] = r
			return nil // collect per-URL errors in FetchResult, don't abort the batch
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
