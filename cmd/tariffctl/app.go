package main

import (
	"context"
	"fmt"
	"time"

	"tariffstack/internal/blob"
	"tariffstack/internal/config"
	"tariffstack/internal/connectors"
	"tariffstack/internal/embedding"
	"tariffstack/internal/ingestion"
	"tariffstack/internal/llmclient"
	"tariffstack/internal/logging"
	"tariffstack/internal/reviewqueue"
	"tariffstack/internal/rules"
	"tariffstack/internal/section301"
	"tariffstack/internal/stacking"
	"tariffstack/internal/store"
)

// app bundles every long-lived dependency a subcommand needs. One app
// is built per invocation in PersistentPreRunE-adjacent code and torn
// down before the process exits.
type app struct {
	cfg     *config.Config
	store   *store.Store
	matcher *rules.Matcher

	stacking   *stacking.Engine
	ingestion  *ingestion.Orchestrator
	reviews    *reviewqueue.Queue
	embedding  embedding.EmbeddingEngine // nil if no GENAI_API_KEY/LLM.APIKey configured
	connectors map[string]ingestion.Connector
}

// newApp wires config, storage, the Mangle-backed applicability
// matcher, the Section-301 evaluator, the stacking engine, the trusted
// connectors and the ingestion orchestrator — the same dependency
// graph `cmd/nerd/main.go` assembles for its shard system, generalized
// to tariffstack's components.
func newApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if err := blob.Init(cfg.Storage); err != nil {
		return nil, fmt.Errorf("init blob backend: %w", err)
	}

	st, err := store.Open(cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	matcher, err := rules.NewMatcher()
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("init rules matcher: %w", err)
	}
	if err := matcher.LoadPrograms(stacking.DefaultPrograms()); err != nil {
		matcher.Close()
		st.Close()
		return nil, fmt.Errorf("load programs into matcher: %w", err)
	}
	measures, err := st.AllCurrentMeasures(ctx, time.Now())
	if err != nil {
		matcher.Close()
		st.Close()
		return nil, fmt.Errorf("load current measures: %w", err)
	}
	if err := matcher.LoadMeasureScopes(measures); err != nil {
		matcher.Close()
		st.Close()
		return nil, fmt.Errorf("load measure scopes into matcher: %w", err)
	}

	futureHorizon := time.Duration(cfg.Section301.FutureDateHorizonDays) * 24 * time.Hour
	evaluator := section301.NewEvaluator(st, section301.DefaultCountryPolicy(), futureHorizon, time.Now)

	engine := stacking.NewEngine(matcher, st, evaluator)

	var reader *llmclient.Reader
	var validator *llmclient.Validator
	var embEngine embedding.EmbeddingEngine
	if cfg.LLM.APIKey != "" {
		readerClient, err := llmclient.NewClient(cfg.LLM.APIKey, cfg.LLM.ReaderModel)
		if err != nil {
			logging.Boot("reader LLM client unavailable: %v", err)
		} else {
			reader = llmclient.NewReader(readerClient)
		}
		validatorClient, err := llmclient.NewClient(cfg.LLM.APIKey, cfg.LLM.ValidatorModel)
		if err != nil {
			logging.Boot("validator LLM client unavailable: %v", err)
		} else {
			validator = llmclient.NewValidator(validatorClient)
		}
		embEngine, err = embedding.NewEngine(embedding.Config{
			GenAIAPIKey: cfg.LLM.APIKey,
			GenAIModel:  cfg.LLM.EmbeddingModel,
			TaskType:    "RETRIEVAL_DOCUMENT",
		})
		if err != nil {
			logging.Boot("embedding engine unavailable: %v", err)
			embEngine = nil
		} else {
			st.EnableVectorIndex(embEngine.Dimensions())
		}
	}

	connectorMap := map[string]ingestion.Connector{
		"csms":             connectors.NewCSMS(),
		"federal_register": connectors.NewFederalRegister(),
		"usitc":            connectors.NewUSITC(),
	}

	orchCfg := ingestion.DefaultConfig()
	orchCfg.MaxRetries = cfg.Connectors.MaxRetries
	orch := ingestion.New(orchCfg, st, connectorMap, reader, validator)

	return &app{
		cfg:        cfg,
		store:      st,
		matcher:    matcher,
		stacking:   engine,
		ingestion:  orch,
		reviews:    reviewqueue.New(st),
		embedding:  embEngine,
		connectors: connectorMap,
	}, nil
}

// close releases the store and matcher's Mangle engine handle.
func (a *app) close() {
	if a.matcher != nil {
		a.matcher.Close()
	}
	if a.store != nil {
		a.store.Close()
	}
}
