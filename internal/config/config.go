// Package config loads and validates tariffstack's process configuration:
// storage backend selection, database location, LLM credentials for the
// Reader/Validator pipeline, connector timeouts, and review-queue policy.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"tariffstack/internal/logging"
)

// Config holds all tariffstack configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	Storage    StorageConfig    `yaml:"storage"`
	Database   DatabaseConfig   `yaml:"database"`
	LLM        LLMConfig        `yaml:"llm"`
	Connectors ConnectorsConfig `yaml:"connectors"`
	Chunker    ChunkerConfig    `yaml:"chunker"`
	WriteGate  WriteGateConfig  `yaml:"write_gate"`
	Review     ReviewConfig     `yaml:"review"`
	Section301 Section301Config `yaml:"section_301"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// StorageConfig selects and configures the blob storage backend (C3).
type StorageConfig struct {
	Backend string `yaml:"backend"` // "local" | "s3"
	Path    string `yaml:"path"`    // base dir for the local backend

	S3Bucket          string `yaml:"s3_bucket"`
	S3Region          string `yaml:"s3_region"`
	S3Endpoint        string `yaml:"s3_endpoint,omitempty"`
	S3AccessKeyID     string `yaml:"-"`
	S3SecretAccessKey string `yaml:"-"`
}

// DatabaseConfig points at the relational store backing C1/C2/C8/C11.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // "sqlite3"
	DSN    string `yaml:"dsn"`    // file path or connection string
}

// LLMConfig configures the Reader and Validator model clients (C6).
type LLMConfig struct {
	Provider       string `yaml:"provider"` // "genai" (Gemini)
	APIKey         string `yaml:"-"`
	ReaderModel    string `yaml:"reader_model"`
	ValidatorModel string `yaml:"validator_model"`
	EmbeddingModel string `yaml:"embedding_model"`
	Timeout        string `yaml:"timeout"`
}

// ConnectorsConfig configures the trusted source connectors (C4).
type ConnectorsConfig struct {
	RequestTimeout string `yaml:"request_timeout"`
	UserAgent      string `yaml:"user_agent"`
	MaxRetries     int    `yaml:"max_retries"`
}

// ChunkerConfig configures the chunking pipeline (C5).
type ChunkerConfig struct {
	Strategy string `yaml:"strategy"` // "paragraph" | "sentence" | "fixed"
	Min      int    `yaml:"min"`
	Max      int    `yaml:"max"`
	Overlap  int    `yaml:"overlap"`
}

// WriteGateConfig configures the mechanical admission filter (C7).
type WriteGateConfig struct {
	MinDistinctDocuments int `yaml:"min_distinct_documents"` // warning-only threshold
}

// ReviewConfig configures the Needs-Review queue (C11).
type ReviewConfig struct {
	PriorityThreshold int `yaml:"priority_threshold"`
}

// Section301Config configures the Section-301 evaluator (C10).
type Section301Config struct {
	FutureDateHorizonDays int `yaml:"future_date_horizon_days"`
}

// LoggingConfig mirrors internal/logging's on-disk config shape.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode" json:"debug_mode"`
	Categories map[string]bool `yaml:"categories" json:"categories"`
	Level      string          `yaml:"level" json:"level"`
	JSONFormat bool            `yaml:"json_format" json:"json_format"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() *Config {
	return &Config{
		Name:    "tariffstack",
		Version: "1.0.0",

		Storage: StorageConfig{
			Backend: "local",
			Path:    "data/blobs",
		},

		Database: DatabaseConfig{
			Driver: "sqlite3",
			DSN:    "data/tariffstack.db",
		},

		LLM: LLMConfig{
			Provider:       "genai",
			ReaderModel:    "gemini-2.5-flash",
			ValidatorModel: "gemini-2.5-flash",
			EmbeddingModel: "gemini-embedding-001",
			Timeout:        "60s",
		},

		Connectors: ConnectorsConfig{
			RequestTimeout: "30s",
			UserAgent:      "tariffstack-connector/1.0 (+trusted source ingestion)",
			MaxRetries:     3,
		},

		Chunker: ChunkerConfig{
			Strategy: "paragraph",
			Min:      200,
			Max:      1200,
			Overlap:  50,
		},

		WriteGate: WriteGateConfig{
			MinDistinctDocuments: 1,
		},

		Review: ReviewConfig{
			PriorityThreshold: 5,
		},

		Section301: Section301Config{
			FutureDateHorizonDays: 365,
		},

		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from a YAML file, falling back to defaults if the
// file does not exist, and then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	logging.BootDebug("loading config from: %s", path)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logging.Boot("config file not found, using defaults: %s", path)
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		logging.BootError("failed to read config file %s: %v", path, err)
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		logging.BootError("failed to parse config file %s: %v", path, err)
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	logging.Boot("config loaded: storage=%s driver=%s", cfg.Storage.Backend, cfg.Database.Driver)
	return cfg, nil
}

// Save writes configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies §6's process-environment configuration surface.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("STORAGE_BACKEND"); v != "" {
		c.Storage.Backend = v
	}
	if v := os.Getenv("STORAGE_PATH"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("S3_BUCKET"); v != "" {
		c.Storage.S3Bucket = v
	}
	if v := os.Getenv("S3_REGION"); v != "" {
		c.Storage.S3Region = v
	}
	if v := os.Getenv("S3_ENDPOINT"); v != "" {
		c.Storage.S3Endpoint = v
	}
	if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
		c.Storage.S3AccessKeyID = v
	}
	if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
		c.Storage.S3SecretAccessKey = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("GENAI_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("READER_MODEL"); v != "" {
		c.LLM.ReaderModel = v
	}
	if v := os.Getenv("VALIDATOR_MODEL"); v != "" {
		c.LLM.ValidatorModel = v
	}
	if v := os.Getenv("CONNECTOR_TIMEOUT"); v != "" {
		c.Connectors.RequestTimeout = v
	}
	if v := os.Getenv("REVIEW_PRIORITY_THRESHOLD"); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			c.Review.PriorityThreshold = n
		}
	}
}

// GetLLMTimeout returns the LLM call timeout as a duration.
func (c *Config) GetLLMTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// GetConnectorTimeout returns the per-fetch connector timeout.
func (c *Config) GetConnectorTimeout() time.Duration {
	d, err := time.ParseDuration(c.Connectors.RequestTimeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// Validate checks the configuration for obviously invalid settings.
func (c *Config) Validate() error {
	if c.Storage.Backend != "local" && c.Storage.Backend != "s3" {
		return fmt.Errorf("invalid storage backend: %s (valid: local, s3)", c.Storage.Backend)
	}
	if c.Storage.Backend == "s3" && c.Storage.S3Bucket == "" {
		return fmt.Errorf("s3 storage backend requires S3_BUCKET")
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database DSN not configured")
	}
	if c.Chunker.Min <= 0 || c.Chunker.Max <= c.Chunker.Min {
		return fmt.Errorf("invalid chunker bounds: min=%d max=%d", c.Chunker.Min, c.Chunker.Max)
	}
	return nil
}
