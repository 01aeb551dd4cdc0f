// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.shopassist/config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - AI: generative model, embedder model, history replay window
//   - Index: Qdrant collection name, dimension, distance metric
//   - Storage: PostgreSQL connection for the product catalog
//   - Sync: batch size and worker count for the catalog sync pipeline
//
// Sensitive fields (passwords, API keys) are masked in MarshalJSON.
// Validation is fail-fast with sentinel errors checked via errors.Is().
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates a required API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidModelName indicates the model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidEmbedderModel indicates the embedder model is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidDimension indicates the embedding dimension is out of range.
	ErrInvalidDimension = errors.New("invalid embedding dimension")

	// ErrInvalidMetric indicates the index distance metric is not supported.
	ErrInvalidMetric = errors.New("invalid distance metric")

	// ErrInvalidIndexName indicates the index collection name is empty.
	ErrInvalidIndexName = errors.New("invalid index name")

	// ErrInvalidBatchSize indicates the sync batch size is out of range.
	ErrInvalidBatchSize = errors.New("invalid batch size")

	// ErrInvalidWorkers indicates the sync worker count is out of range.
	ErrInvalidWorkers = errors.New("invalid worker count")

	// ErrInvalidTopK indicates the retrieval result count is out of range.
	ErrInvalidTopK = errors.New("invalid top-k")

	// ErrInvalidMinScore indicates the similarity floor is out of range.
	ErrInvalidMinScore = errors.New("invalid min score")

	// ErrInvalidHistoryTurns indicates the history replay window is negative.
	ErrInvalidHistoryTurns = errors.New("invalid history turns")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")

	// ErrInvalidQdrantHost indicates the Qdrant host is invalid.
	ErrInvalidQdrantHost = errors.New("invalid Qdrant host")

	// ErrInvalidQdrantPort indicates the Qdrant port is out of range.
	ErrInvalidQdrantPort = errors.New("invalid Qdrant port")
)

const (
	// DefaultModelName is the default Gemini chat model.
	DefaultModelName = "gemini-2.0-flash"

	// DefaultEmbedderModel is the default Gemini embedder model.
	// gemini-embedding-001 supports truncation to 768 dimensions via
	// OutputDimensionality; the index dimension must match.
	DefaultEmbedderModel = "gemini-embedding-001"

	// DefaultIndexName is the Qdrant collection holding the catalog vectors.
	DefaultIndexName = "shop-product-catalog"

	// DefaultDimension is the default embedding width.
	DefaultDimension = 768

	// DefaultBatchSize is the number of catalog rows embedded per model call.
	// Trades call overhead against memory and partial-failure blast radius.
	DefaultBatchSize = 100

	// DefaultSyncWorkers is the number of concurrent batch tasks.
	DefaultSyncWorkers = 4

	// DefaultMaxHistoryTurns bounds how many transcript turns are replayed
	// to the model per call. The stored transcript itself is never trimmed.
	DefaultMaxHistoryTurns = 50
)

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON().
type Config struct {
	// AI model configuration
	ModelName     string `mapstructure:"model_name" json:"model_name"`
	EmbedderModel string `mapstructure:"embedder_model" json:"embedder_model"`
	GeminiAPIKey  string `mapstructure:"gemini_api_key" json:"gemini_api_key"` // SENSITIVE: masked in MarshalJSON

	// Conversation configuration
	MaxHistoryTurns int `mapstructure:"max_history_turns" json:"max_history_turns"`

	// Retrieval configuration
	TopK     int     `mapstructure:"top_k" json:"top_k"`
	MinScore float32 `mapstructure:"min_score" json:"min_score"`

	// Vector index configuration
	QdrantHost string `mapstructure:"qdrant_host" json:"qdrant_host"`
	QdrantPort int    `mapstructure:"qdrant_port" json:"qdrant_port"`
	IndexName  string `mapstructure:"index_name" json:"index_name"`
	Dimension  int    `mapstructure:"dimension" json:"dimension"`
	Metric     string `mapstructure:"metric" json:"metric"` // "cosine", "euclid" or "dot"

	// Sync pipeline configuration
	BatchSize   int `mapstructure:"batch_size" json:"batch_size"`
	SyncWorkers int `mapstructure:"sync_workers" json:"sync_workers"`

	// Storage configuration
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".shopassist")

	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// Missing config file is not an error; defaults apply.
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."},
			"config_name", "config.yaml")
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	// AI defaults
	viper.SetDefault("model_name", DefaultModelName)
	viper.SetDefault("embedder_model", DefaultEmbedderModel)
	viper.SetDefault("max_history_turns", DefaultMaxHistoryTurns)

	// Retrieval defaults. k=1 matches single-best-match retrieval; raise it
	// together with min_score to get a ranked shortlist instead.
	viper.SetDefault("top_k", 1)
	viper.SetDefault("min_score", 0.0)

	// Vector index defaults
	viper.SetDefault("qdrant_host", "localhost")
	viper.SetDefault("qdrant_port", 6334)
	viper.SetDefault("index_name", DefaultIndexName)
	viper.SetDefault("dimension", DefaultDimension)
	viper.SetDefault("metric", "cosine")

	// Sync defaults
	viper.SetDefault("batch_size", DefaultBatchSize)
	viper.SetDefault("sync_workers", DefaultSyncWorkers)

	// PostgreSQL defaults (matching docker-compose.yml)
	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "shopassist")
	viper.SetDefault("postgres_password", "shopassist_dev_password")
	viper.SetDefault("postgres_db_name", "shop_assistants")
	viper.SetDefault("postgres_ssl_mode", "disable")
}

// bindEnvVariables binds environment variables explicitly.
// Secrets are env-only; they never come from the config file in production.
func bindEnvVariables() {
	_ = viper.BindEnv("gemini_api_key", "GEMINI_API_KEY")
	_ = viper.BindEnv("postgres_password", "SHOPASSIST_POSTGRES_PASSWORD")
	_ = viper.BindEnv("postgres_host", "SHOPASSIST_POSTGRES_HOST")
	_ = viper.BindEnv("qdrant_host", "SHOPASSIST_QDRANT_HOST")
}

// DatabaseURL renders the PostgreSQL connection string for pgxpool and
// golang-migrate.
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.PostgresUser, c.PostgresPassword,
		c.PostgresHost, c.PostgresPort,
		c.PostgresDBName, c.PostgresSSLMode)
}

// MarshalJSON masks sensitive fields when the config is logged or dumped.
func (c *Config) MarshalJSON() ([]byte, error) {
	type alias Config // avoid recursion
	masked := alias(*c)
	if masked.GeminiAPIKey != "" {
		masked.GeminiAPIKey = "***"
	}
	if masked.PostgresPassword != "" {
		masked.PostgresPassword = "***"
	}
	return json.Marshal(masked)
}
