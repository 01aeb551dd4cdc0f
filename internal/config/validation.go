package config

import (
	"fmt"
	"slices"
)

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	// API key is required for both the chat model and the embedder.
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("%w: GEMINI_API_KEY environment variable is required\n"+
			"Get your API key at: https://ai.google.dev/gemini-api/docs/api-key",
			ErrMissingAPIKey)
	}

	if c.ModelName == "" {
		return fmt.Errorf("%w: model_name cannot be empty", ErrInvalidModelName)
	}

	if c.EmbedderModel == "" {
		return fmt.Errorf("%w: embedder_model cannot be empty", ErrInvalidEmbedderModel)
	}

	if c.MaxHistoryTurns < 0 {
		return fmt.Errorf("%w: max_history_turns cannot be negative, got %d",
			ErrInvalidHistoryTurns, c.MaxHistoryTurns)
	}

	// Retrieval configuration
	if c.TopK < 1 || c.TopK > 100 {
		return fmt.Errorf("%w: must be between 1 and 100, got %d", ErrInvalidTopK, c.TopK)
	}
	if c.MinScore < 0 || c.MinScore > 1 {
		return fmt.Errorf("%w: must be between 0.0 and 1.0, got %.2f",
			ErrInvalidMinScore, c.MinScore)
	}

	// Vector index configuration. The dimension must match the embedder's
	// output width exactly or every upsert is rejected.
	if c.IndexName == "" {
		return fmt.Errorf("%w: index_name cannot be empty", ErrInvalidIndexName)
	}
	if c.Dimension < 1 || c.Dimension > 4096 {
		return fmt.Errorf("%w: must be between 1 and 4096, got %d", ErrInvalidDimension, c.Dimension)
	}
	validMetrics := []string{"cosine", "euclid", "dot"}
	if !slices.Contains(validMetrics, c.Metric) {
		return fmt.Errorf("%w: %q is not valid, must be one of: %v",
			ErrInvalidMetric, c.Metric, validMetrics)
	}
	if c.QdrantHost == "" {
		return fmt.Errorf("%w: qdrant_host cannot be empty", ErrInvalidQdrantHost)
	}
	if c.QdrantPort < 1 || c.QdrantPort > 65535 {
		return fmt.Errorf("%w: must be between 1 and 65535, got %d", ErrInvalidQdrantPort, c.QdrantPort)
	}

	// Sync pipeline configuration
	if c.BatchSize < 1 || c.BatchSize > 1000 {
		return fmt.Errorf("%w: must be between 1 and 1000, got %d", ErrInvalidBatchSize, c.BatchSize)
	}
	if c.SyncWorkers < 1 || c.SyncWorkers > 64 {
		return fmt.Errorf("%w: must be between 1 and 64, got %d", ErrInvalidWorkers, c.SyncWorkers)
	}

	// PostgreSQL configuration
	if c.PostgresHost == "" {
		return fmt.Errorf("%w: host cannot be empty", ErrInvalidPostgresHost)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: must be between 1 and 65535, got %d", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if c.PostgresDBName == "" {
		return fmt.Errorf("%w: database name cannot be empty", ErrInvalidPostgresDBName)
	}

	validSSLModes := []string{"disable", "require", "verify-ca", "verify-full"}
	if !slices.Contains(validSSLModes, c.PostgresSSLMode) {
		return fmt.Errorf("%w: %q is not valid, must be one of: %v",
			ErrInvalidPostgresSSLMode, c.PostgresSSLMode, validSSLModes)
	}

	return nil
}
