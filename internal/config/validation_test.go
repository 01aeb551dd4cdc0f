package config

import (
	"errors"
	"testing"
)

// validBaseConfig returns a Config with every required field set.
func validBaseConfig() *Config {
	return &Config{
		ModelName:       DefaultModelName,
		EmbedderModel:   DefaultEmbedderModel,
		GeminiAPIKey:    "test-api-key",
		MaxHistoryTurns: DefaultMaxHistoryTurns,
		TopK:            1,
		MinScore:        0,
		QdrantHost:      "localhost",
		QdrantPort:      6334,
		IndexName:       DefaultIndexName,
		Dimension:       DefaultDimension,
		Metric:          "cosine",
		BatchSize:       DefaultBatchSize,
		SyncWorkers:     DefaultSyncWorkers,
		PostgresHost:    "localhost",
		PostgresPort:    5432,
		PostgresUser:    "shopassist",
		PostgresDBName:  "shop_assistants",
		PostgresSSLMode: "disable",
	}
}

func TestValidateSuccess(t *testing.T) {
	cfg := validBaseConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() unexpected error with valid config: %v", err)
	}
}

func TestValidateNilConfig(t *testing.T) {
	var cfg *Config
	if err := cfg.Validate(); !errors.Is(err, ErrConfigNil) {
		t.Errorf("Validate() error = %v, want ErrConfigNil", err)
	}
}

func TestValidateSentinels(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"missing api key", func(c *Config) { c.GeminiAPIKey = "" }, ErrMissingAPIKey},
		{"empty model name", func(c *Config) { c.ModelName = "" }, ErrInvalidModelName},
		{"empty embedder model", func(c *Config) { c.EmbedderModel = "" }, ErrInvalidEmbedderModel},
		{"negative history turns", func(c *Config) { c.MaxHistoryTurns = -1 }, ErrInvalidHistoryTurns},
		{"zero top-k", func(c *Config) { c.TopK = 0 }, ErrInvalidTopK},
		{"top-k too large", func(c *Config) { c.TopK = 101 }, ErrInvalidTopK},
		{"negative min score", func(c *Config) { c.MinScore = -0.1 }, ErrInvalidMinScore},
		{"min score above one", func(c *Config) { c.MinScore = 1.5 }, ErrInvalidMinScore},
		{"empty index name", func(c *Config) { c.IndexName = "" }, ErrInvalidIndexName},
		{"zero dimension", func(c *Config) { c.Dimension = 0 }, ErrInvalidDimension},
		{"dimension too large", func(c *Config) { c.Dimension = 5000 }, ErrInvalidDimension},
		{"unknown metric", func(c *Config) { c.Metric = "manhattan" }, ErrInvalidMetric},
		{"empty qdrant host", func(c *Config) { c.QdrantHost = "" }, ErrInvalidQdrantHost},
		{"qdrant port out of range", func(c *Config) { c.QdrantPort = 70000 }, ErrInvalidQdrantPort},
		{"zero batch size", func(c *Config) { c.BatchSize = 0 }, ErrInvalidBatchSize},
		{"batch size too large", func(c *Config) { c.BatchSize = 1001 }, ErrInvalidBatchSize},
		{"zero workers", func(c *Config) { c.SyncWorkers = 0 }, ErrInvalidWorkers},
		{"too many workers", func(c *Config) { c.SyncWorkers = 65 }, ErrInvalidWorkers},
		{"empty postgres host", func(c *Config) { c.PostgresHost = "" }, ErrInvalidPostgresHost},
		{"postgres port out of range", func(c *Config) { c.PostgresPort = 0 }, ErrInvalidPostgresPort},
		{"empty postgres db name", func(c *Config) { c.PostgresDBName = "" }, ErrInvalidPostgresDBName},
		{"unknown ssl mode", func(c *Config) { c.PostgresSSLMode = "maybe" }, ErrInvalidPostgresSSLMode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validBaseConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("Validate() error = %v, want %v", err, tt.want)
			}
		})
	}
}
