package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"aura-documents"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	OpenAIAPIKey        string  `envconfig:"OPENAI_API_KEY"`
	EmbeddingModel      string  `envconfig:"EMBEDDING_MODEL" default:"text-embedding-ada-002"`
	EmbeddingDimensions int     `envconfig:"EMBEDDING_DIMENSIONS" default:"1536"`
	LLMModel            string  `envconfig:"LLM_MODEL" default:"gpt-4-turbo-preview"`
	TitleModel          string  `envconfig:"TITLE_MODEL" default:"gpt-3.5-turbo"`
	LLMTemperature      float32 `envconfig:"LLM_TEMPERATURE" default:"0.7"`
	LLMMaxTokens        int     `envconfig:"LLM_MAX_TOKENS" default:"2000"`

	ScoreThreshold float32 `envconfig:"SCORE_THRESHOLD" default:"0.7"`
	MaxContextDocs int     `envconfig:"MAX_CONTEXT_DOCS" default:"5"`
	ChunkSize      int     `envconfig:"CHUNK_SIZE" default:"1000"`
	ChunkOverlap   int     `envconfig:"CHUNK_OVERLAP" default:"200"`

	// VectorBackend selects the vector index adapter: "pgvector" or "qdrant".
	VectorBackend    string `envconfig:"VECTOR_BACKEND" default:"pgvector"`
	QdrantURL        string `envconfig:"QDRANT_URL"`
	QdrantAPIKey     string `envconfig:"QDRANT_API_KEY"`
	QdrantCollection string `envconfig:"QDRANT_COLLECTION" default:"aura_documents"`

	IngestPollInterval time.Duration `envconfig:"INGEST_POLL_INTERVAL" default:"5s"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("AURA", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) HasQdrant() bool {
	return c.VectorBackend == "qdrant" && c.QdrantURL != ""
}
