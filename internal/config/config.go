package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`

	// EmbedBaseURL points the OpenAI client at a local OpenAI-compatible
	// backend (e.g. an Ollama /v1 endpoint). Empty means api.openai.com.
	EmbedBaseURL      string        `envconfig:"EMBED_BASE_URL"`
	EmbedModel        string        `envconfig:"EMBED_MODEL" default:"text-embedding-3-small"`
	EmbedDimension    int           `envconfig:"EMBED_DIMENSION"`
	EmbedTimeout      time.Duration `envconfig:"EMBED_TIMEOUT" default:"30s"`
	EmbedZeroFallback bool          `envconfig:"EMBED_ZERO_FALLBACK" default:"false"`

	ChatBaseURL string        `envconfig:"CHAT_BASE_URL"`
	ChatModel   string        `envconfig:"CHAT_MODEL" default:"gpt-4o-mini"`
	ChatTimeout time.Duration `envconfig:"CHAT_TIMEOUT" default:"60s"`

	TopK           int   `envconfig:"TOP_K" default:"3"`
	ChunkSize      int   `envconfig:"CHUNK_SIZE" default:"1000"`
	ChunkOverlap   int   `envconfig:"CHUNK_OVERLAP" default:"200"`
	UploadDir      string `envconfig:"UPLOAD_DIR"`
	MaxUploadBytes int64 `envconfig:"MAX_UPLOAD_BYTES" default:"26214400"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"recall-uploads"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	SentryDSN        string  `envconfig:"SENTRY_DSN"`
	SentryEnv        string  `envconfig:"SENTRY_ENVIRONMENT"`
	SentrySampleRate float64 `envconfig:"SENTRY_TRACES_SAMPLE_RATE"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("RECALL", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// HasS3 reports whether raw uploads should be archived to object storage.
func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}
