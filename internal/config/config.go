package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds every runtime parameter, sourced from environment variables.
type Config struct {
	HTTPPort string `envconfig:"HTTP_PORT" default:"8080"`

	DBFile string `envconfig:"DB_FILE" default:"data/questionnaire.db"`

	// S3 archive for uploaded source files
	S3Endpoint        string `envconfig:"S3_ENDPOINT" default:"localhost:9000"`
	S3AccessKeyID     string `envconfig:"S3_ACCESS_KEY_ID" default:"minioadmin"`
	S3SecretAccessKey string `envconfig:"S3_SECRET_ACCESS_KEY" default:"minioadmin"`
	S3BucketName      string `envconfig:"S3_BUCKET_NAME" default:"questionnaire-uploads"`
	S3UseSSL          bool   `envconfig:"S3_USE_SSL" default:"false"`

	// OpenAI-compatible endpoints for chat completions and embeddings
	LLMBaseURL     string `envconfig:"LLM_BASE_URL" default:"https://openrouter.ai/api/v1"`
	LLMAPIKey      string `envconfig:"LLM_API_KEY" required:"true"`
	LLMModel       string `envconfig:"LLM_MODEL" default:"openai/gpt-4o-mini"`
	EmbeddingModel string `envconfig:"EMBEDDING_MODEL" default:"openai/text-embedding-3-small"`

	MaxUploadSize int64 `envconfig:"MAX_UPLOAD_SIZE" default:"104857600"`

	RetrievalTopK int `envconfig:"RETRIEVAL_TOP_K" default:"6"`

	// Jobs stuck in RUNNING longer than JobTimeout are failed by the
	// reconciliation sweep.
	JobTimeout        time.Duration `envconfig:"JOB_TIMEOUT" default:"30m"`
	ReconcileSchedule string        `envconfig:"RECONCILE_SCHEDULE" default:"@every 1m"`
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, err
	}
	return &c, nil
}
