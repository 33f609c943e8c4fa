package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Backends selectable at startup.
const (
	BlobS3    = "s3"
	BlobMinio = "minio"

	AIGemini = "gemini"
	AIOpenAI = "openai"

	VectorPgvector = "pgvector"
	VectorQdrant   = "qdrant"
)

type Config struct {
	// Blob storage
	BlobBackend    string
	AwsAccessKey   string
	AwsSecretKey   string
	AwsRegion      string
	DocumentBucket string
	ImageBucket    string
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioUseSSL    bool

	// Models
	AIProvider     string
	AIAPIKey       string
	EmbedModel     string
	VisionModel    string
	OpenAIBaseURL  string
	OpenAIAPIKey   string
	OpenAIModel    string
	OpenAIEmbedder string
	LLMRPS         float64

	// Vector store
	VectorBackend    string
	DatabaseURL      string
	EmbedDim         int
	QdrantAddr       string
	QdrantAPIKey     string
	QdrantCollection string

	// Queue
	RedisURL          string
	QueueName         string
	QueuePollInterval time.Duration
	IngestWorkers     int

	// Pipeline tuning
	ChunkSize         int
	ChunkOverlap      int
	OCRMinChars       int
	OCRLanguage       string
	OCRWorkers        int
	PageConcurrency   int
	ImageConcurrency  int
	UploadConcurrency int
	WorkDir           string

	// HTTP
	Port      string
	JWTSecret string
	LogLevel  string
}

// LoadConfig loads the environment variables and returns a validated config.
func LoadConfig() (*Config, error) {

	_ = godotenv.Load()

	cfg := &Config{
		BlobBackend:    strings.ToLower(getEnv("BLOB_BACKEND", BlobS3)),
		AwsAccessKey:   getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey:   getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:      getEnv("AWS_REGION", "us-east-2"),
		DocumentBucket: getEnv("DOCUMENT_BUCKET", "flowllm-files"),
		ImageBucket:    getEnv("IMAGE_BUCKET", "flowllm-bucket"),
		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),

		AIProvider:     strings.ToLower(getEnv("AI_PROVIDER", AIGemini)),
		AIAPIKey:       getEnv("GEMINI_API_KEY", ""),
		EmbedModel:     getEnv("EMBED_MODEL", "text-embedding-004"),
		VisionModel:    getEnv("VISION_MODEL", "gemini-1.5-flash"),
		OpenAIBaseURL:  getEnv("OPENAI_BASE_URL", "https://openrouter.ai/api/v1"),
		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:    getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIEmbedder: getEnv("OPENAI_EMBED_MODEL", "text-embedding-3-small"),
		LLMRPS:         getEnvFloat("LLM_RPS", 0),

		VectorBackend:    strings.ToLower(getEnv("VECTOR_BACKEND", VectorPgvector)),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		EmbedDim:         getEnvInt("EMBED_DIM", 0),
		QdrantAddr:       getEnv("QDRANT_ADDR", "localhost:6334"),
		QdrantAPIKey:     getEnv("QDRANT_API_KEY", ""),
		QdrantCollection: getEnv("QDRANT_COLLECTION", "flowllm_files"),

		RedisURL:          getEnv("REDIS_URL", ""),
		QueueName:         getEnv("QUEUE_NAME", "files-to-process"),
		QueuePollInterval: getEnvDuration("QUEUE_POLL_INTERVAL", 0),
		IngestWorkers:     getEnvInt("INGEST_WORKERS", 2),

		ChunkSize:         getEnvInt("CHUNK_SIZE", 800),
		ChunkOverlap:      getEnvInt("CHUNK_OVERLAP", 50),
		OCRMinChars:       getEnvInt("OCR_MIN_CHARS", 200),
		OCRLanguage:       getEnv("OCR_LANGUAGE", "eng"),
		OCRWorkers:        getEnvInt("OCR_WORKERS", runtime.NumCPU()),
		PageConcurrency:   getEnvInt("PAGE_CONCURRENCY", 8),
		ImageConcurrency:  getEnvInt("IMAGE_CONCURRENCY", 8),
		UploadConcurrency: getEnvInt("UPLOAD_CONCURRENCY", 25),
		WorkDir:           getEnv("WORK_DIR", os.TempDir()),

		Port:      getEnv("PORT", "8080"),
		JWTSecret: getEnv("JWT_SECRET", ""),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
	}

	if cfg.EmbedDim == 0 {
		cfg.EmbedDim = defaultEmbedDim(cfg.AIProvider)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that every selected backend has what it needs.
func (c *Config) Validate() error {
	var errs []error

	switch c.BlobBackend {
	case BlobS3:
		if c.AwsAccessKey == "" || c.AwsSecretKey == "" {
			errs = append(errs, errors.New("AWS_ACCESS_KEY and AWS_SECRET_KEY must be set"))
		}
	case BlobMinio:
		if c.MinioAccessKey == "" || c.MinioSecretKey == "" {
			errs = append(errs, errors.New("MINIO_ACCESS_KEY and MINIO_SECRET_KEY must be set"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown BLOB_BACKEND %q", c.BlobBackend))
	}

	switch c.AIProvider {
	case AIGemini:
		if c.AIAPIKey == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY not set"))
		}
	case AIOpenAI:
		if c.OpenAIAPIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY not set"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown AI_PROVIDER %q", c.AIProvider))
	}

	switch c.VectorBackend {
	case VectorPgvector:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL not set"))
		}
	case VectorQdrant:
		if c.QdrantAddr == "" {
			errs = append(errs, errors.New("QDRANT_ADDR not set"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown VECTOR_BACKEND %q", c.VectorBackend))
	}

	if c.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("CHUNK_SIZE must be positive, got %d", c.ChunkSize))
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		errs = append(errs, fmt.Errorf("CHUNK_OVERLAP must be in [0, CHUNK_SIZE), got %d", c.ChunkOverlap))
	}
	if c.UploadConcurrency < 1 {
		errs = append(errs, fmt.Errorf("UPLOAD_CONCURRENCY must be at least 1, got %d", c.UploadConcurrency))
	}

	return errors.Join(errs...)
}

// defaultEmbedDim is the output size of each provider's default embedding model.
func defaultEmbedDim(provider string) int {
	if provider == AIOpenAI {
		return 1536
	}
	return 768
}

// SlogLevel maps LOG_LEVEL onto a slog level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("env value is not an int, using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}

func getEnvFloat(key string, def float64) float64 {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		slog.Warn("env value is not a number, using default", "key", key, "value", v, "default", def)
		return def
	}
	return f
}

func getEnvBool(key string, def bool) bool {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("env value is not a bool, using default", "key", key, "value", v, "default", def)
		return def
	}
	return b
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("env value is not a duration, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}
