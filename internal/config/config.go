package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/core/domain"
)

const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"

	ThresholdFixed    = "fixed"
	ThresholdAdaptive = "adaptive"
)

type Config struct {
	APIPort  string `yaml:"api_port" validate:"required"`
	LogLevel string `yaml:"log_level" validate:"oneof=debug info warn error"`

	// CorpusDSN selects the corpus backend: postgres://, sqlite:<path> or memory://.
	CorpusDSN   string `yaml:"corpus_dsn" validate:"required"`
	StoragePath string `yaml:"storage_path" validate:"required"`

	NATSURL        string `yaml:"nats_url"`
	NATSSubject    string `yaml:"nats_subject" validate:"required"`
	NATSQueueGroup string `yaml:"nats_queue_group" validate:"required"`

	LLMProvider       string  `yaml:"llm_provider" validate:"oneof=ollama openai"`
	LLMBaseURL        string  `yaml:"llm_base_url" validate:"omitempty,url"`
	LLMAPIKey         string  `yaml:"llm_api_key"`
	LLMChatModel      string  `yaml:"llm_chat_model" validate:"required"`
	LLMEmbedModel     string  `yaml:"llm_embed_model" validate:"required"`
	LLMTimeoutSeconds int     `yaml:"llm_timeout_seconds" validate:"gt=0"`
	LLMMaxTokens      int     `yaml:"llm_max_tokens" validate:"gte=0"`
	LLMTemperature    float64 `yaml:"llm_temperature" validate:"gte=0,lte=2"`

	ChunkSize        int   `yaml:"chunk_size" validate:"gt=0"`
	ChunkOverlap     int   `yaml:"chunk_overlap" validate:"gte=0,ltfield=ChunkSize"`
	EmbedBatchSize   int   `yaml:"embed_batch_size" validate:"gt=0"`
	EmbedConcurrency int   `yaml:"embed_concurrency" validate:"gt=0"`
	MaxUploadBytes   int64 `yaml:"max_upload_bytes" validate:"gt=0"`

	RAGTopK               int       `yaml:"rag_top_k" validate:"gt=0"`
	RAGThresholdMode      string    `yaml:"rag_threshold_mode" validate:"oneof=fixed adaptive"`
	RAGMinAccept          float64   `yaml:"rag_min_accept" validate:"gte=-1,lte=1"`
	RAGAdaptiveThresholds []float64 `yaml:"rag_adaptive_thresholds" validate:"required_if=RAGThresholdMode adaptive,dive,gte=-1,lte=1"`
	RAGExcerptWords       int       `yaml:"rag_excerpt_words" validate:"gte=0"`
	RAGExcerptChars       int       `yaml:"rag_excerpt_chars" validate:"gte=0"`
	RAGContextMaxChars    int       `yaml:"rag_context_max_chars" validate:"gte=0"`
	RAGExpansionSuffix    string    `yaml:"rag_expansion_suffix"`
	RAGInstruction        string    `yaml:"rag_instruction"`

	APIRateLimitRPS   float64 `yaml:"api_rate_limit_rps" validate:"gte=0"`
	APIRateLimitBurst int     `yaml:"api_rate_limit_burst" validate:"gte=0"`
	APIMaxInFlight    int     `yaml:"api_max_in_flight" validate:"gte=0"`

	ResilienceRetryMaxAttempts      int     `yaml:"resilience_retry_max_attempts" validate:"gt=0"`
	ResilienceRetryInitialBackoffMS int     `yaml:"resilience_retry_initial_backoff_ms" validate:"gte=0"`
	ResilienceRetryMaxBackoffMS     int     `yaml:"resilience_retry_max_backoff_ms" validate:"gte=0"`
	ResilienceBreakerEnabled        bool    `yaml:"resilience_breaker_enabled"`
	ResilienceBreakerMinRequests    int     `yaml:"resilience_breaker_min_requests" validate:"gte=0"`
	ResilienceBreakerFailureRatio   float64 `yaml:"resilience_breaker_failure_ratio" validate:"gte=0,lte=1"`
	ResilienceBreakerOpenSeconds    int     `yaml:"resilience_breaker_open_seconds" validate:"gte=0"`

	WorkerMetricsPort           string `yaml:"worker_metrics_port"`
	WorkerHandlerTimeoutSeconds int    `yaml:"worker_handler_timeout_seconds" validate:"gt=0"`
}

func Defaults() Config {
	return Config{
		APIPort:  "8080",
		LogLevel: "info",

		CorpusDSN:   "sqlite:./data/nebras.db",
		StoragePath: "./data/storage",

		NATSURL:        "",
		NATSSubject:    "nebras.documents.ingest",
		NATSQueueGroup: "ingestion-workers",

		LLMProvider:       ProviderOpenAI,
		LLMChatModel:      "mistralai/mistral-7b-instruct-v0.3",
		LLMEmbedModel:     "text-embedding-intfloat-multilingual-e5-large-instruct",
		LLMTimeoutSeconds: 120,
		LLMMaxTokens:      700,
		LLMTemperature:    0.3,

		ChunkSize:        400,
		ChunkOverlap:     40,
		EmbedBatchSize:   16,
		EmbedConcurrency: 4,
		MaxUploadBytes:   64 << 20,

		RAGTopK:               5,
		RAGThresholdMode:      ThresholdAdaptive,
		RAGMinAccept:          0.55,
		RAGAdaptiveThresholds: []float64{0.80, 0.70, 0.60},
		RAGExcerptWords:       20,
		RAGContextMaxChars:    0,

		APIRateLimitRPS:   20,
		APIRateLimitBurst: 40,
		APIMaxInFlight:    64,

		ResilienceRetryMaxAttempts:      3,
		ResilienceRetryInitialBackoffMS: 100,
		ResilienceRetryMaxBackoffMS:     400,
		ResilienceBreakerEnabled:        true,
		ResilienceBreakerMinRequests:    10,
		ResilienceBreakerFailureRatio:   0.5,
		ResilienceBreakerOpenSeconds:    30,

		WorkerMetricsPort:           "9090",
		WorkerHandlerTimeoutSeconds: 300,
	}
}

// Load layers defaults, the optional YAML file named by NEBRAS_CONFIG_FILE,
// a .env file and the process environment, then validates the result.
func Load() (Config, error) {
	cfg := Defaults()

	if path := os.Getenv("NEBRAS_CONFIG_FILE"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, domain.WrapError(domain.ErrInvalidInput, "load config", err)
		}
	}

	envFile := mustEnv("NEBRAS_ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, domain.WrapError(domain.ErrInvalidInput, "load config", fmt.Errorf("read %s: %w", envFile, err))
	}

	applyEnv(&cfg)
	applyProviderDefaults(&cfg)

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.APIPort = mustEnv("API_PORT", cfg.APIPort)
	cfg.LogLevel = strings.ToLower(mustEnv("LOG_LEVEL", cfg.LogLevel))

	cfg.CorpusDSN = mustEnv("CORPUS_DSN", cfg.CorpusDSN)
	cfg.StoragePath = mustEnv("STORAGE_PATH", cfg.StoragePath)

	cfg.NATSURL = mustEnv("NATS_URL", cfg.NATSURL)
	cfg.NATSSubject = mustEnv("NATS_SUBJECT", cfg.NATSSubject)
	cfg.NATSQueueGroup = mustEnv("NATS_QUEUE_GROUP", cfg.NATSQueueGroup)

	cfg.LLMProvider = strings.ToLower(mustEnv("LLM_PROVIDER", cfg.LLMProvider))
	cfg.LLMBaseURL = mustEnv("LLM_BASE_URL", cfg.LLMBaseURL)
	cfg.LLMAPIKey = mustEnv("LLM_API_KEY", cfg.LLMAPIKey)
	cfg.LLMChatModel = mustEnv("LLM_CHAT_MODEL", cfg.LLMChatModel)
	cfg.LLMEmbedModel = mustEnv("LLM_EMBED_MODEL", cfg.LLMEmbedModel)
	cfg.LLMTimeoutSeconds = mustEnvInt("LLM_TIMEOUT_SECONDS", cfg.LLMTimeoutSeconds)
	cfg.LLMMaxTokens = mustEnvInt("LLM_MAX_TOKENS", cfg.LLMMaxTokens)
	cfg.LLMTemperature = mustEnvFloat("LLM_TEMPERATURE", cfg.LLMTemperature)

	cfg.ChunkSize = mustEnvInt("CHUNK_SIZE", cfg.ChunkSize)
	cfg.ChunkOverlap = mustEnvInt("CHUNK_OVERLAP", cfg.ChunkOverlap)
	cfg.EmbedBatchSize = mustEnvInt("EMBED_BATCH_SIZE", cfg.EmbedBatchSize)
	cfg.EmbedConcurrency = mustEnvInt("EMBED_CONCURRENCY", cfg.EmbedConcurrency)
	cfg.MaxUploadBytes = int64(mustEnvInt("MAX_UPLOAD_BYTES", int(cfg.MaxUploadBytes)))

	cfg.RAGTopK = mustEnvInt("RAG_TOP_K", cfg.RAGTopK)
	cfg.RAGThresholdMode = strings.ToLower(mustEnv("RAG_THRESHOLD_MODE", cfg.RAGThresholdMode))
	cfg.RAGMinAccept = mustEnvFloat("RAG_MIN_ACCEPT", cfg.RAGMinAccept)
	cfg.RAGAdaptiveThresholds = mustEnvFloats("RAG_ADAPTIVE_THRESHOLDS", cfg.RAGAdaptiveThresholds)
	cfg.RAGExcerptWords = mustEnvInt("RAG_EXCERPT_WORDS", cfg.RAGExcerptWords)
	cfg.RAGExcerptChars = mustEnvInt("RAG_EXCERPT_CHARS", cfg.RAGExcerptChars)
	cfg.RAGContextMaxChars = mustEnvInt("RAG_CONTEXT_MAX_CHARS", cfg.RAGContextMaxChars)
	cfg.RAGExpansionSuffix = mustEnv("RAG_EXPANSION_SUFFIX", cfg.RAGExpansionSuffix)
	cfg.RAGInstruction = mustEnv("RAG_INSTRUCTION", cfg.RAGInstruction)

	cfg.APIRateLimitRPS = mustEnvFloat("API_RATE_LIMIT_RPS", cfg.APIRateLimitRPS)
	cfg.APIRateLimitBurst = mustEnvInt("API_RATE_LIMIT_BURST", cfg.APIRateLimitBurst)
	cfg.APIMaxInFlight = mustEnvInt("API_MAX_IN_FLIGHT", cfg.APIMaxInFlight)

	cfg.ResilienceRetryMaxAttempts = mustEnvInt("RESILIENCE_RETRY_MAX_ATTEMPTS", cfg.ResilienceRetryMaxAttempts)
	cfg.ResilienceRetryInitialBackoffMS = mustEnvInt("RESILIENCE_RETRY_INITIAL_BACKOFF_MS", cfg.ResilienceRetryInitialBackoffMS)
	cfg.ResilienceRetryMaxBackoffMS = mustEnvInt("RESILIENCE_RETRY_MAX_BACKOFF_MS", cfg.ResilienceRetryMaxBackoffMS)
	cfg.ResilienceBreakerEnabled = mustEnvBool("RESILIENCE_BREAKER_ENABLED", cfg.ResilienceBreakerEnabled)
	cfg.ResilienceBreakerMinRequests = mustEnvInt("RESILIENCE_BREAKER_MIN_REQUESTS", cfg.ResilienceBreakerMinRequests)
	cfg.ResilienceBreakerFailureRatio = mustEnvFloat("RESILIENCE_BREAKER_FAILURE_RATIO", cfg.ResilienceBreakerFailureRatio)
	cfg.ResilienceBreakerOpenSeconds = mustEnvInt("RESILIENCE_BREAKER_OPEN_SECONDS", cfg.ResilienceBreakerOpenSeconds)

	cfg.WorkerMetricsPort = mustEnv("WORKER_METRICS_PORT", cfg.WorkerMetricsPort)
	cfg.WorkerHandlerTimeoutSeconds = mustEnvInt("WORKER_HANDLER_TIMEOUT_SECONDS", cfg.WorkerHandlerTimeoutSeconds)
}

func applyProviderDefaults(cfg *Config) {
	if cfg.LLMBaseURL != "" {
		return
	}
	switch cfg.LLMProvider {
	case ProviderOllama:
		cfg.LLMBaseURL = "http://localhost:11434"
	case ProviderOpenAI:
		cfg.LLMBaseURL = "http://127.0.0.1:1234/v1"
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate reports every invalid option as a single ErrInvalidInput.
func Validate(cfg Config) error {
	if err := validate.Struct(cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			msgs := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
			}
			err = errors.New(strings.Join(msgs, "; "))
		}
		return domain.WrapError(domain.ErrInvalidInput, "validate config", err)
	}
	if cfg.RAGThresholdMode == ThresholdAdaptive && len(cfg.RAGAdaptiveThresholds) == 0 {
		return domain.WrapError(domain.ErrInvalidInput, "validate config", errors.New("adaptive mode needs at least one threshold"))
	}
	return nil
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

// mustEnvFloats parses a comma separated list; any bad entry keeps fallback.
func mustEnvFloats(key string, fallback []float64) []float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return fallback
		}
		out = append(out, n)
	}
	return out
}
