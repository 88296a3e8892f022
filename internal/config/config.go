package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

type Config struct {
	Server     ServerConfig
	Redis      RedisConfig
	JWT        JWTConfig
	RateLimit  RateLimitConfig
	LLM        LLMConfig
	Serp       SerpConfig
	Pipeline   PipelineConfig
	Validation ValidationConfig
	Store      StoreConfig
	Storage    StorageConfig
	Zitadel    ZitadelConfig
	Gateway    GatewayConfig
}

type ServerConfig struct {
	Port      string
	Env       string
	LogLevel  string
	ApiDomain string
}

// IsDevelopment reports whether the service runs with development defaults.
func (s ServerConfig) IsDevelopment() bool {
	return s.Env == "development"
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration int // hours
}

type RateLimitConfig struct {
	JobsPerHour int
}

// LLMConfig configures the OpenAI-compatible generation client.
// An empty APIKey selects the offline mock in development.
type LLMConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	TextModel  string
	MaxRetries int
	Timeout    int // seconds
}

type SerpConfig struct {
	Provider string // mock | duckduckgo
	Results  int
	Timeout  int // seconds
}

type PipelineConfig struct {
	MaxRevisions      int
	DefaultWordCount  int
	DefaultLanguage   string
	Async             bool   // dispatch runs to the asynq worker
	Checkpoints       string // memory | redis
	CheckpointTTLHour int
}

type ValidationConfig struct {
	WordCountTolerance float64
	MetaDescriptionMin int
	MetaDescriptionMax int
	InternalLinksMin   int
	InternalLinksMax   int
	ExternalRefsMin    int
	ExternalRefsMax    int
}

type StoreConfig struct {
	Backend string // memory | redis
	TTLHour int    // 0 keeps records forever
}

// StorageConfig points at the S3-compatible bucket that archives finished
// articles. Endpoint wins over AccountID; with neither set archiving is off.
type StorageConfig struct {
	Endpoint        string
	Region          string
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicURL       string
}

// Enabled reports whether enough is configured to build a storage client.
func (s StorageConfig) Enabled() bool {
	return (s.Endpoint != "" || s.AccountID != "") &&
		s.AccessKeyID != "" && s.SecretAccessKey != "" && s.BucketName != ""
}

type ZitadelConfig struct {
	Domain   string
	ClientID string
	Issuer   string
}

type GatewayConfig struct {
	Enabled bool
}

func (c LLMConfig) RequestTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

func (c SerpConfig) RequestTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

func Load() (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("REDIS_PASSWORD")
	readSecret("LLM_API_KEY")
	readSecret("JWT_SECRET")
	readSecret("STORAGE_ACCESS_KEY_ID")
	readSecret("STORAGE_SECRET_ACCESS_KEY")
	readSecret("ZITADEL_CLIENT_ID")

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Environment variables
	v.AutomaticEnv()

	// Bind environment variables with underscores to nested config keys
	_ = v.BindEnv("server.port", "SERVER_PORT")
	_ = v.BindEnv("server.env", "SERVER_ENV")
	_ = v.BindEnv("server.log_level", "LOG_LEVEL")
	_ = v.BindEnv("server.api_domain", "API_DOMAIN")
	_ = v.BindEnv("redis.addr", "REDIS_ADDR")
	_ = v.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = v.BindEnv("redis.db", "REDIS_DB")
	_ = v.BindEnv("jwt.secret", "JWT_SECRET")
	_ = v.BindEnv("jwt.expiration", "JWT_EXPIRATION")
	_ = v.BindEnv("ratelimit.jobs_per_hour", "RATELIMIT_JOBS_PER_HOUR")
	_ = v.BindEnv("llm.api_key", "LLM_API_KEY")
	_ = v.BindEnv("llm.base_url", "LLM_BASE_URL")
	_ = v.BindEnv("llm.model", "LLM_MODEL")
	_ = v.BindEnv("llm.text_model", "LLM_TEXT_MODEL")
	_ = v.BindEnv("llm.max_retries", "LLM_MAX_RETRIES")
	_ = v.BindEnv("llm.timeout", "LLM_TIMEOUT")
	_ = v.BindEnv("serp.provider", "SERP_PROVIDER")
	_ = v.BindEnv("serp.results", "SERP_RESULTS")
	_ = v.BindEnv("serp.timeout", "SERP_TIMEOUT")
	_ = v.BindEnv("pipeline.max_revisions", "MAX_REVISIONS")
	_ = v.BindEnv("pipeline.default_word_count", "DEFAULT_WORD_COUNT")
	_ = v.BindEnv("pipeline.default_language", "DEFAULT_LANGUAGE")
	_ = v.BindEnv("pipeline.async", "PIPELINE_ASYNC")
	_ = v.BindEnv("pipeline.checkpoints", "PIPELINE_CHECKPOINTS")
	_ = v.BindEnv("pipeline.checkpoint_ttl_hours", "PIPELINE_CHECKPOINT_TTL_HOURS")
	_ = v.BindEnv("validation.word_count_tolerance", "WORD_COUNT_TOLERANCE")
	_ = v.BindEnv("validation.meta_description_min", "META_DESCRIPTION_MIN")
	_ = v.BindEnv("validation.meta_description_max", "META_DESCRIPTION_MAX")
	_ = v.BindEnv("validation.internal_links_min", "INTERNAL_LINKS_MIN")
	_ = v.BindEnv("validation.internal_links_max", "INTERNAL_LINKS_MAX")
	_ = v.BindEnv("validation.external_refs_min", "EXTERNAL_REFS_MIN")
	_ = v.BindEnv("validation.external_refs_max", "EXTERNAL_REFS_MAX")
	_ = v.BindEnv("store.backend", "STORE_BACKEND")
	_ = v.BindEnv("store.ttl_hours", "STORE_TTL_HOURS")
	_ = v.BindEnv("storage.endpoint", "STORAGE_ENDPOINT")
	_ = v.BindEnv("storage.region", "STORAGE_REGION")
	_ = v.BindEnv("storage.account_id", "STORAGE_ACCOUNT_ID")
	_ = v.BindEnv("storage.access_key_id", "STORAGE_ACCESS_KEY_ID")
	_ = v.BindEnv("storage.secret_access_key", "STORAGE_SECRET_ACCESS_KEY")
	_ = v.BindEnv("storage.bucket_name", "STORAGE_BUCKET_NAME")
	_ = v.BindEnv("storage.public_url", "STORAGE_PUBLIC_URL")
	_ = v.BindEnv("zitadel.domain", "ZITADEL_DOMAIN")
	_ = v.BindEnv("zitadel.client_id", "ZITADEL_CLIENT_ID")
	_ = v.BindEnv("zitadel.issuer", "ZITADEL_ISSUER")
	_ = v.BindEnv("gateway.enabled", "GATEWAY_ENABLED")

	// Defaults
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.env", "development")
	v.SetDefault("server.log_level", "info")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.secret", "change-me-in-production")
	v.SetDefault("jwt.expiration", 24)
	v.SetDefault("ratelimit.jobs_per_hour", 20)

	// LLM defaults
	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.text_model", "")
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.timeout", 120)

	// Result listing defaults
	v.SetDefault("serp.provider", "mock")
	v.SetDefault("serp.results", 10)
	v.SetDefault("serp.timeout", 15)

	// Pipeline defaults
	v.SetDefault("pipeline.max_revisions", 2)
	v.SetDefault("pipeline.default_word_count", 1500)
	v.SetDefault("pipeline.default_language", "en")
	v.SetDefault("pipeline.async", false)
	v.SetDefault("pipeline.checkpoints", "memory")
	v.SetDefault("pipeline.checkpoint_ttl_hours", 72)

	// Quality gate defaults
	v.SetDefault("validation.word_count_tolerance", 0.15)
	v.SetDefault("validation.meta_description_min", 140)
	v.SetDefault("validation.meta_description_max", 160)
	v.SetDefault("validation.internal_links_min", 3)
	v.SetDefault("validation.internal_links_max", 5)
	v.SetDefault("validation.external_refs_min", 2)
	v.SetDefault("validation.external_refs_max", 4)

	// Store defaults
	v.SetDefault("store.backend", "memory")
	v.SetDefault("store.ttl_hours", 0)

	v.SetDefault("storage.region", "auto")

	// Gateway defaults
	v.SetDefault("gateway.enabled", false)

	// Try to read config file (optional)
	_ = v.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:      v.GetString("server.port"),
			Env:       v.GetString("server.env"),
			LogLevel:  v.GetString("server.log_level"),
			ApiDomain: v.GetString("server.api_domain"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:     v.GetString("jwt.secret"),
			Expiration: v.GetInt("jwt.expiration"),
		},
		RateLimit: RateLimitConfig{
			JobsPerHour: v.GetInt("ratelimit.jobs_per_hour"),
		},
		LLM: LLMConfig{
			APIKey:     v.GetString("llm.api_key"),
			BaseURL:    v.GetString("llm.base_url"),
			Model:      v.GetString("llm.model"),
			TextModel:  v.GetString("llm.text_model"),
			MaxRetries: v.GetInt("llm.max_retries"),
			Timeout:    v.GetInt("llm.timeout"),
		},
		Serp: SerpConfig{
			Provider: strings.ToLower(v.GetString("serp.provider")),
			Results:  v.GetInt("serp.results"),
			Timeout:  v.GetInt("serp.timeout"),
		},
		Pipeline: PipelineConfig{
			MaxRevisions:      v.GetInt("pipeline.max_revisions"),
			DefaultWordCount:  v.GetInt("pipeline.default_word_count"),
			DefaultLanguage:   v.GetString("pipeline.default_language"),
			Async:             v.GetBool("pipeline.async"),
			Checkpoints:       strings.ToLower(v.GetString("pipeline.checkpoints")),
			CheckpointTTLHour: v.GetInt("pipeline.checkpoint_ttl_hours"),
		},
		Validation: ValidationConfig{
			WordCountTolerance: v.GetFloat64("validation.word_count_tolerance"),
			MetaDescriptionMin: v.GetInt("validation.meta_description_min"),
			MetaDescriptionMax: v.GetInt("validation.meta_description_max"),
			InternalLinksMin:   v.GetInt("validation.internal_links_min"),
			InternalLinksMax:   v.GetInt("validation.internal_links_max"),
			ExternalRefsMin:    v.GetInt("validation.external_refs_min"),
			ExternalRefsMax:    v.GetInt("validation.external_refs_max"),
		},
		Store: StoreConfig{
			Backend: strings.ToLower(v.GetString("store.backend")),
			TTLHour: v.GetInt("store.ttl_hours"),
		},
		Storage: StorageConfig{
			Endpoint:        v.GetString("storage.endpoint"),
			Region:          v.GetString("storage.region"),
			AccountID:       v.GetString("storage.account_id"),
			AccessKeyID:     v.GetString("storage.access_key_id"),
			SecretAccessKey: v.GetString("storage.secret_access_key"),
			BucketName:      v.GetString("storage.bucket_name"),
			PublicURL:       v.GetString("storage.public_url"),
		},
		Zitadel: ZitadelConfig{
			Domain:   v.GetString("zitadel.domain"),
			ClientID: v.GetString("zitadel.client_id"),
			Issuer:   v.GetString("zitadel.issuer"),
		},
		Gateway: GatewayConfig{
			Enabled: v.GetBool("gateway.enabled"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Pipeline.MaxRevisions < 0 {
		return fmt.Errorf("pipeline.max_revisions must be >= 0, got %d", c.Pipeline.MaxRevisions)
	}
	if c.Pipeline.DefaultWordCount <= 0 {
		return fmt.Errorf("pipeline.default_word_count must be > 0, got %d", c.Pipeline.DefaultWordCount)
	}
	if strings.TrimSpace(c.Pipeline.DefaultLanguage) == "" {
		return fmt.Errorf("pipeline.default_language must not be empty")
	}
	if c.LLM.APIKey == "" && !c.Server.IsDevelopment() {
		return fmt.Errorf("llm.api_key is required when server.env is %q", c.Server.Env)
	}
	if c.LLM.MaxRetries < 1 {
		return fmt.Errorf("llm.max_retries must be >= 1, got %d", c.LLM.MaxRetries)
	}
	if c.Serp.Results <= 0 {
		return fmt.Errorf("serp.results must be > 0, got %d", c.Serp.Results)
	}
	switch c.Serp.Provider {
	case "mock", "duckduckgo":
	default:
		return fmt.Errorf("unsupported serp.provider %q", c.Serp.Provider)
	}
	switch c.Store.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported store.backend %q", c.Store.Backend)
	}
	switch c.Pipeline.Checkpoints {
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported pipeline.checkpoints %q", c.Pipeline.Checkpoints)
	}
	v := c.Validation
	if v.WordCountTolerance < 0 || v.WordCountTolerance >= 1 {
		return fmt.Errorf("validation.word_count_tolerance must be in [0, 1), got %v", v.WordCountTolerance)
	}
	if v.MetaDescriptionMin > v.MetaDescriptionMax || v.InternalLinksMin > v.InternalLinksMax || v.ExternalRefsMin > v.ExternalRefsMax {
		return fmt.Errorf("validation windows must have min <= max")
	}
	return nil
}
