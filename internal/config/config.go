package config

import (
	"edu_copilot_backend/internal/ranking"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig
	Log         LogConfig `mapstructure:"log"`
	Database    DatabaseConfig
	JWT         JWTConfig
	Storage     StorageConfig
	Tracing     TracingConfig `mapstructure:"tracing"`
	Redis       RedisConfig
	AzureSearch AzureSearchConfig `mapstructure:"azure_search"`
	AzureOpenAI AzureOpenAIConfig `mapstructure:"azure_openai"`
	Breaker     BreakerConfig     `mapstructure:"breaker"`
	Retrieval   RetrievalConfig   `mapstructure:"retrieval"`
	Ranking     ranking.Weights   `mapstructure:"ranking"`
	Planner     PlannerConfig     `mapstructure:"planner"`
	Scheduler   SchedulerConfig   `mapstructure:"scheduler"`
	CORS        CORSConfig        `mapstructure:"cors"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`

	// 运行时标志（非配置文件，通过命令行参数设置）
	ForceMigrate bool   `mapstructure:"-"`
	MigrateOnly  bool   `mapstructure:"-"`
	ConfigDir    string `mapstructure:"-"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowMinutes int `mapstructure:"window_minutes"`
}

// LogConfig 滚动日志文件；Level 为空时按 server.mode 决定
type LogConfig struct {
	File       string `mapstructure:"file"`
	Level      string `mapstructure:"level"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

type ServerConfig struct {
	Port string
	Mode string
}

type DatabaseConfig struct {
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	Charset   string
	ParseTime bool
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	ExpireTime time.Duration `mapstructure:"expire_hours"`
}

type StorageConfig struct {
	Type          string `mapstructure:"type"`
	LocalPath     string `mapstructure:"local_path"`
	MinioEndpoint string `mapstructure:"minio_endpoint"`
	MinioAccessID string `mapstructure:"minio_access_key"`
	MinioSecret   string `mapstructure:"minio_secret_key"`
	MinioBucket   string `mapstructure:"minio_bucket"`
	MinioUseSSL   bool   `mapstructure:"minio_use_ssl"`
	ExportPrefix  string `mapstructure:"export_prefix"`
}

type TracingConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	ServiceName       string  `mapstructure:"service_name"`
	CollectorEndpoint string  `mapstructure:"collector_endpoint"`
	SampleRatio       float64 `mapstructure:"sample_ratio"`
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// AzureSearchConfig 托管搜索索引
type AzureSearchConfig struct {
	Endpoint          string        `mapstructure:"endpoint"`
	APIKey            string        `mapstructure:"api_key"`
	APIVersion        string        `mapstructure:"api_version"`
	ContentIndex      string        `mapstructure:"content_index"`
	ProfileIndex      string        `mapstructure:"profile_index"`
	PlanIndex         string        `mapstructure:"plan_index"`
	VectorField       string        `mapstructure:"vector_field"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	Timeout           time.Duration `mapstructure:"timeout"`
}

type AzureOpenAIConfig struct {
	Endpoint            string        `mapstructure:"endpoint"`
	APIKey              string        `mapstructure:"api_key"`
	APIVersion          string        `mapstructure:"api_version"`
	Deployment          string        `mapstructure:"deployment"`
	EmbeddingDeployment string        `mapstructure:"embedding_deployment"`
	Temperature         float64       `mapstructure:"temperature"`
	Timeout             time.Duration `mapstructure:"timeout"`
	MaxRetries          int           `mapstructure:"max_retries"`
	RetryWait           time.Duration `mapstructure:"retry_wait"`
}

// BreakerConfig 外部服务熔断参数
type BreakerConfig struct {
	MaxRequests      uint32        `mapstructure:"max_requests"`
	Interval         time.Duration `mapstructure:"interval"`
	Timeout          time.Duration `mapstructure:"timeout"`
	FailureThreshold uint32        `mapstructure:"failure_threshold"`
}

type RetrievalConfig struct {
	StageTimeout      time.Duration `mapstructure:"stage_timeout"`
	DefaultK          int           `mapstructure:"default_k"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl"`
	EmbeddingCacheTTL time.Duration `mapstructure:"embedding_cache_ttl"`
}

type PlannerConfig struct {
	ContentIDPolicy string `mapstructure:"content_id_policy"` // substitute | null
	DailyMinutes    int    `mapstructure:"daily_minutes"`
	DefaultPeriod   string `mapstructure:"default_period"`
}

type SchedulerConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	WarmupSpec     string   `mapstructure:"warmup_spec"`
	WarmupSubjects []string `mapstructure:"warmup_subjects"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("log.file", "logs/app.log")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.compress", true)
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_path", "uploads")
	v.SetDefault("storage.export_prefix", "plans")
	v.SetDefault("tracing.service_name", "edu-copilot-backend")
	v.SetDefault("tracing.sample_ratio", 1.0)

	v.SetDefault("azure_search.api_version", "2023-11-01")
	v.SetDefault("azure_search.content_index", "educational-content")
	v.SetDefault("azure_search.profile_index", "user-profiles")
	v.SetDefault("azure_search.plan_index", "learning-plans")
	v.SetDefault("azure_search.vector_field", "embedding")
	v.SetDefault("azure_search.requests_per_second", 10)
	v.SetDefault("azure_search.burst", 20)
	v.SetDefault("azure_search.timeout", "20s")

	v.SetDefault("azure_openai.api_version", "2023-05-15")
	v.SetDefault("azure_openai.deployment", "gpt-4")
	v.SetDefault("azure_openai.embedding_deployment", "text-embedding-ada-002")
	v.SetDefault("azure_openai.temperature", 0.7)
	v.SetDefault("azure_openai.timeout", "30s")
	v.SetDefault("azure_openai.max_retries", 3)
	v.SetDefault("azure_openai.retry_wait", "1s")

	v.SetDefault("breaker.max_requests", 1)
	v.SetDefault("breaker.interval", "60s")
	v.SetDefault("breaker.timeout", "30s")
	v.SetDefault("breaker.failure_threshold", 5)

	v.SetDefault("retrieval.stage_timeout", "15s")
	v.SetDefault("retrieval.default_k", 10)
	v.SetDefault("retrieval.cache_ttl", "10m")
	v.SetDefault("retrieval.embedding_cache_ttl", "24h")

	v.SetDefault("planner.content_id_policy", "substitute")
	v.SetDefault("planner.daily_minutes", 60)
	v.SetDefault("planner.default_period", "one_month")

	v.SetDefault("scheduler.enabled", false)
	v.SetDefault("scheduler.warmup_spec", "0 2 * * *")

	v.SetDefault("rate_limit.max_requests", 600)
	v.SetDefault("rate_limit.window_minutes", 1)
}

func bindEnvs(v *viper.Viper) {
	// Database
	v.BindEnv("database.host", "DATABASE_HOST")
	v.BindEnv("database.port", "DATABASE_PORT")
	v.BindEnv("database.user", "DATABASE_USER")
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("database.dbname", "DATABASE_NAME")

	// JWT
	v.BindEnv("jwt.secret", "JWT_SECRET")

	// Redis
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// Server
	v.BindEnv("server.mode", "SERVER_MODE")
	v.BindEnv("server.port", "SERVER_PORT")
	v.BindEnv("log.level", "LOG_LEVEL")

	// Azure AI Search
	v.BindEnv("azure_search.endpoint", "AZURE_SEARCH_ENDPOINT")
	v.BindEnv("azure_search.api_key", "AZURE_SEARCH_KEY")
	v.BindEnv("azure_search.content_index", "AZURE_SEARCH_INDEX_NAME")

	// Azure OpenAI
	v.BindEnv("azure_openai.endpoint", "AZURE_OPENAI_ENDPOINT")
	v.BindEnv("azure_openai.api_key", "AZURE_OPENAI_KEY")
	v.BindEnv("azure_openai.api_version", "AZURE_OPENAI_API_VERSION")
	v.BindEnv("azure_openai.deployment", "AZURE_OPENAI_DEPLOYMENT")
	v.BindEnv("azure_openai.embedding_deployment", "AZURE_OPENAI_EMBEDDING_DEPLOYMENT")

	// Storage
	v.BindEnv("storage.type", "STORAGE_TYPE")
	v.BindEnv("storage.minio_endpoint", "MINIO_ENDPOINT")
	v.BindEnv("storage.minio_access_key", "MINIO_ACCESS_KEY")
	v.BindEnv("storage.minio_secret_key", "MINIO_SECRET_KEY")
	v.BindEnv("storage.minio_bucket", "MINIO_BUCKET")

	// Tracing
	v.BindEnv("tracing.enabled", "TRACING_ENABLED")
	v.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("EDU_COPILOT")
	v.AutomaticEnv()

	setDefaults(v)
	bindEnvs(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.ConfigDir = path

	if err := cfg.finalize(); err != nil {
		return nil, err
	}

	if cfg.Storage.Type == "local" {
		if _, err := os.Stat(cfg.Storage.LocalPath); os.IsNotExist(err) {
			os.MkdirAll(cfg.Storage.LocalPath, 0755)
		}
	}

	return &cfg, nil
}

// finalize 合并排序权重默认值并做取值校验
func (cfg *Config) finalize() error {
	cfg.JWT.ExpireTime = cfg.JWT.ExpireTime * time.Hour
	if cfg.JWT.ExpireTime == 0 {
		cfg.JWT.ExpireTime = 24 * time.Hour
	}

	// 生产环境校验 JWT Secret 强度
	if cfg.Server.Mode == "release" && len(cfg.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret is too short (%d chars), must be at least 32 characters in release mode", len(cfg.JWT.Secret))
	}

	if cfg.Retrieval.StageTimeout < 10*time.Second || cfg.Retrieval.StageTimeout > 30*time.Second {
		return fmt.Errorf("retrieval.stage_timeout must be between 10s and 30s, got %s", cfg.Retrieval.StageTimeout)
	}

	switch cfg.Planner.ContentIDPolicy {
	case "substitute", "null":
	default:
		return fmt.Errorf("planner.content_id_policy must be substitute or null, got %q", cfg.Planner.ContentIDPolicy)
	}

	cfg.Ranking = *ranking.MergeWeights(ranking.DefaultWeights(), &cfg.Ranking)
	return nil
}
