package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 應用配置
type Config struct {
	App         AppConfig       `mapstructure:"app"`
	Server      ServerConfig    `mapstructure:"server"`
	Index       IndexConfig     `mapstructure:"index"`
	Embedding   EmbeddingConfig `mapstructure:"embedding"`
	Nutrition   NutritionConfig `mapstructure:"nutrition"`
	Recommend   RecommendConfig `mapstructure:"recommend"`
	Cache       CacheConfig     `mapstructure:"cache"`
	Redis       RedisConfig     `mapstructure:"redis"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
	Breaker     BreakerConfig   `mapstructure:"breaker"`
	Metrics     MetricsConfig   `mapstructure:"metrics"`
	DedupWindow time.Duration   `mapstructure:"dedup_window"`
	LogLevel    string          `mapstructure:"log_level"`
	LogFile     string          `mapstructure:"log_file"`
}

// AppConfig 應用程式設定
type AppConfig struct {
	Env     string `mapstructure:"env"`
	Debug   bool   `mapstructure:"debug"`
	Version string `mapstructure:"version"`
	Name    string `mapstructure:"name"`
}

// ServerConfig 服務器配置
type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"`
}

// IndexConfig 向量索引檔設定
type IndexConfig struct {
	Path string `mapstructure:"path"`
}

// EmbeddingConfig embedding 服務設定
type EmbeddingConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// NutritionConfig 營養分析供應商設定
type NutritionConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	AppID      string        `mapstructure:"app_id"`
	AppKey     string        `mapstructure:"app_key"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
	RetryWait  time.Duration `mapstructure:"retry_wait"`
}

// RecommendConfig 兩階段檢索參數
type RecommendConfig struct {
	Candidates int `mapstructure:"candidates"`
	Results    int `mapstructure:"results"`
	MinOverlap int `mapstructure:"min_overlap"`
}

// CacheConfig 記憶體快取配置
type CacheConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	MaxSize         int           `mapstructure:"max_size"`
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// RedisConfig Redis 二級快取配置
type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// RateLimitConfig 速率限制配置
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// BreakerConfig 斷路器配置
type BreakerConfig struct {
	FailureThreshold uint32        `mapstructure:"failure_threshold"`
	OpenTimeout      time.Duration `mapstructure:"open_timeout"`
	HalfOpenRequests uint32        `mapstructure:"half_open_requests"`
}

// MetricsConfig Prometheus 指標配置
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LoadConfig 載入設定
func LoadConfig() (*Config, error) {
	// .env 不存在時略過
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	if err := Bind(v); err != nil {
		return nil, err
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")

	// 讀取設定檔
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return Decode(v)
}

// Bind 設定預設值與環境變數綁定
func Bind(v *viper.Viper) error {
	setDefaults(v)

	// 設定環境變數前綴
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 綁定常用環境變量
	bindings := map[string]string{
		"index.path":         "INDEX_PATH",
		"embedding.api_key":  "GEMINI_API_KEY",
		"embedding.model":    "GEMINI_EMBEDDING_MODEL",
		"nutrition.app_id":   "EDAMAM_APP_ID",
		"nutrition.app_key":  "EDAMAM_APP_KEY",
		"redis.enabled":      "REDIS_ENABLED",
		"redis.addr":         "REDIS_ADDR",
		"redis.password":     "REDIS_PASSWORD",
		"cache.enabled":      "CACHE_ENABLED",
		"rate_limit.enabled": "RATE_LIMIT_ENABLED",
		"dedup_window":       "DEDUP_WINDOW",
		"log_level":          "LOG_LEVEL",
		"log_file":           "LOG_FILE",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, "APP_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return fmt.Errorf("failed to bind env %s: %w", env, err)
		}
	}
	return nil
}

// Decode 解析並驗證設定
func Decode(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// setDefaults 設定預設值
func setDefaults(v *viper.Viper) {
	// 應用程式設定
	v.SetDefault("app.env", "development")
	v.SetDefault("app.debug", false)
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.name", "recipe-recommender")

	// 伺服器設定
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.request_timeout", "30s")
	v.SetDefault("server.max_body_bytes", 1<<20)

	// 索引設定
	v.SetDefault("index.path", "recipes_index/index.json")

	// embedding 設定
	v.SetDefault("embedding.base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("embedding.model", "models/embedding-001")
	v.SetDefault("embedding.timeout", "10s")

	// 營養分析設定
	v.SetDefault("nutrition.base_url", "https://api.edamam.com")
	v.SetDefault("nutrition.timeout", "15s")
	v.SetDefault("nutrition.max_retries", 2)
	v.SetDefault("nutrition.retry_wait", "200ms")

	// 檢索設定
	v.SetDefault("recommend.candidates", 20)
	v.SetDefault("recommend.results", 3)
	v.SetDefault("recommend.min_overlap", 1)

	// 快取設定
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.max_size", 1000)
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.cleanup_interval", "10m")

	// Redis 設定
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", "24h")

	// 限流設定
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests", 100)
	v.SetDefault("rate_limit.window", "1m")

	// 斷路器設定
	v.SetDefault("breaker.failure_threshold", 5)
	v.SetDefault("breaker.open_timeout", "30s")
	v.SetDefault("breaker.half_open_requests", 1)

	// 指標設定
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("dedup_window", "1s")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "logs/app.log")
}

// validateConfig 驗證設定
func validateConfig(config *Config) error {
	if config.Server.Port <= 0 {
		return fmt.Errorf("server port is required")
	}
	if config.Server.RequestTimeout <= 0 {
		return fmt.Errorf("invalid server request timeout")
	}

	if config.Index.Path == "" {
		return fmt.Errorf("index path is required")
	}

	if config.Embedding.Timeout <= 0 {
		return fmt.Errorf("invalid embedding timeout")
	}
	if config.Nutrition.Timeout <= 0 {
		return fmt.Errorf("invalid nutrition timeout")
	}
	if config.Nutrition.MaxRetries < 0 {
		return fmt.Errorf("invalid nutrition max retries")
	}

	if config.Recommend.Candidates <= 0 || config.Recommend.Results <= 0 {
		return fmt.Errorf("recommend candidates and results must be positive")
	}
	if config.Recommend.Results > config.Recommend.Candidates {
		return fmt.Errorf("recommend results (%d) cannot exceed candidates (%d)",
			config.Recommend.Results, config.Recommend.Candidates)
	}
	if config.Recommend.MinOverlap < 1 {
		return fmt.Errorf("recommend min overlap must be at least 1")
	}

	// 驗證快取設定
	if config.Cache.Enabled {
		if config.Cache.MaxSize <= 0 {
			return fmt.Errorf("invalid cache max size")
		}
		if config.Cache.TTL <= 0 {
			return fmt.Errorf("invalid cache ttl")
		}
		if config.Cache.CleanupInterval <= 0 {
			return fmt.Errorf("invalid cache cleanup interval")
		}
	}

	if config.Redis.Enabled && config.Redis.Addr == "" {
		return fmt.Errorf("redis addr is required when redis is enabled")
	}

	if config.RateLimit.Enabled && (config.RateLimit.Requests <= 0 || config.RateLimit.Window <= 0) {
		return fmt.Errorf("invalid rate limit settings")
	}

	return nil
}

// RequireCredentials 檢查服務啟動需要的外部金鑰
func (c *Config) RequireCredentials() error {
	if c.Embedding.APIKey == "" {
		return fmt.Errorf("embedding api key is required (GEMINI_API_KEY)")
	}
	if c.Nutrition.AppID == "" || c.Nutrition.AppKey == "" {
		return fmt.Errorf("nutrition credentials are required (EDAMAM_APP_ID, EDAMAM_APP_KEY)")
	}
	return nil
}
