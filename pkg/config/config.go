package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	LLM       LLMConfig
	GEE       GEEConfig
	Search    SearchConfig
	Viz       VizConfig
	Cache     CacheConfig
	Redis     RedisConfig
	SQLite    SQLiteConfig
	Query     QueryConfig
	Logging   LoggingConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  int
	WriteTimeout int
	BodyLimit    int
}

type LLMConfig struct {
	Provider    string
	Model       string
	APIKey      string
	Temperature float32
	MaxTokens   int
	TimeoutSec  int
}

type GEEConfig struct {
	Endpoint   string
	APIKey     string
	TimeoutSec int
	// Analysis window applied to every raster collection filter.
	StartDate string
	EndDate   string
}

type SearchConfig struct {
	Enabled    bool
	APIKey     string
	EngineID   string
	MaxResults int
	TimeoutSec int
}

type VizConfig struct {
	RenderURL  string
	StaticDir  string
	TimeoutSec int
}

type CacheConfig struct {
	Backend string
	TTLSec  int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type SQLiteConfig struct {
	Path string
}

type QueryConfig struct {
	MaxLength int
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

type RateLimitConfig struct {
	MaxRequestsPerMinute int
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/enviducate")

	viper.SetEnvPrefix("ENVIDUCATE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readTimeout", 30)
	viper.SetDefault("server.writeTimeout", 60)
	viper.SetDefault("server.bodyLimit", 1048576)

	viper.SetDefault("llm.provider", "gemini")
	viper.SetDefault("llm.model", "gemini-2.5-flash-lite")
	viper.SetDefault("llm.temperature", 0.2)
	viper.SetDefault("llm.maxTokens", 2048)
	viper.SetDefault("llm.timeoutSec", 30)

	viper.SetDefault("gee.endpoint", "http://localhost:9090")
	viper.SetDefault("gee.timeoutSec", 60)
	viper.SetDefault("gee.startDate", "2022-01-01")
	viper.SetDefault("gee.endDate", "2024-01-01")

	viper.SetDefault("search.enabled", true)
	viper.SetDefault("search.maxResults", 5)
	viper.SetDefault("search.timeoutSec", 10)

	viper.SetDefault("viz.renderURL", "http://localhost:9091")
	viper.SetDefault("viz.staticDir", "./static/images")
	viper.SetDefault("viz.timeoutSec", 30)

	viper.SetDefault("cache.backend", "memory")
	viper.SetDefault("cache.ttlSec", 86400)

	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("sqlite.path", "./data/enviducate.db")

	viper.SetDefault("query.maxLength", 1000)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")

	viper.SetDefault("ratelimit.maxRequestsPerMinute", 60)
}
