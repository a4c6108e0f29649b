// Package config loads adaptran settings from an optional YAML file and
// ADAPTRAN_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/valpere/adaptran/internal/cache"
	"github.com/valpere/adaptran/internal/chunker"
	"github.com/valpere/adaptran/internal/controller"
	"github.com/valpere/adaptran/internal/optimizer"
	"github.com/valpere/adaptran/internal/quality"
)

const envPrefix = "ADAPTRAN"

// Cache backends accepted in cache.backend.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheSQLite = "sqlite"
)

type Config struct {
	Log        LogConfig         `mapstructure:"log"`
	Controller controller.Config `mapstructure:"controller"`
	Chunker    chunker.Config    `mapstructure:"chunker"`
	Quality    quality.Config    `mapstructure:"quality"`
	Optimizer  optimizer.Config  `mapstructure:"optimizer"`
	Cache      CacheConfig       `mapstructure:"cache"`
	Services   ServicesConfig    `mapstructure:"services"`
}

type LogConfig struct {
	Environment string `mapstructure:"environment"`
	Level       string `mapstructure:"level"`
}

type CacheConfig struct {
	Backend    string            `mapstructure:"backend"`
	MaxEntries int               `mapstructure:"max_entries"`
	SQLitePath string            `mapstructure:"sqlite_path"`
	Redis      cache.RedisConfig `mapstructure:"redis"`
}

type ServicesConfig struct {
	Names            []string      `mapstructure:"names"`
	Credentials      string        `mapstructure:"credentials"`
	ProjectID        string        `mapstructure:"project_id"`
	OllamaURL        string        `mapstructure:"ollama_url"`
	OllamaModels     []string      `mapstructure:"ollama_models"`
	OpenRouterKey    string        `mapstructure:"openrouter_key"`
	OpenRouterModels []string      `mapstructure:"openrouter_models"`
	SystranKey       string        `mapstructure:"systran_key"`
	MyMemoryEmail    string        `mapstructure:"mymemory_email"`
	Timeout          time.Duration `mapstructure:"timeout"`
	MaxAttempts      int           `mapstructure:"max_attempts"`
	RetryDelay       time.Duration `mapstructure:"retry_delay"`
	ProtectMarkup    bool          `mapstructure:"protect_markup"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.environment", "local")
	v.SetDefault("log.level", "info")

	ctrl := controller.DefaultConfig()
	v.SetDefault("controller.quality_threshold", ctrl.QualityThreshold)
	v.SetDefault("controller.quality_preference_threshold", ctrl.QualityPreferenceThreshold)
	v.SetDefault("controller.chunk_concurrency", ctrl.ChunkConcurrency)

	v.SetDefault("chunker.min_chunk_size", chunker.DefaultMinChunkSize)
	v.SetDefault("chunker.max_chunk_size", chunker.DefaultMaxChunkSize)

	q := quality.DefaultConfig()
	weights := make(map[string]any, len(q.Weights))
	for name, w := range q.Weights {
		weights[name] = w
	}
	v.SetDefault("quality.weights", weights)
	v.SetDefault("quality.optimization_bar", q.OptimizationBar)
	v.SetDefault("quality.dimension_floor", q.DimensionFloor)

	v.SetDefault("optimizer.min_chunk_size", 0)
	v.SetDefault("optimizer.max_chunk_size", 0)
	v.SetDefault("optimizer.concurrency", ctrl.ChunkConcurrency)

	v.SetDefault("cache.backend", CacheMemory)
	v.SetDefault("cache.max_entries", cache.DefaultMaxEntries)
	v.SetDefault("cache.sqlite_path", "./data/adaptran.db")
	v.SetDefault("cache.redis.address", "localhost:6379")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.ttl", 24*time.Hour)

	v.SetDefault("services.names", []string{"google"})
	v.SetDefault("services.credentials", "")
	v.SetDefault("services.project_id", "")
	v.SetDefault("services.ollama_url", "http://localhost:11434")
	v.SetDefault("services.ollama_models", []string{})
	v.SetDefault("services.openrouter_key", "")
	v.SetDefault("services.openrouter_models", []string{})
	v.SetDefault("services.systran_key", "")
	v.SetDefault("services.mymemory_email", "")
	v.SetDefault("services.timeout", 30*time.Second)
	v.SetDefault("services.max_attempts", 3)
	v.SetDefault("services.retry_delay", 500*time.Millisecond)
	v.SetDefault("services.protect_markup", true)
}

// Load reads path when given; otherwise it looks for adaptran.yaml in the
// working directory and ./configs, and carries on with defaults when there is
// none. Environment variables override file values, with dots replaced by
// underscores (ADAPTRAN_CACHE_REDIS_ADDRESS).
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("adaptran")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if cfg.Optimizer.MinChunkSize == 0 {
		cfg.Optimizer.MinChunkSize = cfg.Chunker.MinChunkSize
	}
	if cfg.Optimizer.MaxChunkSize == 0 {
		cfg.Optimizer.MaxChunkSize = cfg.Chunker.MaxChunkSize
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every problem it finds, joined.
func (c *Config) Validate() error {
	var errs []error

	unit := func(name string, x float64) {
		if x <= 0 || x > 1 {
			errs = append(errs, fmt.Errorf("%s must be in (0, 1], got %v", name, x))
		}
	}
	unit("controller.quality_threshold", c.Controller.QualityThreshold)
	unit("controller.quality_preference_threshold", c.Controller.QualityPreferenceThreshold)
	unit("quality.optimization_bar", c.Quality.OptimizationBar)
	unit("quality.dimension_floor", c.Quality.DimensionFloor)

	if c.Controller.QualityPreferenceThreshold < c.Controller.QualityThreshold {
		errs = append(errs, errors.New("controller.quality_preference_threshold must not be below quality_threshold"))
	}
	if c.Controller.ChunkConcurrency < 1 {
		errs = append(errs, fmt.Errorf("controller.chunk_concurrency must be positive, got %d", c.Controller.ChunkConcurrency))
	}

	if c.Chunker.MinChunkSize < 1 {
		errs = append(errs, fmt.Errorf("chunker.min_chunk_size must be positive, got %d", c.Chunker.MinChunkSize))
	}
	if c.Chunker.MaxChunkSize < c.Chunker.MinChunkSize {
		errs = append(errs, fmt.Errorf("chunker.max_chunk_size (%d) is below min_chunk_size (%d)", c.Chunker.MaxChunkSize, c.Chunker.MinChunkSize))
	}
	if c.Optimizer.MaxChunkSize < c.Optimizer.MinChunkSize {
		errs = append(errs, fmt.Errorf("optimizer.max_chunk_size (%d) is below min_chunk_size (%d)", c.Optimizer.MaxChunkSize, c.Optimizer.MinChunkSize))
	}
	if c.Optimizer.MinChunkSize < c.Chunker.MinChunkSize || c.Optimizer.MaxChunkSize > c.Chunker.MaxChunkSize {
		errs = append(errs, fmt.Errorf("optimizer chunk sizes [%d, %d] must lie within the chunker bounds [%d, %d]",
			c.Optimizer.MinChunkSize, c.Optimizer.MaxChunkSize, c.Chunker.MinChunkSize, c.Chunker.MaxChunkSize))
	}
	for name, w := range c.Quality.Weights {
		if w < 0 {
			errs = append(errs, fmt.Errorf("quality.weights.%s must not be negative", name))
		}
	}

	switch c.Cache.Backend {
	case CacheNone, CacheMemory:
	case CacheRedis:
		if c.Cache.Redis.Address == "" {
			errs = append(errs, errors.New("cache.redis.address is required for the redis backend"))
		}
	case CacheSQLite:
		if c.Cache.SQLitePath == "" {
			errs = append(errs, errors.New("cache.sqlite_path is required for the sqlite backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown cache.backend %q (want none, memory, redis or sqlite)", c.Cache.Backend))
	}

	if len(c.Services.Names) == 0 {
		errs = append(errs, errors.New("services.names must list at least one service"))
	}
	if c.Services.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("services.max_attempts must be positive, got %d", c.Services.MaxAttempts))
	}

	return errors.Join(errs...)
}
