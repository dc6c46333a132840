package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Log      LogConfig      `mapstructure:"log"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Pebble   PebbleConfig   `mapstructure:"pebble"`
	Latency  LatencyConfig  `mapstructure:"latency"`
	Feed     FeedConfig     `mapstructure:"feed"`
	Sentry   SentryConfig   `mapstructure:"sentry"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`

	// Format: console | json
	Format string `mapstructure:"format"`
}

// StorageConfig 选择快照介质
type StorageConfig struct {
	// Driver: memory | sqlite | postgres | redis | pebble
	Driver string `mapstructure:"driver"`
}

type DatabaseConfig struct {
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type PebbleConfig struct {
	Path string `mapstructure:"path"`
}

// LatencyConfig 模拟网络延迟
type LatencyConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	Scale   float64 `mapstructure:"scale"`
}

type FeedConfig struct {
	PageSize int `mapstructure:"page_size"`

	// FetchesPerSecond 0 表示不限速
	FetchesPerSecond float64 `mapstructure:"fetches_per_second"`
}

type SentryConfig struct {
	DSN string `mapstructure:"dsn"`
}

type TracingConfig struct {
	Endpoint    string        `mapstructure:"endpoint"`
	Insecure    bool          `mapstructure:"insecure"`
	ExportAfter time.Duration `mapstructure:"export_after"`
}

// Load 读取配置：默认值 < config.yaml < TRADETOK_* 环境变量
func Load() (*Config, error) {
	// .env 可选
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("TRADETOK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default 返回仅包含默认值的配置（测试与基准使用）
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "tradetok")
	v.SetDefault("app.env", "development")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("storage.driver", "memory")
	v.SetDefault("database.dsn", "tradetok.db")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "tradetok:")
	v.SetDefault("pebble.path", "data/tradetok")
	v.SetDefault("latency.enabled", true)
	v.SetDefault("latency.scale", 1.0)
	v.SetDefault("feed.page_size", 3)
	v.SetDefault("feed.fetches_per_second", 0)
	v.SetDefault("tracing.insecure", true)
	v.SetDefault("tracing.export_after", 5*time.Second)
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case "memory", "sqlite", "postgres", "redis", "pebble":
	default:
		return fmt.Errorf("unsupported storage driver %q", c.Storage.Driver)
	}
	if c.Feed.PageSize <= 0 {
		return fmt.Errorf("feed.page_size must be positive, got %d", c.Feed.PageSize)
	}
	if c.Latency.Scale < 0 {
		return fmt.Errorf("latency.scale must not be negative")
	}
	return nil
}

// IsProduction 是否生产环境
func (c *Config) IsProduction() bool { return c.App.Env == "production" }
