package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Log        Logger         `mapstructure:"logger"`
	DB         Database       `mapstructure:"database"`
	API        API            `mapstructure:"api"`
	Scheduler  Scheduler      `mapstructure:"scheduler"`
	Cache      Cache          `mapstructure:"cache"`
	Redis      Redis          `mapstructure:"redis"`
	MarketFeed MarketFeed     `mapstructure:"market_feed"`
	Market     Market         `mapstructure:"market"`
	Telegram   TelegramConfig `mapstructure:"telegram"`
}

type Logger struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
}

type Database struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"name"`
	SSLMode         string `mapstructure:"ssl_mode"`
	TimeZone        string `mapstructure:"time_zone"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime string `mapstructure:"conn_max_lifetime"`
	LogLevel        string `mapstructure:"log_level"`
}

type Scheduler struct {
	MaxConcurrency  int           `mapstructure:"max_concurrency"`
	TimeoutDuration time.Duration `mapstructure:"timeout_duration"`
}

type API struct {
	Port              int     `mapstructure:"port"`
	RateLimitPerSec   float64 `mapstructure:"rate_limit_per_sec"`
	RateLimitBurst    int     `mapstructure:"rate_limit_burst"`
	MaxExportRows     int     `mapstructure:"max_export_rows"`
	DefaultPageSize   int     `mapstructure:"default_page_size"`
	HistoryLimitByDay int     `mapstructure:"history_limit_by_day"`
}

type Cache struct {
	DefaultExpiration time.Duration `mapstructure:"default_expiration"`
	CleanupInterval   time.Duration `mapstructure:"cleanup_interval"`
}

type Redis struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// MarketFeed describes the upstream daily price feed.
type MarketFeed struct {
	BaseURL          string        `mapstructure:"base_url"`
	Path             string        `mapstructure:"path"`
	Timeout          time.Duration `mapstructure:"timeout"`
	MaxRequestPerMin int           `mapstructure:"max_request_per_min"`
}

type Market struct {
	TimeZone string `mapstructure:"time_zone"`
	TopMover int    `mapstructure:"top_mover"`
}

type TelegramConfig struct {
	BotToken string        `mapstructure:"bot_token"`
	ChatID   int64         `mapstructure:"chat_id"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func setDefaults() {
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.encoding", "json")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.log_level", "Warn")
	viper.SetDefault("api.port", 8080)
	viper.SetDefault("api.rate_limit_per_sec", 10)
	viper.SetDefault("api.rate_limit_burst", 30)
	viper.SetDefault("api.max_export_rows", 10000)
	viper.SetDefault("api.default_page_size", 20)
	viper.SetDefault("api.history_limit_by_day", 30)
	viper.SetDefault("scheduler.max_concurrency", 2)
	viper.SetDefault("scheduler.timeout_duration", "5m")
	viper.SetDefault("cache.default_expiration", "30m")
	viper.SetDefault("cache.cleanup_interval", "10m")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.prefix", "agri-market:")
	viper.SetDefault("market_feed.base_url", "https://kalimatimarket.gov.np")
	viper.SetDefault("market_feed.path", "/api/daily-prices/en")
	viper.SetDefault("market_feed.timeout", "15s")
	viper.SetDefault("market_feed.max_request_per_min", 6)
	viper.SetDefault("market.time_zone", "Asia/Kathmandu")
	viper.SetDefault("market.top_mover", 3)
	viper.SetDefault("telegram.timeout", "10s")
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file loaded:", err)
	}

	viper.SetConfigType("yaml")
	viper.SetConfigName("config")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AddConfigPath(".")
	viper.AutomaticEnv()
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		fmt.Println("No config file loaded:", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.Scheduler.MaxConcurrency <= 0 {
		return nil, fmt.Errorf("scheduler.max_concurrency must be positive, got %d", cfg.Scheduler.MaxConcurrency)
	}
	if cfg.MarketFeed.MaxRequestPerMin <= 0 {
		return nil, fmt.Errorf("market_feed.max_request_per_min must be positive, got %d", cfg.MarketFeed.MaxRequestPerMin)
	}

	return &cfg, nil
}
