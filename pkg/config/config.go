package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"

	"marketpulse/pkg/util"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s"`
	} `yaml:"server"`
	Logger struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"json"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"logger"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Streams struct {
		Symbols    []string      `yaml:"symbols"`
		SpotURL    string        `yaml:"spot_url" default:"wss://stream.binance.com:9443"`
		FuturesURL string        `yaml:"futures_url" default:"wss://fstream.binance.com"`
		Buffer     int           `yaml:"buffer" default:"1024"`
		BackoffMin time.Duration `yaml:"backoff_min" default:"500ms"`
		BackoffMax time.Duration `yaml:"backoff_max" default:"30s"`
	} `yaml:"streams"`
	History struct {
		BinanceMirrors []string      `yaml:"binance_mirrors"`
		BybitMirrors   []string      `yaml:"bybit_mirrors"`
		OKXMirrors     []string      `yaml:"okx_mirrors"`
		Timeout        time.Duration `yaml:"timeout" default:"10s"`
		CacheTTL       time.Duration `yaml:"cache_ttl" default:"30s"`
		RateBurst      float64       `yaml:"rate_burst" default:"10"`
		RatePerSec     float64       `yaml:"rate_per_sec" default:"5"`
	} `yaml:"history"`
	Kafka struct {
		Enabled          bool          `yaml:"enabled"`
		Brokers          []string      `yaml:"brokers"`
		SignalTopic      string        `yaml:"signal_topic" default:"marketpulse.signals"`
		LiquidationTopic string        `yaml:"liquidation_topic" default:"marketpulse.liquidations"`
		RequiredAcks     int           `yaml:"required_acks" default:"1"`
		Compression      string        `yaml:"compression" default:"snappy"`
		MaxAttempts      int           `yaml:"max_attempts" default:"3"`
		BatchTimeout     time.Duration `yaml:"batch_timeout" default:"50ms"`
		Async            bool          `yaml:"async" default:"true"`
	} `yaml:"kafka"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix" default:"marketpulse"`
	} `yaml:"redis"`
}

// Load reads a YAML configuration file, fills defaults and validates.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = util.ParseIntDefault(v, c.Server.Port)
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Streams.Symbols = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		c.Redis.DB = util.ParseIntDefault(v, c.Redis.DB)
	}
	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if len(c.Streams.Symbols) == 0 {
		return fmt.Errorf("streams.symbols cannot be empty")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers required when kafka is enabled")
	}
	if c.Streams.BackoffMin <= 0 || c.Streams.BackoffMax < c.Streams.BackoffMin {
		return fmt.Errorf("streams backoff bounds invalid: min %s max %s",
			c.Streams.BackoffMin, c.Streams.BackoffMax)
	}
	return nil
}
