// Package config loads service configuration from file and environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the full service configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Orders   OrdersConfig   `mapstructure:"orders"`
	Risk     RiskConfig     `mapstructure:"risk"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr returns the listen address.
func (c ServerConfig) Addr() string { return fmt.Sprintf("%s:%d", c.Host, c.Port) }

// PostgresConfig configures the durable store connection.
type PostgresConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	OpTimeout       time.Duration `mapstructure:"op_timeout"`
}

// RedisConfig configures the fast cache connection.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	PoolSize     int           `mapstructure:"pool_size"`
	RecordTTL    time.Duration `mapstructure:"record_ttl"`
	OpTimeout    time.Duration `mapstructure:"op_timeout"`
}

// OrdersConfig configures the order store core.
type OrdersConfig struct {
	QueueCapacity      int           `mapstructure:"queue_capacity"`
	DrainInterval      time.Duration `mapstructure:"drain_interval"`
	MaxResolveAttempts int           `mapstructure:"max_resolve_attempts"`
	RetryBackoff       time.Duration `mapstructure:"retry_backoff"`
	HotCacheSize       int           `mapstructure:"hot_cache_size"`
	MetricsWindow      time.Duration `mapstructure:"metrics_window"`
}

// RiskConfig configures the risk gate limits.
type RiskConfig struct {
	MaxQuantity    string   `mapstructure:"max_quantity"`
	MaxNotional    string   `mapstructure:"max_notional"`
	AllowedSymbols []string `mapstructure:"allowed_symbols"`
}

// KafkaConfig configures the order event stream.
type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads configuration from an optional YAML file plus ORDERFLOW_*
// environment variables. A local .env file is honored when present.
func Load(path string) (*Config, error) {
	// Best-effort; a missing .env is not an error.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("ORDERFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("postgres.dsn", "host=localhost user=orderflow password=orderflow dbname=orderflow port=5432 sslmode=disable")
	v.SetDefault("postgres.max_open_conns", 50)
	v.SetDefault("postgres.max_idle_conns", 10)
	v.SetDefault("postgres.conn_max_lifetime", "30m")
	v.SetDefault("postgres.op_timeout", "10s")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.dial_timeout", "2s")
	v.SetDefault("redis.read_timeout", "2s")
	v.SetDefault("redis.write_timeout", "2s")
	v.SetDefault("redis.pool_size", 64)
	v.SetDefault("redis.record_ttl", "24h")
	v.SetDefault("redis.op_timeout", "2s")

	v.SetDefault("orders.queue_capacity", 4096)
	v.SetDefault("orders.drain_interval", "100ms")
	v.SetDefault("orders.max_resolve_attempts", 3)
	v.SetDefault("orders.retry_backoff", "500ms")
	v.SetDefault("orders.hot_cache_size", 10000)
	v.SetDefault("orders.metrics_window", "60s")

	v.SetDefault("risk.max_quantity", "1000000")
	v.SetDefault("risk.max_notional", "10000000")
	v.SetDefault("risk.allowed_symbols", []string{})

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "order-events")

	v.SetDefault("log.level", "info")
}
