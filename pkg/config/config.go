// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Indexer, Search, Redis, Kafka, Postgres, Snapshot, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Indexer  IndexerConfig  `yaml:"indexer"`
	Search   SearchConfig   `yaml:"search"`
	Cache    CacheConfig    `yaml:"cache"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Postgres PostgresConfig `yaml:"postgres"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
	Fixture  FixtureConfig  `yaml:"fixture"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// IndexerConfig selects the tokenizer and bounds the document store.
type IndexerConfig struct {
	Tokenizer    string `yaml:"tokenizer"`
	StopWords    bool   `yaml:"stopWords"`
	Stem         bool   `yaml:"stem"`
	MaxDocuments int    `yaml:"maxDocuments"`
}

// SearchConfig controls query execution limits and timeouts.
type SearchConfig struct {
	DefaultLimit int           `yaml:"defaultLimit"`
	MaxResults   int           `yaml:"maxResults"`
	Timeout      time.Duration `yaml:"timeout"`
}

// CacheConfig controls the in-process query cache used when Redis is absent.
type CacheConfig struct {
	Enabled   bool `yaml:"enabled"`
	LocalSize int  `yaml:"localSize"`
}

// RedisConfig holds Redis connection and caching parameters. An empty Addr
// disables the Redis-backed cache.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// KafkaConfig holds Kafka broker and topic settings. An empty broker list
// disables the ingestion consumer.
type KafkaConfig struct {
	Brokers       []string `yaml:"brokers"`
	ConsumerGroup string   `yaml:"consumerGroup"`
	Topic         string   `yaml:"topic"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// SnapshotConfig selects where index snapshots are saved and restored from.
// An empty Backend disables snapshots.
type SnapshotConfig struct {
	Backend  string        `yaml:"backend"`
	Path     string        `yaml:"path"`
	Name     string        `yaml:"name"`
	Interval time.Duration `yaml:"interval"`
}

// FixtureConfig points the harness at an XML test fixture.
type FixtureConfig struct {
	Path string `yaml:"path"`
	Lang string `yaml:"lang"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with defaults for any missing
// values.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Default returns a Config with defaults for local development.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Indexer: IndexerConfig{
			Tokenizer: "simple",
		},
		Search: SearchConfig{
			DefaultLimit: 10,
			MaxResults:   1000,
			Timeout:      5 * time.Second,
		},
		Cache: CacheConfig{
			Enabled:   true,
			LocalSize: 1024,
		},
		Redis: RedisConfig{
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Kafka: KafkaConfig{
			ConsumerGroup: "textsearch-group",
			Topic:         "document-ingest",
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "textsearch",
			User:            "textsearch",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    5,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Snapshot: SnapshotConfig{
			Path:     "index-tmp",
			Name:     "default",
			Interval: time.Minute,
		},
		Fixture: FixtureConfig{
			Path: "resources/lucene-tests.xml",
			Lang: "Sa-Ltn",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// Validate rejects configurations the services cannot start with.
func (c *Config) Validate() error {
	switch c.Snapshot.Backend {
	case "", "file", "badger", "postgres":
	default:
		return fmt.Errorf("unknown snapshot backend %q", c.Snapshot.Backend)
	}
	if c.Indexer.MaxDocuments < 0 {
		return fmt.Errorf("indexer.maxDocuments must not be negative")
	}
	if c.Search.DefaultLimit < 0 || c.Search.MaxResults < 0 {
		return fmt.Errorf("search limits must not be negative")
	}
	return nil
}

// applyEnvOverrides reads TS_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TS_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("TS_INDEXER_TOKENIZER"); v != "" {
		cfg.Indexer.Tokenizer = v
	}
	if v := os.Getenv("TS_INDEXER_MAX_DOCUMENTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Indexer.MaxDocuments = n
		}
	}
	if v := os.Getenv("TS_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("TS_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("TS_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("TS_KAFKA_TOPIC"); v != "" {
		cfg.Kafka.Topic = v
	}
	if v := os.Getenv("TS_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("TS_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("TS_SNAPSHOT_BACKEND"); v != "" {
		cfg.Snapshot.Backend = v
	}
	if v := os.Getenv("TS_SNAPSHOT_PATH"); v != "" {
		cfg.Snapshot.Path = v
	}
	if v := os.Getenv("TS_FIXTURE_PATH"); v != "" {
		cfg.Fixture.Path = v
	}
	if v := os.Getenv("TS_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("TS_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
