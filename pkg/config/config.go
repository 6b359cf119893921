package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"Jyotish/pkg/util"
)

const (
	BackendNone       = "none"
	BackendKafka      = "kafka"
	BackendClickHouse = "clickhouse"
	BackendPostgres   = "postgres"
)

type Config struct {
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
	Server      struct {
		Host            string        `yaml:"host"`
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		CORS            bool          `yaml:"cors"`
		RateLimit       struct {
			Enabled bool    `yaml:"enabled"`
			Burst   int     `yaml:"burst"`
			RPS     float64 `yaml:"rps"`
		} `yaml:"rate_limit"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Reference struct {
		// Path to a Nakshatra profile file; empty uses the built-in table.
		Path string `yaml:"path"`
	} `yaml:"reference"`
	Ephemeris struct {
		BaseURL  string        `yaml:"base_url"`
		Timeout  time.Duration `yaml:"timeout"`
		Retries  int           `yaml:"retries"`
		CacheTTL time.Duration `yaml:"cache_ttl"`
	} `yaml:"ephemeris"`
	Backend struct {
		Type string `yaml:"type"`
		// Size of the in-process history ring used when no database is configured.
		MemoryCapacity int `yaml:"memory_capacity"`
		// Redeliver buffer for events the backend rejected.
		BufferSize int `yaml:"buffer_size"`
	} `yaml:"backend"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		ClientID     string   `yaml:"client_id"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			Enabled bool   `yaml:"enabled"`
			GroupID string `yaml:"group_id"`
			// StartOffset is "first" or "last"; used when the group has no committed offset.
			StartOffset string        `yaml:"start_offset"`
			Workers     int           `yaml:"workers"`
			BufferSize  int           `yaml:"buffer_size"`
			RetryMax    int           `yaml:"retry_max"`
			BackoffMin  time.Duration `yaml:"backoff_min"`
			BackoffMax  time.Duration `yaml:"backoff_max"`
			DLQTopic    string        `yaml:"dlq_topic"`
			MinBytes    int           `yaml:"min_bytes"`
			MaxBytes    int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Postgres struct {
		DSN             string        `yaml:"dsn"`
		MaxConns        int32         `yaml:"max_conns"`
		MinConns        int32         `yaml:"min_conns"`
		MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
		ConnectTimeout  time.Duration `yaml:"connect_timeout"`
	} `yaml:"postgres"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"`
		LogQueue string `yaml:"log_queue"`
		// Workers draining the calculation.record queue.
		QueueWorkers int `yaml:"queue_workers"`
	} `yaml:"redis"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logging"`
	Stream struct {
		Interval time.Duration `yaml:"interval"`
	} `yaml:"stream"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	c, err := parse(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func parse(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.applyDefaults()
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
// A .env file in the working directory is read first when present.
func LoadWithEnv(path string) (*Config, error) {
	_ = godotenv.Load() // missing .env is fine

	c, err := parse(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("JYOTISH_ENV"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("BACKEND"); v != "" {
		c.Backend.Type = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = util.SplitList(v)
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("EPHEMERIS_URL"); v != "" {
		c.Ephemeris.BaseURL = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		c.Postgres.DSN = v
	}
	if v := os.Getenv("REFERENCE_PATH"); v != "" {
		c.Reference.Path = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		host, port, err := net.SplitHostPort(v)
		if err != nil {
			return nil, fmt.Errorf("REDIS_ADDR: %w", err)
		}
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("REDIS_ADDR port: %w", err)
		}
		c.Redis.Enabled = true
		c.Redis.Host = host
		c.Redis.Port = p
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Backend.Type == "" {
		c.Backend.Type = BackendNone
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Ephemeris.Timeout == 0 {
		c.Ephemeris.Timeout = 5 * time.Second
	}
	if c.Backend.MemoryCapacity == 0 {
		c.Backend.MemoryCapacity = 1000
	}
	if c.Backend.BufferSize == 0 {
		c.Backend.BufferSize = 1000
	}
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = "jyotish"
	}
	if c.Redis.LogQueue == "" {
		c.Redis.LogQueue = "logs"
	}
	if c.Server.RateLimit.Burst == 0 {
		c.Server.RateLimit.Burst = 20
	}
	if c.Server.RateLimit.RPS == 0 {
		c.Server.RateLimit.RPS = 10
	}
	if c.Ephemeris.CacheTTL == 0 {
		c.Ephemeris.CacheTTL = time.Hour
	}
	if c.Stream.Interval == 0 {
		c.Stream.Interval = time.Minute
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Version == "" {
		c.Version = "dev"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	switch c.Backend.Type {
	case BackendNone:
	case BackendKafka:
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers cannot be empty for kafka backend")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("kafka.topic is required for kafka backend")
		}
	case BackendClickHouse:
		if c.ClickHouse.Host == "" {
			return fmt.Errorf("clickhouse.host is required for clickhouse backend")
		}
	case BackendPostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("postgres.dsn is required for postgres backend")
		}
	default:
		return fmt.Errorf("backend.type must be one of none, kafka, clickhouse, postgres, got '%s'", c.Backend.Type)
	}
	if c.Stream.Interval < time.Second {
		return fmt.Errorf("stream.interval must be at least 1s")
	}
	return nil
}

// RedisAddr returns host:port for the redis client.
func (c *Config) RedisAddr() string {
	return net.JoinHostPort(c.Redis.Host, strconv.Itoa(c.Redis.Port))
}
