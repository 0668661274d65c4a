// Package config loads service settings from built-in defaults, an optional
// YAML file and the environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

type Config struct {
	ServiceName string `yaml:"service_name"`
	Env         string `yaml:"env"`
	LogLevel    string `yaml:"log_level"`
	LogFile     string `yaml:"log_file"`

	HTTPAddr        string        `yaml:"http_addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	StoreDriver   string `yaml:"store_driver"`
	DatabaseURL   string `yaml:"database_url"`
	DBMaxConns    int32  `yaml:"db_max_conns"`
	DBAutoMigrate bool   `yaml:"db_auto_migrate"`

	RedisURL       string        `yaml:"redis_url"`
	RedisChannel   string        `yaml:"redis_channel"`
	IdempotencyTTL time.Duration `yaml:"idempotency_ttl"`

	KafkaBrokers string `yaml:"kafka_brokers"`
	KafkaTopic   string `yaml:"kafka_topic"`
}

func Default() Config {
	return Config{
		ServiceName:     "order-api",
		Env:             "local",
		LogLevel:        "info",
		HTTPAddr:        ":3000",
		ShutdownTimeout: 10 * time.Second,
		StoreDriver:     DriverMemory,
		DBMaxConns:      10,
		DBAutoMigrate:   true,
		RedisChannel:    "orders.events",
		IdempotencyTTL:  24 * time.Hour,
		KafkaTopic:      "orders.events",
	}
}

// Load reads path (skipped when empty) and then the process environment.
func Load(path string) (Config, error) {
	return LoadWith(path, os.LookupEnv)
}

// LoadWith is Load with an injectable environment lookup.
func LoadWith(path string, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	var errs []error
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("config: %s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	str("SERVICE_NAME", &c.ServiceName)
	str("ENV", &c.Env)
	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_FILE", &c.LogFile)
	if v, ok := lookup("PORT"); ok && v != "" {
		c.HTTPAddr = ":" + v
	}
	str("HTTP_ADDR", &c.HTTPAddr)
	dur("SHUTDOWN_TIMEOUT", &c.ShutdownTimeout)

	str("STORE_DRIVER", &c.StoreDriver)
	str("DATABASE_URL", &c.DatabaseURL)
	if c.DatabaseURL == "" {
		if host, ok := lookup("DB_HOST"); ok && host != "" {
			c.DatabaseURL = databaseURLFromParts(host, lookup)
		}
	}
	if v, ok := lookup("DB_MAX_CONNS"); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			errs = append(errs, fmt.Errorf("config: DB_MAX_CONNS: %w", err))
		} else {
			c.DBMaxConns = int32(n)
		}
	}
	if v, ok := lookup("DB_AUTO_MIGRATE"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("config: DB_AUTO_MIGRATE: %w", err))
		} else {
			c.DBAutoMigrate = b
		}
	}

	str("REDIS_URL", &c.RedisURL)
	str("REDIS_CHANNEL", &c.RedisChannel)
	dur("IDEMPOTENCY_TTL", &c.IdempotencyTTL)
	str("KAFKA_BROKERS", &c.KafkaBrokers)
	str("KAFKA_TOPIC", &c.KafkaTopic)

	return errors.Join(errs...)
}

func databaseURLFromParts(host string, lookup func(string) (string, bool)) string {
	get := func(key, def string) string {
		if v, ok := lookup(key); ok && v != "" {
			return v
		}
		return def
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(get("DB_USER", "postgres"), get("DB_PASSWORD", "")),
		Host:     net.JoinHostPort(host, get("DB_PORT", "5432")),
		Path:     "/" + get("DB_NAME", "orders"),
		RawQuery: "sslmode=" + get("DB_SSLMODE", "disable"),
	}
	return u.String()
}

func (c Config) Validate() error {
	var errs []error
	switch c.StoreDriver {
	case DriverMemory:
	case DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("config: DATABASE_URL is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("config: unknown store driver %q", c.StoreDriver))
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("config: unknown log level %q", c.LogLevel))
	}
	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("config: http address is required"))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("config: shutdown timeout must be positive"))
	}
	if c.DBMaxConns <= 0 {
		errs = append(errs, errors.New("config: DB_MAX_CONNS must be positive"))
	}
	if c.IdempotencyTTL <= 0 {
		errs = append(errs, errors.New("config: idempotency ttl must be positive"))
	}
	if c.KafkaBrokers != "" && c.KafkaTopic == "" {
		errs = append(errs, errors.New("config: KAFKA_TOPIC is required when brokers are set"))
	}
	if c.RedisURL != "" && c.RedisChannel == "" {
		errs = append(errs, errors.New("config: REDIS_CHANNEL is required when redis is set"))
	}
	return errors.Join(errs...)
}
