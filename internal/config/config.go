// Package config loads the bikepark settings from defaults, an optional
// bikepark.env file and the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Backend names accepted by the *_BACKEND keys.
const (
	StoreMemory    = "memory"
	StoreFirestore = "firestore"
	StoreSQLite    = "sqlite"

	IndexMemory = "memory"
	IndexRedis  = "redis"

	EventsNone     = "none"
	EventsPubSub   = "pubsub"
	EventsRabbitMQ = "rabbitmq"
)

type Config struct {
	HTTPAddr  string `mapstructure:"HTTP_ADDR"`
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	StoreBackend  string `mapstructure:"STORE_BACKEND"`
	IndexBackend  string `mapstructure:"INDEX_BACKEND"`
	EventsBackend string `mapstructure:"EVENTS_BACKEND"`

	// Google Cloud
	ProjectID           string `mapstructure:"GCP_PROJECT_ID"`
	FirestoreCollection string `mapstructure:"FIRESTORE_COLLECTION"`
	PubSubTopic         string `mapstructure:"PUBSUB_TOPIC"`

	SQLitePath string `mapstructure:"SQLITE_PATH"`

	RedisAddr   string `mapstructure:"REDIS_ADDR"`
	RedisPrefix string `mapstructure:"REDIS_PREFIX"`

	RabbitMQURL      string `mapstructure:"RABBITMQ_URL"`
	RabbitMQExchange string `mapstructure:"RABBITMQ_EXCHANGE"`

	CORSAllowedOrigins []string      `mapstructure:"CORS_ALLOWED_ORIGINS"`
	ShutdownGrace      time.Duration `mapstructure:"SHUTDOWN_GRACE"`
	ReindexOnStart     bool          `mapstructure:"REINDEX_ON_START"`
}

var defaults = map[string]any{
	"HTTP_ADDR":            ":8080",
	"LOG_LEVEL":            "info",
	"LOG_FORMAT":           "json",
	"STORE_BACKEND":        StoreMemory,
	"INDEX_BACKEND":        IndexMemory,
	"EVENTS_BACKEND":       EventsNone,
	"GCP_PROJECT_ID":       "",
	"FIRESTORE_COLLECTION": "localizacaos",
	"PUBSUB_TOPIC":         "localizacao-events",
	"SQLITE_PATH":          "bikepark.db",
	"REDIS_ADDR":           "localhost:6379",
	"REDIS_PREFIX":         "localizacao",
	"RABBITMQ_URL":         "",
	"RABBITMQ_EXCHANGE":    "bikepark.events",
	"CORS_ALLOWED_ORIGINS": "*",
	"SHUTDOWN_GRACE":       "10s",
	"REINDEX_ON_START":     false,
}

// Load reads bikepark.env from dir when present. A missing file is not an
// error; every key also has a default and can be overridden from the
// environment.
func Load(dir string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	if dir != "" {
		v.AddConfigPath(dir)
	}
	v.SetConfigName("bikepark")
	v.SetConfigType("env")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.CORSAllowedOrigins = splitList(cfg.CORSAllowedOrigins)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// splitList accepts both "a,b" and "a b" forms for list keys.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.FieldsFunc(item, func(r rune) bool { return r == ',' || r == ' ' }) {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks backend names and the settings each backend needs.
func (c *Config) Validate() error {
	var errs []error
	switch c.StoreBackend {
	case StoreMemory, StoreSQLite:
	case StoreFirestore:
		if c.ProjectID == "" {
			errs = append(errs, errors.New("GCP_PROJECT_ID is required for the firestore store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend))
	}
	if c.StoreBackend == StoreSQLite && c.SQLitePath == "" {
		errs = append(errs, errors.New("SQLITE_PATH is required for the sqlite store"))
	}

	switch c.IndexBackend {
	case IndexMemory:
	case IndexRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required for the redis index"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown INDEX_BACKEND %q", c.IndexBackend))
	}

	switch c.EventsBackend {
	case EventsNone:
	case EventsPubSub:
		if c.ProjectID == "" {
			errs = append(errs, errors.New("GCP_PROJECT_ID is required for pubsub events"))
		}
		if c.PubSubTopic == "" {
			errs = append(errs, errors.New("PUBSUB_TOPIC is required for pubsub events"))
		}
	case EventsRabbitMQ:
		if c.RabbitMQURL == "" {
			errs = append(errs, errors.New("RABBITMQ_URL is required for rabbitmq events"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown EVENTS_BACKEND %q", c.EventsBackend))
	}

	if c.ShutdownGrace < 0 {
		errs = append(errs, errors.New("SHUTDOWN_GRACE must not be negative"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
