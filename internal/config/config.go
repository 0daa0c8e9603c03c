// Package config provides configuration management for the citation lookup service.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable the service reads.
const EnvPrefix = "CITELOOKUP"

// SSL mode constants for database connections.
const (
	// SSLModeDisable disables SSL (use only for local development).
	SSLModeDisable = "disable"
	// SSLModeRequire requires SSL but does not verify certificates.
	SSLModeRequire = "require"
	// SSLModeVerifyCA verifies the server certificate against a CA.
	SSLModeVerifyCA = "verify-ca"
	// SSLModeVerifyFull verifies the server certificate and hostname.
	SSLModeVerifyFull = "verify-full"
)

// Config holds all configuration for the citation lookup service.
// It is loaded once at startup and passed explicitly; nothing mutates it afterwards.
type Config struct {
	// Server contains HTTP server settings.
	Server ServerConfig `mapstructure:"server"`
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Metrics contains Prometheus metrics exposure settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
	// SemanticScholar contains upstream API settings.
	SemanticScholar SemanticScholarConfig `mapstructure:"semantic_scholar"`
	// Artifacts selects where lookup results are persisted.
	Artifacts ArtifactsConfig `mapstructure:"artifacts"`
	// Database contains PostgreSQL connection settings for the lookup history.
	Database DatabaseConfig `mapstructure:"database"`
	// Kafka contains Kafka publisher settings for lookup events.
	Kafka KafkaConfig `mapstructure:"kafka"`
	// Neo4j contains graph database settings for the citation graph.
	Neo4j Neo4jConfig `mapstructure:"neo4j"`
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	// Host is the address to bind the server to (default: 0.0.0.0).
	Host string `mapstructure:"host"`
	// HTTPPort is the HTTP server port (default: 5000).
	HTTPPort int `mapstructure:"http_port" validate:"min=1,max=65535"`
	// MetricsPort is the metrics server port (default: 9091).
	MetricsPort int `mapstructure:"metrics_port" validate:"min=1,max=65535"`
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration `mapstructure:"read_timeout" validate:"gt=0"`
	// WriteTimeout is the maximum duration for writing the response.
	// It must cover three paced upstream calls.
	WriteTimeout time.Duration `mapstructure:"write_timeout" validate:"gt=0"`
	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level (trace, debug, info, warn, error, fatal, panic).
	Level string `mapstructure:"level"`
	// Format is the log format (json, console).
	Format string `mapstructure:"format" validate:"oneof=json console pretty"`
	// Output is the log output destination (stdout, stderr).
	Output string `mapstructure:"output"`
	// AddSource adds source file and line to log output.
	AddSource bool `mapstructure:"add_source"`
	// TimeFormat is the timestamp format.
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Enabled enables metrics collection and exposure.
	Enabled bool `mapstructure:"enabled"`
	// Path is the HTTP path for metrics endpoint.
	Path string `mapstructure:"path" validate:"startswith=/"`
	// Namespace prefixes every metric name.
	Namespace string `mapstructure:"namespace" validate:"required"`
}

// SemanticScholarConfig holds Semantic Scholar Graph API settings.
type SemanticScholarConfig struct {
	// APIKey is the optional API key (loaded from CITELOOKUP_SEMANTIC_SCHOLAR_API_KEY or S2_API_KEY).
	APIKey string `mapstructure:"-"`
	// BaseURL is the API base URL.
	BaseURL string `mapstructure:"base_url" validate:"required,url"`
	// Timeout is the per-call timeout.
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
	// PacingInterval is the minimum spacing between outbound calls, process-wide.
	PacingInterval time.Duration `mapstructure:"pacing_interval" validate:"gte=0"`
	// MaxRetries is the number of retries on 429 and 5xx. Zero keeps upstream errors terminal.
	MaxRetries int `mapstructure:"max_retries" validate:"min=0,max=10"`
	// CitationsLimit is the page size of the citations request.
	CitationsLimit int `mapstructure:"citations_limit" validate:"min=1,max=1000"`
	// UserAgent is sent with every upstream request.
	UserAgent string `mapstructure:"user_agent"`
}

// ArtifactsConfig toggles the sinks that receive lookup results.
type ArtifactsConfig struct {
	// File writes the citing authors of each complete lookup to a JSON file.
	File FileArtifactConfig `mapstructure:"file"`
	// Database records every lookup in PostgreSQL.
	Database SinkToggle `mapstructure:"database"`
	// Kafka publishes a completion event per lookup.
	Kafka SinkToggle `mapstructure:"kafka"`
	// Graph merges citing authors and the cited paper into Neo4j.
	Graph SinkToggle `mapstructure:"graph"`
}

// FileArtifactConfig holds settings for the JSON file sink.
type FileArtifactConfig struct {
	// Enabled controls whether the file is written.
	Enabled bool `mapstructure:"enabled"`
	// Path is the output file; it is overwritten on each complete lookup.
	Path string `mapstructure:"path"`
}

// SinkToggle enables or disables an optional sink.
type SinkToggle struct {
	// Enabled controls whether the sink is active.
	Enabled bool `mapstructure:"enabled"`
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	// Host is the PostgreSQL server hostname.
	Host string `mapstructure:"host"`
	// Port is the PostgreSQL server port (default: 5432).
	Port int `mapstructure:"port"`
	// User is the database username.
	User string `mapstructure:"user"`
	// Password is the database password (loaded from CITELOOKUP_DATABASE_PASSWORD).
	Password string `mapstructure:"-"`
	// Name is the database name.
	Name string `mapstructure:"name"`
	// SSLMode controls SSL connection security (require, verify-ca, verify-full, disable).
	SSLMode string `mapstructure:"ssl_mode" validate:"oneof=disable require verify-ca verify-full"`
	// MaxConns is the maximum number of connections in the pool.
	MaxConns int32 `mapstructure:"max_conns"`
	// MinConns is the minimum number of connections to keep open.
	MinConns int32 `mapstructure:"min_conns"`
	// MaxConnLifetime is the maximum lifetime of a connection before it's closed.
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	// MaxConnIdleTime is the maximum time a connection can be idle before it's closed.
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	// HealthCheckPeriod is the interval between health checks of idle connections.
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
	// ConnectTimeout is the maximum time to wait for a connection.
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	// MigrationPath is the path to migration files (relative or absolute).
	MigrationPath string `mapstructure:"migration_path"`
	// MigrationAutoRun enables automatic migration on startup (default: false).
	MigrationAutoRun bool `mapstructure:"migration_auto_run"`
}

// KafkaConfig holds Kafka publisher settings.
type KafkaConfig struct {
	// Brokers is the list of Kafka broker addresses.
	Brokers []string `mapstructure:"brokers"`
	// Topic is the Kafka topic lookup events are published to.
	Topic string `mapstructure:"topic"`
	// BatchTimeout is the maximum time to wait for a batch to fill before sending.
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	// WriteTimeout bounds a single publish.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Neo4jConfig holds graph database settings.
type Neo4jConfig struct {
	// URI is the Bolt URI of the Neo4j server.
	URI string `mapstructure:"uri"`
	// Username is the Neo4j user.
	Username string `mapstructure:"username"`
	// Password is the Neo4j password (loaded from CITELOOKUP_NEO4J_PASSWORD).
	Password string `mapstructure:"-"`
	// Database is the Neo4j database name.
	Database string `mapstructure:"database"`
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	params := url.Values{}
	params.Set("sslmode", c.SSLMode)
	if c.ConnectTimeout > 0 {
		params.Set("connect_timeout", fmt.Sprintf("%d", int(c.ConnectTimeout.Seconds())))
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?%s",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		c.Name,
		params.Encode(),
	)
}

// HTTPAddress returns the HTTP server address.
func (c *ServerConfig) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// MetricsAddress returns the metrics server address.
func (c *ServerConfig) MetricsAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.MetricsPort)
}

// Load loads configuration from a .env file, environment variables and config files.
func Load() (*Config, error) {
	// Variables already present in the environment win over .env entries.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read from environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file if present
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/citation-lookup-service")

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK, we'll use env vars and defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Load secrets exclusively from environment variables.
	// These fields use mapstructure:"-" to prevent loading from config files.
	loadSecrets(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadSecrets populates secret fields exclusively from environment variables.
func loadSecrets(cfg *Config) {
	cfg.SemanticScholar.APIKey = os.Getenv(EnvPrefix + "_SEMANTIC_SCHOLAR_API_KEY")
	if cfg.SemanticScholar.APIKey == "" {
		cfg.SemanticScholar.APIKey = os.Getenv("S2_API_KEY")
	}
	cfg.Database.Password = os.Getenv(EnvPrefix + "_DATABASE_PASSWORD")
	cfg.Neo4j.Password = os.Getenv(EnvPrefix + "_NEO4J_PASSWORD")
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 5000)
	v.SetDefault("server.metrics_port", 9091)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "90s")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.namespace", "citation_lookup")

	// Semantic Scholar defaults
	// The API key is loaded exclusively from environment variables (see loadSecrets).
	v.SetDefault("semantic_scholar.base_url", "https://api.semanticscholar.org/graph/v1")
	v.SetDefault("semantic_scholar.timeout", "20s")
	v.SetDefault("semantic_scholar.pacing_interval", "1s")
	v.SetDefault("semantic_scholar.max_retries", 0)
	v.SetDefault("semantic_scholar.citations_limit", 4)
	v.SetDefault("semantic_scholar.user_agent", "Helixir-CitationLookup/1.0")

	// Artifact sink defaults
	v.SetDefault("artifacts.file.enabled", true)
	v.SetDefault("artifacts.file.path", "experimental_data/citing_authors_out.json")
	v.SetDefault("artifacts.database.enabled", false)
	v.SetDefault("artifacts.kafka.enabled", false)
	v.SetDefault("artifacts.graph.enabled", false)

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "citelookup")
	v.SetDefault("database.name", "citation_lookup_service")
	// Default to "require" for production security. Use CITELOOKUP_DATABASE_SSL_MODE=disable for local development.
	v.SetDefault("database.ssl_mode", SSLModeRequire)
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")
	v.SetDefault("database.health_check_period", "30s")
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.migration_path", "migrations")
	v.SetDefault("database.migration_auto_run", false)

	// Kafka defaults
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "events.citation_lookup")
	v.SetDefault("kafka.batch_timeout", "10ms")
	v.SetDefault("kafka.write_timeout", "10s")

	// Neo4j defaults
	v.SetDefault("neo4j.uri", "bolt://localhost:7687")
	v.SetDefault("neo4j.username", "neo4j")
	v.SetDefault("neo4j.database", "neo4j")
}

// validate is shared because validator caches struct metadata.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return fmt.Errorf("invalid %s: %v fails %q", fe.Namespace(), fe.Value(), fe.Tag())
		}
		return err
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "warning": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if c.Metrics.Enabled && c.Server.MetricsPort == c.Server.HTTPPort {
		return fmt.Errorf("metrics port must differ from HTTP port (%d)", c.Server.HTTPPort)
	}

	if c.Artifacts.File.Enabled && strings.TrimSpace(c.Artifacts.File.Path) == "" {
		return fmt.Errorf("artifacts file path is required when the file sink is enabled")
	}

	// Validate database config
	if c.Artifacts.Database.Enabled || c.Database.MigrationAutoRun {
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			return fmt.Errorf("invalid database port: %d", c.Database.Port)
		}
		if c.Database.Name == "" {
			return fmt.Errorf("database name is required")
		}
		if c.Database.MaxConns < c.Database.MinConns {
			return fmt.Errorf("max_conns (%d) must be >= min_conns (%d)", c.Database.MaxConns, c.Database.MinConns)
		}
	}

	if c.Artifacts.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka brokers are required when the kafka sink is enabled")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("kafka topic is required when the kafka sink is enabled")
		}
	}

	if c.Artifacts.Graph.Enabled && c.Neo4j.URI == "" {
		return fmt.Errorf("neo4j uri is required when the graph sink is enabled")
	}

	return nil
}
