// Package config provides configuration management for the citation graph pipeline.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

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

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "CITEGRAPH"

// Default field lists requested from the bibliographic API.
// References are never requested: the local reference store is authoritative.
var (
	DefaultPaperFields = []string{
		"title", "abstract", "year", "venue", "authors", "citationCount",
		"publicationTypes", "externalIds", "fieldsOfStudy", "journal", "url",
	}
	DefaultAuthorFields = []string{
		"name", "affiliations", "homepage", "paperCount", "citationCount", "hIndex", "papers",
	}
)

// DefaultVocabulary is the controlled vocabulary matched against paper titles.
var DefaultVocabulary = []string{
	"data management",
	"indexing",
	"data modeling",
	"big data",
	"data processing",
	"data storage",
	"data querying",
	"artificial intelligence",
	"machine learning",
	"ethics",
	"semantic data",
	"data warehouse",
	"process mining",
	"decision support",
}

// Config holds all configuration for the citation graph pipeline.
type Config struct {
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Metrics contains Prometheus metrics exposure settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
	// SemanticScholar contains bibliographic API client settings.
	SemanticScholar SemanticScholarConfig `mapstructure:"semantic_scholar"`
	// Fetch contains per-fetcher batching settings.
	Fetch FetchConfig `mapstructure:"fetch"`
	// Input describes the reference store CSV.
	Input InputConfig `mapstructure:"input"`
	// Output describes where the CSV export is written.
	Output OutputConfig `mapstructure:"output"`
	// Keywords contains keyword classification settings.
	Keywords KeywordsConfig `mapstructure:"keywords"`
	// Database contains the optional PostgreSQL export sink settings.
	Database DatabaseConfig `mapstructure:"database"`
	// Kafka contains the optional run event publisher settings.
	Kafka KafkaConfig `mapstructure:"kafka"`
	// Gather contains reference gathering settings.
	Gather GatherConfig `mapstructure:"gather"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level (trace, debug, info, warn, error, fatal, panic).
	Level string `mapstructure:"level" validate:"required"`
	// Format is the log format (json, console).
	Format string `mapstructure:"format" validate:"oneof=json console"`
	// Output is the log output destination (stdout, stderr).
	Output string `mapstructure:"output"`
	// AddSource adds source file and line to log output.
	AddSource bool `mapstructure:"add_source"`
	// TimeFormat is the timestamp format.
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Enabled starts the metrics endpoint for the duration of a run.
	Enabled bool `mapstructure:"enabled"`
	// Address is the listen address of the metrics endpoint.
	Address string `mapstructure:"address" validate:"required_if=Enabled true"`
	// Path is the HTTP path for metrics endpoint.
	Path string `mapstructure:"path" validate:"required_if=Enabled true"`
	// Namespace prefixes every metric name.
	Namespace string `mapstructure:"namespace" validate:"required"`
}

// SemanticScholarConfig holds Semantic Scholar Graph API settings.
type SemanticScholarConfig struct {
	// APIKey is loaded from CITEGRAPH_SEMANTIC_SCHOLAR_API_KEY only.
	APIKey string `mapstructure:"-"`
	// BaseURL is the API base URL.
	BaseURL string `mapstructure:"base_url" validate:"required,url"`
	// Timeout bounds a single HTTP request.
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
	// RateLimit is the maximum requests per second shared by all workers.
	RateLimit float64 `mapstructure:"rate_limit" validate:"gt=0"`
	// BurstSize is the token bucket burst.
	BurstSize int `mapstructure:"burst_size" validate:"gte=1"`
	// MaxRetries is the number of HTTP-level retries on 429 and 5xx.
	MaxRetries int `mapstructure:"max_retries" validate:"gte=0"`
	// RetryDelay is the base HTTP retry delay.
	RetryDelay time.Duration `mapstructure:"retry_delay" validate:"gte=0"`
}

// FetchConfig holds the two batch fetcher instantiations.
type FetchConfig struct {
	Papers  FetcherConfig `mapstructure:"papers"`
	Authors FetcherConfig `mapstructure:"authors"`
}

// FetcherConfig holds the settings of one batch fetcher.
type FetcherConfig struct {
	// Concurrency is the maximum number of chunk fetches in flight.
	Concurrency int `mapstructure:"concurrency" validate:"gte=1"`
	// ChunkSize is the number of ids per remote call.
	ChunkSize int `mapstructure:"chunk_size" validate:"gte=1"`
	// Fields is the field list requested for each record.
	Fields []string `mapstructure:"fields" validate:"min=1"`
	// WantNotFound collects ids the API could not resolve.
	WantNotFound bool `mapstructure:"want_not_found"`
	// Retries is the number of extra attempts per failed chunk.
	Retries int `mapstructure:"retries" validate:"gte=0"`
	// RetryDelay is the pause before each chunk retry.
	RetryDelay time.Duration `mapstructure:"retry_delay" validate:"gte=0"`
}

// InputConfig describes the reference store CSV.
type InputConfig struct {
	// Path is the CSV file to load.
	Path string `mapstructure:"path"`
	// IDColumn names the paper id column.
	IDColumn string `mapstructure:"id_column" validate:"required"`
	// ReferencesColumn names the ';'-delimited reference list column.
	ReferencesColumn string `mapstructure:"references_column" validate:"required"`
	// KeywordColumn names the legacy keyword column.
	KeywordColumn string `mapstructure:"keyword_column" validate:"required"`
}

// OutputConfig describes where export tables are written.
type OutputConfig struct {
	// Dir is the directory receiving the four CSV files.
	Dir string `mapstructure:"dir" validate:"required"`
}

// KeywordsConfig holds keyword classification settings.
type KeywordsConfig struct {
	// Vocabulary is the controlled vocabulary matched against titles.
	Vocabulary []string `mapstructure:"vocabulary"`
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	// Enabled writes the export tables to PostgreSQL in addition to CSV.
	Enabled bool `mapstructure:"enabled"`
	// Host is the PostgreSQL server hostname.
	Host string `mapstructure:"host"`
	// Port is the PostgreSQL server port (default: 5432).
	Port int `mapstructure:"port"`
	// User is the database username.
	User string `mapstructure:"user"`
	// Password is loaded from CITEGRAPH_DATABASE_PASSWORD only.
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
	// MigrationAutoRun applies pending migrations before writing an export.
	MigrationAutoRun bool `mapstructure:"migration_auto_run"`
	// StatementCacheCapacity is the size of the prepared statement cache.
	StatementCacheCapacity int `mapstructure:"statement_cache_capacity"`
}

// KafkaConfig holds run event publisher settings.
type KafkaConfig struct {
	// Enabled controls whether run events are published.
	Enabled bool `mapstructure:"enabled"`
	// Brokers is the list of Kafka broker addresses.
	Brokers []string `mapstructure:"brokers" validate:"required_if=Enabled true"`
	// Topic is the Kafka topic receiving run events.
	Topic string `mapstructure:"topic" validate:"required_if=Enabled true"`
	// BatchTimeout is the maximum time to wait for a batch to fill before sending.
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	// WriteTimeout bounds a single publish.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// GatherConfig holds reference gathering settings.
type GatherConfig struct {
	// Keywords are the search queries of stage one.
	Keywords []string `mapstructure:"keywords"`
	// PublicationTypes are searched for every keyword.
	PublicationTypes []string `mapstructure:"publication_types" validate:"min=1"`
	// Limit is the number of search hits kept per query.
	Limit int `mapstructure:"limit" validate:"gte=1,lte=100"`
	// Expand runs the second stage over the references of stage one.
	Expand bool `mapstructure:"expand"`
	// MinJitter and MaxJitter bound the random pause between API calls.
	MinJitter time.Duration `mapstructure:"min_jitter" validate:"gte=0"`
	MaxJitter time.Duration `mapstructure:"max_jitter" validate:"gtefield=MinJitter"`
	// Retries is the number of extra attempts per reference listing.
	Retries int `mapstructure:"retries" validate:"gte=0"`
	// Backoff is the base pause between retries; it doubles per attempt.
	Backoff time.Duration `mapstructure:"backoff" validate:"gte=0"`
	// Output is the CSV file written by the gather command.
	Output string `mapstructure:"output" validate:"required"`
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	params := url.Values{}
	params.Set("sslmode", c.SSLMode)
	if c.ConnectTimeout > 0 {
		params.Set("connect_timeout", fmt.Sprintf("%d", int(c.ConnectTimeout.Seconds())))
	}
	if c.StatementCacheCapacity > 0 {
		params.Set("statement_cache_capacity", fmt.Sprintf("%d", c.StatementCacheCapacity))
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

// Load loads configuration from environment variables and config files.
// An explicit configFile replaces the default search paths; it must exist.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/citegraph")
	}

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK, we'll use env vars and defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Secrets use mapstructure:"-" so they never come from a config file.
	loadSecrets(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func loadSecrets(cfg *Config) {
	cfg.SemanticScholar.APIKey = os.Getenv(EnvPrefix + "_SEMANTIC_SCHOLAR_API_KEY")
	cfg.Database.Password = os.Getenv(EnvPrefix + "_DATABASE_PASSWORD")
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stderr")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.address", "127.0.0.1:9091")
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.namespace", "citegraph")

	// Semantic Scholar defaults
	v.SetDefault("semantic_scholar.base_url", "https://api.semanticscholar.org/graph/v1")
	v.SetDefault("semantic_scholar.timeout", "60s")
	v.SetDefault("semantic_scholar.rate_limit", 10.0)
	v.SetDefault("semantic_scholar.burst_size", 10)
	v.SetDefault("semantic_scholar.max_retries", 0)
	v.SetDefault("semantic_scholar.retry_delay", "1s")

	// Fetcher defaults
	v.SetDefault("fetch.papers.concurrency", 10)
	v.SetDefault("fetch.papers.chunk_size", 500)
	v.SetDefault("fetch.papers.fields", DefaultPaperFields)
	v.SetDefault("fetch.papers.want_not_found", true)
	v.SetDefault("fetch.papers.retries", 0)
	v.SetDefault("fetch.papers.retry_delay", "2s")
	v.SetDefault("fetch.authors.concurrency", 10)
	v.SetDefault("fetch.authors.chunk_size", 100)
	v.SetDefault("fetch.authors.fields", DefaultAuthorFields)
	v.SetDefault("fetch.authors.want_not_found", true)
	v.SetDefault("fetch.authors.retries", 0)
	v.SetDefault("fetch.authors.retry_delay", "2s")

	// Input and output defaults
	v.SetDefault("input.path", "papers_combined.csv")
	v.SetDefault("input.id_column", "paperId")
	v.SetDefault("input.references_column", "references")
	v.SetDefault("input.keyword_column", "keyword")
	v.SetDefault("output.dir", "out")

	v.SetDefault("keywords.vocabulary", DefaultVocabulary)

	// Database defaults
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "citegraph")
	v.SetDefault("database.name", "citegraph")
	v.SetDefault("database.ssl_mode", SSLModeRequire)
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")
	v.SetDefault("database.health_check_period", "30s")
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.migration_path", "migrations")
	v.SetDefault("database.migration_auto_run", false)
	v.SetDefault("database.statement_cache_capacity", 512)

	// Kafka defaults
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "events.citegraph.runs")
	v.SetDefault("kafka.batch_timeout", "10ms")
	v.SetDefault("kafka.write_timeout", "10s")

	// Gather defaults
	v.SetDefault("gather.keywords", DefaultVocabulary)
	v.SetDefault("gather.publication_types", []string{"JournalArticle", "Conference"})
	v.SetDefault("gather.limit", 20)
	v.SetDefault("gather.expand", false)
	v.SetDefault("gather.min_jitter", "200ms")
	v.SetDefault("gather.max_jitter", "800ms")
	v.SetDefault("gather.retries", 3)
	v.SetDefault("gather.backoff", "1s")
	v.SetDefault("gather.output", "papers_combined.csv")
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}

	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if c.Database.Enabled {
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

	return nil
}
