package config

import "time"

// Config is the root configuration structure for the statblock service.
// It contains the schema source, parser, record storage, HTTP server and
// telemetry settings.
type Config struct {
	// Schema selects where the field schema is read from and whether it is
	// reloaded on change.
	Schema SchemaConfig `yaml:"schema"`

	// Parser contains input handling settings for parse requests.
	Parser ParserConfig `yaml:"parser"`

	// Records contains configuration for storing parse results including
	// backend selection, retention and query limits.
	Records RecordsConfig `yaml:"records"`

	// Server contains HTTP server configuration.
	Server ServerConfig `yaml:"server"`

	// Telemetry contains configuration for observability including logging,
	// metrics, tracing and health checks.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// SchemaConfig selects the schema source.
type SchemaConfig struct {
	// Source is where the schema comes from.
	// Options: "builtin", "file", "git"
	// Default: "builtin"
	Source string `yaml:"source"`

	// FilePath is the schema file used when Source is "file".
	FilePath string `yaml:"file_path"`

	// Watch reloads the schema when the file changes.
	// Default: false
	Watch bool `yaml:"watch"`

	// WatchDebounce is the quiet period after a change before reloading.
	// Default: 200ms
	WatchDebounce time.Duration `yaml:"watch_debounce"`

	// Git contains repository settings used when Source is "git".
	Git GitConfig `yaml:"git"`
}

// GitConfig describes a git repository that holds schema files.
type GitConfig struct {
	// Repository is the clone URL.
	Repository string `yaml:"repository"`

	// Branch is the branch to check out.
	// Default: "main"
	Branch string `yaml:"branch"`

	// Path is the schema file path inside the repository.
	// Default: "monster.yaml"
	Path string `yaml:"path"`

	// CloneDir is the local directory for the working copy.
	// Default: "data/schemas"
	CloneDir string `yaml:"clone_dir"`

	// PollInterval is how often to pull for changes (0 = never).
	// Default: 0
	PollInterval time.Duration `yaml:"poll_interval"`

	// Username and Token authenticate HTTPS clones. Token is usually set
	// through STATBLOCK_SCHEMA_GIT_TOKEN.
	Username string `yaml:"username"`
	Token    string `yaml:"token"`
}

// ParserConfig contains input handling settings.
type ParserConfig struct {
	// Normalize runs the text cleanup step before parsing.
	// Default: true
	Normalize bool `yaml:"normalize"`

	// MaxInputBytes rejects larger inputs.
	// Default: 65536
	MaxInputBytes int64 `yaml:"max_input_bytes"`

	// Timeout bounds a single parse.
	// Default: 5s
	Timeout time.Duration `yaml:"timeout"`
}

// RecordsConfig contains configuration for parse result storage.
type RecordsConfig struct {
	// Enabled controls whether parse results are stored.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Backend specifies the storage backend.
	// Options: "memory", "sqlite"
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite contains SQLite-specific configuration.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Retention contains retention policy configuration.
	Retention RetentionConfig `yaml:"retention"`

	// Query contains query configuration.
	Query QueryConfig `yaml:"query"`
}

// SQLiteConfig contains SQLite-specific configuration.
type SQLiteConfig struct {
	// Path is the file path for the SQLite database.
	// Default: "data/statblocks.db"
	Path string `yaml:"path"`

	// Driver selects the database/sql driver.
	// Options: "sqlite3" (cgo), "sqlite" (pure Go)
	// Default: "sqlite"
	Driver string `yaml:"driver"`

	// MaxOpenConns is the maximum number of open database connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle database connections.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// RetentionConfig contains retention policy configuration.
type RetentionConfig struct {
	// Days is the number of days to retain records.
	// 0 means keep records forever.
	// Default: 30
	Days int `yaml:"days"`

	// MaxRecords is the maximum number of records to keep (0 = unlimited).
	// Default: 0
	MaxRecords int64 `yaml:"max_records"`

	// PruneSchedule is a cron expression for scheduling pruning.
	// Default: "0 3 * * *" (daily at 3 AM)
	PruneSchedule string `yaml:"prune_schedule"`
}

// QueryConfig contains query configuration.
type QueryConfig struct {
	// DefaultLimit is the number of records returned when no limit is given.
	// Default: 100
	DefaultLimit int `yaml:"default_limit"`

	// MaxLimit is the largest limit a query may ask for.
	// Default: 10000
	MaxLimit int `yaml:"max_limit"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response.
	// Default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum time to wait for the next keep-alive request.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits request header size.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// Auth restricts the API to known keys.
	Auth AuthConfig `yaml:"auth"`

	// RateLimit throttles parse requests per client.
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// AuthConfig contains API key authentication settings. Health and metrics
// endpoints are never authenticated.
type AuthConfig struct {
	// Enabled requires a valid API key on every API request.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Header carries the key. A "Bearer " prefix is accepted.
	// Default: "Authorization"
	Header string `yaml:"header"`

	// Keys are the accepted API keys. Usually set through
	// STATBLOCK_SERVER_AUTH_KEYS (comma separated).
	Keys []APIKeyConfig `yaml:"keys"`
}

// APIKeyConfig is one accepted API key.
type APIKeyConfig struct {
	// Key is the secret value.
	Key string `yaml:"key"`

	// Name identifies the client in logs and rate limiting.
	Name string `yaml:"name"`

	// Disabled keys are rejected.
	Disabled bool `yaml:"disabled"`
}

// RateLimitConfig throttles POST /v1/parse. Clients are identified by API
// key name when auth is on, otherwise by remote address.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per client (0 = unlimited).
	// Default: 0
	RequestsPerSecond float64 `yaml:"requests_per_second"`

	// Burst is the bucket size per client.
	// Default: 10
	Burst int `yaml:"burst"`

	// MaxConcurrent caps parses in flight across all clients (0 = unlimited).
	// Default: 0
	MaxConcurrent int `yaml:"max_concurrent"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`

	// Health contains health check configuration.
	Health HealthConfig `yaml:"health"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text", "console"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "statblock"
	Namespace string `yaml:"namespace"`

	// ParseDurationBuckets defines histogram buckets for parse duration (seconds).
	// Default: [0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.5]
	ParseDurationBuckets []float64 `yaml:"parse_duration_buckets"`

	// MaxFieldLabels caps distinct field label values on error counters.
	// Default: 200
	MaxFieldLabels int `yaml:"max_field_labels"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether distributed tracing is active.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio", "parent"
	// Default: "ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Default: 0.1
	SampleRatio float64 `yaml:"sample_ratio"`

	// Exporter determines the trace exporter to use.
	// Options: "otlp"
	// Default: "otlp"
	Exporter string `yaml:"exporter"`

	// Endpoint is the trace collector endpoint, e.g. "localhost:4317".
	Endpoint string `yaml:"endpoint"`

	// ServiceName is the service name in traces.
	// Default: "statblock"
	ServiceName string `yaml:"service_name"`

	// OTLP contains OTLP exporter specific configuration.
	OTLP OTLPConfig `yaml:"otlp"`
}

// OTLPConfig contains OTLP exporter configuration.
type OTLPConfig struct {
	// Insecure disables TLS for the OTLP connection.
	// Default: true
	Insecure bool `yaml:"insecure"`

	// Timeout is the timeout for OTLP exports.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// HealthConfig contains health check endpoint configuration.
type HealthConfig struct {
	// Enabled controls whether health check endpoints are enabled.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// LivenessPath is the path for the liveness probe endpoint.
	// Default: "/health"
	LivenessPath string `yaml:"liveness_path"`

	// ReadinessPath is the path for the readiness probe endpoint.
	// Default: "/ready"
	ReadinessPath string `yaml:"readiness_path"`

	// CheckTimeout is the timeout for individual component health checks.
	// Default: 5s
	CheckTimeout time.Duration `yaml:"check_timeout"`
}
