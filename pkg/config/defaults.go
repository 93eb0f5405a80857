package config

import "time"

// Default values for configuration fields.
const (
	// Schema defaults
	DefaultSchemaSource        = "builtin"
	DefaultSchemaWatchDebounce = 200 * time.Millisecond
	DefaultGitBranch           = "main"
	DefaultGitPath             = "monster.yaml"
	DefaultGitCloneDir         = "data/schemas"

	// Parser defaults
	DefaultParserNormalize     = true
	DefaultParserMaxInputBytes = int64(65536)
	DefaultParserTimeout       = 5 * time.Second

	// Records defaults
	DefaultRecordsEnabled         = true
	DefaultRecordsBackend         = "sqlite"
	DefaultSQLitePath             = "data/statblocks.db"
	DefaultSQLiteDriver           = "sqlite"
	DefaultSQLiteMaxOpenConns     = 10
	DefaultSQLiteMaxIdleConns     = 5
	DefaultSQLiteWALMode          = true
	DefaultSQLiteBusyTimeout      = 5 * time.Second
	DefaultRetentionDays          = 30
	DefaultRetentionPruneSchedule = "0 3 * * *"
	DefaultQueryDefaultLimit      = 100
	DefaultQueryMaxLimit          = 10000

	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1048576 // 1MB
	DefaultAuthHeader      = "Authorization"
	DefaultRateLimitBurst  = 10

	// Telemetry defaults
	DefaultLoggingLevel        = "info"
	DefaultLoggingFormat       = "json"
	DefaultMetricsEnabled      = true
	DefaultMetricsPath         = "/metrics"
	DefaultMetricsNamespace    = "statblock"
	DefaultMaxFieldLabels      = 200
	DefaultTracingSampler      = "ratio"
	DefaultTracingSampleRatio  = 0.1
	DefaultTracingExporter     = "otlp"
	DefaultTracingServiceName  = "statblock"
	DefaultOTLPInsecure        = true
	DefaultOTLPTimeout         = 10 * time.Second
	DefaultHealthEnabled       = true
	DefaultHealthLivenessPath  = "/health"
	DefaultHealthReadinessPath = "/ready"
	DefaultHealthCheckTimeout  = 5 * time.Second
)

// DefaultParseDurationBuckets are the parse duration histogram buckets in
// seconds. Parses are expected to take well under a millisecond.
var DefaultParseDurationBuckets = []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.5}

// NewDefaultConfig returns a configuration with every default applied.
// Boolean options that default to true are only set here, so files are
// decoded on top of this value rather than onto a zero Config.
func NewDefaultConfig() *Config {
	cfg := &Config{
		Parser: ParserConfig{
			Normalize: DefaultParserNormalize,
		},
		Records: RecordsConfig{
			Enabled: DefaultRecordsEnabled,
			SQLite: SQLiteConfig{
				WALMode: DefaultSQLiteWALMode,
			},
		},
		Telemetry: TelemetryConfig{
			Metrics: MetricsConfig{Enabled: DefaultMetricsEnabled},
			Tracing: TracingConfig{OTLP: OTLPConfig{Insecure: DefaultOTLPInsecure}},
			Health:  HealthConfig{Enabled: DefaultHealthEnabled},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills every zero-valued field with its default.
func ApplyDefaults(cfg *Config) {
	// Schema defaults
	if cfg.Schema.Source == "" {
		cfg.Schema.Source = DefaultSchemaSource
	}
	if cfg.Schema.WatchDebounce == 0 {
		cfg.Schema.WatchDebounce = DefaultSchemaWatchDebounce
	}
	if cfg.Schema.Git.Branch == "" {
		cfg.Schema.Git.Branch = DefaultGitBranch
	}
	if cfg.Schema.Git.Path == "" {
		cfg.Schema.Git.Path = DefaultGitPath
	}
	if cfg.Schema.Git.CloneDir == "" {
		cfg.Schema.Git.CloneDir = DefaultGitCloneDir
	}

	// Parser defaults
	if cfg.Parser.MaxInputBytes == 0 {
		cfg.Parser.MaxInputBytes = DefaultParserMaxInputBytes
	}
	if cfg.Parser.Timeout == 0 {
		cfg.Parser.Timeout = DefaultParserTimeout
	}

	// Records defaults
	if cfg.Records.Backend == "" {
		cfg.Records.Backend = DefaultRecordsBackend
	}
	if cfg.Records.SQLite.Path == "" {
		cfg.Records.SQLite.Path = DefaultSQLitePath
	}
	if cfg.Records.SQLite.Driver == "" {
		cfg.Records.SQLite.Driver = DefaultSQLiteDriver
	}
	if cfg.Records.SQLite.MaxOpenConns == 0 {
		cfg.Records.SQLite.MaxOpenConns = DefaultSQLiteMaxOpenConns
	}
	if cfg.Records.SQLite.MaxIdleConns == 0 {
		cfg.Records.SQLite.MaxIdleConns = DefaultSQLiteMaxIdleConns
	}
	if cfg.Records.SQLite.BusyTimeout == 0 {
		cfg.Records.SQLite.BusyTimeout = DefaultSQLiteBusyTimeout
	}
	if cfg.Records.Retention.Days == 0 {
		cfg.Records.Retention.Days = DefaultRetentionDays
	}
	if cfg.Records.Retention.PruneSchedule == "" {
		cfg.Records.Retention.PruneSchedule = DefaultRetentionPruneSchedule
	}
	if cfg.Records.Query.DefaultLimit == 0 {
		cfg.Records.Query.DefaultLimit = DefaultQueryDefaultLimit
	}
	if cfg.Records.Query.MaxLimit == 0 {
		cfg.Records.Query.MaxLimit = DefaultQueryMaxLimit
	}

	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if cfg.Server.Auth.Header == "" {
		cfg.Server.Auth.Header = DefaultAuthHeader
	}
	if cfg.Server.RateLimit.Burst == 0 {
		cfg.Server.RateLimit.Burst = DefaultRateLimitBurst
	}

	// Telemetry defaults
	applyTelemetryDefaults(&cfg.Telemetry)
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLoggingFormat
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if len(cfg.Metrics.ParseDurationBuckets) == 0 {
		cfg.Metrics.ParseDurationBuckets = append([]float64(nil), DefaultParseDurationBuckets...)
	}
	if cfg.Metrics.MaxFieldLabels == 0 {
		cfg.Metrics.MaxFieldLabels = DefaultMaxFieldLabels
	}

	if cfg.Tracing.Sampler == "" {
		cfg.Tracing.Sampler = DefaultTracingSampler
	}
	if cfg.Tracing.SampleRatio == 0 {
		cfg.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	if cfg.Tracing.Exporter == "" {
		cfg.Tracing.Exporter = DefaultTracingExporter
	}
	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = DefaultTracingServiceName
	}
	if cfg.Tracing.OTLP.Timeout == 0 {
		cfg.Tracing.OTLP.Timeout = DefaultOTLPTimeout
	}

	if cfg.Health.LivenessPath == "" {
		cfg.Health.LivenessPath = DefaultHealthLivenessPath
	}
	if cfg.Health.ReadinessPath == "" {
		cfg.Health.ReadinessPath = DefaultHealthReadinessPath
	}
	if cfg.Health.CheckTimeout == 0 {
		cfg.Health.CheckTimeout = DefaultHealthCheckTimeout
	}
}
