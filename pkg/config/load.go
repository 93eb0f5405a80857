package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "STATBLOCK_"

// LoadConfig loads configuration from a YAML file at the specified path.
// The file is decoded on top of the defaults, then validated. Environment
// variables are not consulted; use LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	// Read the file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	// Parse YAML over the defaults
	cfg := NewDefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	// Fill anything the file cleared
	ApplyDefaults(cfg)

	// Validate
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention STATBLOCK_SECTION_FIELD (e.g., STATBLOCK_SERVER_LISTEN_ADDRESS)
// and always take precedence over the file.
//
// An empty path skips the file and starts from the defaults.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg := NewDefaultConfig()
	if path != "" {
		var err error
		if cfg, err = LoadConfig(path); err != nil {
			return nil, err
		}
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Re-validate after overrides
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	// Schema overrides
	envString("SCHEMA_SOURCE", &cfg.Schema.Source)
	envString("SCHEMA_FILE_PATH", &cfg.Schema.FilePath)
	envBool("SCHEMA_WATCH", &cfg.Schema.Watch)
	envDuration("SCHEMA_WATCH_DEBOUNCE", &cfg.Schema.WatchDebounce)
	envString("SCHEMA_GIT_REPOSITORY", &cfg.Schema.Git.Repository)
	envString("SCHEMA_GIT_BRANCH", &cfg.Schema.Git.Branch)
	envString("SCHEMA_GIT_PATH", &cfg.Schema.Git.Path)
	envString("SCHEMA_GIT_CLONE_DIR", &cfg.Schema.Git.CloneDir)
	envDuration("SCHEMA_GIT_POLL_INTERVAL", &cfg.Schema.Git.PollInterval)
	envString("SCHEMA_GIT_USERNAME", &cfg.Schema.Git.Username)
	envString("SCHEMA_GIT_TOKEN", &cfg.Schema.Git.Token)

	// Parser overrides
	envBool("PARSER_NORMALIZE", &cfg.Parser.Normalize)
	if val := os.Getenv(EnvPrefix + "PARSER_MAX_INPUT_BYTES"); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			cfg.Parser.MaxInputBytes = i
		}
	}
	envDuration("PARSER_TIMEOUT", &cfg.Parser.Timeout)

	// Records overrides
	envBool("RECORDS_ENABLED", &cfg.Records.Enabled)
	envString("RECORDS_BACKEND", &cfg.Records.Backend)
	envString("RECORDS_SQLITE_PATH", &cfg.Records.SQLite.Path)
	envString("RECORDS_SQLITE_DRIVER", &cfg.Records.SQLite.Driver)
	envInt("RECORDS_RETENTION_DAYS", &cfg.Records.Retention.Days)
	envString("RECORDS_RETENTION_PRUNE_SCHEDULE", &cfg.Records.Retention.PruneSchedule)

	// Server overrides
	envString("SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	envDuration("SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	envDuration("SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	envDuration("SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)
	envBool("SERVER_AUTH_ENABLED", &cfg.Server.Auth.Enabled)
	if val := os.Getenv(EnvPrefix + "SERVER_AUTH_KEYS"); val != "" {
		cfg.Server.Auth.Keys = parseKeyList(val)
	}
	if val := os.Getenv(EnvPrefix + "SERVER_RATE_LIMIT_REQUESTS_PER_SECOND"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Server.RateLimit.RequestsPerSecond = f
		}
	}
	envInt("SERVER_RATE_LIMIT_BURST", &cfg.Server.RateLimit.Burst)
	envInt("SERVER_RATE_LIMIT_MAX_CONCURRENT", &cfg.Server.RateLimit.MaxConcurrent)

	// Telemetry overrides
	envString("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	envBool("TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	envString("TELEMETRY_METRICS_PATH", &cfg.Telemetry.Metrics.Path)
	envBool("TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	envString("TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	if val := os.Getenv(EnvPrefix + "TELEMETRY_TRACING_SAMPLE_RATIO"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Telemetry.Tracing.SampleRatio = f
		}
	}
}

func envString(key string, dst *string) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		*dst = val
	}
}

func envBool(key string, dst *bool) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func envInt(key string, dst *int) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func envDuration(key string, dst *time.Duration) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}

// parseKeyList reads "name:key,name:key" (or bare keys, named key-1, key-2...).
func parseKeyList(val string) []APIKeyConfig {
	var keys []APIKeyConfig
	for i, item := range strings.Split(val, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		name, key, ok := strings.Cut(item, ":")
		if !ok {
			name, key = fmt.Sprintf("key-%d", i+1), item
		}
		keys = append(keys, APIKeyConfig{Name: name, Key: key})
	}
	return keys
}
