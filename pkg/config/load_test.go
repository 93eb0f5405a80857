package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "statblock.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfig_ValidFile(t *testing.T) {
	path := writeConfig(t, `
schema:
  source: "file"
  file_path: "./schemas/monster.yaml"
  watch: true
  watch_debounce: "500ms"

records:
  backend: "sqlite"
  sqlite:
    path: "./test-records.db"
    driver: "sqlite3"
  retention:
    days: 7

server:
  listen_address: "0.0.0.0:9090"
  read_timeout: "60s"

telemetry:
  logging:
    level: "debug"
    format: "text"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Schema.Source != "file" {
		t.Errorf("expected schema source %q, got %q", "file", cfg.Schema.Source)
	}
	if !cfg.Schema.Watch {
		t.Error("expected schema watch to be enabled")
	}
	if cfg.Schema.WatchDebounce != 500*time.Millisecond {
		t.Errorf("expected watch debounce %v, got %v", 500*time.Millisecond, cfg.Schema.WatchDebounce)
	}
	if cfg.Records.SQLite.Driver != "sqlite3" {
		t.Errorf("expected driver %q, got %q", "sqlite3", cfg.Records.SQLite.Driver)
	}
	if cfg.Records.Retention.Days != 7 {
		t.Errorf("expected retention days %d, got %d", 7, cfg.Records.Retention.Days)
	}
	if cfg.Server.ListenAddress != "0.0.0.0:9090" {
		t.Errorf("expected listen address %q, got %q", "0.0.0.0:9090", cfg.Server.ListenAddress)
	}
	if cfg.Server.ReadTimeout != 60*time.Second {
		t.Errorf("expected read timeout %v, got %v", 60*time.Second, cfg.Server.ReadTimeout)
	}
	if cfg.Telemetry.Logging.Level != "debug" {
		t.Errorf("expected logging level %q, got %q", "debug", cfg.Telemetry.Logging.Level)
	}
}

func TestLoadConfig_DefaultsSurviveOmittedFields(t *testing.T) {
	path := writeConfig(t, `
server:
  listen_address: "127.0.0.1:7000"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if !cfg.Parser.Normalize {
		t.Error("expected parser.normalize to default to true")
	}
	if !cfg.Records.Enabled {
		t.Error("expected records.enabled to default to true")
	}
	if !cfg.Records.SQLite.WALMode {
		t.Error("expected records.sqlite.wal_mode to default to true")
	}
	if !cfg.Telemetry.Metrics.Enabled {
		t.Error("expected telemetry.metrics.enabled to default to true")
	}
	if cfg.Schema.Source != DefaultSchemaSource {
		t.Errorf("expected schema source %q, got %q", DefaultSchemaSource, cfg.Schema.Source)
	}
	if cfg.Records.Retention.PruneSchedule != DefaultRetentionPruneSchedule {
		t.Errorf("expected prune schedule %q, got %q", DefaultRetentionPruneSchedule, cfg.Records.Retention.PruneSchedule)
	}
	if len(cfg.Telemetry.Metrics.ParseDurationBuckets) != len(DefaultParseDurationBuckets) {
		t.Errorf("expected %d buckets, got %d", len(DefaultParseDurationBuckets), len(cfg.Telemetry.Metrics.ParseDurationBuckets))
	}
}

func TestLoadConfig_ExplicitFalse(t *testing.T) {
	path := writeConfig(t, `
parser:
  normalize: false
records:
  enabled: false
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Parser.Normalize {
		t.Error("expected parser.normalize false")
	}
	if cfg.Records.Enabled {
		t.Error("expected records.enabled false")
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist, got %v", err)
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "server: [unclosed")

	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
	if !strings.Contains(err.Error(), "failed to parse") {
		t.Errorf("expected parse error, got %v", err)
	}
}

func TestLoadConfig_ValidationFailure(t *testing.T) {
	path := writeConfig(t, `
schema:
  source: "ftp"
`)

	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("expected validation error")
	}

	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if verr.Errors[0].Field != "schema.source" {
		t.Errorf("expected field %q, got %q", "schema.source", verr.Errors[0].Field)
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
server:
  listen_address: "127.0.0.1:8080"
telemetry:
  logging:
    level: "info"
`)

	t.Setenv("STATBLOCK_SERVER_LISTEN_ADDRESS", "0.0.0.0:9999")
	t.Setenv("STATBLOCK_TELEMETRY_LOGGING_LEVEL", "warn")
	t.Setenv("STATBLOCK_PARSER_TIMEOUT", "2s")
	t.Setenv("STATBLOCK_PARSER_NORMALIZE", "false")
	t.Setenv("STATBLOCK_RECORDS_RETENTION_DAYS", "90")
	t.Setenv("STATBLOCK_TELEMETRY_TRACING_SAMPLE_RATIO", "0.5")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.ListenAddress != "0.0.0.0:9999" {
		t.Errorf("expected listen address %q, got %q", "0.0.0.0:9999", cfg.Server.ListenAddress)
	}
	if cfg.Telemetry.Logging.Level != "warn" {
		t.Errorf("expected logging level %q, got %q", "warn", cfg.Telemetry.Logging.Level)
	}
	if cfg.Parser.Timeout != 2*time.Second {
		t.Errorf("expected parser timeout %v, got %v", 2*time.Second, cfg.Parser.Timeout)
	}
	if cfg.Parser.Normalize {
		t.Error("expected parser.normalize overridden to false")
	}
	if cfg.Records.Retention.Days != 90 {
		t.Errorf("expected retention days %d, got %d", 90, cfg.Records.Retention.Days)
	}
	if cfg.Telemetry.Tracing.SampleRatio != 0.5 {
		t.Errorf("expected sample ratio %v, got %v", 0.5, cfg.Telemetry.Tracing.SampleRatio)
	}
}

func TestLoadConfigWithEnvOverrides_NoFile(t *testing.T) {
	t.Setenv("STATBLOCK_RECORDS_BACKEND", "memory")

	cfg, err := LoadConfigWithEnvOverrides("")
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Records.Backend != "memory" {
		t.Errorf("expected backend %q, got %q", "memory", cfg.Records.Backend)
	}
	if cfg.Server.ListenAddress != DefaultListenAddress {
		t.Errorf("expected listen address %q, got %q", DefaultListenAddress, cfg.Server.ListenAddress)
	}
}

func TestLoadConfigWithEnvOverrides_InvalidOverride(t *testing.T) {
	t.Setenv("STATBLOCK_TELEMETRY_LOGGING_FORMAT", "xml")

	_, err := LoadConfigWithEnvOverrides("")
	if err == nil {
		t.Fatal("expected validation error after override")
	}
	if !strings.Contains(err.Error(), "telemetry.logging.format") {
		t.Errorf("expected error to name telemetry.logging.format, got %v", err)
	}
}

func TestLoadConfigWithEnvOverrides_MalformedValuesIgnored(t *testing.T) {
	t.Setenv("STATBLOCK_PARSER_TIMEOUT", "soon")
	t.Setenv("STATBLOCK_RECORDS_RETENTION_DAYS", "many")

	cfg, err := LoadConfigWithEnvOverrides("")
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Parser.Timeout != DefaultParserTimeout {
		t.Errorf("expected parser timeout %v, got %v", DefaultParserTimeout, cfg.Parser.Timeout)
	}
	if cfg.Records.Retention.Days != DefaultRetentionDays {
		t.Errorf("expected retention days %d, got %d", DefaultRetentionDays, cfg.Records.Retention.Days)
	}
}

func TestLoadConfigWithEnvOverrides_AuthKeys(t *testing.T) {
	t.Setenv("STATBLOCK_SERVER_AUTH_ENABLED", "true")
	t.Setenv("STATBLOCK_SERVER_AUTH_KEYS", "roll20:abc, bare-secret ,")
	t.Setenv("STATBLOCK_SERVER_RATE_LIMIT_REQUESTS_PER_SECOND", "2.5")

	cfg, err := LoadConfigWithEnvOverrides("")
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	want := []APIKeyConfig{{Name: "roll20", Key: "abc"}, {Name: "key-2", Key: "bare-secret"}}
	if len(cfg.Server.Auth.Keys) != len(want) {
		t.Fatalf("keys = %+v, want %+v", cfg.Server.Auth.Keys, want)
	}
	for i := range want {
		if cfg.Server.Auth.Keys[i] != want[i] {
			t.Errorf("keys[%d] = %+v, want %+v", i, cfg.Server.Auth.Keys[i], want[i])
		}
	}
	if cfg.Server.RateLimit.RequestsPerSecond != 2.5 {
		t.Errorf("rate = %v, want 2.5", cfg.Server.RateLimit.RequestsPerSecond)
	}
	if cfg.Server.Auth.Header != DefaultAuthHeader {
		t.Errorf("header = %q, want default", cfg.Server.Auth.Header)
	}
}
