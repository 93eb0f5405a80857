// Package config provides configuration management for the statblock service.
//
// Configuration is read from a YAML file, decoded on top of the defaults in
// defaults.go, optionally overridden from the environment and then validated.
//
// # Configuration Loading
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("statblock.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("statblock.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention STATBLOCK_SECTION_FIELD:
//
//   - STATBLOCK_SCHEMA_SOURCE overrides schema.source
//   - STATBLOCK_RECORDS_SQLITE_PATH overrides records.sqlite.path
//   - STATBLOCK_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// # Validation
//
// Validate collects every problem into a ValidationError whose Errors hold
// one FieldError per offending field, keyed by its dotted YAML path.
//
// # Singleton Pattern
//
// Initialize, GetConfig and ReloadConfig keep a process-wide configuration for
// the serve command. Library code receives a *Config explicitly.
package config
