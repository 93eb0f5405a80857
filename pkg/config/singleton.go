package config

import (
	"fmt"
	"sync"
)

var (
	// globalConfig is the process-wide configuration set by Initialize.
	globalConfig *Config

	// configMutex guards globalConfig.
	configMutex sync.RWMutex

	// initOnce makes Initialize load at most once.
	initOnce sync.Once

	// initErr remembers the outcome of the first Initialize call so later
	// callers see the same error.
	initErr error
)

// Initialize loads configuration from path (with environment overrides) and
// installs it as the process-wide configuration. Only the first call loads
// anything; later calls return the first call's result.
func Initialize(path string) error {
	initOnce.Do(func() {
		cfg, err := LoadConfigWithEnvOverrides(path)
		if err != nil {
			initErr = err
			return
		}
		SetConfig(cfg)
	})
	return initErr
}

// GetConfig returns the process-wide configuration, or nil before a
// successful Initialize. Commands and tests should prefer passing a *Config
// explicitly.
func GetConfig() *Config {
	configMutex.RLock()
	defer configMutex.RUnlock()
	return globalConfig
}

// SetConfig replaces the process-wide configuration.
func SetConfig(cfg *Config) {
	configMutex.Lock()
	defer configMutex.Unlock()
	globalConfig = cfg
}

// ReloadConfig re-reads path and swaps the process-wide configuration. On
// failure the current configuration is kept.
func ReloadConfig(path string) error {
	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		return fmt.Errorf("failed to reload configuration: %w", err)
	}
	SetConfig(cfg)
	return nil
}

// MustGetConfig is GetConfig for code that runs after startup succeeded. It
// panics when no configuration is installed.
func MustGetConfig() *Config {
	cfg := GetConfig()
	if cfg == nil {
		panic("configuration not initialized: call Initialize first")
	}
	return cfg
}

// resetForTest clears the singleton so tests can call Initialize again.
func resetForTest() {
	configMutex.Lock()
	globalConfig = nil
	configMutex.Unlock()
	initOnce = sync.Once{}
	initErr = nil
}
