// Package config provides engine configuration management with support for
// environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds the engine configuration.
type Config struct {
	App      AppConfig
	Logger   LoggerConfig
	Data     DataConfig
	Sync     SyncConfig
	Debounce DebounceConfig
	Shell    ShellConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// DataConfig holds on-device storage configuration.
type DataConfig struct {
	// BasePath is the engine's data directory. The record store lives in
	// {base}/records, blobs in {base}/blobs, and the drop folder defaults
	// to {base}/drop.
	BasePath string

	// DropPath is the watched folder for document ingestion.
	DropPath string

	// WatcherSettle is how long a dropped file must stay unchanged before
	// ingestion.
	WatcherSettle time.Duration
}

// SyncConfig holds cloud replication configuration.
type SyncConfig struct {
	// BaseURL of the cloud backend. Empty disables sync entirely; the
	// engine is fully functional offline.
	BaseURL string

	// Interval between periodic push passes.
	Interval time.Duration

	// PushesPerMinute caps how often coalesced triggers turn into
	// network passes.
	PushesPerMinute int
}

// DebounceConfig holds the write-scheduler settle windows.
type DebounceConfig struct {
	// PositionWindow delays durable position writes behind a page-turn
	// burst.
	PositionWindow time.Duration

	// StatsWindow delays reading-minutes accumulation writes.
	StatsWindow time.Duration
}

// ShellConfig holds native-shell publishing configuration.
type ShellConfig struct {
	// Enabled controls the D-Bus widget publisher. Disabled falls back to
	// a no-op publisher (headless, tests).
	Enabled bool
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	// Define command-line flags.
	env := flag.String("env", "", "Environment (development, staging, production)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := flag.String("data-path", "", "Base path for engine data")
	dropPath := flag.String("drop-path", "", "Watched drop folder for document ingestion")
	watcherSettle := flag.String("watcher-settle", "", "Settle delay before ingesting a dropped file (default: 500ms)")

	// Sync flags
	syncURL := flag.String("sync-url", "", "Cloud backend base URL (empty disables sync)")
	syncInterval := flag.String("sync-interval", "", "Periodic push interval (default: 5m)")
	syncPushes := flag.String("sync-pushes-per-minute", "", "Max push passes per minute (default: 12)")

	// Debounce flags
	positionWindow := flag.String("position-window", "", "Debounce window for position writes (default: 1s)")
	statsWindow := flag.String("stats-window", "", "Debounce window for stats writes (default: 2s)")

	shellEnabled := flag.String("shell-enabled", "", "Publish progress to the native shell over D-Bus (default: true)")

	envFile := flag.String("env-file", ".env", "Path to .env file")

	flag.Parse()

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	// Build config with proper precedence.
	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Data: DataConfig{
			BasePath: getConfigValue(*dataPath, "DATA_PATH", ""),
			DropPath: getConfigValue(*dropPath, "DROP_PATH", ""),
		},
		Sync: SyncConfig{
			BaseURL:         getConfigValue(*syncURL, "SYNC_URL", ""),
			PushesPerMinute: getIntConfigValue(*syncPushes, "SYNC_PUSHES_PER_MINUTE", 12),
		},
		Shell: ShellConfig{
			Enabled: getBoolConfigValue(*shellEnabled, "SHELL_ENABLED", true),
		},
	}

	// Parse durations.
	var err error
	if cfg.Data.WatcherSettle, err = getDurationConfigValue(*watcherSettle, "WATCHER_SETTLE", 500*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.Sync.Interval, err = getDurationConfigValue(*syncInterval, "SYNC_INTERVAL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.Debounce.PositionWindow, err = getDurationConfigValue(*positionWindow, "POSITION_WINDOW", time.Second); err != nil {
		return nil, err
	}
	if cfg.Debounce.StatsWindow, err = getDurationConfigValue(*statsWindow, "STATS_WINDOW", 2*time.Second); err != nil {
		return nil, err
	}

	// Expand and validate the data path.
	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	// Validate configuration.
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// RecordsPath returns the record store directory.
func (c *Config) RecordsPath() string {
	return filepath.Join(c.Data.BasePath, "records")
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Data.BasePath == "" {
		return errors.New("data base path cannot be empty after expansion")
	}

	if c.Sync.BaseURL != "" && !strings.HasPrefix(c.Sync.BaseURL, "http://") && !strings.HasPrefix(c.Sync.BaseURL, "https://") {
		return fmt.Errorf("invalid sync url: %s (must be http or https)", c.Sync.BaseURL)
	}

	if c.Debounce.PositionWindow <= 0 || c.Debounce.StatsWindow <= 0 {
		return errors.New("debounce windows must be positive")
	}

	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	// Expand tilde.
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	// Make absolute if needed.
	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandDataPath expands ~ and makes the data paths absolute. The drop
// folder defaults to {base}/drop.
func (c *Config) expandDataPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, "PageTurn")

	expanded, err := expandPath(c.Data.BasePath, defaultPath)
	if err != nil {
		return err
	}
	c.Data.BasePath = expanded

	dropDefault := filepath.Join(c.Data.BasePath, "drop")
	expanded, err = expandPath(c.Data.DropPath, dropDefault)
	if err != nil {
		return err
	}
	c.Data.DropPath = expanded
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	// Priority 1: Command-line flag.
	if flagValue != "" {
		return flagValue
	}

	// Priority 2: Environment variable.
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	// Priority 3: Default value.
	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// getDurationConfigValue returns a duration from flag, env var, or default.
func getDurationConfigValue(flagValue, envKey string, defaultValue time.Duration) (time.Duration, error) {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(strValue)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %q: %w", envKey, strValue, err)
	}
	return d, nil
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments.
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=value.
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove quotes if present.
		value = strings.Trim(value, `"'`)

		// Only set if not already set (env vars take precedence over .env file).
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
