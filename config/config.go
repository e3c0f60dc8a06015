package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"tradeJournal/internal/adapters/logger"
	"tradeJournal/internal/analytics"
)

// Config holds all application configuration.
type Config struct {
	// Source
	Wallet    string // Default wallet when --wallet is not given
	FillsPath string // Exported fills JSON used by sync

	// Aggregation
	IncludeOpenTrades   bool // Keep still-open positions in the trade list
	DropEmptyTrades     bool // Discard closed trades with zero pnl and zero fees
	ParallelInstruments bool // Fold instruments concurrently

	// Analytics
	StatsBasis analytics.Basis // gross or net pnl for win/loss classification

	// Database
	DBPath string

	// Logging
	LogLevel  logger.LogLevel
	LogFormat logger.Format
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()
	return fromEnv()
}

// LoadConfigFile loads configuration from the given .env file, then the environment.
// Variables already set in the environment win over the file.
func LoadConfigFile(path string) (*Config, error) {
	if err := godotenv.Load(path); err != nil {
		return nil, fmt.Errorf("failed to load env file '%s': %w", path, err)
	}
	return fromEnv()
}

func fromEnv() (*Config, error) {
	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	cfg.Wallet = strings.TrimSpace(getEnv("WALLET", ""))
	cfg.FillsPath = getEnv("FILLS_PATH", "")

	cfg.IncludeOpenTrades, err = getEnvAsBoolRequired("INCLUDE_OPEN_TRADES", true)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid INCLUDE_OPEN_TRADES: %v", err))
	}
	cfg.DropEmptyTrades, err = getEnvAsBoolRequired("DROP_EMPTY_TRADES", false)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid DROP_EMPTY_TRADES: %v", err))
	}
	cfg.ParallelInstruments = getEnvAsBool("PARALLEL_INSTRUMENTS", false)

	switch basis := analytics.Basis(strings.ToLower(getEnv("STATS_BASIS", string(analytics.BasisGross)))); basis {
	case analytics.BasisGross, analytics.BasisNet:
		cfg.StatsBasis = basis
	default:
		errs = append(errs, fmt.Sprintf("STATS_BASIS must be 'gross' or 'net', got '%s'", basis))
	}

	// Database
	cfg.DBPath = getEnv("DB_PATH", "./data/journal.db")
	if cfg.DBPath == "" {
		errs = append(errs, "DB_PATH must be set")
	}

	// Logging
	cfg.LogLevel = logger.ParseLevel(getEnv("LOG_LEVEL", "INFO"))
	cfg.LogFormat = logger.ParseFormat(getEnv("LOG_FORMAT", "console"))

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsBoolRequired(key string, defaultValue bool) (bool, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		// Use default if env var is not set at all
		return defaultValue, nil
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		// Return error if env var is set but invalid
		return false, fmt.Errorf("invalid boolean value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
