package deckpatch

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Config contains all configuration options for the deckpatch engine
type Config struct {
	// LogLevel controls the verbosity of logging (debug, info, warn, error, off)
	LogLevel string
	// MaxIssues caps the number of issues returned by a validation run. 0 = unlimited.
	MaxIssues int
	// StrictSchema reports unknown elements in known containers as errors instead of warnings
	StrictSchema bool
	// OverflowToleranceEMU is the slack allowed before a text extent counts as overflow
	OverflowToleranceEMU int64
}

var (
	globalConfig      *Config
	globalConfigMutex sync.RWMutex
	configOnce        sync.Once
)

func init() {
	configOnce.Do(func() {
		globalConfig = ConfigFromEnvironment()
	})
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		LogLevel:             "info",
		MaxIssues:            0,
		StrictSchema:         false,
		OverflowToleranceEMU: 0,
	}
}

// ConfigFromEnvironment creates a configuration from environment variables
func ConfigFromEnvironment() *Config {
	config := DefaultConfig()

	// DECKPATCH_LOG_LEVEL
	if val := os.Getenv("DECKPATCH_LOG_LEVEL"); val != "" {
		config.LogLevel = val
	}

	// DECKPATCH_MAX_ISSUES
	if val := os.Getenv("DECKPATCH_MAX_ISSUES"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			config.MaxIssues = n
		}
	}

	// DECKPATCH_STRICT_SCHEMA
	if val := os.Getenv("DECKPATCH_STRICT_SCHEMA"); val != "" {
		config.StrictSchema = parseBool(val)
	}

	// DECKPATCH_OVERFLOW_TOLERANCE
	if val := os.Getenv("DECKPATCH_OVERFLOW_TOLERANCE"); val != "" {
		if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			config.OverflowToleranceEMU = n
		}
	}

	return config
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"off":   true,
	}

	if !validLogLevels[c.LogLevel] {
		return errors.New("invalid log level: " + c.LogLevel)
	}

	if c.MaxIssues < 0 {
		return errors.New("max issues cannot be negative")
	}

	if c.OverflowToleranceEMU < 0 {
		return errors.New("overflow tolerance cannot be negative")
	}

	return nil
}

// GetGlobalConfig returns the global configuration
func GetGlobalConfig() *Config {
	globalConfigMutex.RLock()
	defer globalConfigMutex.RUnlock()

	if globalConfig == nil {
		return DefaultConfig()
	}

	// Return a copy to prevent modification
	configCopy := *globalConfig
	return &configCopy
}

// SetGlobalConfig sets the global configuration
func SetGlobalConfig(config *Config) {
	globalConfigMutex.Lock()
	globalConfig = config
	globalConfigMutex.Unlock()

	// Update logger based on new config (outside the lock to avoid deadlock)
	UpdateLoggerFromConfig()
}

// parseBool parses a boolean value from a string
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}
