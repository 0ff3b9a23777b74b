// Package config provides configuration loading and validation for the API server.
// It uses koanf to merge environment variables with optional file overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration values for the API server.
type Config struct {
	// Server settings
	Port int    `koanf:"port"`
	Env  string `koanf:"env"`

	// Database
	DatabaseURL string `koanf:"database_url"`

	// JWT Authentication
	JWTSecret string `koanf:"jwt_secret"`
	// JWTSecretPrevious allows verifying tokens signed with the prior
	// secret during rotation. Optional.
	JWTSecretPrevious string `koanf:"jwt_secret_previous"`

	// Redis (rate limiting and health checks). Optional; rate limiting
	// falls back to an in-memory limiter when unset.
	RedisURL string `koanf:"redis_url"`

	// Matching
	CalibrationFilePath string `koanf:"calibration_file_path"` // optional weight overrides
	MatchPoolLimit      int    `koanf:"match_pool_limit"`
	MatchResultLimit    int    `koanf:"match_result_limit"`
	FeedbackWindow      int    `koanf:"feedback_window"` // ratings considered per adaptation

	// Reputation recompute job
	RecomputeIntervalSeconds int `koanf:"recompute_interval_seconds"`
}

// Configuration validation errors.
var (
	ErrMissingDatabaseURL     = errors.New("DATABASE_URL is required")
	ErrMissingJWTSecret       = errors.New("JWT_SECRET is required")
	ErrInvalidPort            = errors.New("PORT must be a valid integer")
	ErrInvalidMatchPoolLimit  = errors.New("MATCH_POOL_LIMIT must be positive")
	ErrInvalidMatchResult     = errors.New("MATCH_RESULT_LIMIT must be positive")
	ErrInvalidFeedbackWindow  = errors.New("FEEDBACK_WINDOW must be positive")
	ErrInvalidRecomputeConfig = errors.New("RECOMPUTE_INTERVAL_SECONDS must be positive")
)

// Default values for non-secret configuration.
const (
	DefaultPort                     = 8080
	DefaultEnv                      = "development"
	DefaultMatchPoolLimit           = 1000
	DefaultMatchResultLimit         = 200
	DefaultFeedbackWindow           = 300
	DefaultRecomputeIntervalSeconds = 30
)

// Load reads configuration from environment variables and an optional config file.
// Environment variables take precedence over file values.
// Returns the loaded config and a slice of validation errors (empty if valid).
// If a config file path is provided and the file cannot be loaded, an error is returned.
func Load(configFilePath string) (*Config, []error) {
	k := koanf.New(".")
	var loadErrs []error

	// Load from YAML file first if provided (lower precedence)
	if configFilePath != "" {
		if err := k.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
			return nil, []error{fmt.Errorf("failed to load config file %s: %w", configFilePath, err)}
		}
	}

	// Parse port from env, collecting error if invalid
	// Try KINDRED_PORT first, then PORT for backward compatibility
	port, portErr := getEnvIntOrDefaultMulti([]string{"KINDRED_PORT", "PORT"}, k.Int("port"), DefaultPort)
	if portErr != nil {
		loadErrs = append(loadErrs, portErr)
	}

	poolLimit, poolErr := getEnvIntOrDefault("MATCH_POOL_LIMIT", k.Int("match_pool_limit"), DefaultMatchPoolLimit)
	if poolErr != nil {
		loadErrs = append(loadErrs, poolErr)
	}

	resultLimit, resultErr := getEnvIntOrDefault("MATCH_RESULT_LIMIT", k.Int("match_result_limit"), DefaultMatchResultLimit)
	if resultErr != nil {
		loadErrs = append(loadErrs, resultErr)
	}

	feedbackWindow, windowErr := getEnvIntOrDefault("FEEDBACK_WINDOW", k.Int("feedback_window"), DefaultFeedbackWindow)
	if windowErr != nil {
		loadErrs = append(loadErrs, windowErr)
	}

	recomputeInterval, recomputeErr := getEnvIntOrDefault("RECOMPUTE_INTERVAL_SECONDS", k.Int("recompute_interval_seconds"), DefaultRecomputeIntervalSeconds)
	if recomputeErr != nil {
		loadErrs = append(loadErrs, recomputeErr)
	}

	// Build config struct, with env vars taking precedence over file values
	cfg := &Config{
		Port:                     port,
		Env:                      getEnvOrDefaultMulti([]string{"KINDRED_ENV", "ENV", "GO_ENV"}, k.String("env"), DefaultEnv),
		DatabaseURL:              getEnvOrKoanf("DATABASE_URL", k, "database_url"),
		JWTSecret:                getEnvOrKoanf("JWT_SECRET", k, "jwt_secret"),
		JWTSecretPrevious:        getEnvOrKoanf("JWT_SECRET_PREVIOUS", k, "jwt_secret_previous"),
		RedisURL:                 getEnvOrKoanf("REDIS_URL", k, "redis_url"),
		CalibrationFilePath:      getEnvOrKoanf("CALIBRATION_FILE_PATH", k, "calibration_file_path"),
		MatchPoolLimit:           poolLimit,
		MatchResultLimit:         resultLimit,
		FeedbackWindow:           feedbackWindow,
		RecomputeIntervalSeconds: recomputeInterval,
	}

	// Validate and collect errors
	errs := cfg.Validate()
	errs = append(loadErrs, errs...)

	return cfg, errs
}

// getEnvOrKoanf returns the environment variable value if set, otherwise the koanf value.
func getEnvOrKoanf(envKey string, k *koanf.Koanf, koanfKey string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	return k.String(koanfKey)
}

// getEnvOrDefaultMulti tries multiple environment variable keys in order.
// Returns the first non-empty value found, otherwise the koanf value, or default.
func getEnvOrDefaultMulti(envKeys []string, koanfVal string, defaultVal string) string {
	for _, key := range envKeys {
		if val := os.Getenv(key); val != "" {
			return val
		}
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

// getEnvIntOrDefault returns the environment variable as int if set, otherwise the koanf value, or default.
// Returns an error if the environment variable is set but cannot be parsed as an integer.
// Note: a zero value from a YAML file falls back to the default; zero is not supported in YAML files.
func getEnvIntOrDefault(envKey string, koanfVal int, defaultVal int) (int, error) {
	if val := os.Getenv(envKey); val != "" {
		i, err := strconv.Atoi(val)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid integer", envKey)
		}
		return i, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// getEnvIntOrDefaultMulti tries multiple environment variable keys in order.
// Returns the first valid integer value found, otherwise the koanf value, or default.
// Returns an error if any environment variable is set but cannot be parsed as an integer.
func getEnvIntOrDefaultMulti(envKeys []string, koanfVal int, defaultVal int) (int, error) {
	for _, key := range envKeys {
		if val := os.Getenv(key); val != "" {
			i, err := strconv.Atoi(val)
			if err != nil {
				return 0, fmt.Errorf("%s must be a valid integer: %w", key, ErrInvalidPort)
			}
			return i, nil
		}
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// Validate checks that all required configuration values are present and
// tuning values are sane. Returns a slice of validation errors (empty if valid).
func (c *Config) Validate() []error {
	var errs []error

	if c.DatabaseURL == "" {
		errs = append(errs, ErrMissingDatabaseURL)
	}
	if c.JWTSecret == "" {
		errs = append(errs, ErrMissingJWTSecret)
	}
	if c.MatchPoolLimit <= 0 {
		errs = append(errs, ErrInvalidMatchPoolLimit)
	}
	if c.MatchResultLimit <= 0 {
		errs = append(errs, ErrInvalidMatchResult)
	}
	if c.FeedbackWindow <= 0 {
		errs = append(errs, ErrInvalidFeedbackWindow)
	}
	if c.RecomputeIntervalSeconds <= 0 {
		errs = append(errs, ErrInvalidRecomputeConfig)
	}

	return errs
}

// LogSummary returns a summary of the configuration suitable for logging.
// All secrets are masked to prevent accidental exposure.
func (c *Config) LogSummary() map[string]string {
	return map[string]string{
		"port":                       fmt.Sprintf("%d", c.Port),
		"env":                        c.Env,
		"database_url":               maskDatabaseURL(c.DatabaseURL),
		"jwt_secret":                 maskSecret(c.JWTSecret),
		"jwt_secret_previous":        maskSecret(c.JWTSecretPrevious),
		"redis_url":                  maskDatabaseURL(c.RedisURL),
		"calibration_file_path":      c.CalibrationFilePath,
		"match_pool_limit":           fmt.Sprintf("%d", c.MatchPoolLimit),
		"match_result_limit":         fmt.Sprintf("%d", c.MatchResultLimit),
		"feedback_window":            fmt.Sprintf("%d", c.FeedbackWindow),
		"recompute_interval_seconds": fmt.Sprintf("%d", c.RecomputeIntervalSeconds),
	}
}

// maskSecret masks a secret value, showing only the first 4 characters followed by ****
// If the secret is shorter than 8 characters, it's fully masked.
func maskSecret(s string) string {
	if s == "" {
		return "<not set>"
	}
	if len(s) < 8 {
		return "****"
	}
	return s[:4] + "****"
}

// maskDatabaseURL masks the password in a connection URL.
// Supports postgres://, postgresql://, and redis:// schemes.
func maskDatabaseURL(s string) string {
	if s == "" {
		return "<not set>"
	}

	// Look for password pattern: user:password@host
	// Simple approach: find :// and then mask between : and @
	schemeEnd := strings.Index(s, "://")
	if schemeEnd == -1 {
		return maskSecret(s)
	}

	rest := s[schemeEnd+3:]
	atIndex := strings.Index(rest, "@")
	if atIndex == -1 {
		return s // No credentials in URL
	}

	colonIndex := strings.Index(rest[:atIndex], ":")
	if colonIndex == -1 {
		return s // No password (only username)
	}

	// Reconstruct URL with masked password
	scheme := s[:schemeEnd+3]
	user := rest[:colonIndex]
	hostAndPath := rest[atIndex:]

	return scheme + user + ":****" + hostAndPath
}
