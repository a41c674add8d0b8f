// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
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

// Config holds the application configuration.
type Config struct {
	App         AppConfig
	Logger      LoggerConfig
	Data        DataConfig
	Server      ServerConfig
	GoogleBooks GoogleBooksConfig
	OpenLibrary OpenLibraryConfig
	OpenAI      OpenAIConfig
	Limits      LimitsConfig
	Recommend   RecommendConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// DataConfig holds persistent data storage configuration.
type DataConfig struct {
	// BasePath is the directory holding the badger database and bleve index.
	BasePath string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Name         string
	Port         string        // Server port (default: 8080)
	ReadTimeout  time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout time.Duration // HTTP write timeout (default: 15s)
	IdleTimeout  time.Duration // HTTP idle timeout (default: 60s)
}

// GoogleBooksConfig holds Google Books API configuration.
type GoogleBooksConfig struct {
	BaseURL string
	APIKey  string // Optional; raises Google-side quotas when present
}

// OpenLibraryConfig holds Open Library API configuration.
type OpenLibraryConfig struct {
	BaseURL string
}

// OpenAIConfig holds the LLM generator configuration.
type OpenAIConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

// APILimit is a per-minute/per-day quota pair for one upstream API.
type APILimit struct {
	PerMinute int
	PerDay    int
}

// LimitsConfig holds upstream API quota configuration.
type LimitsConfig struct {
	OpenAI      APILimit
	GoogleBooks APILimit
	OpenLibrary APILimit
}

// RecommendConfig holds recommendation pipeline tuning.
type RecommendConfig struct {
	// MaxExternalCandidates caps preference-driven discovery results.
	MaxExternalCandidates int
	// EnrichConcurrency bounds the enrichment scatter-gather fan-out.
	EnrichConcurrency int
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	env := flag.String("env", "", "Environment (development, staging, production)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := flag.String("data-path", "", "Base path for persistent data")
	serverName := flag.String("server-name", "", "Name for the server")
	serverPort := flag.String("port", "", "Server port (default: 8080)")
	readTimeout := flag.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := flag.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := flag.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	envFile := flag.String("env-file", ".env", "Path to .env file")

	flag.Parse()

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Data: DataConfig{
			BasePath: getConfigValue(*dataPath, "DATA_PATH", ""),
		},
		Server: ServerConfig{
			Name: getConfigValue(*serverName, "SERVER_NAME", "Shelfscout Server"),
			Port: getConfigValue(*serverPort, "SERVER_PORT", "8080"),
		},
		GoogleBooks: GoogleBooksConfig{
			BaseURL: getConfigValue("", "GOOGLE_BOOKS_URL", "https://www.googleapis.com/books/v1"),
			APIKey:  getConfigValue("", "GOOGLE_BOOKS_API_KEY", ""),
		},
		OpenLibrary: OpenLibraryConfig{
			BaseURL: getConfigValue("", "OPEN_LIBRARY_URL", "https://openlibrary.org"),
		},
		OpenAI: OpenAIConfig{
			BaseURL: getConfigValue("", "OPENAI_URL", "https://api.openai.com/v1"),
			APIKey:  getConfigValue("", "OPENAI_API_KEY", ""),
			Model:   getConfigValue("", "OPENAI_MODEL", "gpt-4o-mini"),
		},
		Limits: LimitsConfig{
			OpenAI: APILimit{
				PerMinute: getIntConfigValue("", "OPENAI_PER_MINUTE", 60),
				PerDay:    getIntConfigValue("", "OPENAI_PER_DAY", 12000),
			},
			GoogleBooks: APILimit{
				PerMinute: getIntConfigValue("", "GOOGLE_BOOKS_PER_MINUTE", 100),
				PerDay:    getIntConfigValue("", "GOOGLE_BOOKS_PER_DAY", 5000),
			},
			OpenLibrary: APILimit{
				PerMinute: getIntConfigValue("", "OPEN_LIBRARY_PER_MINUTE", 60),
				PerDay:    getIntConfigValue("", "OPEN_LIBRARY_PER_DAY", 2000),
			},
		},
		Recommend: RecommendConfig{
			MaxExternalCandidates: getIntConfigValue("", "MAX_EXTERNAL_CANDIDATES", 30),
			EnrichConcurrency:     getIntConfigValue("", "ENRICH_CONCURRENCY", 5),
		},
	}

	// Parse server timeouts.
	readTimeoutStr := getConfigValue(*readTimeout, "SERVER_READ_TIMEOUT", "15s")
	readTimeoutDuration, err := time.ParseDuration(readTimeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid read timeout %q: %w", readTimeoutStr, err)
	}
	cfg.Server.ReadTimeout = readTimeoutDuration

	writeTimeoutStr := getConfigValue(*writeTimeout, "SERVER_WRITE_TIMEOUT", "15s")
	writeTimeoutDuration, err := time.ParseDuration(writeTimeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid write timeout %q: %w", writeTimeoutStr, err)
	}
	cfg.Server.WriteTimeout = writeTimeoutDuration

	idleTimeoutStr := getConfigValue(*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s")
	idleTimeoutDuration, err := time.ParseDuration(idleTimeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid idle timeout %q: %w", idleTimeoutStr, err)
	}
	cfg.Server.IdleTimeout = idleTimeoutDuration

	// Expand and validate data path.
	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
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

	if c.Limits.OpenAI.PerMinute <= 0 || c.Limits.GoogleBooks.PerMinute <= 0 || c.Limits.OpenLibrary.PerMinute <= 0 {
		return errors.New("per-minute limits must be positive")
	}
	if c.Recommend.MaxExternalCandidates < 0 {
		return errors.New("max external candidates cannot be negative")
	}
	if c.Recommend.EnrichConcurrency <= 0 {
		return errors.New("enrich concurrency must be positive")
	}

	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandDataPath expands ~ and makes the path absolute.
func (c *Config) expandDataPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, "Shelfscout", "data")

	expanded, err := expandPath(c.Data.BasePath, defaultPath)
	if err != nil {
		return err
	}
	c.Data.BasePath = expanded
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
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

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
// Existing environment variables are not overwritten.
func loadEnvFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}

		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		value = strings.Trim(value, `"'`)

		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}

	return scanner.Err()
}
