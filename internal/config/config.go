package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	DefaultTimeoutSeconds = 60
	DefaultMaxFileSizeMB  = 10
)

type Config struct {
	Port               string   `yaml:"port"`
	APIKey             string   `yaml:"api_key"`
	LogLevel           string   `yaml:"log_level"`
	MaxFileSizeMB      int64    `yaml:"max_file_size_mb"`
	RateLimitPerMinute int      `yaml:"rate_limit_per_minute"`
	TelegramToken      string   `yaml:"telegram_token"`
	CORSOrigins        []string `yaml:"cors_allowed_origins"`

	Detection DetectionConfig `yaml:"detection"`
}

// DetectionConfig describes the remote detect-and-classify endpoint.
type DetectionConfig struct {
	URL            string `yaml:"url"`
	Token          string `yaml:"token"`
	RequireToken   bool   `yaml:"require_token"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

func LoadConfig(logger *zap.Logger) (*Config, error) {
	// Загрузка .env файла если он существует
	if err := godotenv.Load(); err != nil {
		logger.Info("No .env file found, using environment variables")
	}

	config := &Config{
		Port:               "8080",
		LogLevel:           "info",
		MaxFileSizeMB:      DefaultMaxFileSizeMB,
		RateLimitPerMinute: 30,
		CORSOrigins:        []string{"*"},
		Detection: DetectionConfig{
			TimeoutSeconds: DefaultTimeoutSeconds,
		},
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, config); err != nil {
			return nil, err
		}
		logger.Info("Loaded config file", zap.String("path", path))
	}

	config.Port = getEnvOrDefault("PORT", config.Port)
	config.APIKey = getEnvOrDefault("API_KEY", config.APIKey)
	config.LogLevel = getEnvOrDefault("LOG_LEVEL", config.LogLevel)
	config.TelegramToken = getEnvOrDefault("TELEGRAM_TOKEN", config.TelegramToken)
	config.Detection.URL = getEnvOrDefault("DETECTION_URL", config.Detection.URL)
	config.Detection.Token = getEnvOrDefault("DETECTION_TOKEN", config.Detection.Token)
	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		config.CORSOrigins = splitList(origins)
	}

	maxFileSizeStr := getEnvOrDefault("MAX_FILE_SIZE_MB", strconv.FormatInt(config.MaxFileSizeMB, 10))
	rateLimitStr := getEnvOrDefault("RATE_LIMIT_PER_MINUTE", strconv.Itoa(config.RateLimitPerMinute))
	timeoutStr := getEnvOrDefault("DETECTION_TIMEOUT_SECONDS", strconv.Itoa(config.Detection.TimeoutSeconds))
	requireTokenStr := getEnvOrDefault("DETECTION_REQUIRE_TOKEN", strconv.FormatBool(config.Detection.RequireToken))

	maxFileSize, err := strconv.ParseInt(maxFileSizeStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid max file size: %v", err)
	}

	rateLimit, err := strconv.Atoi(rateLimitStr)
	if err != nil {
		return nil, fmt.Errorf("invalid rate limit: %v", err)
	}

	timeout, err := strconv.Atoi(timeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid detection timeout: %v", err)
	}

	requireToken, err := strconv.ParseBool(requireTokenStr)
	if err != nil {
		return nil, fmt.Errorf("invalid require token value: %v", err)
	}

	config.MaxFileSizeMB = maxFileSize
	config.RateLimitPerMinute = rateLimit
	config.Detection.TimeoutSeconds = timeout
	config.Detection.RequireToken = requireToken

	return config, nil
}

// Client returns the detection client settings.
func (c *Config) Client() ClientConfig {
	return ClientConfig{
		Endpoint:     c.Detection.URL,
		Token:        c.Detection.Token,
		RequireToken: c.Detection.RequireToken,
		Timeout:      time.Duration(c.Detection.TimeoutSeconds) * time.Second,
	}
}

// MaxFileSizeBytes returns the upload limit in bytes.
func (c *Config) MaxFileSizeBytes() int64 {
	return c.MaxFileSizeMB * 1024 * 1024
}

func loadFile(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
