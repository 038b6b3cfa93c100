package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Model backends understood by the factory
const (
	BackendONNX   = "onnx"
	BackendOpenCV = "opencv"
)

// Report archive kinds
const (
	ArchiveNone  = "none"
	ArchiveLocal = "local"
	ArchiveAzure = "azure"
)

type Config struct {
	Host               string
	Port               string
	RequestTimeout     time.Duration
	ImageFetchTimeout  time.Duration
	MaxRequestBodySize int64
	MaxUploadFiles     int
	SessionTTL         time.Duration

	ModelPath      string
	ModelBackend   string
	ONNXRuntimeLib string

	ReportPrefix   string
	ReportArchive  string
	ReportDir      string
	AzureAccount   string
	AzureKey       string
	AzureContainer string

	TelegramToken string
	LogLevel      string
}

func (c *Config) ServerAddress() string {
	// Trim any whitespace from host and port
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

// TelegramEnabled reports whether the bot front end should start
func (c *Config) TelegramEnabled() bool {
	return strings.TrimSpace(c.TelegramToken) != ""
}

// LoadFromEnv reads .env (if present) and then the process environment.
func LoadFromEnv() (*Config, error) {
	// A missing .env file is normal outside development
	_ = godotenv.Load()

	cfg := &Config{
		Host:               getEnvOrDefault("HOST", "0.0.0.0"),
		Port:               getEnvOrDefault("PORT", "8080"),
		RequestTimeout:     parseDurationOrDefault("REQUEST_TIMEOUT", 60*time.Second),
		ImageFetchTimeout:  parseDurationOrDefault("IMAGE_FETCH_TIMEOUT", 15*time.Second),
		MaxRequestBodySize: parseIntOrDefault("MAX_REQUEST_BODY_SIZE", 64*1024*1024), // 64MB
		MaxUploadFiles:     int(parseIntOrDefault("MAX_UPLOAD_FILES", 100)),
		SessionTTL:         parseDurationOrDefault("SESSION_TTL", 2*time.Hour),

		ModelPath:      getEnvOrDefault("MODEL_PATH", "models/mobile_net_v2.onnx"),
		ModelBackend:   strings.ToLower(getEnvOrDefault("MODEL_BACKEND", BackendONNX)),
		ONNXRuntimeLib: os.Getenv("ONNXRUNTIME_LIB"),

		ReportPrefix:   getEnvOrDefault("REPORT_PREFIX", "identification_report"),
		ReportArchive:  strings.ToLower(getEnvOrDefault("REPORT_ARCHIVE", ArchiveNone)),
		ReportDir:      getEnvOrDefault("REPORT_DIR", "reports"),
		AzureAccount:   os.Getenv("AZURE_STORAGE_ACCOUNT"),
		AzureKey:       os.Getenv("AZURE_STORAGE_KEY"),
		AzureContainer: getEnvOrDefault("AZURE_STORAGE_CONTAINER", "reports"),

		TelegramToken: os.Getenv("TELEGRAM_TOKEN"),
		LogLevel:      getEnvOrDefault("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and enumerations
func (c *Config) Validate() error {
	p, err := strconv.Atoi(strings.TrimSpace(c.Port))
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid PORT: %q", c.Port)
	}
	if c.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", c.MaxRequestBodySize)
	}
	if c.MaxUploadFiles <= 0 {
		return fmt.Errorf("MAX_UPLOAD_FILES must be > 0 (got %d)", c.MaxUploadFiles)
	}
	if c.RequestTimeout <= 0 || c.ImageFetchTimeout <= 0 || c.SessionTTL <= 0 {
		return fmt.Errorf("timeouts must be > 0 (got request=%s, fetch=%s, session=%s)",
			c.RequestTimeout, c.ImageFetchTimeout, c.SessionTTL)
	}
	if strings.TrimSpace(c.ModelPath) == "" {
		return fmt.Errorf("MODEL_PATH must not be empty")
	}
	switch c.ModelBackend {
	case BackendONNX, BackendOpenCV:
	default:
		return fmt.Errorf("unsupported MODEL_BACKEND: %q", c.ModelBackend)
	}
	if strings.TrimSpace(c.ReportPrefix) == "" {
		return fmt.Errorf("REPORT_PREFIX must not be empty")
	}
	switch c.ReportArchive {
	case ArchiveNone, ArchiveLocal:
	case ArchiveAzure:
		if c.AzureAccount == "" || c.AzureKey == "" {
			return fmt.Errorf("REPORT_ARCHIVE=azure requires AZURE_STORAGE_ACCOUNT and AZURE_STORAGE_KEY")
		}
	default:
		return fmt.Errorf("unsupported REPORT_ARCHIVE: %q", c.ReportArchive)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}
