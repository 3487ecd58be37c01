/**
 * Configuration for the extraction service
 *
 * Loads configuration from environment variables. Defaults mirror the
 * knobs of the extraction container: OCR language, page cap, rasterization
 * zoom, detector hints and download retry schedule.
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// OutputFormat selects between full per-box output and collapsed text output.
type OutputFormat string

const (
	OutputFull   OutputFormat = "FULL"
	OutputSimple OutputFormat = "SIMPLE"
)

// Config holds service configuration
type Config struct {
	// HTTP server
	ServerHost    string
	ServerPort    int
	BatchIDHeader string

	// OCR engine
	OCRLanguage     string
	DetLimitSideLen int
	DetUnclipRatio  float64

	// Document extraction
	MaxPages int
	ZoomX    float64
	ZoomY    float64

	// Output shaping
	OutputFormat          OutputFormat
	SimpleOutputThreshold float64

	// Download behavior
	DownloadRetries        int
	DownloadRetryDelay     time.Duration
	DownloadConnectTimeout time.Duration
	DownloadReadTimeout    time.Duration
	MaxDownloadBytes       int64
	VerifyTLS              bool

	// Orchestrator behavior
	QueueSize       int
	JobTTL          time.Duration // 0 disables eviction
	DocumentTimeout time.Duration // 0 disables the per-document bound

	// Presigned-URL resolver (optional; empty DSN means locations are
	// already fetchable URLs)
	ResolverDriver string
	ResolverDSN    string

	// Logging
	LogLevel       string
	LogDevelopment bool
}

// Load builds configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		ServerHost:             getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
		ServerPort:             getEnvAsIntOrDefault("SERVER_PORT", 8080),
		BatchIDHeader:          getEnvOrDefault("BATCH_ID_HEADER", "sf-external-function-query-batch-id"),
		OCRLanguage:            getEnvOrDefault("OCR_LANGUAGE", "eng"),
		DetLimitSideLen:        getEnvAsIntOrDefault("DET_LIMIT_SIDE_LEN", 960),
		DetUnclipRatio:         getEnvAsFloatOrDefault("DET_DB_UNCLIP_RATIO", 1.5),
		MaxPages:               getEnvAsIntOrDefault("MAX_PAGES", 20),
		ZoomX:                  getEnvAsFloatOrDefault("ZOOM_X", 2.0),
		ZoomY:                  getEnvAsFloatOrDefault("ZOOM_Y", 2.0),
		OutputFormat:           OutputFormat(getEnvOrDefault("OUTPUT_FORMAT", string(OutputFull))),
		SimpleOutputThreshold:  getEnvAsFloatOrDefault("SIMPLE_OUTPUT_THRESHOLD", 0.5),
		DownloadRetries:        getEnvAsIntOrDefault("DOWNLOAD_RETRIES", 10),
		DownloadRetryDelay:     getEnvAsDurationOrDefault("DOWNLOAD_RETRY_DELAY", 2*time.Second),
		DownloadConnectTimeout: getEnvAsDurationOrDefault("DOWNLOAD_CONNECT_TIMEOUT", 5*time.Second),
		DownloadReadTimeout:    getEnvAsDurationOrDefault("DOWNLOAD_READ_TIMEOUT", 30*time.Second),
		MaxDownloadBytes:       getEnvAsInt64OrDefault("MAX_DOWNLOAD_BYTES", 1073741824), // 1GB
		VerifyTLS:              getEnvAsBoolOrDefault("VERIFY_TLS", true),
		QueueSize:              getEnvAsIntOrDefault("QUEUE_SIZE", 64),
		JobTTL:                 getEnvAsDurationOrDefault("JOB_TTL", 0),
		DocumentTimeout:        getEnvAsDurationOrDefault("DOCUMENT_TIMEOUT", 0),
		ResolverDriver:         getEnvOrDefault("RESOLVER_DRIVER", "postgres"),
		ResolverDSN:            getEnvOrDefault("RESOLVER_DSN", ""),
		LogLevel:               getEnvOrDefault("LOG_LEVEL", "info"),
		LogDevelopment:         getEnvAsBoolOrDefault("LOG_DEVELOPMENT", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.ServerPort < 1 || c.ServerPort > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.ServerPort)
	}

	if c.MaxPages < 1 {
		return fmt.Errorf("MAX_PAGES must be at least 1, got %d", c.MaxPages)
	}

	if c.ZoomX <= 0 || c.ZoomY <= 0 {
		return fmt.Errorf("ZOOM_X and ZOOM_Y must be positive, got %g/%g", c.ZoomX, c.ZoomY)
	}

	// Detector side-length limit inherited from the OCR engine: multiples
	// of 32 only.
	if c.DetLimitSideLen < 32 || c.DetLimitSideLen%32 != 0 {
		return fmt.Errorf("DET_LIMIT_SIDE_LEN must be a positive multiple of 32, got %d", c.DetLimitSideLen)
	}

	if c.OutputFormat != OutputFull && c.OutputFormat != OutputSimple {
		return fmt.Errorf("OUTPUT_FORMAT must be FULL or SIMPLE, got %q", c.OutputFormat)
	}

	if c.SimpleOutputThreshold < 0 || c.SimpleOutputThreshold > 1 {
		return fmt.Errorf("SIMPLE_OUTPUT_THRESHOLD must be in [0,1], got %g", c.SimpleOutputThreshold)
	}

	if c.DownloadRetries < 1 {
		return fmt.Errorf("DOWNLOAD_RETRIES must be at least 1, got %d", c.DownloadRetries)
	}

	if c.QueueSize < 1 {
		return fmt.Errorf("QUEUE_SIZE must be at least 1, got %d", c.QueueSize)
	}

	return nil
}

// getEnvOrDefault gets environment variable or returns default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault gets environment variable as int or returns default
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

// getEnvAsInt64OrDefault gets environment variable as int64 or returns default
func getEnvAsInt64OrDefault(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

// getEnvAsFloatOrDefault gets environment variable as float64 or returns default
func getEnvAsFloatOrDefault(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

// getEnvAsBoolOrDefault gets environment variable as bool or returns default
func getEnvAsBoolOrDefault(key string, defaultValue bool) bool {
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

// getEnvAsDurationOrDefault gets environment variable as a duration.
// Accepts Go duration syntax ("2s", "500ms") or a bare number of seconds.
func getEnvAsDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}

	if seconds, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return time.Duration(seconds * float64(time.Second))
	}

	return defaultValue
}
