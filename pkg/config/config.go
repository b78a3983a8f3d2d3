package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kestrelhealth/radpoint/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	Auth          AuthConfig
	Blob          BlobConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// DatabaseConfig holds relational store configuration. Driver is "postgres"
// in production; "sqlite3" serves local development and the demo data set.
type DatabaseConfig struct {
	Driver   string
	URL      string
	MaxConns int
	MinConns int
}

// RedisConfig holds the optional Redis connection for distributed rate
// limiting. An empty URL disables it.
type RedisConfig struct {
	URL      string
	Password string
	DB       int
}

// AuthConfig holds token signing and permission cache settings.
type AuthConfig struct {
	TokenSecret        string
	TokenTTL           time.Duration
	PermissionCache    bool
	PermissionCacheTTL time.Duration
}

// BlobConfig holds organization logo storage settings. Type is "filesystem"
// or "s3".
type BlobConfig struct {
	Type           string
	FilesystemRoot string

	S3Endpoint     string
	S3Region       string
	S3Bucket       string
	S3AccessKey    string
	S3SecretKey    string
	S3UsePathStyle bool
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool

	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool
}

// LoadConfig loads configuration from environment variables, then overlays
// an optional YAML file named by RADPOINT_CONFIG_FILE.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Database:      loadDatabaseConfig(),
		Redis:         loadRedisConfig(),
		Auth:          loadAuthConfig(),
		Blob:          loadBlobConfig(),
		Observability: loadObservabilityConfig(),
	}

	if path := getEnv("RADPOINT_CONFIG_FILE", ""); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, fmt.Errorf("failed to apply config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("RADPOINT_HOST", "0.0.0.0"),
		Port:            getEnv("RADPOINT_PORT", "8080"),
		ReadTimeout:     getEnvDuration("RADPOINT_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("RADPOINT_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("RADPOINT_IDLE_TIMEOUT", 60*time.Second),
		RequestTimeout:  getEnvDuration("RADPOINT_REQUEST_TIMEOUT", 30*time.Second),
		ShutdownTimeout: getEnvDuration("RADPOINT_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("RADPOINT_HEALTH_PORT", "9090"),
	}
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Driver:   getEnv("RADPOINT_DB_DRIVER", "postgres"),
		URL:      getEnv("RADPOINT_DB_URL", ""),
		MaxConns: getEnvInt("RADPOINT_DB_MAX_CONNS", 20),
		MinConns: getEnvInt("RADPOINT_DB_MIN_CONNS", 2),
	}
}

func loadRedisConfig() RedisConfig {
	return RedisConfig{
		URL:      getEnv("RADPOINT_REDIS_URL", ""),
		Password: getEnv("RADPOINT_REDIS_PASSWORD", ""),
		DB:       getEnvInt("RADPOINT_REDIS_DB", 0),
	}
}

func loadAuthConfig() AuthConfig {
	return AuthConfig{
		TokenSecret:        getEnv("RADPOINT_TOKEN_SECRET", ""),
		TokenTTL:           getEnvDuration("RADPOINT_TOKEN_TTL", 24*time.Hour),
		PermissionCache:    getEnvBool("RADPOINT_PERMISSION_CACHE", false),
		PermissionCacheTTL: getEnvDuration("RADPOINT_PERMISSION_CACHE_TTL", 30*time.Second),
	}
}

func loadBlobConfig() BlobConfig {
	return BlobConfig{
		Type:           getEnv("RADPOINT_BLOB_TYPE", "filesystem"),
		FilesystemRoot: getEnv("RADPOINT_BLOB_ROOT", "/var/lib/radpoint/blobs"),
		S3Endpoint:     getEnv("RADPOINT_S3_ENDPOINT", ""),
		S3Region:       getEnv("RADPOINT_S3_REGION", "us-east-1"),
		S3Bucket:       getEnv("RADPOINT_S3_BUCKET", ""),
		S3AccessKey:    getEnv("RADPOINT_S3_ACCESS_KEY", ""),
		S3SecretKey:    getEnv("RADPOINT_S3_SECRET_KEY", ""),
		S3UsePathStyle: getEnvBool("RADPOINT_S3_USE_PATH_STYLE", false),
	}
}

func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           ParseLogLevel(getEnv("RADPOINT_LOG_LEVEL", "info")),
		MetricsEnabled:     getEnvBool("RADPOINT_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("RADPOINT_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("RADPOINT_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("RADPOINT_OTEL_SERVICE_NAME", "radpoint-api"),
		OTelServiceVersion: getEnv("RADPOINT_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("RADPOINT_OTEL_INSECURE", true),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	switch c.Database.Driver {
	case "postgres", "sqlite3":
	default:
		return fmt.Errorf("invalid database driver: %s (must be postgres or sqlite3)", c.Database.Driver)
	}
	if c.Database.URL == "" {
		return fmt.Errorf("database URL is required")
	}

	if c.Auth.TokenSecret == "" {
		return fmt.Errorf("token secret is required")
	}

	switch c.Blob.Type {
	case "filesystem":
		if c.Blob.FilesystemRoot == "" {
			return fmt.Errorf("filesystem root is required for filesystem blob storage")
		}
	case "s3":
		if c.Blob.S3Bucket == "" {
			return fmt.Errorf("S3 bucket is required for s3 blob storage")
		}
	default:
		return fmt.Errorf("invalid blob storage type: %s (must be filesystem or s3)", c.Blob.Type)
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// ParseLogLevel parses a log level string
func ParseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
