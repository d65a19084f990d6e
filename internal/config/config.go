package config

import (
	"os"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	// URL, when set, is used as the DSN and the discrete fields are ignored.
	URL                string
	AppName            string
	ConnectAttempts    int
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// OCRConfig points at the HTTP text-detection provider.
type OCRConfig struct {
	Endpoint   string
	APIKey     string
	TimeoutSec int
}

// FlightAPIConfig configures the external flight-status client.
type FlightAPIConfig struct {
	BaseURL          string
	APIKey           string
	TimeoutSec       int
	RatePerSec       float64
	Burst            int
	BreakerThreshold int
	BreakerResetSec  int
}

// RegistryConfig selects the passenger registry checks.
// An empty URL falls back to the name-presence registry.
type RegistryConfig struct {
	PrimaryURL   string
	SecondaryURL string
	TimeoutSec   int
}

// QueueConfig selects and tunes the message broker.
type QueueConfig struct {
	Driver        string // postgres | memory
	PollMillis    int
	VisibilitySec int
	MaxAttempts   int
	Workers       int
}

// PipelineConfig controls the stage consumers.
type PipelineConfig struct {
	Enabled         bool
	StageTimeoutSec int
	RuleCacheTTLSec int
	AutoDecide      bool
	MaxDocumentMB   int
	// RulesSeedFile, when set, is upserted into business_rules at startup.
	RulesSeedFile string
}

// SMTPConfig configures outbound email. An empty Host logs mail instead of sending it.
type SMTPConfig struct {
	Host         string
	Port         int
	Username     string
	Password     string
	From         string
	AnalystEmail string
	ManagerEmail string
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string
	Format string // json | console
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost   string
	Port      string
	Database  DatabaseConfig
	MinIO     MinIOConfig
	OCR       OCRConfig
	FlightAPI FlightAPIConfig
	Registry  RegistryConfig
	Queue     QueueConfig
	Pipeline  PipelineConfig
	SMTP      SMTPConfig
	Log       LogConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
func Load() *AppConfig {
	return &AppConfig{
		AppHost: getEnv("APP_HOST", "localhost:8080"),
		Port:    getEnv("PORT", "8080"),
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			AppName:            getEnv("DB_APPLICATION_NAME", "claimflow"),
			ConnectAttempts:    getEnvInt("DB_CONNECT_ATTEMPTS", 5),
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		OCR: OCRConfig{
			Endpoint:   getEnv("OCR_ENDPOINT", ""),
			APIKey:     getEnv("OCR_API_KEY", ""),
			TimeoutSec: getEnvInt("OCR_TIMEOUT_SEC", 30),
		},
		FlightAPI: FlightAPIConfig{
			BaseURL:          getEnv("FLIGHT_API_BASE_URL", ""),
			APIKey:           getEnv("FLIGHT_API_KEY", ""),
			TimeoutSec:       getEnvInt("FLIGHT_API_TIMEOUT_SEC", 10),
			RatePerSec:       getEnvFloat("FLIGHT_API_RATE_PER_SEC", 5),
			Burst:            getEnvInt("FLIGHT_API_BURST", 5),
			BreakerThreshold: getEnvInt("FLIGHT_API_BREAKER_THRESHOLD", 5),
			BreakerResetSec:  getEnvInt("FLIGHT_API_BREAKER_RESET_SEC", 30),
		},
		Registry: RegistryConfig{
			PrimaryURL:   getEnv("REGISTRY_PRIMARY_URL", ""),
			SecondaryURL: getEnv("REGISTRY_SECONDARY_URL", ""),
			TimeoutSec:   getEnvInt("REGISTRY_TIMEOUT_SEC", 5),
		},
		Queue: QueueConfig{
			Driver:        getEnv("QUEUE_DRIVER", "postgres"),
			PollMillis:    getEnvInt("QUEUE_POLL_MILLIS", 500),
			VisibilitySec: getEnvInt("QUEUE_VISIBILITY_SEC", 120),
			MaxAttempts:   getEnvInt("QUEUE_MAX_ATTEMPTS", 5),
			Workers:       getEnvInt("QUEUE_WORKERS", 2),
		},
		Pipeline: PipelineConfig{
			Enabled:         getEnvBool("PIPELINE_ENABLED", true),
			StageTimeoutSec: getEnvInt("PIPELINE_STAGE_TIMEOUT_SEC", 60),
			RuleCacheTTLSec: getEnvInt("RULE_CACHE_TTL_SEC", 30),
			AutoDecide:      getEnvBool("PIPELINE_AUTO_DECIDE", true),
			MaxDocumentMB:   getEnvInt("PIPELINE_MAX_DOCUMENT_MB", 20),
			RulesSeedFile:   getEnv("RULES_SEED_FILE", ""),
		},
		SMTP: SMTPConfig{
			Host:         getEnv("SMTP_HOST", ""),
			Port:         getEnvInt("SMTP_PORT", 587),
			Username:     getEnv("SMTP_USERNAME", ""),
			Password:     getEnv("SMTP_PASSWORD", ""),
			From:         getEnv("SMTP_FROM", "claims@localhost"),
			AnalystEmail: getEnv("NOTIFY_ANALYST_EMAIL", ""),
			ManagerEmail: getEnv("NOTIFY_MANAGER_EMAIL", ""),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}
}

// Seconds converts an integer seconds setting into a duration.
func Seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// InitLogger builds the zap logger for cfg and installs it as the global logger.
func InitLogger(cfg LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return def
}
