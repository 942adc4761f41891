package config

import (
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	Server   ServerConfig
	Logger   LoggerConfig
	Database DatabaseConfig
	Storage  StorageConfig
	Pricing  PricingConfig
	Snapshot SnapshotConfig
	Listing  ListingConfig
}

type ServerConfig struct {
	AppEnv          string
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	UploadMaxBytes  int64
}

type LoggerConfig struct {
	Level             string
	Encoding          string
	DisableCaller     bool
	DisableStacktrace bool
}

type DatabaseConfig struct {
	Driver       string // sqlite or postgres
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
}

type StorageConfig struct {
	MediaRoot string
}

type PricingConfig struct {
	FeePercent decimal.Decimal
	FixedFee   decimal.Decimal
}

type SnapshotConfig struct {
	Enabled bool
	Delay   time.Duration
	Path    string // empty means the snapshot file under the media root
}

type ListingConfig struct {
	ExportStatus string
}

// IsDevelopment reports whether the app runs with development defaults.
func (c *Config) IsDevelopment() bool {
	return c.Server.AppEnv == "dev" || c.Server.AppEnv == "development"
}

func LoadEnv() *Config {
	mediaRoot := getEnv("MEDIA_ROOT", "./media")
	return &Config{
		Server: ServerConfig{
			AppEnv:          getEnv("APP_ENV", "dev"),
			Addr:            getEnv("HTTP_ADDR", ":8080"),
			ReadTimeout:     getEnvDuration("HTTP_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("HTTP_WRITE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),
			UploadMaxBytes:  int64(getEnvInt("UPLOAD_MAX_BYTES", 32<<20)),
		},
		Logger: LoggerConfig{
			Level:             getEnv("LOGGER_LEVEL", "info"),
			Encoding:          getEnv("LOGGER_ENCODING", "json"),
			DisableCaller:     getEnvBool("LOGGER_DISABLE_CALLER", false),
			DisableStacktrace: getEnvBool("LOGGER_DISABLE_STACKTRACE", true),
		},
		Database: DatabaseConfig{
			Driver:       getEnv("DB_DRIVER", "sqlite"),
			DSN:          getEnv("DB_DSN", "inventory.db"),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 5),
		},
		Storage: StorageConfig{
			MediaRoot: mediaRoot,
		},
		Pricing: PricingConfig{
			FeePercent: getEnvDecimal("FEE_PERCENT", decimal.RequireFromString("0.05")),
			FixedFee:   getEnvDecimal("FIXED_FEE", decimal.RequireFromString("0.70")),
		},
		Snapshot: SnapshotConfig{
			Enabled: getEnvBool("CSV_SYNC_ENABLED", true),
			Delay:   getEnvDuration("CSV_SYNC_DELAY", time.Second),
			Path:    getEnv("CSV_SYNC_PATH", ""),
		},
		Listing: ListingConfig{
			ExportStatus: getEnv("EXPORT_STATUS", "To List"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvDecimal(key string, fallback decimal.Decimal) decimal.Decimal {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return fallback
}
