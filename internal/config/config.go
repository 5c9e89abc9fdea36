package config

import (
	"errors"
	"log/slog"
	"os"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Supported database drivers
const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds all application configuration
type Config struct {
	// Database Configuration
	DatabaseDriver string
	MongoURI       string
	MongoDatabase  string
	MongoTimeout   time.Duration
	DatabaseURL    string // postgres connection string or sqlite file path
	DBPoolSize     int

	// Probe Configuration
	PingTimeout        time.Duration
	WebsiteTimeout     time.Duration
	ConnectionPoolSize int
	PingConcurrency    int
	WebsiteConcurrency int

	// Scheduler Configuration
	SchedulerTickInterval time.Duration
	StatsInterval         time.Duration

	// HTTP Server Configuration
	HTTPEnabled      bool
	HTTPPort         string
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration

	// CORS Configuration
	CORSAllowedOrigins []string
	CORSMaxAge         int

	// Logging Configuration
	LogLevel  string
	LogFormat string
	LogFile   string

	// Event Stream Configuration
	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads configuration from an optional .env file and environment
// variables, applies defaults and validates the result.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	cfg := &Config{
		// Database
		DatabaseDriver: strings.ToLower(v.GetString("DATABASE_DRIVER")),
		MongoURI:       v.GetString("MONGO_URI"),
		MongoDatabase:  v.GetString("MONGO_DATABASE"),
		MongoTimeout:   seconds(v, "MONGO_TIMEOUT_SEC"),
		DatabaseURL:    v.GetString("DATABASE_URL"),
		DBPoolSize:     v.GetInt("DB_POOL_SIZE"),

		// Probes
		PingTimeout:        seconds(v, "PING_TIMEOUT"),
		WebsiteTimeout:     seconds(v, "WEBSITE_TIMEOUT"),
		ConnectionPoolSize: v.GetInt("CONNECTION_POOL_SIZE"),
		PingConcurrency:    v.GetInt("PING_CONCURRENCY"),
		WebsiteConcurrency: v.GetInt("WEBSITE_CONCURRENCY"),

		// Scheduler
		SchedulerTickInterval: time.Duration(v.GetInt64("SCHEDULER_TICK_INTERVAL_MS")) * time.Millisecond,
		StatsInterval:         seconds(v, "STATS_INTERVAL_SEC"),

		// HTTP Server
		HTTPEnabled:      v.GetBool("HTTP_ENABLED"),
		HTTPPort:         v.GetString("HTTP_PORT"),
		HTTPReadTimeout:  seconds(v, "HTTP_READ_TIMEOUT_SEC"),
		HTTPWriteTimeout: seconds(v, "HTTP_WRITE_TIMEOUT_SEC"),

		// CORS
		CORSAllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		CORSMaxAge:         v.GetInt("CORS_MAX_AGE"),

		// Logging
		LogLevel:  strings.ToLower(v.GetString("LOG_LEVEL")),
		LogFormat: strings.ToLower(v.GetString("LOG_FORMAT")),
		LogFile:   v.GetString("LOG_FILE"),

		// Event stream
		KafkaBrokers: splitList(v.GetString("KAFKA_BROKERS")),
		KafkaTopic:   v.GetString("KAFKA_TOPIC"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Database
	v.SetDefault("DATABASE_DRIVER", DriverMongo)
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017/pulse?authSource=admin")
	v.SetDefault("MONGO_DATABASE", "pulse")
	v.SetDefault("MONGO_TIMEOUT_SEC", 10)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_POOL_SIZE", 10)

	// Probes
	v.SetDefault("PING_TIMEOUT", 2)
	v.SetDefault("WEBSITE_TIMEOUT", 5)
	v.SetDefault("CONNECTION_POOL_SIZE", 100)
	v.SetDefault("PING_CONCURRENCY", 200)
	v.SetDefault("WEBSITE_CONCURRENCY", 100)

	// Scheduler
	v.SetDefault("SCHEDULER_TICK_INTERVAL_MS", 1000)
	v.SetDefault("STATS_INTERVAL_SEC", 60)

	// HTTP Server
	v.SetDefault("HTTP_ENABLED", true)
	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("HTTP_READ_TIMEOUT_SEC", 30)
	v.SetDefault("HTTP_WRITE_TIMEOUT_SEC", 30)

	// CORS
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("CORS_MAX_AGE", 3600)

	// Logging
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("LOG_FILE", "")

	// Event stream
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_TOPIC", "monitor-results")
}

// Validate checks that every option is usable before anything is started
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.DatabaseDriver,
			validation.Required,
			validation.In(DriverMongo, DriverPostgres, DriverSQLite),
		),
		validation.Field(&c.MongoURI,
			validation.When(c.DatabaseDriver == DriverMongo, validation.Required),
		),
		validation.Field(&c.MongoDatabase,
			validation.When(c.DatabaseDriver == DriverMongo, validation.Required),
		),
		validation.Field(&c.DatabaseURL,
			validation.When(c.DatabaseDriver == DriverPostgres || c.DatabaseDriver == DriverSQLite, validation.Required),
		),
		validation.Field(&c.DBPoolSize, validation.Required, validation.Min(1)),
		validation.Field(&c.PingTimeout, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.WebsiteTimeout, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.ConnectionPoolSize, validation.Required, validation.Min(1)),
		validation.Field(&c.PingConcurrency, validation.Required, validation.Min(1)),
		validation.Field(&c.WebsiteConcurrency, validation.Required, validation.Min(1)),
		validation.Field(&c.SchedulerTickInterval, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.StatsInterval, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.HTTPPort,
			validation.When(c.HTTPEnabled, validation.Required, is.Port),
		),
		validation.Field(&c.LogLevel,
			validation.Required,
			validation.In("debug", "info", "warn", "warning", "error"),
		),
		validation.Field(&c.LogFormat,
			validation.Required,
			validation.In("json", "text"),
		),
		validation.Field(&c.KafkaTopic,
			validation.When(len(c.KafkaBrokers) > 0, validation.Required),
		),
	)
}

// seconds reads a fractional number of seconds
func seconds(v *viper.Viper, key string) time.Duration {
	return time.Duration(v.GetFloat64(key) * float64(time.Second))
}

// splitList parses a comma separated option, dropping empty entries
func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
