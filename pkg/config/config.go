package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Sink names accepted by NOTIFY_SINK
const (
	SinkWebhook = "webhook"
	SinkStream  = "stream"
)

type Config struct {
	// Application
	AppName string
	Debug   bool
	Port    string

	// Logging
	LogLevel string
	LogJSON  bool

	// Database
	DatabaseType string
	DatabaseURL  string

	// Upstream server directory
	ServerListURL      string
	PollInterval       time.Duration
	FetchTimeout       time.Duration
	FetchRetryCount    int
	FetchRetryInterval time.Duration

	// Delivery
	DeliveryConcurrency    int
	NotifySink             string // "webhook" or "stream"
	NotificationWebhookURL string // shared channel webhook for match notifications
	DebugWebhookURL        string // operational alerts
	MapIconsURL            string

	// Filter catalog override (YAML)
	CatalogPath string

	// Command API service token (HS256). Empty disables the check.
	APITokenSecret string

	// InfluxDB (Time-Series Event Storage)
	InfluxDBURL    string
	InfluxDBToken  string
	InfluxDBOrg    string
	InfluxDBBucket string
}

var AppConfig *Config

// Load loads configuration from environment
func Load() *Config {
	// Load .env file if exists
	_ = godotenv.Load()

	config := &Config{
		AppName:  getEnv("APP_NAME", "ServerNotifier"),
		Debug:    getEnvBool("DEBUG", false),
		Port:     getEnv("PORT", "8000"),
		LogLevel: getEnv("LOG_LEVEL", "INFO"),
		LogJSON:  getEnvBool("LOG_JSON", false),

		DatabaseType: getEnv("DATABASE_TYPE", "postgres"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),

		ServerListURL:      getEnv("SERVER_LIST_URL", "https://publicapi.battlebit.cloud/Servers/GetServerList"),
		PollInterval:       getEnvDuration("POLL_INTERVAL", 5*time.Second),
		FetchTimeout:       getEnvDuration("FETCH_TIMEOUT", 10*time.Second),
		FetchRetryCount:    getEnvInt("FETCH_RETRY_COUNT", 3),
		FetchRetryInterval: getEnvDuration("FETCH_RETRY_INTERVAL", 5*time.Second),

		DeliveryConcurrency:    getEnvInt("DELIVERY_CONCURRENCY", 8),
		NotifySink:             getEnv("NOTIFY_SINK", SinkWebhook),
		NotificationWebhookURL: getEnv("NOTIFICATION_WEBHOOK_URL", ""),
		DebugWebhookURL:        getEnv("DEBUG_WEBHOOK_URL", ""),
		MapIconsURL:            getEnv("MAP_ICONS_URL", "https://cdn.gametools.network/maps/battlebit/"),

		CatalogPath:    getEnv("CATALOG_PATH", ""),
		APITokenSecret: getEnv("API_TOKEN_SECRET", ""),

		InfluxDBURL:    getEnv("INFLUXDB_URL", ""),
		InfluxDBToken:  getEnv("INFLUXDB_TOKEN", ""),
		InfluxDBOrg:    getEnv("INFLUXDB_ORG", "servernotifier"),
		InfluxDBBucket: getEnv("INFLUXDB_BUCKET", "events"),
	}

	AppConfig = config
	return config
}

// Validate reports settings the service cannot start with
func (c *Config) Validate() error {
	if c.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive, got %s", c.PollInterval)
	}
	if c.FetchRetryCount < 1 {
		return fmt.Errorf("FETCH_RETRY_COUNT must be at least 1, got %d", c.FetchRetryCount)
	}
	if c.DeliveryConcurrency < 1 {
		return fmt.Errorf("DELIVERY_CONCURRENCY must be at least 1, got %d", c.DeliveryConcurrency)
	}
	switch c.NotifySink {
	case SinkWebhook:
		if c.NotificationWebhookURL == "" {
			return fmt.Errorf("NOTIFICATION_WEBHOOK_URL is required when NOTIFY_SINK=%s", SinkWebhook)
		}
	case SinkStream:
	default:
		return fmt.Errorf("unknown NOTIFY_SINK %q (expected %q or %q)", c.NotifySink, SinkWebhook, SinkStream)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		boolVal, err := strconv.ParseBool(value)
		if err != nil {
			log.Printf("Invalid boolean for %s, using default: %v", key, defaultValue)
			return defaultValue
		}
		return boolVal
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		intVal, err := strconv.Atoi(value)
		if err != nil {
			log.Printf("Invalid integer for %s, using default: %d", key, defaultValue)
			return defaultValue
		}
		return intVal
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("5s") or bare seconds ("5")
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	log.Printf("Invalid duration for %s, using default: %s", key, defaultValue)
	return defaultValue
}
