package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	ServerPort         string
	MongoURL           string
	DBName             string
	LogLevel           string
	AlphaVantageAPIKey string
	ImportFile         string
	BulkErrorLimit     int
}

// MarketDataConfig holds configuration for the outbound market-data provider
type MarketDataConfig struct {
	RequestTimeout time.Duration `json:"request_timeout"`
	MinimumDelay   time.Duration `json:"minimum_delay"`
	MaxRetries     int           `json:"max_retries"`
}

// DefaultMarketDataConfig returns the provider defaults. The free Alpha Vantage
// tier allows 5 requests per minute, hence the 12 second spacing.
func DefaultMarketDataConfig() *MarketDataConfig {
	return &MarketDataConfig{
		RequestTimeout: 15 * time.Second,
		MinimumDelay:   12 * time.Second,
		MaxRetries:     2,
	}
}

func LoadConfig() *Config {
	err := godotenv.Load()
	if err != nil {
		logrus.Warn("Error loading .env file, using system environment variables")
	}

	return &Config{
		ServerPort:         getEnv("SERVER_PORT", "8080"),
		MongoURL:           getEnv("MONGO_URL", "mongodb://localhost:27017"),
		DBName:             getEnv("DB_NAME", "uw_tracker"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		AlphaVantageAPIKey: getEnv("ALPHA_VANTAGE_API_KEY", ""),
		ImportFile:         getEnv("IMPORT_FILE", ""),
		BulkErrorLimit:     getEnvInt("BULK_ERROR_LIMIT", 25),
	}
}

// ConfigureLogging applies the configured log level to the global logger.
func (c *Config) ConfigureLogging() {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		logrus.Warnf("Invalid LOG_LEVEL value: %s, using info", c.LogLevel)
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		logrus.Warnf("Invalid %s value: %s, using default %d", key, value, fallback)
		return fallback
	}
	return parsed
}
