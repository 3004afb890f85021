package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	LogLevel    string
	HTTPAddr    string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int

	RedisAddr     string
	RedisPassword string

	// Key material is read once at startup and immutable for the
	// process lifetime.
	EncryptionSalt  string
	BankSharedKey   string
	BankSecrets     map[string]string
	WebhookTimeout  time.Duration
	BankProfilePath string

	SchedulerTickInterval time.Duration
	SchedulerBatchSize    int
	SchedulerItemDelay    time.Duration
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	environment := getenv("ENVIRONMENT", "development")

	cfg := Config{
		AppName:     getenv("APP_SERVICE", "remitra"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: environment,
		LogLevel:    getenv("LOG_LEVEL", "info"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "remitra"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),

		RedisAddr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
		RedisPassword: getenv("REDIS_PASSWORD", ""),

		EncryptionSalt:  getenv("ENCRYPTION_SALT", "remitra-dev-salt"),
		BankSharedKey:   strings.TrimSpace(getenv("BANK_SHARED_KEY", "")),
		BankSecrets:     parseSecrets(getenv("BANK_SECRETS", "")),
		WebhookTimeout:  getenvDuration("WEBHOOK_TIMEOUT", 10*time.Second),
		BankProfilePath: strings.TrimSpace(getenv("BANK_PROFILE_PATH", "")),

		SchedulerTickInterval: getenvDuration("SCHEDULER_TICK_INTERVAL", 30*time.Second),
		SchedulerBatchSize:    getenvInt("SCHEDULER_BATCH_SIZE", 10),
		SchedulerItemDelay:    getenvDuration("SCHEDULER_ITEM_DELAY", 500*time.Millisecond),
	}

	return cfg
}

// parseSecrets parses "hdfc:secret1,icici:secret2" pairs.
func parseSecrets(raw string) map[string]string {
	out := map[string]string{}
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		code, secret, ok := strings.Cut(pair, ":")
		code = strings.ToLower(strings.TrimSpace(code))
		secret = strings.TrimSpace(secret)
		if !ok || code == "" || secret == "" {
			continue
		}
		out[code] = secret
	}
	return out
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}
