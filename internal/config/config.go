package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Store drivers
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Rate limit backends
const (
	RateLimitBackendMemory = "memory"
	RateLimitBackendRedis  = "redis"
)

// Config is the process configuration assembled from the environment.
type Config struct {
	Port        string
	Env         string
	LogLevel    string
	CORSOrigins string

	StoreDriver string
	DB          DBConfig
	Redis       RedisConfig

	RateLimitBackend string
	APIRateLimit     LimitConfig
	AuthRateLimit    LimitConfig

	TransferMaxAmount decimal.Decimal
	TransferTimeout   time.Duration

	JWTSecret string
}

// DBConfig holds the postgres DSN parts and pool sizing.
type DBConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DSN renders the key/value connection string gorm's postgres driver expects.
func (c DBConfig) DSN() string {
	return "host=" + c.Host +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.Name +
		" port=" + c.Port +
		" sslmode=" + c.SSLMode
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Addr returns host:port.
func (c RedisConfig) Addr() string {
	return c.Host + ":" + c.Port
}

// LimitConfig is a request budget per identity per window.
type LimitConfig struct {
	Max    int
	Window time.Duration
}

// LoadEnv loads variables from a .env file if present.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file found: %v", err)
	}
}

// Load reads the full configuration. Call LoadEnv first to pick up a .env file.
func Load() *Config {
	return &Config{
		Port:        GetEnv("PORT", "3000"),
		Env:         GetEnv("ENV", "development"),
		LogLevel:    GetEnv("LOG_LEVEL", "info"),
		CORSOrigins: GetEnv("CORS_ORIGINS", "http://localhost:3000"),

		StoreDriver: strings.ToLower(GetEnv("STORE_DRIVER", StoreDriverPostgres)),
		DB: DBConfig{
			Host:            GetEnv("DB_HOST", "localhost"),
			Port:            GetEnv("DB_PORT", "5432"),
			User:            GetEnv("DB_USER", "postgres"),
			Password:        GetEnv("DB_PASSWORD", "postgres"),
			Name:            GetEnv("DB_NAME", "paywave"),
			SSLMode:         GetEnv("DB_SSLMODE", "disable"),
			MaxIdleConns:    GetIntEnv("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    GetIntEnv("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime: GetDurationEnv("DB_CONN_MAX_LIFETIME", time.Hour),
			ConnMaxIdleTime: GetDurationEnv("DB_CONN_MAX_IDLE_TIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			Host:     GetEnv("REDIS_HOST", "localhost"),
			Port:     GetEnv("REDIS_PORT", "6379"),
			Password: GetEnv("REDIS_PASSWORD", ""),
			DB:       GetIntEnv("REDIS_DB", 0),
		},

		RateLimitBackend: strings.ToLower(GetEnv("RATE_LIMIT_BACKEND", RateLimitBackendMemory)),
		APIRateLimit: LimitConfig{
			Max:    GetIntEnv("RATE_LIMIT_MAX", 100),
			Window: GetSecondsEnv("RATE_LIMIT_WINDOW", 900),
		},
		AuthRateLimit: LimitConfig{
			Max:    GetIntEnv("AUTH_RATE_LIMIT_MAX", 5),
			Window: GetSecondsEnv("AUTH_RATE_LIMIT_WINDOW", 900),
		},

		TransferMaxAmount: GetDecimalEnv("TRANSFER_MAX_AMOUNT", decimal.NewFromInt(10000)),
		TransferTimeout:   GetDurationEnv("TRANSFER_TIMEOUT", 5*time.Second),

		JWTSecret: GetEnv("JWT_SECRET", "paywave-dev-secret"),
	}
}

// GetEnv returns an environment variable or a default value.
func GetEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return defaultVal
}

// GetIntEnv returns an int environment variable or a default value.
func GetIntEnv(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// GetDurationEnv parses a Go duration string ("5s", "1h").
func GetDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

// GetSecondsEnv reads a whole number of seconds.
func GetSecondsEnv(key string, defaultSeconds int) time.Duration {
	return time.Duration(GetIntEnv(key, defaultSeconds)) * time.Second
}

func GetDecimalEnv(key string, defaultVal decimal.Decimal) decimal.Decimal {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := decimal.NewFromString(val); err == nil {
			return d
		}
	}
	return defaultVal
}

// IsProduction checks if the app runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
