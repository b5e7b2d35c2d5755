package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Module provides the application configuration.
var Module = fx.Provide(Load)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	OTLPEndpoint string

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
	DBConnMaxIdleTime int

	Stripe          StripeConfig
	SubscriptionAPI SubscriptionAPIConfig
	WorkspaceAPI    WorkspaceAPIConfig
	RateLimit       RateLimitConfig

	// CallTimeout bounds each external call made during a checkout
	// attempt (tokenize, create-subscription, confirm).
	CallTimeout time.Duration
}

type StripeConfig struct {
	SecretKey string
}

type SubscriptionAPIConfig struct {
	BaseURL     string
	BearerToken string
	Timeout     time.Duration
}

type WorkspaceAPIConfig struct {
	BaseURL     string
	BearerToken string
	Timeout     time.Duration
}

type RateLimitConfig struct {
	Enabled       bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	CheckoutCustomerRate  float64
	CheckoutCustomerBurst int
	CheckoutIPRate        float64
	CheckoutIPBurst       int
	InFlightTTLSeconds    int
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:     getenv("APP_SERVICE", "mewayz-billing"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),

		OTLPEndpoint: getenv("OTLP_ENDPOINT", "localhost:4317"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "mewayz"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", "postgres"),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),

		Stripe: StripeConfig{
			SecretKey: strings.TrimSpace(getenv("STRIPE_SECRET_KEY", "")),
		},
		SubscriptionAPI: SubscriptionAPIConfig{
			BaseURL:     strings.TrimRight(getenv("SUBSCRIPTION_API_URL", "http://localhost:8000/api"), "/"),
			BearerToken: strings.TrimSpace(getenv("SUBSCRIPTION_API_TOKEN", "")),
			Timeout:     getenvDuration("SUBSCRIPTION_API_TIMEOUT", 15*time.Second),
		},
		WorkspaceAPI: WorkspaceAPIConfig{
			BaseURL:     strings.TrimRight(getenv("WORKSPACE_API_URL", "http://localhost:8000/api"), "/"),
			BearerToken: strings.TrimSpace(getenv("WORKSPACE_API_TOKEN", "")),
			Timeout:     getenvDuration("WORKSPACE_API_TIMEOUT", 10*time.Second),
		},
		RateLimit: RateLimitConfig{
			Enabled:       getenvBool("RATE_LIMIT_ENABLED", false),
			RedisAddr:     strings.TrimSpace(getenv("RATE_LIMIT_REDIS_ADDR", "")),
			RedisPassword: getenv("RATE_LIMIT_REDIS_PASSWORD", ""),
			RedisDB:       getenvInt("RATE_LIMIT_REDIS_DB", 0),

			CheckoutCustomerRate:  getenvFloat("RATE_LIMIT_CHECKOUT_CUSTOMER_RATE", 0.2),
			CheckoutCustomerBurst: getenvInt("RATE_LIMIT_CHECKOUT_CUSTOMER_BURST", 5),
			CheckoutIPRate:        getenvFloat("RATE_LIMIT_CHECKOUT_IP_RATE", 1),
			CheckoutIPBurst:       getenvInt("RATE_LIMIT_CHECKOUT_IP_BURST", 20),
			InFlightTTLSeconds:    getenvInt("RATE_LIMIT_CHECKOUT_INFLIGHT_TTL", 120),
		},

		CallTimeout: getenvDuration("CHECKOUT_CALL_TIMEOUT", 30*time.Second),
	}

	return cfg
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
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

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
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
