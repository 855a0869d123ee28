package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"basegraph.app/chat/core/db"
)

type Config struct {
	OTel          OTelConfig
	Redis         RedisConfig
	Auth          AuthConfig
	Relay         RelayConfig
	RateLimit     RateLimitConfig
	Env           string
	Port          string
	AdminAPIKey   string
	SnowflakeNode int64
	DB            db.Config
}

type OTelConfig struct {
	Endpoint       string
	Headers        string
	ServiceName    string
	ServiceVersion string
	Environment    string
	// SampleRatio is the share of root traces kept, 1 keeps all.
	SampleRatio float64
}

// RedisConfig points at the unread-counter store. An empty URL or the
// memory:// scheme keeps counters in process.
type RedisConfig struct {
	URL       string
	UnreadKey string
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
	// Required enforces bearer tokens on /api/v1 and the WebSocket handshake.
	Required bool
}

type RelayConfig struct {
	SendBuffer       int
	MaxFrameBytes    int64
	FilterByReceiver bool
	AllowedOrigins   []string
}

type RateLimitConfig struct {
	RPS   float64
	Burst int
}

type ServiceType string

const (
	ServiceTypeServer ServiceType = "server"
	ServiceTypeCLI    ServiceType = "chatctl"
)

const memoryScheme = "memory://"

// Load reads configuration from the environment. In development it first
// loads .env.<service>, falling back to .env.
func Load(serviceType ServiceType) (Config, error) {
	if getEnv("CHAT_ENV", "development") == "development" {
		envFile := fmt.Sprintf(".env.%s", serviceType)
		if err := godotenv.Load(envFile); err != nil {
			_ = godotenv.Load(".env")
		}
	}

	cfg := Config{
		Env:           getEnv("CHAT_ENV", "development"),
		Port:          getEnv("PORT", "8080"),
		AdminAPIKey:   getEnv("ADMIN_API_KEY", ""),
		SnowflakeNode: int64(getEnvInt("SNOWFLAKE_NODE", 1)),
		DB: db.Config{
			DSN:      getEnv("DATABASE_URL", memoryScheme),
			MaxConns: getEnvInt32("DB_MAX_CONNS", 10),
			MinConns: getEnvInt32("DB_MIN_CONNS", 2),
		},
		Redis: RedisConfig{
			URL:       getEnv("REDIS_URL", ""),
			UnreadKey: getEnv("REDIS_UNREAD_KEY", "chat:unread"),
		},
		OTel: OTelConfig{
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:        getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "chat"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "dev"),
			Environment:    getEnv("CHAT_ENV", "development"),
			SampleRatio:    getEnvFloat("OTEL_TRACES_SAMPLE_RATIO", 1),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			TokenTTL:  getEnvDuration("JWT_TTL", 30*24*time.Hour),
			Required:  getEnvBool("AUTH_REQUIRED", false),
		},
		Relay: RelayConfig{
			SendBuffer:       getEnvInt("RELAY_SEND_BUFFER", 256),
			MaxFrameBytes:    int64(getEnvInt("RELAY_MAX_FRAME_BYTES", 64*1024)),
			FilterByReceiver: getEnvBool("RELAY_FILTER_BY_RECEIVER", false),
			AllowedOrigins:   getEnvList("RELAY_ALLOWED_ORIGINS"),
		},
		RateLimit: RateLimitConfig{
			RPS:   getEnvFloat("RATE_LIMIT_RPS", 20),
			Burst: getEnvInt("RATE_LIMIT_BURST", 40),
		},
	}

	if cfg.Auth.JWTSecret == "" {
		if cfg.IsProduction() {
			return Config{}, fmt.Errorf("JWT_SECRET is required in production")
		}
		cfg.Auth.JWTSecret = "dev-secret"
	}
	if cfg.Relay.SendBuffer <= 0 {
		return Config{}, fmt.Errorf("RELAY_SEND_BUFFER must be positive, got %d", cfg.Relay.SendBuffer)
	}

	return cfg, nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c OTelConfig) Enabled() bool {
	return c.Endpoint != ""
}

// InMemory reports whether messages are kept in process instead of Postgres.
func (c Config) InMemory() bool {
	return c.DB.DSN == "" || strings.HasPrefix(c.DB.DSN, memoryScheme)
}

func (c RedisConfig) Enabled() bool {
	return c.URL != "" && !strings.HasPrefix(c.URL, memoryScheme)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt32(key string, fallback int32) int32 {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(i)
		}
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

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
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

func getEnvList(key string) []string {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
