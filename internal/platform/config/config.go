package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process-level configuration.
type Server struct {
	Addr    string
	BaseURL string

	ClaimSigningSecret string
	JWTSigningKey      string
	AdminToken         string

	ClaimTokenTTL        time.Duration
	OptOutTokenTTL       time.Duration
	VendorAccessTokenTTL time.Duration
	SessionTTL           time.Duration

	DatabaseURL  string
	Redis        RedisConfig
	KafkaBrokers []string
	AuditTopic   string

	BatchConcurrency int
}

// RedisConfig holds connection settings for the consumed-token store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("CLAIMGATE_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	baseURL := os.Getenv("CLAIMGATE_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	signingSecret := os.Getenv("CLAIM_SIGNING_SECRET")
	if signingSecret == "" {
		// Use a default for development - should be overridden in production
		signingSecret = "dev-claim-secret-change-in-production"
	}
	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		jwtSigningKey = "dev-jwt-key-change-in-production"
	}

	var brokers []string
	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		for _, b := range strings.Split(raw, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
	}
	auditTopic := os.Getenv("AUDIT_TOPIC")
	if auditTopic == "" {
		auditTopic = "claimgate.audit"
	}

	return Server{
		Addr:                 addr,
		BaseURL:              baseURL,
		ClaimSigningSecret:   signingSecret,
		JWTSigningKey:        jwtSigningKey,
		AdminToken:           os.Getenv("ADMIN_TOKEN"),
		ClaimTokenTTL:        durationDaysFromEnv("CLAIM_TOKEN_TTL_DAYS", 14),
		OptOutTokenTTL:       durationDaysFromEnv("OPT_OUT_TOKEN_TTL_DAYS", 14),
		VendorAccessTokenTTL: durationFromEnv("VENDOR_ACCESS_TOKEN_TTL", time.Hour),
		SessionTTL:           durationFromEnv("SESSION_TTL", 24*time.Hour),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     intFromEnv("REDIS_POOL_SIZE", 10),
			MinIdleConns: intFromEnv("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  durationFromEnv("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  durationFromEnv("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: durationFromEnv("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		KafkaBrokers:     brokers,
		AuditTopic:       auditTopic,
		BatchConcurrency: intFromEnv("BATCH_CONCURRENCY", 8),
	}
}

func intFromEnv(key string, fallback int) int {
	if raw := os.Getenv(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			return v
		}
	}
	return fallback
}

func durationFromEnv(key string, fallback time.Duration) time.Duration {
	if raw := os.Getenv(key); raw != "" {
		if v, err := time.ParseDuration(raw); err == nil && v > 0 {
			return v
		}
	}
	return fallback
}

func durationDaysFromEnv(key string, fallbackDays int) time.Duration {
	return time.Duration(intFromEnv(key, fallbackDays)) * 24 * time.Hour
}
