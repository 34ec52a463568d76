package app

import (
	"os"
	"strconv"
	"time"

	"github.com/speakify/backend/internal/synthesis"
)

type Config struct {
	HTTPAddr      string
	PublicBaseURL string
	DatabaseURL   string
	SentryDSN     string

	// JWT Authentication (shared secret with the identity provider)
	JWTSecret string

	// Synthesis provider
	SynthesisAPIURL    string
	SynthesisTransport synthesis.Transport
	SynthesisTimeout   time.Duration

	// Conversion workflow
	VoiceCacheTTL time.Duration
	PollInterval  time.Duration

	// Quota knobs. Both default to 10000 but they are different things:
	// the anonymous limit applies per request, the free limit per month.
	AnonTokenLimit        int
	FreeMonthlyTokenLimit int
}

func LoadConfigFromEnv() Config {
	return Config{
		HTTPAddr:      getenv("HTTP_ADDR", ":8080"),
		PublicBaseURL: getenv("PUBLIC_BASE_URL", "http://localhost:8080"),
		DatabaseURL:   getenv("DATABASE_URL", ""),
		SentryDSN:     getenv("SENTRY_DSN", ""),

		JWTSecret: os.Getenv("JWT_SECRET"), // Required - no fallback for security

		SynthesisAPIURL:    getenv("SYNTHESIS_API_URL", synthesis.DefaultBaseURL),
		SynthesisTransport: synthesis.Transport(getenv("SYNTHESIS_TRANSPORT", string(synthesis.TransportForm))),
		SynthesisTimeout:   getenvDuration("SYNTHESIS_TIMEOUT", 30*time.Second),

		VoiceCacheTTL: getenvDuration("VOICE_CACHE_TTL", time.Hour),
		PollInterval:  getenvDuration("POLL_INTERVAL", 2*time.Second),

		AnonTokenLimit:        getenvInt("ANON_TOKEN_LIMIT", 10000),
		FreeMonthlyTokenLimit: getenvInt("FREE_MONTHLY_TOKEN_LIMIT", 10000),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			return i
		}
	}
	return def
}

func getenvDuration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}
