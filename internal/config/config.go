package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// client
	APIURL            string
	APIPrefix         string
	CreatePath        string
	SocketURL         string
	Sector            string
	HTTPTimeout       time.Duration
	ReconnectAttempts int
	ReconnectDelay    time.Duration
	PollSchedule      string
	PeriodDays        int
	PerPage           int
	Timezone          string
	TokenDB           string

	// development backend
	Port            string
	JWTSecret       string
	TokenTTL        time.Duration
	DevUserEmail    string
	DevUserPassword string
	ListEnvelope    string

	Environment string
	LogLevel    string
}

// FromEnv loads an optional .env file and reads the environment.
func FromEnv() Config {
	_ = godotenv.Load()

	return Config{
		APIURL:            strings.TrimRight(envOr("API_URL", "http://localhost:8000"), "/"),
		APIPrefix:         envOr("API_PREFIX", "/api"),
		CreatePath:        envOr("CREATE_PATH", "/marketing/data"),
		SocketURL:         envOr("SOCKET_URL", "ws://localhost:8000/ws"),
		Sector:            envOr("SECTOR", "marketing"),
		HTTPTimeout:       time.Duration(intOr("HTTP_TIMEOUT_SECONDS", 30)) * time.Second,
		ReconnectAttempts: intOr("RECONNECT_ATTEMPTS", 5),
		ReconnectDelay:    time.Duration(intOr("RECONNECT_DELAY_MS", 1000)) * time.Millisecond,
		PollSchedule:      envOr("POLL_SCHEDULE", "@every 2m"),
		PeriodDays:        intOr("PERIOD_DAYS", 30),
		PerPage:           intOr("PER_PAGE", 10),
		Timezone:          envOr("TIMEZONE", "America/Fortaleza"),
		TokenDB:           envOr("TOKEN_DB", "./dashboard.db"),

		Port:            envOr("PORT", "8000"),
		JWTSecret:       envOr("JWT_SECRET", "secret"),
		TokenTTL:        time.Duration(intOr("TOKEN_TTL_MINUTES", 60)) * time.Minute,
		DevUserEmail:    envOr("DEV_USER_EMAIL", "admin@example.com"),
		DevUserPassword: envOr("DEV_USER_PASSWORD", "admin"),
		ListEnvelope:    envOr("LIST_ENVELOPE", "items"),

		Environment: envOr("ENVIRONMENT", "development"),
		LogLevel:    envOr("LOG_LEVEL", "info"),
	}
}

// BaseURL is the REST root every endpoint path is appended to.
func (c Config) BaseURL() string { return c.APIURL + c.APIPrefix }

// Location resolves the dashboard timezone, falling back to UTC.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func intOr(k string, def int) int {
	n, err := strconv.Atoi(os.Getenv(k))
	if err != nil {
		return def
	}
	return n
}
