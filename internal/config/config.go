package config

import (
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration
type Config struct {
	DatabaseURL string
	Port        string

	// AllowedOrigins are the browser origins allowed by CORS.
	AllowedOrigins []string

	// FollowAutoAcceptPublic controls whether follow requests to public
	// accounts are accepted immediately instead of staying pending.
	FollowAutoAcceptPublic bool

	// SessionTTLHours is the lifetime of a login session.
	SessionTTLHours int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		DatabaseURL:            getEnv("DATABASE_URL", "socialnet.db"),
		Port:                   getEnv("PORT", "8080"),
		AllowedOrigins:         strings.Split(getEnv("ALLOWED_ORIGINS", "http://localhost:3000"), ","),
		FollowAutoAcceptPublic: getEnvBool("FOLLOW_AUTO_ACCEPT_PUBLIC", true),
		SessionTTLHours:        getEnvInt("SESSION_TTL_HOURS", 24),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
