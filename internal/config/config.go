package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"rollcall/internal/store"
)

// App holds the runtime configuration loaded from environment variables.
type App struct {
	Env             string
	HTTPPort        string
	DBPath          string
	FrontendDir     string
	RateLimitPerMin int
}

// Load returns application config populated from environment variables with
// sensible defaults. A .env file in the working directory is read first when
// present.
func Load() App {
	if err := godotenv.Load(); err == nil {
		log.Info("loaded environment from .env")
	}

	return App{
		Env:             getEnv("APP_ENV", "dev"),
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		DBPath:          getEnv("DB_PATH", defaultDBPath()),
		FrontendDir:     getEnv("FRONTEND_DIR", ""),
		RateLimitPerMin: intEnv("RATE_LIMIT_PER_MIN", 120),
	}
}

func defaultDBPath() string {
	path, err := store.DefaultPath()
	if err != nil {
		log.Warnf("cannot resolve user data dir: %v, using working directory", err)
		return "attendance.db"
	}
	return path
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func intEnv(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var parsed int
		if _, err := fmt.Sscanf(val, "%d", &parsed); err == nil {
			return parsed
		}
		log.Warnf("invalid int for %s, using fallback %d", key, fallback)
	}
	return fallback
}
