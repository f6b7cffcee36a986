package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverPostgres = "postgres"
	DriverNone     = "none"
)

type Config struct {
	AppEnv   string
	LogLevel string

	HTTPPort        int
	ShutdownTimeout time.Duration

	// StorageDriver selects the profile store backend: memory, file, postgres
	// or none. "none" keeps nothing between requests.
	StorageDriver string
	StorageDir    string
	ProfileID     string
	DatabaseURL   string

	// CatalogFile overrides the built-in product list.
	CatalogFile string
	// CatalogSource is memory or postgres. The postgres catalog is seeded
	// from the same product list on startup and needs DatabaseURL.
	CatalogSource string

	// CORSOrigins is a comma separated list; "*" allows any origin.
	CORSOrigins []string
}

// Load reads an optional .env file and then the process environment.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppEnv:          getEnv("APP_ENV", "dev"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		HTTPPort:        getEnvInt("HTTP_PORT", 8080),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		StorageDriver:   getEnv("STORAGE_DRIVER", DriverFile),
		StorageDir:      getEnv("STORAGE_DIR", ".storefront"),
		ProfileID:       getEnv("PROFILE_ID", "default"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		CatalogFile:     getEnv("CATALOG_FILE", ""),
		CatalogSource:   getEnv("CATALOG_SOURCE", DriverMemory),
		CORSOrigins:     getEnvList("CORS_ORIGINS", []string{"*"}),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)

	if v == "" {
		return def
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}

	return n
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func getEnvList(key string, def []string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
