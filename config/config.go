package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config stores the application configuration.
type Config struct {
	ListenAddr string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	MinioEndpoint       string
	MinioPublicEndpoint string // endpoint used when building public URLs; falls back to MinioEndpoint
	MinioAccessKey      string
	MinioSecretKey      string
	MinioUseSSL         bool
	MinioRegion         string

	JWTSecret     string
	TokenTTLHours int

	// Sessions inactive for this many days are forcibly signed out.
	IdleTimeoutDays int

	// Optional drop directory watched for audio files to auto-import,
	// attributed to ImportProfileID. Disabled when ImportDir is empty.
	ImportDir       string
	ImportProfileID int64

	LogLevel string
	LogPath  string
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvBool gets an environment variable as bool or returns a default value.
func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv.Load() will not override existing env vars.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on existing environment variables and defaults.")
	}

	return &Config{
		ListenAddr: getEnv("LISTEN_ADDR", ":8080"),

		DBHost:     getEnv("DB_HOST", "127.0.0.1"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "root"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     getEnv("DB_NAME", "duetfm"),

		RedisHost:     getEnv("REDIS_HOST", "127.0.0.1"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		MinioEndpoint:       getEnv("MINIO_ENDPOINT", "127.0.0.1:9000"),
		MinioPublicEndpoint: getEnv("MINIO_PUBLIC_ENDPOINT", ""),
		MinioAccessKey:      os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey:      os.Getenv("MINIO_SECRET_KEY"),
		MinioUseSSL:         getEnvBool("MINIO_USE_SSL", false),
		MinioRegion:         getEnv("MINIO_REGION", "us-east-1"),

		JWTSecret:     getEnv("JWT_SECRET", "duetfm-dev-secret"),
		TokenTTLHours: getEnvInt("TOKEN_TTL_HOURS", 24*30),

		IdleTimeoutDays: getEnvInt("IDLE_TIMEOUT_DAYS", 7),

		ImportDir:       getEnv("IMPORT_DIR", ""),
		ImportProfileID: int64(getEnvInt("IMPORT_PROFILE_ID", 0)),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogPath:  getEnv("LOG_PATH", ""),
	}
}
