package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"arbor-payment-api/database"
)

type Config struct {
	Database database.DatabaseConfig
	AuthNet  AuthNetConfig
	Server   ServerConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Session  SessionConfig
}

// AuthNetConfig carries the gateway credentials and endpoint selection.
// Environment picks the default hosts; explicit endpoint overrides win.
type AuthNetConfig struct {
	LoginID             string
	TransactionKey      string
	Environment         string
	TransactionEndpoint string
	ProfileEndpoint     string
	TestRequests        bool
}

type ServerConfig struct {
	Port string
}

type RedisConfig struct {
	URL               string
	WorkerConcurrency int
}

type JWTConfig struct {
	Secret string
	Issuer string
}

type SessionConfig struct {
	Secret string
	Domain string
	MaxAge int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Error loading .env file: %v", err)
	}

	cfg := &Config{
		Database: database.DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost:3306"),
			User:     getEnv("DB_USER", "root"),
			Password: os.Getenv("DB_PASSWORD"),
			DBName:   getEnv("DB_NAME", "arbor_payments"),
		},
		AuthNet: AuthNetConfig{
			LoginID:             os.Getenv("AUTHNET_API_LOGIN_ID"),
			TransactionKey:      os.Getenv("AUTHNET_TRANSACTION_KEY"),
			Environment:         getEnv("AUTHNET_ENVIRONMENT", "test"),
			TransactionEndpoint: os.Getenv("AUTHNET_TRANSACTION_ENDPOINT"),
			ProfileEndpoint:     os.Getenv("AUTHNET_PROFILE_ENDPOINT"),
			TestRequests:        getEnvBool("AUTHNET_TEST_REQUESTS", false),
		},
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
		},
		Redis: RedisConfig{
			URL:               getEnv("REDIS_URL", "redis://localhost:6379/0"),
			WorkerConcurrency: getEnvInt("WORKER_CONCURRENCY", 4),
		},
		JWT: JWTConfig{
			Secret: os.Getenv("JWT_SECRET"),
			Issuer: getEnv("JWT_ISSUER", "arbor-payment-api"),
		},
		Session: SessionConfig{
			Secret: os.Getenv("SESSION_SECRET"),
			Domain: os.Getenv("SESSION_DOMAIN"),
			MaxAge: getEnvInt("SESSION_MAX_AGE", 3600),
		},
	}

	if cfg.AuthNet.LoginID == "" || cfg.AuthNet.TransactionKey == "" {
		log.Printf("Warning: AUTHNET_API_LOGIN_ID or AUTHNET_TRANSACTION_KEY not set, gateway calls will fail")
	}
	if cfg.JWT.Secret == "" {
		cfg.JWT.Secret = "insecure-development-secret"
		log.Printf("Warning: JWT_SECRET not set, using development default")
	}
	if cfg.Session.Secret == "" {
		cfg.Session.Secret = cfg.JWT.Secret
		log.Printf("Warning: SESSION_SECRET not set, falling back to JWT secret")
	}

	log.Printf("Config loaded: environment=%s server_port=%s redis=%s db=%s",
		cfg.AuthNet.Environment, cfg.Server.Port, cfg.Redis.URL, cfg.Database.DBName)

	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("Warning: invalid value %q for %s, using %d", v, key, fallback)
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("Warning: invalid value %q for %s, using %v", v, key, fallback)
		return fallback
	}
	return b
}
