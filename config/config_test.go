package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"DB_HOST", "DB_USER", "DB_NAME",
		"AUTHNET_ENVIRONMENT", "AUTHNET_TEST_REQUESTS",
		"SERVER_PORT", "REDIS_URL", "WORKER_CONCURRENCY",
		"JWT_SECRET", "JWT_ISSUER",
		"SESSION_SECRET", "SESSION_MAX_AGE",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, "localhost:3306", cfg.Database.Host)
	assert.Equal(t, "root", cfg.Database.User)
	assert.Equal(t, "arbor_payments", cfg.Database.DBName)
	assert.Equal(t, "test", cfg.AuthNet.Environment)
	assert.False(t, cfg.AuthNet.TestRequests)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
	assert.Equal(t, 4, cfg.Redis.WorkerConcurrency)
	assert.Equal(t, "arbor-payment-api", cfg.JWT.Issuer)
	assert.Equal(t, 3600, cfg.Session.MaxAge)

	// Unset secrets fall back so a dev box still boots.
	assert.Equal(t, "insecure-development-secret", cfg.JWT.Secret)
	assert.Equal(t, cfg.JWT.Secret, cfg.Session.Secret)
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal:3306")
	t.Setenv("AUTHNET_ENVIRONMENT", "production")
	t.Setenv("AUTHNET_TEST_REQUESTS", "true")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("WORKER_CONCURRENCY", "8")
	t.Setenv("JWT_SECRET", "prod-jwt-secret")
	t.Setenv("SESSION_SECRET", "prod-session-secret")

	cfg := Load()

	assert.Equal(t, "db.internal:3306", cfg.Database.Host)
	assert.Equal(t, "production", cfg.AuthNet.Environment)
	assert.True(t, cfg.AuthNet.TestRequests)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 8, cfg.Redis.WorkerConcurrency)
	assert.Equal(t, "prod-jwt-secret", cfg.JWT.Secret)
	assert.Equal(t, "prod-session-secret", cfg.Session.Secret)
}

func TestLoadRejectsBadNumbers(t *testing.T) {
	t.Setenv("WORKER_CONCURRENCY", "lots")
	t.Setenv("SESSION_MAX_AGE", "")

	cfg := Load()

	assert.Equal(t, 4, cfg.Redis.WorkerConcurrency)
	assert.Equal(t, 3600, cfg.Session.MaxAge)
}
