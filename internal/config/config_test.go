package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, BackendPostgres, cfg.SessionBackend)
	assert.Equal(t, "auth_session", cfg.SessionCookieName)
	assert.Equal(t, 30*24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, time.Hour, cfg.SessionCleanupInterval)
	assert.Equal(t, uint32(19456), cfg.Argon2.MemoryCost)
	assert.Equal(t, uint32(2), cfg.Argon2.TimeCost)
	assert.Equal(t, uint32(32), cfg.Argon2.OutputLen)
	assert.Equal(t, uint8(1), cfg.Argon2.Parallelism)
}

func TestLoadFrom_Overrides(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"APP_ENV":              "production",
		"SESSION_BACKEND":      "redis",
		"SESSION_TTL":          "2h",
		"CORS_ALLOWED_ORIGINS": "https://a.example,https://b.example",
		"ARGON2_TIME_COST":     "3",
	})
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, BackendRedis, cfg.SessionBackend)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, uint32(3), cfg.Argon2.TimeCost)
}

func TestLoadFrom_Consul(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, "gatehouse", cfg.Consul.ServiceName)
	assert.Equal(t, []string{"auth", "sessions"}, cfg.Consul.Tags)
	assert.Equal(t, "/health", cfg.Consul.CheckPath)
	assert.Equal(t, 10*time.Second, cfg.Consul.CheckInterval)
	assert.Equal(t, 3*time.Second, cfg.Consul.CheckTimeout)
	assert.Equal(t, time.Minute, cfg.Consul.DeregisterAfter)

	cfg, err = LoadFrom(map[string]string{
		"CONSUL_SERVICE_NAME":     "auth-edge",
		"CONSUL_TAGS":             "auth,blue,eu-west",
		"CONSUL_CHECK_PATH":       "/healthz",
		"CONSUL_CHECK_INTERVAL":   "30s",
		"CONSUL_CHECK_TIMEOUT":    "5s",
		"CONSUL_DEREGISTER_AFTER": "10m",
	})
	require.NoError(t, err)

	assert.Equal(t, "auth-edge", cfg.Consul.ServiceName)
	assert.Equal(t, []string{"auth", "blue", "eu-west"}, cfg.Consul.Tags)
	assert.Equal(t, "/healthz", cfg.Consul.CheckPath)
	assert.Equal(t, 30*time.Second, cfg.Consul.CheckInterval)
	assert.Equal(t, 5*time.Second, cfg.Consul.CheckTimeout)
	assert.Equal(t, 10*time.Minute, cfg.Consul.DeregisterAfter)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
		want error
	}{
		{"unknown backend", map[string]string{"SESSION_BACKEND": "mongo"}, ErrInvalidBackend},
		{"zero ttl", map[string]string{"SESSION_TTL": "0s"}, ErrInvalidSessionTTL},
		{"blank cookie name", map[string]string{"SESSION_COOKIE_NAME": "  "}, ErrInvalidCookieName},
		{"zero memory cost", map[string]string{"ARGON2_MEMORY_COST": "0"}, ErrInvalidHashParams},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFrom(tt.vars)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestValidateEnv(t *testing.T) {
	t.Setenv("GATEHOUSE_PRESENT", "1")

	assert.NoError(t, ValidateEnv([]string{"GATEHOUSE_PRESENT"}))

	err := ValidateEnv([]string{"GATEHOUSE_PRESENT", "GATEHOUSE_MISSING_ONE", "GATEHOUSE_MISSING_TWO"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GATEHOUSE_MISSING_ONE, GATEHOUSE_MISSING_TWO")
}
