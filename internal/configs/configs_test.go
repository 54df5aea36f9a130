package configs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setS3Env(t *testing.T) {
	t.Helper()

	t.Setenv("S3_BUCKET_NAME", "chat")
	t.Setenv("S3_ENDPOINT", "https://s3.test/")
	t.Setenv("S3_ACCESS_KEY_ID", "key")
	t.Setenv("S3_SECRET_ACCESS_KEY", "secret")
}

func TestLoadConfig_DevelopmentDefaults(t *testing.T) {
	setS3Env(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 4, cfg.PowDifficulty)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.NotEmpty(t, cfg.JWTSecret)
	assert.NotEmpty(t, cfg.DatabaseDSN)
	assert.Equal(t, "https://s3.test/chat", cfg.S3PublicURL)
	assert.Equal(t, 60*time.Second, cfg.PresenceSweepInterval)
	assert.Equal(t, 2*time.Minute, cfg.PresenceOfflineThreshold)
	assert.Empty(t, cfg.AllowedOrigins)
}

func TestLoadConfig_Overrides(t *testing.T) {
	setS3Env(t)
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("PORT", "9000")
	t.Setenv("JWT_SECRET", "s3cr3t")
	t.Setenv("DATABASE_URL", "postgres://db/chat")
	t.Setenv("ALLOWED_ORIGINS", "https://a.test, ,https://b.test")
	t.Setenv("S3_PUBLIC_URL", "https://cdn.test/")
	t.Setenv("PRESENCE_SWEEP_INTERVAL", "15s")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, []string{"https://a.test", "https://b.test"}, cfg.AllowedOrigins)
	assert.Equal(t, "https://cdn.test", cfg.S3PublicURL)
	assert.Equal(t, 15*time.Second, cfg.PresenceSweepInterval)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "privileged port", env: map[string]string{"PORT": "80"}},
		{name: "port not a number", env: map[string]string{"PORT": "http"}},
		{name: "difficulty too high", env: map[string]string{"POW_DIFFICULTY": "12"}},
		{name: "production without secret", env: map[string]string{"ENVIRONMENT": "production", "DATABASE_URL": "postgres://db"}},
		{name: "production without database", env: map[string]string{"ENVIRONMENT": "production", "JWT_SECRET": "x"}},
		{name: "missing bucket", env: map[string]string{"S3_BUCKET_NAME": ""}},
		{name: "negative threshold", env: map[string]string{"PRESENCE_OFFLINE_THRESHOLD": "-1m"}},
		{name: "bad interval", env: map[string]string{"PRESENCE_SWEEP_INTERVAL": "soon"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setS3Env(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}
