package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "0123456789abcdef0123456789abcdef"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PASETO_KEY", testKey)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.True(t, cfg.Server.IsDevelopment())
	assert.Equal(t, 5*time.Minute, cfg.OTP.TTL)
	assert.Equal(t, 5, cfg.OTP.MaxAttempts)
	assert.Equal(t, 6, cfg.OTP.CodeLength)
	assert.Equal(t, time.Minute, cfg.OTP.ResendInterval)
	assert.Equal(t, 3*time.Second, cfg.Store.Timeout)
	assert.Equal(t, "localhost:6379", cfg.Redis.Address())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PASETO_KEY", testKey)
	t.Setenv("OTP_TTL", "120")
	t.Setenv("OTP_MAX_ATTEMPTS", "3")
	t.Setenv("TRUSTED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("DB_RUN_MIGRATIONS", "false")
	t.Setenv("DB_CHANNEL_BINDING", "require")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 2*time.Minute, cfg.OTP.TTL)
	assert.Equal(t, 3, cfg.OTP.MaxAttempts)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.TrustedOrigins)
	assert.False(t, cfg.Database.RunMigrations)
	assert.Contains(t, cfg.Database.ConnectionString(), "channel_binding=require")
}

func TestLoad_RejectsShortPasetoKey(t *testing.T) {
	t.Setenv("PASETO_KEY", "short")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PASETO_KEY")
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	cfg := &Config{
		Auth:  AuthConfig{PasetoKey: []byte(testKey), SessionDuration: time.Hour},
		OTP:   OTPConfig{CodeLength: 2, MaxAttempts: 0, TTL: time.Minute, Delivery: "pigeon"},
		Store: StoreConfig{Timeout: time.Second},
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PLACEHOLDER_EMAIL_DOMAIN")
	assert.Contains(t, err.Error(), "OTP_CODE_LENGTH")
	assert.Contains(t, err.Error(), "OTP_MAX_ATTEMPTS")
	assert.Contains(t, err.Error(), "OTP_DELIVERY")
}
