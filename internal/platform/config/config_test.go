package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/foodrient?sslmode=disable")
	t.Setenv("APP_ENV", "development")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, 24*time.Hour, cfg.JWT.TTL)
	assert.Equal(t, "dev-secret-change-me", cfg.JWT.Secret)
	assert.True(t, cfg.Fees.PlatformPercent.Equal(decimal.NewFromInt(5)))
	assert.True(t, cfg.Fees.SupportCommissionRate.Equal(decimal.RequireFromString("0.01")))
	assert.Equal(t, []string{"support@foodrient.com", "resolutions@foodrient.com"}, cfg.Email.AllowedSenders)
	assert.Equal(t, "https://api.paystack.co", cfg.Paystack.BaseURL)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://db/foodrient")
	t.Setenv("APP_PORT", "9000")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("JWT_TTL", "2h")
	t.Setenv("EMAIL_ALLOWED_SENDERS", " Ops@Foodrient.com ,")
	t.Setenv("APP_PUBLIC_URL", "https://foodrient.com/")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.App.Port)
	assert.Equal(t, "s3cret", cfg.JWT.Secret)
	assert.Equal(t, 2*time.Hour, cfg.JWT.TTL)
	assert.Equal(t, []string{"ops@foodrient.com"}, cfg.Email.AllowedSenders)
	assert.Equal(t, "https://foodrient.com", cfg.App.PublicURL)
}

func TestLoad_Validation(t *testing.T) {
	t.Run("requires database url", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "")
		_, err := Load()
		assert.ErrorContains(t, err, "DATABASE_URL")
	})

	t.Run("requires jwt secret in production", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://db/foodrient")
		t.Setenv("APP_ENV", "production")
		t.Setenv("JWT_SECRET", "")
		_, err := Load()
		assert.ErrorContains(t, err, "JWT_SECRET")
	})

	t.Run("rejects fee above 100", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://db/foodrient")
		t.Setenv("PLATFORM_FEE_PERCENT", "120")
		_, err := Load()
		assert.ErrorContains(t, err, "PLATFORM_FEE_PERCENT")
	})
}
