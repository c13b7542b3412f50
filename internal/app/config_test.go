package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("CHARACTER_TIERS", "premium,founder")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":5001", cfg.AppAddr)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, int32(10), cfg.DBMaxConns)
	assert.True(t, cfg.DBRunMigrations)
	assert.Empty(t, cfg.RedisAddr)
	assert.Equal(t, 10*time.Second, cfg.AppShutdownTimeout)
	assert.Equal(t, []string{"premium", "founder"}, cfg.CharacterTiers)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := LoadConfig()
	require.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	cfg := testConfig()
	require.NoError(t, cfg.Validate())

	cfg.BcryptCost = 64
	assert.Error(t, cfg.Validate())

	cfg = testConfig()
	cfg.JWTSecret = "   "
	assert.Error(t, cfg.Validate())
}

func TestTestModeFlag(t *testing.T) {
	t.Setenv(TestModeEnv, "true")
	RefreshTestMode()
	assert.True(t, InTestMode())

	t.Setenv(TestModeEnv, "0")
	RefreshTestMode()
	assert.False(t, InTestMode())
}
