package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isaacmorgado/splice-core/pkg/config"
)

type limiterConfig struct {
	MaxRequests int           `env:"TEST_RL_MAX" envDefault:"60"`
	Window      time.Duration `env:"TEST_RL_WINDOW" envDefault:"1m"`
	Prefix      string        `env:"TEST_RL_PREFIX" envDefault:"api"`
}

type lockoutConfig struct {
	Threshold int           `env:"TEST_LOCKOUT_THRESHOLD" envDefault:"5"`
	Duration  time.Duration `env:"TEST_LOCKOUT_DURATION" envDefault:"15m"`
}

func TestLoadDefaults(t *testing.T) {
	var cfg limiterConfig
	require.NoError(t, config.Load(&cfg))

	assert.Equal(t, 60, cfg.MaxRequests)
	assert.Equal(t, time.Minute, cfg.Window)
	assert.Equal(t, "api", cfg.Prefix)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("TEST_LOCKOUT_THRESHOLD", "3")
	t.Setenv("TEST_LOCKOUT_DURATION", "30m")

	var cfg lockoutConfig
	require.NoError(t, config.Load(&cfg))

	assert.Equal(t, 3, cfg.Threshold)
	assert.Equal(t, 30*time.Minute, cfg.Duration)
}

func TestLoadCachesPerType(t *testing.T) {
	var first limiterConfig
	require.NoError(t, config.Load(&first))

	// Changing the environment after the first load must not change the
	// cached value.
	t.Setenv("TEST_RL_MAX", "999")

	var second limiterConfig
	require.NoError(t, config.Load(&second))
	assert.Equal(t, first, second)
}

func TestLoadNilPointer(t *testing.T) {
	var cfg *limiterConfig
	err := config.Load(cfg)
	assert.ErrorIs(t, err, config.ErrNilPointer)
}
