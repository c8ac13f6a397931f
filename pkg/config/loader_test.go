package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authkit/pkg/config"
)

type testConfig struct {
	Name     string        `env:"CONFIGTEST_NAME" envDefault:"fallback"`
	Interval time.Duration `env:"CONFIGTEST_INTERVAL" envDefault:"5s"`
	Max      int           `env:"CONFIGTEST_MAX" envDefault:"10"`
}

func TestLoad(t *testing.T) {
	t.Run("defaults applied", func(t *testing.T) {
		var cfg testConfig
		require.NoError(t, config.Load(&cfg))

		assert.Equal(t, "fallback", cfg.Name)
		assert.Equal(t, 5*time.Second, cfg.Interval)
		assert.Equal(t, 10, cfg.Max)
	})

	t.Run("environment overrides defaults", func(t *testing.T) {
		t.Setenv("CONFIGTEST_NAME", "from-env")
		t.Setenv("CONFIGTEST_INTERVAL", "30s")

		var cfg testConfig
		require.NoError(t, config.Load(&cfg))

		assert.Equal(t, "from-env", cfg.Name)
		assert.Equal(t, 30*time.Second, cfg.Interval)
	})

	t.Run("nil pointer rejected", func(t *testing.T) {
		err := config.Load[testConfig](nil)
		assert.ErrorIs(t, err, config.ErrNilPointer)
	})

	t.Run("invalid value reports parse error", func(t *testing.T) {
		t.Setenv("CONFIGTEST_MAX", "not-a-number")

		var cfg testConfig
		err := config.Load(&cfg)
		assert.ErrorIs(t, err, config.ErrParsingConfig)
	})
}

func TestMustLoad(t *testing.T) {
	t.Run("panics on failure", func(t *testing.T) {
		t.Setenv("CONFIGTEST_MAX", "boom")

		assert.Panics(t, func() {
			var cfg testConfig
			config.MustLoad(&cfg)
		})
	})
}
