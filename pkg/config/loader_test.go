package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/config"
)

func TestLoad(t *testing.T) {
	// No t.Parallel(): the tests mutate process environment variables.

	t.Run("defaults apply", func(t *testing.T) {
		type cfgDefaults struct {
			Host string `env:"CFG_TEST_HOST" envDefault:"localhost"`
			Port int    `env:"CFG_TEST_PORT" envDefault:"5432"`
		}

		var cfg cfgDefaults
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, "localhost", cfg.Host)
		assert.Equal(t, 5432, cfg.Port)
	})

	t.Run("env overrides defaults", func(t *testing.T) {
		type cfgOverride struct {
			Host string `env:"CFG_TEST_OVERRIDE_HOST" envDefault:"localhost"`
		}

		t.Setenv("CFG_TEST_OVERRIDE_HOST", "db.internal")

		var cfg cfgOverride
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, "db.internal", cfg.Host)
	})

	t.Run("required variable missing", func(t *testing.T) {
		type cfgRequired struct {
			Token string `env:"CFG_TEST_MISSING_TOKEN,required"`
		}

		var cfg cfgRequired
		err := config.Load(&cfg)
		assert.ErrorIs(t, err, config.ErrParsingConfig)
	})

	t.Run("same type is cached", func(t *testing.T) {
		type cfgCached struct {
			Value string `env:"CFG_TEST_CACHED" envDefault:"first"`
		}

		var first cfgCached
		require.NoError(t, config.Load(&first))
		assert.Equal(t, "first", first.Value)

		// Changing the environment after the first load has no effect.
		t.Setenv("CFG_TEST_CACHED", "second")

		var again cfgCached
		require.NoError(t, config.Load(&again))
		assert.Equal(t, "first", again.Value)
	})

	t.Run("nil pointer", func(t *testing.T) {
		err := config.Load[struct{}](nil)
		assert.ErrorIs(t, err, config.ErrNilPointer)
	})
}

func TestMustLoad(t *testing.T) {
	type cfgPanics struct {
		Token string `env:"CFG_TEST_MUST_TOKEN,required"`
	}

	assert.Panics(t, func() {
		var cfg cfgPanics
		config.MustLoad(&cfg)
	})
}
