package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "")
	t.Setenv("CONFIG_FILE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "mongo", cfg.DBDriver)
	assert.Equal(t, "/static/uploads", cfg.UploadURLPrefix)
	assert.True(t, cfg.Recognition.TesseractEnabled)
	assert.False(t, cfg.Recognition.RotateVariants)
	assert.Equal(t, 90*time.Second, cfg.Recognition.Timeout)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DB_DRIVER", "SQLITE")
	t.Setenv("SQLITE_PATH", "/tmp/x.db")
	t.Setenv("ROTATE_VARIANTS", "true")
	t.Setenv("RECOGNITION_CALL_TIMEOUT", "5s")
	t.Setenv("UPLOAD_URL_PREFIX", "/files/")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "/tmp/x.db", cfg.SQLitePath)
	assert.True(t, cfg.Recognition.RotateVariants)
	assert.Equal(t, 5*time.Second, cfg.Recognition.CallTimeout)
	assert.Equal(t, "/files", cfg.UploadURLPrefix)
}

func TestValidate(t *testing.T) {
	base := Config{
		DBDriver: "postgres",
		Recognition: RecognitionConfig{
			Timeout:     time.Second,
			CallTimeout: time.Second,
		},
	}

	t.Run("postgres requires dsn", func(t *testing.T) {
		c := base
		assert.Error(t, c.Validate())
		c.PostgresDSN = "postgres://x"
		assert.NoError(t, c.Validate())
	})

	t.Run("unknown driver", func(t *testing.T) {
		c := base
		c.DBDriver = "redis"
		assert.ErrorContains(t, c.Validate(), "unknown DB_DRIVER")
	})

	t.Run("timeouts must be positive", func(t *testing.T) {
		c := base
		c.PostgresDSN = "postgres://x"
		c.Recognition.CallTimeout = 0
		assert.Error(t, c.Validate())
	})
}

func TestSlogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, (&Config{LogLevel: "debug"}).SlogLevel())
	assert.Equal(t, slog.LevelError, (&Config{LogLevel: "error"}).SlogLevel())
	assert.Equal(t, slog.LevelInfo, (&Config{LogLevel: "loud"}).SlogLevel())
}
