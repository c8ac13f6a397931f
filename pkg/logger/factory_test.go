package logger_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authkit/pkg/logger"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("json output with static attrs", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := logger.New(
			logger.WithOutput(&buf),
			logger.WithAttr(slog.String("service", "authkit")),
		)

		log.Info("hello", logger.Component("test"))

		var record map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
		assert.Equal(t, "hello", record["msg"])
		assert.Equal(t, "authkit", record["service"])
		assert.Equal(t, "test", record["component"])
	})

	t.Run("level filtering", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := logger.New(logger.WithOutput(&buf), logger.WithLevel(slog.LevelWarn))

		log.Info("dropped")
		assert.Empty(t, buf.String())

		log.Warn("kept")
		assert.Contains(t, buf.String(), "kept")
	})

	t.Run("development preset uses text format", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := logger.New(logger.WithDevelopment("authkit"), logger.WithOutput(&buf))

		log.Debug("visible")
		assert.Contains(t, buf.String(), "visible")
		assert.Contains(t, buf.String(), "service=authkit")
	})
}

func TestAttrs(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "error", logger.Error(errors.New("x")).Key)
	assert.Equal(t, slog.Attr{}, logger.Error(nil))
	assert.Equal(t, "user_id", logger.UserID("u").Key)
	assert.Equal(t, "session_id", logger.SessionID("s").Key)
}
