package logger

import (
	"bytes"
	"testing"

	"github.com/Dan9191/loan-eligibility/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	t.Run("json in production", func(t *testing.T) {
		var buf bytes.Buffer
		log := New(&config.Config{LogLevel: "debug", Environment: "production"}, &buf)

		log.WithField("component", "test").Info("hello")

		assert.Equal(t, logrus.DebugLevel, log.GetLevel())
		assert.Contains(t, buf.String(), `"msg":"hello"`)
		assert.Contains(t, buf.String(), `"component":"test"`)
	})

	t.Run("text in development", func(t *testing.T) {
		var buf bytes.Buffer
		log := New(&config.Config{LogLevel: "WARN", Environment: "development"}, &buf)

		log.Info("hidden")
		log.Warn("shown")

		assert.Equal(t, logrus.WarnLevel, log.GetLevel())
		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "msg=shown")
	})

	t.Run("invalid level falls back to info", func(t *testing.T) {
		var buf bytes.Buffer
		log := New(&config.Config{LogLevel: "chatty"}, &buf)

		assert.Equal(t, logrus.InfoLevel, log.GetLevel())
		assert.Contains(t, buf.String(), "Invalid log level")
	})
}
