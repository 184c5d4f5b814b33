package observability

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nbenliogludev/go-workflow-agent/internal/config"
)

func TestInitialize(t *testing.T) {
	t.Run("json output to writer", func(t *testing.T) {
		ResetForTest()
		defer ResetForTest()

		var buf bytes.Buffer
		Initialize(config.LoggerConfig{Level: "debug", Format: "json", ServiceName: "test"}, zapcore.AddSync(&buf))

		GetLogger().Info("captured state", zap.Int("sequence", 2))
		Sync()

		out := buf.String()
		assert.Contains(t, out, `"msg":"captured state"`)
		assert.Contains(t, out, `"sequence":2`)
		assert.Contains(t, out, `"logger":"test"`)
	})

	t.Run("level filters entries", func(t *testing.T) {
		ResetForTest()
		defer ResetForTest()

		var buf bytes.Buffer
		Initialize(config.LoggerConfig{Level: "warn", Format: "json", ServiceName: "test"}, zapcore.AddSync(&buf))

		GetLogger().Info("hidden")
		GetLogger().Warn("visible")
		Sync()

		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "visible")
	})

	t.Run("second initialize is ignored", func(t *testing.T) {
		ResetForTest()
		defer ResetForTest()

		var first, second bytes.Buffer
		Initialize(config.LoggerConfig{Level: "info", Format: "json", ServiceName: "first"}, zapcore.AddSync(&first))
		Initialize(config.LoggerConfig{Level: "info", Format: "json", ServiceName: "second"}, zapcore.AddSync(&second))

		GetLogger().Info("hello")
		Sync()

		assert.Contains(t, first.String(), "hello")
		assert.Empty(t, second.String())
	})

	t.Run("file sink", func(t *testing.T) {
		ResetForTest()
		defer ResetForTest()

		logFile := filepath.Join(t.TempDir(), "agent.log")
		var buf bytes.Buffer
		Initialize(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "test", LogFile: logFile, MaxSize: 1}, zapcore.AddSync(&buf))

		GetLogger().Info("to file")
		Sync()

		data, err := os.ReadFile(logFile)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"msg":"to file"`)
	})
}

func TestGetLoggerFallback(t *testing.T) {
	ResetForTest()
	assert.NotNil(t, GetLogger())
}
