package logging_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/FacumendezBT/tfu3-andis2/internal/pkg/logging"
)

func TestParseLevel(t *testing.T) {
	lvl, err := logging.ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, zapcore.InfoLevel, lvl)

	lvl, err = logging.ParseLevel(" DEBUG ")
	require.NoError(t, err)
	assert.Equal(t, zapcore.DebugLevel, lvl)

	_, err = logging.ParseLevel("loud")
	assert.Error(t, err)
}

func TestNewLoggerWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "api.log")

	logger, err := logging.NewLogger(logging.Options{Service: "order-api", Env: "test", Level: "info", File: path})
	require.NoError(t, err)

	logger.Info("hello")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
	assert.Contains(t, string(data), `"service":"order-api"`)
	assert.Contains(t, string(data), `"level":"info"`)
}

func TestNewLoggerRejectsBadLevel(t *testing.T) {
	_, err := logging.NewLogger(logging.Options{Level: "verbose"})
	assert.Error(t, err)
}
