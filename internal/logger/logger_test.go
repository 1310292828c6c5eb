package logger

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLoggerWritesToFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "nested", "hms-setup.log")

	err := InitLogger(LoggerConfig{LogFormat: "json", LogFile: logFile})
	require.NoError(t, err)
	t.Cleanup(func() { _ = InitLogger(LoggerConfig{}) })

	LogInfo("step finished", map[string]interface{}{"step": "install"})
	LogError("step failed", errors.New("exit status 1"), nil)
	_ = Sync()

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"step finished"`)
	assert.Contains(t, string(data), `"step":"install"`)
	assert.Contains(t, string(data), `"error":"exit status 1"`)
}

func TestInitLoggerWithoutOutputsIsNop(t *testing.T) {
	require.NoError(t, InitLogger(LoggerConfig{LogFormat: "human"}))

	assert.NotPanics(t, func() {
		LogDebug("ignored", nil)
		LogWarn("ignored", map[string]interface{}{"k": 1})
		LogError("ignored", nil, nil)
	})
}

func TestFlattenFields(t *testing.T) {
	flat := flattenFields(map[string]interface{}{"a": 1})
	assert.Equal(t, []interface{}{"a", 1}, flat)
	assert.Empty(t, flattenFields(nil))
}
