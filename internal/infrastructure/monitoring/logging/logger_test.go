package logging

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObserved(level zapcore.Level) (Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return NewLoggerFromCore(core), logs
}

func TestZapLogger_EmitsFields(t *testing.T) {
	log, logs := newObserved(zapcore.DebugLevel)

	log.Info("wheel generated",
		String("wheel_type", "aroma"),
		Int("categories", 4),
		Duration("elapsed", 30*time.Millisecond),
	)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "wheel generated", entry.Message)
	fields := entry.ContextMap()
	assert.Equal(t, "aroma", fields["wheel_type"])
	assert.EqualValues(t, 4, fields["categories"])
}

func TestZapLogger_LevelFiltering(t *testing.T) {
	log, logs := newObserved(zapcore.WarnLevel)

	log.Debug("dropped")
	log.Info("dropped")
	log.Warn("kept")
	log.Error("kept")

	assert.Equal(t, 2, logs.Len())
}

func TestWith_ChildCarriesFields(t *testing.T) {
	log, logs := newObserved(zapcore.InfoLevel)

	child := log.With(String("component", "aggregator"))
	child.Info("grouped descriptors")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "aggregator", logs.All()[0].ContextMap()["component"])
}

func TestErr_NilError(t *testing.T) {
	f := Err(nil)
	assert.Equal(t, "error", f.Key)
	assert.Equal(t, "<nil>", f.Value)
}

func TestErr_WrapsError(t *testing.T) {
	log, logs := newObserved(zapcore.InfoLevel)
	log.Error("cache read failed", Err(errors.New("timeout")))

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "timeout", logs.All()[0].ContextMap()["error"])
}

func TestParseLevel_DefaultsToInfo(t *testing.T) {
	assert.Equal(t, zapcore.InfoLevel, parseLevel("verbose"))
	assert.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("ERROR"))
}

func TestNewLogger_Defaults(t *testing.T) {
	log, err := NewLogger(LogConfig{})
	require.NoError(t, err)
	require.NotNil(t, log)
}

func TestDefault_SetAndGet(t *testing.T) {
	orig := Default()
	defer SetDefault(orig)

	log := NewNopLogger()
	SetDefault(log)
	assert.Equal(t, log, Default())

	// nil is ignored
	SetDefault(nil)
	assert.Equal(t, log, Default())
}
