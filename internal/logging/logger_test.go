package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observe(t *testing.T, level zapcore.Level) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(level)
	SetBase(zap.New(core))
	t.Cleanup(func() { SetBase(nil) })
	return logs
}

func TestGetIsNopBeforeInitialize(t *testing.T) {
	SetBase(nil)
	l := Get(CategoryRepair)
	require.NotNil(t, l)
	// Must not panic.
	l.Info("hello %s", "world")
	Repair("attempt %d", 1)
}

func TestCategoryLoggerIsNamed(t *testing.T) {
	logs := observe(t, zapcore.DebugLevel)

	Get(CategoryValidator).Warn("found %d errors", 3)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "validator", entries[0].LoggerName)
	assert.Equal(t, "found 3 errors", entries[0].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
}

func TestGetCachesPerCategory(t *testing.T) {
	observe(t, zapcore.DebugLevel)
	assert.Same(t, Get(CategoryAPI), Get(CategoryAPI))
	assert.NotSame(t, Get(CategoryAPI), Get(CategoryBoot))
}

func TestLevelFiltering(t *testing.T) {
	logs := observe(t, zapcore.InfoLevel)

	RepairDebug("hidden")
	Repair("shown")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "shown", entries[0].Message)
}

func TestWithAddsFields(t *testing.T) {
	logs := observe(t, zapcore.DebugLevel)

	Get(CategoryRepair).With("run_id", "abc").Info("round done")

	entries := logs.FilterField(zap.String("run_id", "abc")).All()
	require.Len(t, entries, 1)
	assert.Equal(t, CategoryRepair, Get(CategoryRepair).Category())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"", zapcore.InfoLevel, false},
		{"debug", zapcore.DebugLevel, false},
		{"WARN", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"loud", zapcore.InfoLevel, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInitializeRejectsBadLevel(t *testing.T) {
	err := Initialize(Config{Level: "verbose-ish"})
	assert.Error(t, err)
}

func TestInitializeDisablesCategories(t *testing.T) {
	require.NoError(t, Initialize(Config{Level: "debug", Categories: map[string]bool{"api": false}}))
	t.Cleanup(func() { SetBase(nil) })

	loggersMu.RLock()
	off := disabled["api"]
	loggersMu.RUnlock()
	assert.True(t, off)
}
