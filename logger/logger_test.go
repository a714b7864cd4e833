package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestInitialize(t *testing.T) {
	tests := []struct {
		name       string
		jsonOutput bool
	}{
		{name: "JSON output mode", jsonOutput: true},
		{name: "Console output mode", jsonOutput: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Logger = nil
			JSONOutput = false
			t.Cleanup(func() { Logger = zap.NewNop().Sugar() })

			require.NoError(t, Initialize(tt.jsonOutput))
			require.NotNil(t, Logger)
			assert.Equal(t, tt.jsonOutput, JSONOutput)
		})
	}
}

func TestInitializeWithVerbosity_Level(t *testing.T) {
	t.Setenv("LDX_LOG_LEVEL", "")
	t.Cleanup(func() { Logger = zap.NewNop().Sugar() })

	require.NoError(t, InitializeWithVerbosity(false, VerbosityUser))
	assert.False(t, Logger.Desugar().Core().Enabled(zapcore.InfoLevel))
	assert.True(t, Logger.Desugar().Core().Enabled(zapcore.WarnLevel))

	require.NoError(t, InitializeWithVerbosity(false, VerbosityDebug))
	assert.True(t, Logger.Desugar().Core().Enabled(zapcore.DebugLevel))
}

func TestInitializeWithVerbosity_EnvOverride(t *testing.T) {
	t.Setenv("LDX_LOG_LEVEL", "ERROR")
	t.Cleanup(func() { Logger = zap.NewNop().Sugar() })

	require.NoError(t, InitializeWithVerbosity(true, 4))
	assert.False(t, Logger.Desugar().Core().Enabled(zapcore.WarnLevel))
	assert.True(t, Logger.Desugar().Core().Enabled(zapcore.ErrorLevel))
}

func TestLevelFromEnv_Invalid(t *testing.T) {
	t.Setenv("LDX_LOG_LEVEL", "loud")
	_, ok := levelFromEnv()
	assert.False(t, ok)
}

func TestVerbosityToLevel(t *testing.T) {
	assert.Equal(t, zapcore.WarnLevel, VerbosityToLevel(-1))
	assert.Equal(t, zapcore.WarnLevel, VerbosityToLevel(VerbosityUser))
	assert.Equal(t, zapcore.InfoLevel, VerbosityToLevel(VerbosityInfo))
	assert.Equal(t, zapcore.DebugLevel, VerbosityToLevel(VerbosityDebug))
	assert.Equal(t, zapcore.DebugLevel, VerbosityToLevel(9))
	assert.Equal(t, "Debug (-vv+)", LevelName(7))
	assert.Equal(t, "Unknown", LevelName(-1))
}

func TestShouldOutput(t *testing.T) {
	assert.False(t, ShouldOutput(VerbosityUser, OutputTiming))
	assert.True(t, ShouldOutput(VerbosityInfo, OutputTiming))
	assert.False(t, ShouldOutput(VerbosityInfo, OutputConfig))
	assert.True(t, ShouldOutput(VerbosityDebug, OutputConfig))
	assert.True(t, ShouldOutput(5, OutputConfig))
	assert.False(t, ShouldOutput(9, OutputCategory(999)))
	assert.Equal(t, "timing", CategoryName(OutputTiming))
	assert.Equal(t, "unknown", CategoryName(OutputCategory(999)))
}

func TestVerbosityDescription(t *testing.T) {
	assert.Equal(t, "results and errors only", VerbosityDescription(VerbosityUser))
	assert.Equal(t, VerbosityDescription(VerbosityDebug), VerbosityDescription(12))
	assert.NotContains(t, VerbosityDescription(12), "trace")
	assert.NotEqual(t, VerbosityDescription(VerbosityInfo), VerbosityDescription(VerbosityDebug))
}

func TestCleanup_NilLogger(t *testing.T) {
	Logger = nil
	t.Cleanup(func() { Logger = zap.NewNop().Sugar() })
	assert.NotPanics(t, Cleanup)
}
