package version

import (
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFillFromBuildSettings(t *testing.T) {
	info := Info{CommitHash: "dev", BuildTime: "unknown"}
	fillFromBuildSettings(&info, []debug.BuildSetting{
		{Key: "vcs.revision", Value: "0123456789abcdef"},
		{Key: "vcs.time", Value: "2026-01-02T03:04:05Z"},
		{Key: "vcs.modified", Value: "true"},
	})

	assert.Equal(t, "0123456789abcdef", info.CommitHash)
	assert.Equal(t, "2026-01-02T03:04:05Z", info.BuildTime)
	assert.True(t, info.Modified)
	assert.Equal(t, "0123456", info.Short())
	assert.Contains(t, info.String(), "commit 0123456+dirty")
}

func TestFillFromBuildSettings_LdflagsWin(t *testing.T) {
	info := Info{CommitHash: "cafebabe", BuildTime: "yesterday"}
	fillFromBuildSettings(&info, []debug.BuildSetting{
		{Key: "vcs.revision", Value: "0123456789abcdef"},
		{Key: "vcs.time", Value: "2026-01-02T03:04:05Z"},
	})

	assert.Equal(t, "cafebabe", info.CommitHash)
	assert.Equal(t, "yesterday", info.BuildTime)
	assert.False(t, info.Modified)
}

func TestShort(t *testing.T) {
	assert.Equal(t, "dev", Info{CommitHash: "dev"}.Short())
}

func TestGet(t *testing.T) {
	info := Get()
	assert.NotEmpty(t, info.Version)
	assert.NotEmpty(t, info.GoVersion)
	assert.Contains(t, info.String(), "ldx ")
}
