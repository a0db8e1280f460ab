package version

import (
	"runtime"
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfo_String(t *testing.T) {
	info := Info{CommitHash: "0123456789ab", BuildTime: "2026-01-02", Version: "dev"}
	assert.Equal(t, "jflat dev (commit 0123456789ab, built 2026-01-02)", info.String())
	assert.Equal(t, "0123456", info.Short())

	info.Version = "v1.2.0"
	info.Modified = true
	assert.Equal(t, "jflat v1.2.0 (commit 0123456789ab-dirty, built 2026-01-02)", info.String())

	assert.Equal(t, "abc", Info{CommitHash: "abc"}.Short())
}

func TestInfo_FillFrom(t *testing.T) {
	bi := &debug.BuildInfo{
		Main: debug.Module{Version: "v0.3.1"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "deadbeefcafe"},
			{Key: "vcs.time", Value: "2026-03-04T05:06:07Z"},
			{Key: "vcs.modified", Value: "false"},
		},
	}

	info := Info{CommitHash: "dev", BuildTime: "unknown", Version: "dev"}
	info.fillFrom(bi)
	assert.Equal(t, "v0.3.1", info.Version)
	assert.Equal(t, "deadbeefcafe", info.CommitHash)
	assert.Equal(t, "2026-03-04T05:06:07Z", info.BuildTime)
	assert.False(t, info.Modified)

	// ldflags values win
	info = Info{CommitHash: "abc1234", BuildTime: "then", Version: "v9"}
	info.fillFrom(bi)
	assert.Equal(t, "abc1234", info.CommitHash)
	assert.Equal(t, "then", info.BuildTime)
	assert.Equal(t, "v9", info.Version)

	info = Info{Version: "dev"}
	info.fillFrom(&debug.BuildInfo{Main: debug.Module{Version: "(devel)"}})
	assert.Equal(t, "dev", info.Version)
}

func TestGet(t *testing.T) {
	info := Get()
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, info.Platform)
}
