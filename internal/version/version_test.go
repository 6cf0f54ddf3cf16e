package version

import (
	"runtime/debug"
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	s := String()
	if !strings.HasPrefix(s, "assetbuilder ") {
		t.Errorf("unexpected version line %q", s)
	}
	if !strings.Contains(s, "(commit ") {
		t.Errorf("version line %q lacks commit", s)
	}
}

func TestFromBuildInfo(t *testing.T) {
	info := &debug.BuildInfo{
		Main: debug.Module{Version: "v1.4.0"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef0123"},
			{Key: "vcs.time", Value: "2024-05-01T12:00:00Z"},
		},
	}

	v, commit, built := fromBuildInfo(info, "unknown", "unknown", "unknown")
	if v != "v1.4.0" || commit != "0123456789ab" || built != "2024-05-01T12:00:00Z" {
		t.Errorf("got %q %q %q", v, commit, built)
	}

	// ldflags values win
	v, commit, _ = fromBuildInfo(info, "v2.0.0", "deadbeef", "unknown")
	if v != "v2.0.0" || commit != "deadbeef" {
		t.Errorf("ldflags values overwritten: %q %q", v, commit)
	}

	v, _, _ = fromBuildInfo(&debug.BuildInfo{Main: debug.Module{Version: "(devel)"}}, "unknown", "unknown", "unknown")
	if v != "unknown" {
		t.Errorf("devel build should keep unknown, got %q", v)
	}
}
