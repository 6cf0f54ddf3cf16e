// Package version reports the binary's version. Values are injected with
//
//	go build -ldflags "-X git.home.luguber.info/inful/assetbuilder/internal/version.Version=v1.0.0"
//
// and fall back to the module build info when left unset.
package version

import (
	"fmt"
	"runtime/debug"
)

var (
	Version   = "unknown"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// String renders the line printed by --version.
func String() string {
	v, commit, built := Version, GitCommit, BuildTime
	if info, ok := debug.ReadBuildInfo(); ok {
		v, commit, built = fromBuildInfo(info, v, commit, built)
	}
	return fmt.Sprintf("assetbuilder %s (commit %s, built %s)", v, commit, built)
}

// fromBuildInfo fills values still set to "unknown" from module and VCS
// settings recorded by the go toolchain.
func fromBuildInfo(info *debug.BuildInfo, v, commit, built string) (string, string, string) {
	if v == "unknown" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		v = info.Main.Version
	}
	for _, s := range info.Settings {
		switch {
		case s.Key == "vcs.revision" && commit == "unknown":
			commit = s.Value
			if len(commit) > 12 {
				commit = commit[:12]
			}
		case s.Key == "vcs.time" && built == "unknown":
			built = s.Value
		}
	}
	return v, commit, built
}
