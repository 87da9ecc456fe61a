// Package build holds the version of the fuzztrap binary.
package build

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Version contains the current semantic version of fuzztrap.
const Version = "0.1.0"

// FullVersion returns the maximally full version and build information
// for the currently running executable.
func FullVersion() string {
	goVersionArch := fmt.Sprintf("%s, %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	commit, dirty := getBuildInfo()
	if commit == "" {
		return fmt.Sprintf("%s (%s)", Version, goVersionArch)
	}
	if dirty {
		commit += "-dirty"
	}
	return fmt.Sprintf("%s (commit/%s, %s)", Version, commit, goVersionArch)
}

func getBuildInfo() (commit string, dirty bool) {
	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return "", false
	}
	for _, s := range buildInfo.Settings {
		switch s.Key {
		case "vcs.revision":
			commit = s.Value
			if len(commit) > 10 {
				commit = commit[:10]
			}
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	return commit, dirty
}
