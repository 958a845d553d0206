// Package misc provides build time program identification.
package misc

import "runtime/debug"

var (
	appName = "wrg"
	version = "dev"
	gitHash = "unknown"
)

func init() {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	if bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		if s.Key == "vcs.revision" && len(s.Value) >= 8 {
			gitHash = s.Value[:8]
		}
	}
}

// GetAppName returns short program name used for logs, temporary files and reports.
func GetAppName() string {
	return appName
}

// GetVersion returns program version embedded during build.
func GetVersion() string {
	return version
}

// GetGitHash returns abbreviated VCS revision embedded during build.
func GetGitHash() string {
	return gitHash
}
