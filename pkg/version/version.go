// Package version reports the build identity of the resume binary.
package version

import (
	"runtime/debug"
)

// Version is the release of the resume binary which is executing. Release
// builds set it with -ldflags "-X github.com/vberset/resume/pkg/version.Version=...".
var Version = "dev"

// BinaryGitHash is the Git hash of the resume binary file which is executing.
var BinaryGitHash = "<unknown>"

func init() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	if Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}

	if BinaryGitHash != "<unknown>" {
		return
	}

	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" {
			BinaryGitHash = setting.Value
		}
	}
}

// String formats the version the way "resume version" prints it.
func String() string {
	return Version + " (" + BinaryGitHash + ")"
}
