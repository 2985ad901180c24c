// Package version reports the build version of nusig.
package version

import (
	"fmt"
	"runtime/debug"
	"strings"
	"time"
)

// Version and Commit can be set at build time via ldflags:
//
//	go build -ldflags="-X github.com/muurk/nusig/internal/version.Version=v0.3.0 \
//	                   -X github.com/muurk/nusig/internal/version.Commit=abc1234"
//
// Otherwise they are filled from the module and VCS build info, falling
// back to "dev".
var (
	Version = ""
	Commit  = ""
)

func init() {
	info, _ := debug.ReadBuildInfo()
	Version, Commit = resolve(Version, Commit, info)
}

// resolve fills whichever of version and commit is empty from info
func resolve(version, commit string, info *debug.BuildInfo) (string, string) {
	if info != nil {
		if version == "" {
			// set for `go install module@vX.Y.Z`
			if v := info.Main.Version; v != "" && v != "(devel)" {
				version = v
			}
		}

		var revision, modified, vcsTime string
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				revision = s.Value
			case "vcs.modified":
				modified = s.Value
			case "vcs.time":
				vcsTime = s.Value
			}
		}

		if commit == "" && revision != "" {
			commit = revision
			if len(commit) > 7 {
				commit = commit[:7]
			}
			if modified == "true" {
				commit += "-dirty"
			}
		}
		if version == "" && vcsTime != "" {
			if t, err := time.Parse(time.RFC3339, vcsTime); err == nil {
				version = "dev-" + t.Format("20060102")
			}
		}
	}

	if version == "" {
		version = "dev"
	}
	if commit == "" {
		commit = "unknown"
	}
	return version, commit
}

// Short returns the version without a leading "v", as shown in titles
func Short() string {
	return strings.TrimPrefix(Version, "v")
}

// Full returns the full version string including commit
func Full() string {
	return fmt.Sprintf("%s (commit: %s)", Version, Commit)
}
