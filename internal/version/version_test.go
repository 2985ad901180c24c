package version

import (
	"runtime/debug"
	"testing"
)

func TestResolve(t *testing.T) {
	vcs := func(rev, modified, at string) *debug.BuildInfo {
		return &debug.BuildInfo{
			Main: debug.Module{Version: "(devel)"},
			Settings: []debug.BuildSetting{
				{Key: "vcs.revision", Value: rev},
				{Key: "vcs.modified", Value: modified},
				{Key: "vcs.time", Value: at},
			},
		}
	}

	tests := []struct {
		name              string
		version, commit   string
		info              *debug.BuildInfo
		wantVer, wantComm string
	}{
		{"ldflags win", "v1.2.3", "abc", vcs("0123456789", "false", "2026-10-01T10:00:00Z"), "v1.2.3", "abc"},
		{"vcs clean", "", "", vcs("0123456789", "false", "2026-10-01T10:00:00Z"), "dev-20261001", "0123456"},
		{"vcs dirty", "", "", vcs("0123456789", "true", ""), "dev", "0123456-dirty"},
		{"module version", "", "", &debug.BuildInfo{Main: debug.Module{Version: "v0.4.0"}}, "v0.4.0", "unknown"},
		{"no build info", "", "", nil, "dev", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, c := resolve(tt.version, tt.commit, tt.info)
			if v != tt.wantVer || c != tt.wantComm {
				t.Errorf("resolve() = (%q, %q), want (%q, %q)", v, c, tt.wantVer, tt.wantComm)
			}
		})
	}
}

func TestShort(t *testing.T) {
	old := Version
	defer func() { Version = old }()

	Version = "v0.3.0"
	if got := Short(); got != "0.3.0" {
		t.Errorf("Short() = %q, want 0.3.0", got)
	}
}
