package version

import (
	"runtime"
	"runtime/debug"
)

// Set through -ldflags "-X github.com/pscheid92/rubyemotes/internal/platform/version.Version=..."
var (
	Version   = "dev"
	Commit    = ""
	BuildTime = ""
)

type Info struct {
	Service   string `json:"service"`
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

// Get returns build information. Commit and build time fall back to the VCS
// stamps embedded by the Go toolchain when not set through ldflags.
func Get() Info {
	info := Info{
		Service:   "rubyemotes",
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
	}

	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				if info.Commit == "" {
					info.Commit = s.Value
				}
			case "vcs.time":
				if info.BuildTime == "" {
					info.BuildTime = s.Value
				}
			}
		}
	}

	if info.Commit == "" {
		info.Commit = "unknown"
	}
	if info.BuildTime == "" {
		info.BuildTime = "unknown"
	}
	return info
}
