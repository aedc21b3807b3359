// Package buildinfo identifies the running build. The variables are set at
// build time via -ldflags; otherwise Commit and Date fall back to the VCS
// stamp the go command embeds.
package buildinfo

import "runtime/debug"

var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

func init() {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if Commit == "unknown" && len(s.Value) >= 12 {
				Commit = s.Value[:12]
			}
		case "vcs.time":
			if Date == "unknown" {
				Date = s.Value
			}
		}
	}
}

// Short returns a compact build identifier for the window title and logs.
func Short() string {
	if Version != "" && Version != "dev" {
		return Version
	}
	if Commit != "" && Commit != "unknown" {
		return Commit
	}
	return "dev"
}

// Long returns version, commit and build date on one line.
func Long() string {
	return "ember " + Version + " (" + Commit + ", " + Date + ")"
}
