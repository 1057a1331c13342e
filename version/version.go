// Package version reports diagen's build metadata. Release builds set the
// variables with -ldflags; otherwise they are recovered from the module
// build info recorded by go install.
package version

import (
	"runtime"
	"runtime/debug"

	"github.com/Masterminds/semver/v3"
)

// Set with -ldflags "-X github.com/kenjpais/diagram-generator/version.Version=..."
var (
	Version    = "dev"
	CommitHash = ""
	BuildTime  = ""
)

const unknown = "unknown"

// Info describes the running binary
type Info struct {
	Version    string `json:"version"`
	CommitHash string `json:"commit_hash"`
	BuildTime  string `json:"build_time"`
	Modified   bool   `json:"modified,omitempty"`
	GoVersion  string `json:"go_version"`
	Platform   string `json:"platform"`
}

// Get merges the ldflags values with the embedded build info
func Get() Info {
	info := Info{
		Version:    Version,
		CommitHash: CommitHash,
		BuildTime:  BuildTime,
		GoVersion:  runtime.Version(),
		Platform:   runtime.GOOS + "/" + runtime.GOARCH,
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		info.fill(bi)
	}
	if info.CommitHash == "" {
		info.CommitHash = unknown
	}
	if info.BuildTime == "" {
		info.BuildTime = unknown
	}
	return info
}

// fill takes whatever ldflags left unset from bi
func (i *Info) fill(bi *debug.BuildInfo) {
	if i.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		i.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if i.CommitHash == "" {
				i.CommitHash = s.Value
			}
		case "vcs.time":
			if i.BuildTime == "" {
				i.BuildTime = s.Value
			}
		case "vcs.modified":
			i.Modified = s.Value == "true"
		}
	}
}

// Release reports whether Version is a semantic version rather than a dev build
func (i Info) Release() bool {
	_, err := semver.NewVersion(i.Version)
	return err == nil
}

func (i Info) String() string {
	v := i.Version
	if !i.Release() {
		v = "dev"
	}
	commit := i.CommitHash
	if i.Modified {
		commit += "-dirty"
	}
	return "diagen " + v + " (commit " + commit + ", built " + i.BuildTime + ")"
}

// Short is the abbreviated commit hash
func (i Info) Short() string {
	if len(i.CommitHash) >= 7 && i.CommitHash != unknown {
		return i.CommitHash[:7]
	}
	return i.CommitHash
}
