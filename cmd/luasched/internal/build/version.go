// Package build reports the version stamped into the binary.
//
//	go build -ldflags "-X github.com/haivivi/luasched/cmd/luasched/internal/build.Version=v1.0.0 \
//	  -X github.com/haivivi/luasched/cmd/luasched/internal/build.Commit=$(git rev-parse --short HEAD)"
//
// When nothing is stamped, Version and Commit fall back to the module
// version and VCS revision recorded by the Go toolchain.
package build

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// Info is the version report printed by `luasched version`.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go"`
	Platform  string `json:"platform"`
}

// Get returns the version report, filling unstamped fields from the
// binary's embedded build info.
func Get() Info {
	info := Info{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	if info.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "unknown" && len(s.Value) >= 7 {
				info.Commit = s.Value[:7]
			}
		case "vcs.time":
			if info.Date == "unknown" {
				info.Date = s.Value
			}
		}
	}
	return info
}

func (i Info) String() string {
	return fmt.Sprintf("luasched %s (%s) built %s %s", i.Version, i.Commit, i.Date, i.Platform)
}
