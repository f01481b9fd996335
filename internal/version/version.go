// Package version holds build metadata for the pubharvest binary, set with
//
//	go build -ldflags "-X github.com/jmylchreest/pubharvest/internal/version.Version=1.0.0 ..."
package version

import (
	"fmt"
	"runtime"
	"strings"
)

var (
	Version   = "dev"
	Commit    = "unknown"
	Dirty     = "false" // "true" when built from a modified tree
	BuildDate = "unknown"
)

// Info is the build metadata of the running binary.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Dirty     bool   `json:"dirty"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

func Get() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		Dirty:     Dirty == "true",
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// String returns the version, suffixed with -dirty for modified trees.
func String() string {
	if Dirty == "true" {
		return Version + "-dirty"
	}
	return Version
}

// Full returns the multi-line report printed by `pubharvest version`.
func Full() string {
	info := Get()
	var sb strings.Builder
	fmt.Fprintf(&sb, "pubharvest %s\n", String())
	fmt.Fprintf(&sb, "  commit:   %s\n", info.Commit)
	fmt.Fprintf(&sb, "  built:    %s\n", info.BuildDate)
	fmt.Fprintf(&sb, "  go:       %s\n", info.GoVersion)
	fmt.Fprintf(&sb, "  platform: %s", info.Platform)
	return sb.String()
}
