// Package version reports the build of the eina binary.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set via ldflags at build time:
//
//	go build -ldflags "-X github.com/soyeahso/eina/internal/version.Version=1.0.0
//	  -X github.com/soyeahso/eina/internal/version.Commit=abc123
//	  -X github.com/soyeahso/eina/internal/version.Date=2026-01-01"
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// readBuildInfo is swapped in tests.
var readBuildInfo = debug.ReadBuildInfo

// Resolved returns version, commit and date, filling values that were not
// set by ldflags from the module build info (go install, go build with VCS
// stamping).
func Resolved() (version, commit, date string) {
	version, commit, date = Version, Commit, Date

	bi, ok := readBuildInfo()
	if !ok {
		return version, commit, date
	}
	if version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch {
		case s.Key == "vcs.revision" && commit == "unknown":
			commit = s.Value
		case s.Key == "vcs.time" && date == "unknown":
			date = s.Value
		}
	}
	return version, commit, date
}

// Info returns a one-line description of the build.
func Info() string {
	v, c, d := Resolved()
	return fmt.Sprintf("eina %s (commit: %s, built: %s, %s/%s)",
		v, short(c), d, runtime.GOOS, runtime.GOARCH)
}

func short(s string) string {
	if len(s) > 7 {
		return s[:7]
	}
	return s
}
