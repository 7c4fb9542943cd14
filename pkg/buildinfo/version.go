// Package buildinfo reports which revdeps build is running.
//
// Release builds stamp the variables with ldflags:
//
//	go build -ldflags "-X github.com/matzehuels/revdeps/pkg/buildinfo.Version=v1.0.0 \
//	    -X github.com/matzehuels/revdeps/pkg/buildinfo.Commit=$(git rev-parse HEAD)" ./cmd/revdeps
//
// Binaries installed with "go install" fall back to the module version and VCS
// revision recorded by the toolchain.
package buildinfo

import (
	"fmt"
	"runtime/debug"
	"sync"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var resolveOnce sync.Once

func resolve() {
	resolveOnce.Do(func() {
		info, ok := debug.ReadBuildInfo()
		if !ok {
			return
		}
		if Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
			Version = info.Main.Version
		}
		for _, s := range info.Settings {
			switch {
			case s.Key == "vcs.revision" && Commit == "none":
				Commit = s.Value
			case s.Key == "vcs.time" && Date == "unknown":
				Date = s.Value
			}
		}
	})
}

// Template is the cobra version template.
func Template() string {
	resolve()
	return fmt.Sprintf("{{.Name}} %s (commit %s, built %s)\n", Version, Commit, Date)
}

// UserAgent identifies revdeps to registries, e.g. "revdeps/v1.2.3".
func UserAgent() string {
	resolve()
	return "revdeps/" + Version
}

// Current returns the resolved version string.
func Current() string {
	resolve()
	return Version
}
