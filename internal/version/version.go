// Package version carries build metadata stamped in through ldflags:
//
//	go build -ldflags "-X git.home.luguber.info/inful/assetpipe/internal/version.Version=v0.3.0" ./cmd/assetpipe
package version

import "fmt"

var Version = "dev"

var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String renders the version line printed by --version.
func String() string {
	if GitCommit == "unknown" && BuildTime == "unknown" {
		return Version
	}
	return fmt.Sprintf("%s (commit %s, built %s)", Version, GitCommit, BuildTime)
}
