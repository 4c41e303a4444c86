package version

import "fmt"

// Version, GitCommit, and BuildDate are set at build time via ldflags:
//
//	go build -ldflags "-X github.com/neteng-tools/popctl/pkg/version.Version=v1.0.0 \
//	  -X github.com/neteng-tools/popctl/pkg/version.GitCommit=abc1234 \
//	  -X github.com/neteng-tools/popctl/pkg/version.BuildDate=2026-01-01T00:00:00Z"
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Info returns a formatted version string for display.
func Info() string {
	return Version + " (" + GitCommit + ") built " + BuildDate
}

// Banner returns the one-line version output of a tool.
func Banner(tool string) string {
	if Version == "dev" {
		return tool + " dev build"
	}
	return fmt.Sprintf("%s %s (%s)", tool, Version, GitCommit)
}
