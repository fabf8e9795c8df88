// Package version exposes build metadata injected at build time.
package version

import "runtime"

var (
	// Version is the semantic version, injected at build time via -ldflags
	Version = "dev"
	// GitCommit is the git commit hash, injected at build time
	GitCommit = "unknown"
	// GoVersion is the Go compiler version
	GoVersion = runtime.Version()
)

// BuildInfo contains metadata about the build
type BuildInfo struct {
	Version   string `json:"version"`
	GitCommit string `json:"gitCommit"`
	GoVersion string `json:"goVersion"`
}

// GetBuildInfo returns build metadata
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		GitCommit: GitCommit,
		GoVersion: GoVersion,
	}
}
