// Package version holds the build version, set with:
//
//	go build -ldflags "-X github.com/ramonehamilton/MTG-Collection/internal/version.Version=v1.2.3"
package version

// Version defaults to "dev" for local builds.
var Version = "dev"
