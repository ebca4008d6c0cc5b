// SPDX-License-Identifier: MIT

// Package build exposes metadata injected at link time, for example:
//
//	go build -ldflags "-X forestric/internal/build.buildVersion=0.3.0 \
//	  -X forestric/internal/build.buildCommit=$(git rev-parse --short HEAD) \
//	  -X forestric/internal/build.buildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
//
// Flags that are not injected fall back to development values so that
// `go run` works without a release pipeline.
package build

import (
	"fmt"
	"time"
)

const description = "Crop a track, preview it pitched up, export it as MP3"

type ldFlags struct {
	Name        string
	Description string
	Time        string
	Commit      string
	Version     string
}

// Package-level variables for build information, populated by -ldflags.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildFlags   = &ldFlags{
		Name:        "forestric",
		Description: description,
		Time:        "unknown",
		Commit:      "none",
		Version:     "dev",
	}
)

// Initialize copies the injected values over the development defaults. A
// build time that is present but not RFC 3339 is rejected since it means the
// release pipeline passed the wrong value.
func Initialize() error {
	if buildTime != "" {
		if _, err := time.Parse(time.RFC3339, buildTime); err != nil {
			return fmt.Errorf("BuildTime %q is not RFC3339: %w", buildTime, err)
		}
		buildFlags.Time = buildTime
	}
	if buildName != "" {
		buildFlags.Name = buildName
	}
	if buildCommit != "" {
		buildFlags.Commit = buildCommit
	}
	if buildVersion != "" {
		buildFlags.Version = buildVersion
	}
	return nil
}

// GetBuildFlags returns the current build information.
func GetBuildFlags() *ldFlags {
	return buildFlags
}

// String formats the flags as a one-line version banner.
func (f *ldFlags) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", f.Name, f.Version, f.Commit, f.Time)
}
