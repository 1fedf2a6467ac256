/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package entitykit

import (
	"fmt"
	"runtime"
)

// Build metadata, overridden with -ldflags "-X github.com/suparena/entitykit.GitCommit=...".
var (
	Version   = "0.3.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
	// GoVersion falls back to the running toolchain when not set at build time.
	GoVersion = ""
)

// VersionInfo describes the running entitykit build.
type VersionInfo struct {
	Version   string `json:"version"`
	GitCommit string `json:"gitCommit"`
	BuildDate string `json:"buildDate"`
	GoVersion string `json:"goVersion"`
}

// GetVersionInfo returns the build metadata.
func GetVersionInfo() VersionInfo {
	goVersion := GoVersion
	if goVersion == "" {
		goVersion = runtime.Version()
	}
	return VersionInfo{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: goVersion,
	}
}

func (v VersionInfo) String() string {
	return fmt.Sprintf("entitykit version %s\nGit commit: %s\nBuild date: %s\nGo version: %s\n",
		v.Version, v.GitCommit, v.BuildDate, v.GoVersion)
}
