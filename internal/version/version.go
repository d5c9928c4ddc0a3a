// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package version reports what build of pii-anonymizer is running.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
)

// Set at build time via -ldflags "-X pii-anonymizer/internal/version.Version=..."
var (
	Version   = "0.0.0-development"
	GitCommit = ""
	BuildDate = ""
)

const unknown = "unknown"

// BuildInfo describes the running binary. It is served on /health and printed
// by the version command.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	Modified  bool   `json:"modified,omitempty"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

var (
	once  sync.Once
	build BuildInfo
)

// Get returns the build information. Values injected with -ldflags win; a plain
// `go build` falls back to the VCS stamp the toolchain embeds.
func Get() BuildInfo {
	once.Do(func() {
		build = resolve(Version, GitCommit, BuildDate, debug.ReadBuildInfo)
	})
	return build
}

func resolve(ver, commit, date string, read func() (*debug.BuildInfo, bool)) BuildInfo {
	info := BuildInfo{
		Version:   ver,
		Commit:    commit,
		BuildDate: date,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}

	if bi, ok := read(); ok {
		if info.Version == "" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			info.Version = bi.Main.Version
		}
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				if info.Commit == "" {
					info.Commit = s.Value
				}
			case "vcs.time":
				if info.BuildDate == "" {
					info.BuildDate = s.Value
				}
			case "vcs.modified":
				info.Modified = s.Value == "true"
			}
		}
	}

	if len(info.Commit) > 12 {
		info.Commit = info.Commit[:12]
	}
	if info.Commit == "" {
		info.Commit = unknown
	}
	if info.BuildDate == "" {
		info.BuildDate = unknown
	}
	return info
}

// String is the one-line form used by --version
func (b BuildInfo) String() string {
	commit := b.Commit
	if b.Modified {
		commit += "-dirty"
	}
	return fmt.Sprintf("pii-anonymizer %s (commit: %s, built: %s, go: %s, platform: %s)",
		b.Version, commit, b.BuildDate, b.GoVersion, b.Platform)
}

// Info returns formatted version information
func Info() string {
	return Get().String()
}

// Short returns just the version number
func Short() string {
	return Get().Version
}
