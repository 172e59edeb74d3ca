// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package version provides build-time version information.
package version

import "fmt"

// Info contains build-time version information injected via ldflags.
type Info struct {
	Version   string `json:"version"`    // Semantic version from git tags (e.g., "v1.2.3")
	GitCommit string `json:"git_commit"` // Short git commit hash (e.g., "abc1234")
	BuildTime string `json:"build_time"` // Build timestamp in RFC3339 format
}

// String formats the info for the -v flag.
func (i Info) String() string {
	v := i.Version
	if v == "" {
		v = "dev"
	}
	if i.GitCommit == "" {
		return "ocms-blog " + v
	}
	return fmt.Sprintf("ocms-blog %s (commit %s, built %s)", v, i.GitCommit, i.BuildTime)
}

// Short returns the version alone, "dev" when not injected.
func (i Info) Short() string {
	if i.Version == "" {
		return "dev"
	}
	return i.Version
}
