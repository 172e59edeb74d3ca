// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"syscall"
	"time"

	"github.com/olegiv/ocms-blog/internal/version"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

// Ping implements Pinger.
func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// checkTimeout bounds each dependency check.
const checkTimeout = 3 * time.Second

// HealthOptions configures a HealthHandler.
type HealthOptions struct {
	Database   Pinger
	Repository Pinger
	// Cache is checked only when set (the Redis backend).
	Cache Pinger
	// DataDir is checked for free space.
	DataDir string
	Version version.Info
	// Detailed exposes check results and system info with ?verbose=true.
	Detailed bool
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	opts      HealthOptions
	startTime time.Time
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(opts HealthOptions) *HealthHandler {
	return &HealthHandler{opts: opts, startTime: time.Now()}
}

// StartTime returns when the handler (and application) was started.
func (h *HealthHandler) StartTime() time.Time {
	return h.startTime
}

// HealthStatus represents the overall health status.
type HealthStatus struct {
	Status    string           `json:"status"`
	Timestamp time.Time        `json:"timestamp,omitzero"`
	Uptime    string           `json:"uptime,omitempty"`
	Version   string           `json:"version,omitempty"`
	Checks    map[string]Check `json:"checks,omitempty"`
	System    *SystemInfo      `json:"system,omitempty"`
}

// Check represents a single health check result.
type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// SystemInfo contains system-level information.
type SystemInfo struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutines"`
	NumCPU       int    `json:"num_cpus"`
	MemAlloc     string `json:"mem_alloc"`
	MemSys       string `json:"mem_sys"`
}

const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"
)

// Health handles GET /health. Any failing check answers 503.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	checks := map[string]Check{
		"database":   h.check(r.Context(), h.opts.Database),
		"repository": h.check(r.Context(), h.opts.Repository),
	}
	if h.opts.Cache != nil {
		checks["cache"] = h.check(r.Context(), h.opts.Cache)
	}
	if h.opts.DataDir != "" {
		checks["disk"] = h.checkDiskSpace()
	}

	overall := statusHealthy
	for _, c := range checks {
		if c.Status != statusHealthy {
			overall = statusDegraded
		}
	}

	code := http.StatusOK
	if overall != statusHealthy {
		code = http.StatusServiceUnavailable
	}

	if !h.opts.Detailed || r.URL.Query().Get("verbose") != "true" {
		writeJSON(w, code, HealthStatus{Status: overall})
		return
	}

	writeJSON(w, code, HealthStatus{
		Status:    overall,
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Version:   h.opts.Version.Short(),
		Checks:    checks,
		System:    systemInfo(),
	})
}

// Liveness handles GET /health/live - simple liveness check.
func (h *HealthHandler) Liveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// Readiness handles GET /health/ready. The service is ready when both the
// database and the content repository answer.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	for _, p := range []Pinger{h.opts.Database, h.opts.Repository} {
		if c := h.check(r.Context(), p); c.Status != statusHealthy {
			resp := map[string]string{"status": "not_ready"}
			if h.opts.Detailed {
				resp["message"] = c.Message
			}
			writeJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *HealthHandler) check(ctx context.Context, p Pinger) Check {
	if p == nil {
		return Check{Status: statusHealthy, Message: "not configured"}
	}

	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	start := time.Now()
	err := p.Ping(ctx)
	latency := time.Since(start)

	if err != nil {
		return Check{Status: statusUnhealthy, Message: err.Error(), Latency: latency.String()}
	}
	return Check{Status: statusHealthy, Message: "Connected", Latency: latency.String()}
}

// checkDiskSpace checks available disk space where the database lives.
func (h *HealthHandler) checkDiskSpace() Check {
	if _, err := os.Stat(h.opts.DataDir); os.IsNotExist(err) {
		return Check{Status: statusHealthy, Message: "Data directory does not exist yet"}
	}

	var stat syscall.Statfs_t
	if err := syscall.Statfs(h.opts.DataDir, &stat); err != nil {
		return Check{Status: statusUnhealthy, Message: "Failed to check disk space: " + err.Error()}
	}

	availableBytes := stat.Bavail * uint64(stat.Bsize)
	available := formatBytes(availableBytes)

	const minSpace = 100 * 1024 * 1024 // 100MB
	if availableBytes < minSpace {
		return Check{Status: statusDegraded, Message: "Low disk space: " + available + " available"}
	}
	return Check{Status: statusHealthy, Message: available + " available"}
}

func systemInfo() *SystemInfo {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return &SystemInfo{
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		NumCPU:       runtime.NumCPU(),
		MemAlloc:     formatBytes(m.Alloc),
		MemSys:       formatBytes(m.Sys),
	}
}

// formatBytes renders n with a binary unit suffix.
func formatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
