// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/time/rate"
)

// Error represents a scheduler error.
type Error string

func (e Error) Error() string {
	return string(e)
}

const (
	// ErrJobNotFound is returned for unknown job names.
	ErrJobNotFound Error = "job not found"

	// ErrDuplicateJob is returned when a name is registered twice.
	ErrDuplicateJob Error = "job already registered"

	// ErrInvalidSchedule is returned for unparsable cron specs.
	ErrInvalidSchedule Error = "invalid schedule"

	// ErrTriggerLimited is returned when a job is triggered manually too often.
	ErrTriggerLimited Error = "manual trigger rate limited"
)

// triggerInterval is the minimum spacing between manual runs of one job.
const triggerInterval = 10 * time.Second

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ValidateSchedule reports whether spec is a cron expression the scheduler accepts.
func ValidateSchedule(spec string) error {
	if _, err := parser.Parse(spec); err != nil {
		return fmt.Errorf("%w %q: %w", ErrInvalidSchedule, spec, err)
	}
	return nil
}

// OverrideStore persists schedule overrides by job name. Get returns "" when
// no override exists.
type OverrideStore interface {
	Get(ctx context.Context, name string) (string, error)
	Set(ctx context.Context, name, schedule string) error
	Delete(ctx context.Context, name string) error
}

type registeredJob struct {
	job      Job
	schedule string // effective schedule
	entryID  cron.EntryID
	cronFunc func()
	limiter  *rate.Limiter
}

// JobInfo is the public view of a registered job.
type JobInfo struct {
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	DefaultSchedule string    `json:"default_schedule"`
	Schedule        string    `json:"schedule"`
	IsOverridden    bool      `json:"is_overridden"`
	LastRun         time.Time `json:"last_run,omitzero"`
	NextRun         time.Time `json:"next_run,omitzero"`
}

// Registry tracks the jobs added to one cron instance.
type Registry struct {
	cron      *cron.Cron
	overrides OverrideStore
	logger    *slog.Logger

	mu   sync.RWMutex
	jobs map[string]*registeredJob
}

// NewRegistry creates a registry for c. overrides may be nil.
func NewRegistry(c *cron.Cron, overrides OverrideStore, logger *slog.Logger) *Registry {
	return &Registry{
		cron:      c,
		overrides: overrides,
		logger:    logger,
		jobs:      make(map[string]*registeredJob),
	}
}

// Register adds job to cron using its stored override when there is one.
// cronFunc is what cron invokes on each tick.
func (r *Registry) Register(job Job, cronFunc func()) error {
	if err := ValidateSchedule(job.Schedule); err != nil {
		return fmt.Errorf("registering %s: %w", job.Name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jobs[job.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, job.Name)
	}

	schedule := r.effectiveSchedule(job)
	entryID, err := r.cron.AddFunc(schedule, cronFunc)
	if err != nil {
		return fmt.Errorf("scheduling %s: %w", job.Name, err)
	}

	r.jobs[job.Name] = &registeredJob{
		job:      job,
		schedule: schedule,
		entryID:  entryID,
		cronFunc: cronFunc,
		limiter:  rate.NewLimiter(rate.Every(triggerInterval), 1),
	}
	r.logger.Debug("registered scheduled job", "job", job.Name, "schedule", schedule)
	return nil
}

// effectiveSchedule returns the stored override if it is valid, else the default.
func (r *Registry) effectiveSchedule(job Job) string {
	if r.overrides == nil {
		return job.Schedule
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	override, err := r.overrides.Get(ctx, job.Name)
	if err != nil {
		r.logger.Warn("failed to load schedule override", "job", job.Name, "error", err)
		return job.Schedule
	}
	if override == "" {
		return job.Schedule
	}
	if err := ValidateSchedule(override); err != nil {
		r.logger.Warn("ignoring stored schedule override", "job", job.Name, "error", err)
		return job.Schedule
	}
	return override
}

// List returns all registered jobs sorted by name.
func (r *Registry) List() []JobInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]JobInfo, 0, len(r.jobs))
	for _, rj := range r.jobs {
		entry := r.cron.Entry(rj.entryID)
		result = append(result, JobInfo{
			Name:            rj.job.Name,
			Description:     rj.job.Description,
			DefaultSchedule: rj.job.Schedule,
			Schedule:        rj.schedule,
			IsOverridden:    rj.schedule != rj.job.Schedule,
			LastRun:         entry.Prev,
			NextRun:         entry.Next,
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// TriggerNow runs the job synchronously on ctx.
func (r *Registry) TriggerNow(ctx context.Context, name string) error {
	r.mu.RLock()
	rj, ok := r.jobs[name]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	if !rj.limiter.Allow() {
		return fmt.Errorf("%w: %s", ErrTriggerLimited, name)
	}

	r.logger.Info("manually triggering job", "job", name)
	return rj.job.Run(ctx)
}

// UpdateSchedule reschedules a job and persists the override.
func (r *Registry) UpdateSchedule(ctx context.Context, name, schedule string) error {
	if err := ValidateSchedule(schedule); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rj, ok := r.jobs[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	if err := r.reschedule(rj, schedule); err != nil {
		return err
	}

	if r.overrides != nil {
		if err := r.overrides.Set(ctx, name, schedule); err != nil {
			r.logger.Error("failed to persist schedule override", "job", name, "error", err)
		}
	}
	r.logger.Info("updated job schedule", "job", name, "schedule", schedule)
	return nil
}

// ResetSchedule restores the default schedule and removes the override.
func (r *Registry) ResetSchedule(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rj, ok := r.jobs[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	if rj.schedule != rj.job.Schedule {
		if err := r.reschedule(rj, rj.job.Schedule); err != nil {
			return err
		}
	}

	if r.overrides != nil {
		if err := r.overrides.Delete(ctx, name); err != nil {
			r.logger.Error("failed to remove schedule override", "job", name, "error", err)
		}
	}
	r.logger.Info("reset job schedule to default", "job", name, "schedule", rj.job.Schedule)
	return nil
}

// reschedule swaps the cron entry of rj, restoring the old one on failure.
func (r *Registry) reschedule(rj *registeredJob, schedule string) error {
	r.cron.Remove(rj.entryID)
	entryID, err := r.cron.AddFunc(schedule, rj.cronFunc)
	if err != nil {
		fallbackID, fallbackErr := r.cron.AddFunc(rj.schedule, rj.cronFunc)
		if fallbackErr != nil {
			return fmt.Errorf("restoring schedule after update failure: %w (original: %w)", fallbackErr, err)
		}
		rj.entryID = fallbackID
		return fmt.Errorf("applying new schedule: %w", err)
	}
	rj.entryID = entryID
	rj.schedule = schedule
	return nil
}
