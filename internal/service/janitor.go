package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/CZERTAINLY/blastweb/internal/job"
)

// SessionSweeper drops idle sessions, implemented by web.Store
type SessionSweeper interface {
	Sweep(maxIdle time.Duration) int
}

type Janitor struct {
	sessions   SessionSweeper
	sessionTTL time.Duration
	tempDir    string
	maxAge     time.Duration
	running    func(dir string) bool
	now        func() time.Time
}

// NewJanitor returns a janitor removing sessions idle for sessionTTL and
// job directories in tempDir older than maxAge. An empty tempDir is the
// default directory for temporary files. Directories of jobs still running
// in this process are never removed.
func NewJanitor(sessions SessionSweeper, sessionTTL time.Duration, tempDir string, maxAge time.Duration) Janitor {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return Janitor{
		sessions:   sessions,
		sessionTTL: sessionTTL,
		tempDir:    tempDir,
		maxAge:     maxAge,
		running:    job.Running,
		now:        time.Now,
	}
}

// WithRunning replaces the check of job directories in use
func (j Janitor) WithRunning(running func(dir string) bool) Janitor {
	j.running = running
	return j
}

// Run does a single cleanup round
func (j Janitor) Run(ctx context.Context) {
	if j.sessions != nil && j.sessionTTL > 0 {
		if n := j.sessions.Sweep(j.sessionTTL); n > 0 {
			slog.InfoContext(ctx, "idle sessions removed", "count", n)
		}
	}
	removed, err := j.RemoveStale(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "removing stale job directories", "error", err)
	}
	if len(removed) > 0 {
		slog.InfoContext(ctx, "stale job directories removed", "dirs", removed)
	}
}

// RemoveStale removes job directories whose modification time is older than
// maxAge and returns their paths. A job running longer than maxAge keeps its
// directory.
func (j Janitor) RemoveStale(ctx context.Context) ([]string, error) {
	if j.maxAge <= 0 {
		return nil, nil
	}
	entries, err := os.ReadDir(j.tempDir)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimSuffix(job.TempPattern, "*")
	deadline := j.now().Add(-j.maxAge)

	var removed []string
	var errs []error
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !info.ModTime().Before(deadline) {
			continue
		}
		path := filepath.Join(j.tempDir, e.Name())
		if j.running(path) {
			slog.DebugContext(ctx, "job still running", "dir", path, "modified", info.ModTime())
			continue
		}
		if err := os.RemoveAll(path); err != nil {
			errs = append(errs, err)
			continue
		}
		slog.DebugContext(ctx, "removed", "dir", path, "modified", info.ModTime())
		removed = append(removed, path)
	}
	return removed, errors.Join(errs...)
}
