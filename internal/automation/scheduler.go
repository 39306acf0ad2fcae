// Package automation runs the recurring task battery that keeps tickets
// and contracts moving without an operator: assignment, rescheduling,
// reminders, completion, reporting and backups. One Scheduler is
// constructed per process and injected where needed; running two against
// the same store is unsafe (double assignment, double reminders).
package automation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/fieldserve/backend/internal/amc"
	"github.com/fieldserve/backend/internal/audit"
	"github.com/fieldserve/backend/internal/cache"
	"github.com/fieldserve/backend/internal/models"
	"github.com/fieldserve/backend/internal/notify"
	"github.com/fieldserve/backend/internal/reminder"
)

const (
	DefaultInterval = 5 * time.Minute
	BackupInterval  = time.Hour

	maxLogEntries = 100
)

type Scheduler struct {
	Data    *cache.Store
	Audit   *audit.Logger
	Notify  notify.Transport
	Monitor *amc.Monitor
	Engine  reminder.Engine
	Logger  zerolog.Logger
	Now     func() time.Time
	// BackupEvery overrides the backup loop cadence; zero means hourly.
	BackupEvery time.Duration

	mu             sync.Mutex
	running        bool
	stop           chan struct{}
	logs           []models.AutomationLogEntry
	tasksCompleted int
	lastBackupMS   int64
}

func New(data *cache.Store, auditLog *audit.Logger, transport notify.Transport, monitor *amc.Monitor, engine reminder.Engine, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		Data:    data,
		Audit:   auditLog,
		Notify:  transport,
		Monitor: monitor,
		Engine:  engine,
		Logger:  logger,
		Now:     time.Now,
	}
}

func (s *Scheduler) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Scheduler) today() string {
	return s.now().Format(models.DateLayout)
}

// Start launches the tick loop and the independent backup loop, and runs
// both immediately. Starting an already-running scheduler is a logged
// no-op, not an error.
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.Logger.Warn().Msg("automation already running")
		return
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	s.running = true
	s.stop = make(chan struct{})
	stop := s.stop
	s.mu.Unlock()

	backupEvery := s.BackupEvery
	if backupEvery <= 0 {
		backupEvery = BackupInterval
	}

	s.logf("automation started, interval %s", interval)
	go s.tickLoop(ctx, interval, stop)
	go s.backupLoop(ctx, backupEvery, stop)
}

// Stop halts future ticks. A tick already in flight completes: there is
// no cancellation of individual store calls.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stop)
	s.mu.Unlock()
	s.logf("automation stopped")
}

func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) tickLoop(ctx context.Context, interval time.Duration, stop <-chan struct{}) {
	s.RunTasks(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.RunTasks(ctx)
		}
	}
}

func (s *Scheduler) backupLoop(ctx context.Context, interval time.Duration, stop <-chan struct{}) {
	if _, _, err := s.Backup(ctx); err != nil {
		s.logf("backup error: %v", err)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if _, _, err := s.Backup(ctx); err != nil {
				s.logf("backup error: %v", err)
			}
		}
	}
}

type TaskResult struct {
	Name    string         `json:"name"`
	Success bool           `json:"success"`
	Details map[string]any `json:"details,omitempty"`
	Error   string         `json:"error,omitempty"`
}

type TickSummary struct {
	StartedAt time.Time    `json:"startedAt"`
	Results   []TaskResult `json:"results"`
	Succeeded int          `json:"succeeded"`
}

// RunTasks executes one automation tick: the six tasks run concurrently,
// each with its own error capture, so one failing task never blocks the
// other five. Tasks may observe each other's writes mid-tick; nothing
// here depends on cross-task ordering within a tick.
func (s *Scheduler) RunTasks(ctx context.Context) TickSummary {
	summary := TickSummary{StartedAt: s.now()}

	tasks := []func(context.Context) TaskResult{
		s.autoAssign,
		s.autoReschedule,
		s.autoRemind,
		s.autoComplete,
		s.generateReport,
		s.backupTask,
	}

	results := make([]TaskResult, len(tasks))
	var wg sync.WaitGroup
	for i, task := range tasks {
		wg.Add(1)
		go func(i int, task func(context.Context) TaskResult) {
			defer wg.Done()
			results[i] = task(ctx)
		}(i, task)
	}
	wg.Wait()

	for _, r := range results {
		if r.Success {
			summary.Succeeded++
		} else {
			s.logf("task %s failed: %s", r.Name, r.Error)
		}
	}
	summary.Results = results

	s.mu.Lock()
	s.tasksCompleted += summary.Succeeded
	s.mu.Unlock()
	s.logf("completed %d/%d automation tasks", summary.Succeeded, len(tasks))
	return summary
}

func (s *Scheduler) logf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	s.Logger.Info().Msg(msg)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, models.AutomationLogEntry{Timestamp: s.now(), Message: msg})
	if len(s.logs) > maxLogEntries {
		s.logs = s.logs[len(s.logs)-maxLogEntries:]
	}
}

// Logs returns up to limit of the most recent log entries.
func (s *Scheduler) Logs(limit int) []models.AutomationLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 || limit > len(s.logs) {
		limit = len(s.logs)
	}
	out := make([]models.AutomationLogEntry, limit)
	copy(out, s.logs[len(s.logs)-limit:])
	return out
}

type Stats struct {
	Running        bool      `json:"running"`
	TasksCompleted int       `json:"tasksCompleted"`
	LogsCount      int       `json:"logsCount"`
	LastLog        time.Time `json:"lastLog,omitempty"`
}

func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Stats{
		Running:        s.running,
		TasksCompleted: s.tasksCompleted,
		LogsCount:      len(s.logs),
	}
	if len(s.logs) > 0 {
		st.LastLog = s.logs[len(s.logs)-1].Timestamp
	}
	return st
}
