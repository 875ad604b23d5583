package retention

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"pfm/internal/domain/audit"
	"pfm/internal/lifecycle"
	"pfm/internal/platform/metrics"
)

// SchedulerConfig controls the scheduler's cadences. ExpireFunc, when
// set, is invoked on its own interval to process expired consents; it
// runs independently of the purge check.
type SchedulerConfig struct {
	CheckInterval  time.Duration
	ExpiryInterval time.Duration
	ExpireFunc     func(ctx context.Context) error
}

// SchedulerState is a snapshot of the scheduler's in-memory state.
// LastCheck and MissedChecks are informational; the due-check itself
// always reads durable purge history.
type SchedulerState struct {
	Running      bool      `json:"isRunning"`
	LastCheck    time.Time `json:"lastCheckTimestamp"`
	MissedChecks int       `json:"missedCheckCount"`
}

// Scheduler drives the purge engine on a timer and on app-active
// transitions. Start and Stop are idempotent; a due window is executed
// at most once because the check-then-execute sequence is serialized
// and the decision is read from durable purge history, never from
// in-memory state alone.
type Scheduler struct {
	engine  *Engine
	store   Store
	hub     *lifecycle.Hub
	audit   *audit.Service
	metrics *metrics.Collector
	config  SchedulerConfig
	logger  *slog.Logger

	mu      sync.Mutex
	running bool
	cron    *cron.Cron
	sub     *lifecycle.Subscription
	state   SchedulerState

	runMu sync.Mutex
	now   func() time.Time
}

func NewScheduler(engine *Engine, store Store, hub *lifecycle.Hub, auditSvc *audit.Service, collector *metrics.Collector, config SchedulerConfig) *Scheduler {
	if config.CheckInterval <= 0 {
		config.CheckInterval = time.Hour
	}
	if config.ExpiryInterval <= 0 {
		config.ExpiryInterval = 6 * time.Hour
	}
	return &Scheduler{
		engine:  engine,
		store:   store,
		hub:     hub,
		audit:   auditSvc,
		metrics: collector,
		config:  config,
		logger:  slog.Default().With("component", "retention.scheduler"),
		now:     time.Now,
	}
}

// Start arms the repeating checks and subscribes to app-active events.
// Calling Start on a running scheduler is a no-op.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc("@every "+s.config.CheckInterval.String(), s.scheduledCheck); err != nil {
		return err
	}
	if s.config.ExpireFunc != nil {
		if _, err := c.AddFunc("@every "+s.config.ExpiryInterval.String(), s.scheduledExpiry); err != nil {
			return err
		}
	}
	c.Start()
	s.cron = c

	if s.hub != nil {
		s.sub = s.hub.Subscribe(func(event lifecycle.Event) {
			if event == lifecycle.AppActive {
				s.scheduledCheck()
			}
		})
	}

	s.running = true
	s.state.Running = true
	if s.metrics != nil {
		s.metrics.SchedulerRunning(true)
	}
	s.logger.Info("retention scheduler started",
		"checkInterval", s.config.CheckInterval,
		"expiryInterval", s.config.ExpiryInterval,
	)
	return nil
}

// Stop cancels the timers and the app-active subscription, waiting for
// an in-flight run to finish. The wait happens outside s.mu: an
// in-flight check takes s.mu to update its state snapshot, so holding
// the lock across the wait would deadlock against a timer tick.
// Calling Stop on a stopped scheduler is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	c := s.cron
	sub := s.sub
	s.cron = nil
	s.sub = nil
	s.running = false
	s.state.Running = false
	s.mu.Unlock()

	if sub != nil {
		sub.Cancel()
	}
	<-c.Stop().Done()

	if s.metrics != nil {
		s.metrics.SchedulerRunning(false)
	}
	s.logger.Info("retention scheduler stopped")
}

// State returns a snapshot of the scheduler's in-memory state.
func (s *Scheduler) State() SchedulerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// CheckAndExecutePurge runs a purge only if one is due according to
// the durable purge history. It returns nil with no error when the
// current window is already closed, which makes it safe to call from
// the timer, an app-active event and a restarted process at the same
// time.
func (s *Scheduler) CheckAndExecutePurge(ctx context.Context) (*PurgeReport, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	now := s.now().UTC()
	latest, err := s.store.LatestReport(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.state.LastCheck = now
	if latest != nil && now.Sub(latest.NextScheduledPurge) > s.config.CheckInterval {
		s.state.MissedChecks++
	}
	s.mu.Unlock()

	if latest != nil && now.Before(latest.NextScheduledPurge) {
		return nil, nil
	}

	report, err := s.engine.ExecutePurge(ctx, now)
	if err != nil {
		return nil, err
	}
	s.recordPurgeAudit(ctx, report, "scheduled")
	return report, nil
}

// PerformManualPurge executes immediately regardless of schedule, for
// explicit user-triggered purges. Errors propagate to the caller.
func (s *Scheduler) PerformManualPurge(ctx context.Context) (*PurgeReport, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	report, err := s.engine.ExecutePurge(ctx, s.now().UTC())
	if err != nil {
		return nil, err
	}
	s.recordPurgeAudit(ctx, report, "manual")
	return report, nil
}

func (s *Scheduler) scheduledCheck() {
	report, err := s.CheckAndExecutePurge(context.Background())
	if err != nil {
		// a failed run must not disable future runs
		s.logger.Warn("scheduled purge check failed", "err", err)
		return
	}
	if report != nil {
		s.logger.Info("scheduled purge completed",
			"deleted", report.TotalItemsDeleted,
			"errors", len(report.Errors),
			"nextScheduledPurge", report.NextScheduledPurge,
		)
	}
}

func (s *Scheduler) scheduledExpiry() {
	if err := s.config.ExpireFunc(context.Background()); err != nil {
		s.logger.Warn("consent expiry processing failed", "err", err)
	}
}

func (s *Scheduler) recordPurgeAudit(ctx context.Context, report *PurgeReport, trigger string) {
	if s.audit == nil {
		return
	}
	details := map[string]any{
		"trigger":    trigger,
		"deleted":    report.TotalItemsDeleted,
		"categories": report.CategoriesProcessed,
		"errors":     len(report.Errors),
	}
	if err := s.audit.Record(ctx, audit.ActionPurgeRun, "purge_report", report.ID, details); err != nil {
		s.logger.Warn("purge audit write failed", "reportId", report.ID, "err", err)
	}
}
