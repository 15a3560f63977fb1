package reminder

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/finchley/burrow/internal/store"
)

const (
	tickSpec       = "*/5 * * * *"
	hourlySpec     = "0 * * * *"
	halfHourSpec   = "30 * * * *"
	defaultStartHr = 7
	defaultEndHr   = 22
)

// Status is a snapshot of the scheduler's state.
type Status struct {
	Running        bool      `json:"running"`
	LastTickTime   time.Time `json:"last_tick_time"`
	LastTickStatus string    `json:"last_tick_status"`
	LastCheckpoint string    `json:"last_checkpoint"`
}

// TickSummary reports what one evaluation pass did.
type TickSummary struct {
	Candidates int
	Dispatched int
	Suppressed int
	Errors     []string
}

// Scheduler is the polling clock: it ticks the rule engine every five
// minutes, with named hourly and half-hourly checkpoints inside the
// configured active window. A tick never overlaps itself; when the previous
// tick is still running, the next one is skipped, not queued.
//
// A single process is assumed. Running replicas would tick independently;
// the dedup cooldown masks most double-firing but is not a distributed lock.
type Scheduler struct {
	engine     *Engine
	guard      *Guard
	dispatcher *Dispatcher
	settings   *store.SettingsStore
	loc        *time.Location
	logger     *slog.Logger

	cron   *cron.Cron
	tickMu sync.Mutex

	mu             sync.RWMutex
	running        bool
	lastTick       time.Time
	lastTickStatus string
	lastCheckpoint string
}

func NewScheduler(engine *Engine, guard *Guard, dispatcher *Dispatcher, settings *store.SettingsStore, loc *time.Location, logger *slog.Logger) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		engine:     engine,
		guard:      guard,
		dispatcher: dispatcher,
		settings:   settings,
		loc:        loc,
		logger:     logger,
	}
}

// Start registers the cron entries and begins ticking. Calling Start on a
// running scheduler is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}

	s.cron = cron.New(
		cron.WithLocation(s.loc),
		cron.WithChain(cron.Recover(cron.DiscardLogger)),
	)
	s.cron.AddFunc(tickSpec, func() { s.runTick("interval") })
	s.cron.AddFunc(hourlySpec, func() { s.checkpoint("hourly") })
	s.cron.AddFunc(halfHourSpec, func() { s.checkpoint("half-hour") })
	s.cron.Start()
	s.running = true
	s.logger.Info("reminder scheduler started")
}

// Stop halts the clock, waiting for an in-flight tick to complete rather
// than aborting it.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	c := s.cron
	s.mu.Unlock()

	<-c.Stop().Done()
	s.logger.Info("reminder scheduler stopped")
}

// RunImmediateCheck forces one evaluation pass outside the clock cadence.
// Operational and testing hook; respects single-flight like any other tick.
func (s *Scheduler) RunImmediateCheck() TickSummary {
	return s.runTick("manual")
}

func (s *Scheduler) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status{
		Running:        s.running,
		LastTickTime:   s.lastTick,
		LastTickStatus: s.lastTickStatus,
		LastCheckpoint: s.lastCheckpoint,
	}
}

// checkpoint runs a named coarse tick when inside the active window.
func (s *Scheduler) checkpoint(name string) {
	now := time.Now().In(s.loc)
	start, end := s.activeWindow()
	if now.Hour() < start || now.Hour() >= end {
		return
	}

	s.mu.Lock()
	s.lastCheckpoint = name
	s.mu.Unlock()

	s.logger.Debug("scheduler checkpoint", "name", name)
	s.runTick(name)
}

func (s *Scheduler) activeWindow() (start, end int) {
	start, end = defaultStartHr, defaultEndHr
	if s.settings == nil {
		return start, end
	}
	if v, err := s.settings.GetInt("scheduler_active_start_hour", start); err == nil {
		start = v
	}
	if v, err := s.settings.GetInt("scheduler_active_end_hour", end); err == nil {
		end = v
	}
	return start, end
}

func (s *Scheduler) runTick(label string) TickSummary {
	if !s.tickMu.TryLock() {
		s.logger.Warn("tick still running, skipping", "label", label)
		return TickSummary{}
	}
	defer s.tickMu.Unlock()

	return s.tick(time.Now().In(s.loc), label)
}

// Tick evaluates every rule domain at the given instant and dispatches the
// surviving candidates. Exported with an explicit time for tests.
func (s *Scheduler) Tick(now time.Time) TickSummary {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()
	return s.tick(now, "test")
}

func (s *Scheduler) tick(now time.Time, label string) TickSummary {
	var summary TickSummary
	var failedDomains []string

	candidates, tickErrs := s.engine.Evaluate(now)
	summary.Candidates = len(candidates)
	for _, te := range tickErrs {
		s.logger.Error("rule domain failed", "domain", te.Domain, "error", te.Err)
		summary.Errors = append(summary.Errors, te.Error())
		failedDomains = append(failedDomains, te.Domain)
	}

	for _, cand := range candidates {
		for _, recipientID := range cand.Recipients {
			suppress, err := s.guard.ShouldSuppress(recipientID, cand, now)
			if err != nil {
				s.logger.Error("dedup check failed",
					"rule", cand.RuleKey, "recipient_id", recipientID, "error", err)
				summary.Errors = append(summary.Errors, err.Error())
				continue
			}
			if suppress {
				summary.Suppressed++
				continue
			}
			if _, err := s.dispatcher.Dispatch(recipientID, cand); err != nil {
				s.logger.Error("dispatch failed",
					"rule", cand.RuleKey, "recipient_id", recipientID, "error", err)
				summary.Errors = append(summary.Errors, err.Error())
				continue
			}
			summary.Dispatched++
		}
	}

	status := "ok"
	switch {
	case len(failedDomains) > 0:
		status = "partial: " + strings.Join(failedDomains, ",")
	case len(summary.Errors) > 0:
		status = "error"
	}

	s.mu.Lock()
	s.lastTick = now
	s.lastTickStatus = status
	s.mu.Unlock()

	s.logger.Info("tick complete", "label", label, "status", status,
		"candidates", summary.Candidates, "dispatched", summary.Dispatched,
		"suppressed", summary.Suppressed)
	return summary
}
