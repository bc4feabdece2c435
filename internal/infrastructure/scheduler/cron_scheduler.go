package scheduler

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/erp/interchange/internal/domain/export"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ScheduleSource lists the schedules the loop should evaluate
type ScheduleSource interface {
	FindEnabled(ctx context.Context) ([]export.ExportSchedule, error)
}

// Dispatcher starts executions on behalf of the loop
type Dispatcher interface {
	// FireScheduled starts a cron firing of the schedule
	FireScheduled(ctx context.Context, scheduleID uuid.UUID) error

	// ResumePending starts a pending retry whose backoff has elapsed
	ResumePending(ctx context.Context, runID uuid.UUID) error
}

// CronSchedulerConfig holds configuration for the cron loop
type CronSchedulerConfig struct {
	Enabled      bool
	TickInterval time.Duration
}

// DefaultCronSchedulerConfig returns default cron loop configuration
func DefaultCronSchedulerConfig() CronSchedulerConfig {
	return CronSchedulerConfig{
		Enabled:      true,
		TickInterval: time.Second,
	}
}

type cronEntry struct {
	name     string
	expr     string
	schedule export.CronSchedule
	next     time.Time
}

// CronScheduler fires export schedules on their cron expressions and
// releases delayed retries when they become due. Missed fire times while
// the process was down are not replayed.
type CronScheduler struct {
	config     CronSchedulerConfig
	source     ScheduleSource
	dispatcher Dispatcher
	queue      *DelayQueue
	clock      Clock
	logger     *zap.Logger

	entries map[uuid.UUID]*cronEntry
	tickMu  sync.Mutex

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewCronScheduler creates a new cron loop
func NewCronScheduler(
	config CronSchedulerConfig,
	source ScheduleSource,
	dispatcher Dispatcher,
	queue *DelayQueue,
	clock Clock,
	logger *zap.Logger,
) *CronScheduler {
	if config.TickInterval <= 0 {
		config.TickInterval = time.Second
	}
	if clock == nil {
		clock = RealClock{}
	}
	return &CronScheduler{
		config:     config,
		source:     source,
		dispatcher: dispatcher,
		queue:      queue,
		clock:      clock,
		logger:     logger,
		entries:    make(map[uuid.UUID]*cronEntry),
	}
}

// Start starts the tick loop
func (s *CronScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return nil
	}
	if !s.config.Enabled {
		s.logger.Info("Cron scheduler disabled")
		return nil
	}
	s.isRunning = true

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.runLoop(ctx)

	s.logger.Info("Cron scheduler started", zap.Duration("tick_interval", s.config.TickInterval))
	return nil
}

// Stop stops the tick loop
func (s *CronScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Cron scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *CronScheduler) runLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.TickInterval)
	defer ticker.Stop()

	s.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one evaluation: sync the schedule table, fire due schedules,
// then release due retries. Ticks never overlap.
func (s *CronScheduler) Tick(ctx context.Context) {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	now := s.clock.Now()
	if err := s.sync(ctx, now); err != nil {
		s.logger.Error("Failed to load export schedules", zap.Error(err))
	} else {
		s.fireDue(ctx, now)
	}
	s.releaseRetries(ctx, now)
}

func (s *CronScheduler) sync(ctx context.Context, now time.Time) error {
	schedules, err := s.source.FindEnabled(ctx)
	if err != nil {
		return err
	}

	seen := make(map[uuid.UUID]bool, len(schedules))
	for i := range schedules {
		sc := &schedules[i]
		if !sc.Enabled {
			continue
		}
		seen[sc.ID] = true

		if e, ok := s.entries[sc.ID]; ok && e.expr == sc.Cron {
			e.name = sc.Name
			continue
		}
		parsed, err := export.ParseCron(sc.Cron)
		if err != nil {
			s.logger.Warn("Skipping schedule with invalid cron",
				zap.String("schedule_id", sc.ID.String()),
				zap.String("cron", sc.Cron),
				zap.Error(err),
			)
			delete(s.entries, sc.ID)
			continue
		}
		next := parsed.Next(now)
		if next.IsZero() {
			delete(s.entries, sc.ID)
			continue
		}
		s.entries[sc.ID] = &cronEntry{name: sc.Name, expr: sc.Cron, schedule: parsed, next: next}
	}

	for id := range s.entries {
		if !seen[id] {
			delete(s.entries, id)
		}
	}
	return nil
}

func (s *CronScheduler) fireDue(ctx context.Context, now time.Time) {
	type due struct {
		id    uuid.UUID
		entry *cronEntry
	}
	var ready []due
	for id, e := range s.entries {
		if !e.next.After(now) {
			ready = append(ready, due{id: id, entry: e})
		}
	}
	sort.Slice(ready, func(i, j int) bool {
		if !ready[i].entry.next.Equal(ready[j].entry.next) {
			return ready[i].entry.next.Before(ready[j].entry.next)
		}
		return ready[i].id.String() < ready[j].id.String()
	})

	for _, d := range ready {
		d.entry.next = d.entry.schedule.Next(now)

		err := s.dispatcher.FireScheduled(ctx, d.id)
		switch {
		case err == nil:
			s.logger.Info("Cron fired",
				zap.String("schedule_id", d.id.String()),
				zap.String("schedule", d.entry.name),
				zap.Time("next_fire", d.entry.next),
			)
		case errors.Is(err, export.ErrAlreadyRunning):
			s.logger.Info("Cron firing skipped, previous run still in progress",
				zap.String("schedule_id", d.id.String()),
			)
		default:
			s.logger.Error("Cron firing failed",
				zap.String("schedule_id", d.id.String()),
				zap.Error(err),
			)
		}
	}
}

func (s *CronScheduler) releaseRetries(ctx context.Context, now time.Time) {
	if s.queue == nil {
		return
	}
	for _, task := range s.queue.PopDue(now) {
		if err := s.dispatcher.ResumePending(ctx, task.RunID); err != nil {
			s.logger.Error("Failed to resume pending retry",
				zap.String("run_id", task.RunID.String()),
				zap.String("schedule_id", task.ScheduleID.String()),
				zap.Error(err),
			)
		}
	}
}
