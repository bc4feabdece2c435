package exportapp

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/erp/interchange/internal/domain/catalog"
	"github.com/erp/interchange/internal/domain/export"
	"github.com/erp/interchange/internal/infrastructure/delivery"
	csvexport "github.com/erp/interchange/internal/infrastructure/export"
	"github.com/erp/interchange/internal/infrastructure/logger"
	"github.com/erp/interchange/internal/infrastructure/scheduler"
	"github.com/erp/interchange/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// interruptedMessage is recorded on runs a crashed process left running
const interruptedMessage = "interrupted by restart"

// RunExecutor drives export runs through their lifecycle. Every entry
// point claims the schedule's lock before recording a run, so at most one
// run per schedule is ever executing.
type RunExecutor struct {
	schedules export.ScheduleRepository
	runs      export.RunRepository
	products  catalog.ProductRepository
	deliverer delivery.Deliverer

	generator   *csvexport.Generator
	locker      scheduler.Locker
	queue       *scheduler.DelayQueue
	clock       scheduler.Clock
	pool        *scheduler.WorkerPool
	synchronous bool
	metrics     *telemetry.InterchangeMetrics
	logger      *zap.Logger

	inflight sync.WaitGroup
}

// ExecutorOption is a functional option for RunExecutor configuration
type ExecutorOption func(*RunExecutor)

// WithLocker sets the per-schedule lock (default is in-process)
func WithLocker(l scheduler.Locker) ExecutorOption {
	return func(e *RunExecutor) {
		e.locker = l
	}
}

// WithDelayQueue sets the queue pending retries are pushed onto
func WithDelayQueue(q *scheduler.DelayQueue) ExecutorOption {
	return func(e *RunExecutor) {
		e.queue = q
	}
}

// WithClock sets the time source
func WithClock(c scheduler.Clock) ExecutorOption {
	return func(e *RunExecutor) {
		e.clock = c
	}
}

// WithWorkerPool runs executions on the pool instead of bare goroutines
func WithWorkerPool(p *scheduler.WorkerPool) ExecutorOption {
	return func(e *RunExecutor) {
		e.pool = p
	}
}

// WithGenerator overrides the CSV generator
func WithGenerator(g *csvexport.Generator) ExecutorOption {
	return func(e *RunExecutor) {
		e.generator = g
	}
}

// WithSynchronousExecution makes every entry point return only after the
// run reached a terminal state or was queued for retry
func WithSynchronousExecution() ExecutorOption {
	return func(e *RunExecutor) {
		e.synchronous = true
	}
}

// WithExecutorMetrics records finished runs
func WithExecutorMetrics(m *telemetry.InterchangeMetrics) ExecutorOption {
	return func(e *RunExecutor) {
		e.metrics = m
	}
}

// WithExecutorLogger sets the logger
func WithExecutorLogger(l *zap.Logger) ExecutorOption {
	return func(e *RunExecutor) {
		e.logger = l
	}
}

// NewRunExecutor creates a new RunExecutor
func NewRunExecutor(
	schedules export.ScheduleRepository,
	runs export.RunRepository,
	products catalog.ProductRepository,
	deliverer delivery.Deliverer,
	opts ...ExecutorOption,
) (*RunExecutor, error) {
	e := &RunExecutor{
		schedules: schedules,
		runs:      runs,
		products:  products,
		deliverer: deliverer,
		locker:    scheduler.NewLocalLocker(),
		queue:     scheduler.NewDelayQueue(),
		clock:     scheduler.RealClock{},
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.generator == nil {
		g, err := csvexport.NewGenerator()
		if err != nil {
			return nil, err
		}
		e.generator = g
	}
	return e, nil
}

// Queue returns the delay queue holding pending retries
func (e *RunExecutor) Queue() *scheduler.DelayQueue {
	return e.queue
}

// Fire starts a new firing of a schedule at attempt 1. The returned run
// reflects the state at dispatch time.
func (e *RunExecutor) Fire(ctx context.Context, scheduleID uuid.UUID, trigger export.RunTrigger) (*export.ExportRun, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "export", "fire",
		telemetry.WithAttribute(telemetry.SpanAttrScheduleID, scheduleID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrTrigger, string(trigger)),
	)
	defer span.End()

	schedule, err := e.schedules.FindByID(ctx, scheduleID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := e.acquire(ctx, scheduleID); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	now := e.clock.Now()
	run := export.NewFiring(scheduleID, trigger, now)
	if err := e.runs.Create(ctx, run); err != nil {
		e.release(ctx, scheduleID)
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to record export run: %w", err)
	}
	if trigger == export.TriggerCron {
		schedule.AdvanceNextRun(now)
		e.saveRunTimes(ctx, schedule)
	}
	return e.dispatch(ctx, schedule, run), nil
}

// FireScheduled starts a cron firing
func (e *RunExecutor) FireScheduled(ctx context.Context, scheduleID uuid.UUID) error {
	_, err := e.Fire(ctx, scheduleID, export.TriggerCron)
	return err
}

// Retry re-runs a failed run immediately as the next attempt of its firing
func (e *RunExecutor) Retry(ctx context.Context, runID uuid.UUID) (*export.ExportRun, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "export", "retry",
		telemetry.WithAttribute(telemetry.SpanAttrRunID, runID.String()))
	defer span.End()

	prev, err := e.runs.FindByID(ctx, runID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if prev.Status != export.RunStatusFailed {
		err := export.ErrRunNotRetryable.WithMessage(
			fmt.Sprintf("run %s is %s; only failed runs can be retried", prev.ID, prev.Status))
		telemetry.RecordError(span, err)
		return nil, err
	}
	schedule, err := e.schedules.FindByID(ctx, prev.ScheduleID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := e.acquire(ctx, schedule.ID); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	// The firing is read under the schedule lock: no attempt of it can be
	// executing or queueing a successor meanwhile.
	next, err := e.continueFiring(ctx, prev)
	if err == nil {
		err = e.runs.Create(ctx, next)
	}
	if err != nil {
		e.release(ctx, schedule.ID)
		telemetry.RecordError(span, err)
		return nil, err
	}
	return e.dispatch(ctx, schedule, next), nil
}

// continueFiring builds the attempt following prev. Only the newest
// attempt of a firing may be continued, so a firing never has two
// attempts with the same number and never runs two retry chains.
func (e *RunExecutor) continueFiring(ctx context.Context, prev *export.ExportRun) (*export.ExportRun, error) {
	attempts, err := e.runs.FindByFiring(ctx, prev.FiringID)
	if err != nil {
		return nil, fmt.Errorf("failed to load firing %s: %w", prev.FiringID, err)
	}
	for i := range attempts {
		newer := &attempts[i]
		if newer.ID == prev.ID || newer.Attempt < prev.Attempt {
			continue
		}
		if newer.Status == export.RunStatusPending {
			return nil, export.ErrRunNotRetryable.WithMessage(fmt.Sprintf(
				"attempt %d of this firing is already scheduled for retry", newer.Attempt))
		}
		return nil, export.ErrRunNotRetryable.WithMessage(fmt.Sprintf(
			"run %s is attempt %d; only the latest attempt (%d) of a firing can be retried",
			prev.ID, prev.Attempt, newer.Attempt))
	}
	return prev.NextAttempt(e.clock.Now(), 0)
}

// ResumePending starts a pending retry whose backoff elapsed. A retry that
// finds its schedule busy is pushed back by one backoff interval.
func (e *RunExecutor) ResumePending(ctx context.Context, runID uuid.UUID) error {
	log := logger.WithLogger(logger.WithRun(ctx, runID), e.logger)

	run, err := e.runs.FindByID(ctx, runID)
	if err != nil {
		return err
	}
	if run.Status != export.RunStatusPending {
		log.Debug("Skipping retry that is no longer pending", zap.String("status", string(run.Status)))
		return nil
	}

	now := e.clock.Now()
	schedule, err := e.schedules.FindByID(ctx, run.ScheduleID)
	if errors.Is(err, export.ErrScheduleNotFound) {
		_ = run.Fail(now, "schedule was deleted")
		return e.runs.UpdateStatus(ctx, run)
	}
	if err != nil {
		return err
	}

	if err := e.acquire(ctx, schedule.ID); err != nil {
		if !errors.Is(err, export.ErrAlreadyRunning) {
			return err
		}
		due := now.Add(backoff(schedule.Retry).Delay(run.Attempt))
		if err := run.Reschedule(due); err != nil {
			return err
		}
		if err := e.runs.UpdateStatus(ctx, run); err != nil {
			return err
		}
		e.queue.Push(scheduler.DelayedTask{RunID: run.ID, ScheduleID: run.ScheduleID, FireAt: due})
		log.Info("Pending retry deferred, schedule is busy", zap.Time("scheduled_for", due))
		return nil
	}

	err = run.Start(now)
	if err == nil {
		err = e.runs.UpdateStatus(ctx, run)
	}
	if err != nil {
		e.release(ctx, schedule.ID)
		return err
	}
	e.dispatch(ctx, schedule, run)
	return nil
}

// Recover repairs the run ledger after a restart: runs left running are
// failed and pending retries go back on the delay queue
func (e *RunExecutor) Recover(ctx context.Context) error {
	now := e.clock.Now()
	var errs []error

	running, err := e.runs.FindByStatus(ctx, export.RunStatusRunning)
	if err != nil {
		return fmt.Errorf("failed to load running export runs: %w", err)
	}
	for i := range running {
		run := &running[i]
		if err := run.Fail(now, interruptedMessage); err != nil {
			errs = append(errs, err)
			continue
		}
		if err := e.runs.UpdateStatus(ctx, run); err != nil {
			errs = append(errs, err)
		}
	}

	pending, err := e.runs.FindByStatus(ctx, export.RunStatusPending)
	if err != nil {
		return fmt.Errorf("failed to load pending export runs: %w", err)
	}
	for _, run := range pending {
		due := now
		if run.ScheduledFor != nil {
			due = *run.ScheduledFor
		}
		e.queue.Push(scheduler.DelayedTask{RunID: run.ID, ScheduleID: run.ScheduleID, FireAt: due})
	}

	e.logger.Info("Export runs recovered",
		zap.Int("interrupted", len(running)),
		zap.Int("requeued", len(pending)),
	)
	return errors.Join(errs...)
}

// Wait blocks until asynchronous executions have finished
func (e *RunExecutor) Wait() {
	e.inflight.Wait()
}

// dispatch hands a persisted running run to execution and returns a copy
// the caller can read without racing the execution
func (e *RunExecutor) dispatch(ctx context.Context, schedule *export.ExportSchedule, run *export.ExportRun) *export.ExportRun {
	parent := trace.SpanContextFromContext(ctx)
	runCtx := func(base context.Context) context.Context {
		base = trace.ContextWithSpanContext(base, parent)
		return logger.WithRun(logger.WithSchedule(base, schedule.ID), run.ID)
	}

	if e.synchronous {
		e.execute(runCtx(context.WithoutCancel(ctx)), schedule, run)
		snapshot := *run
		return &snapshot
	}

	snapshot := *run
	e.inflight.Add(1)
	if e.pool == nil {
		go func() {
			defer e.inflight.Done()
			e.execute(runCtx(context.WithoutCancel(ctx)), schedule, run)
		}()
		return &snapshot
	}

	err := e.pool.Submit(scheduler.Job{
		Name: "export-run:" + run.ID.String(),
		Run: func(jobCtx context.Context) {
			defer e.inflight.Done()
			e.execute(runCtx(jobCtx), schedule, run)
		},
	})
	if err != nil {
		bg := runCtx(context.WithoutCancel(ctx))
		e.finish(bg, schedule, run, 0, "", fmt.Errorf("could not start export: %w", err))
		e.release(bg, schedule.ID)
		e.inflight.Done()
	}
	return &snapshot
}

func (e *RunExecutor) execute(ctx context.Context, schedule *export.ExportSchedule, run *export.ExportRun) {
	ctx, span := telemetry.StartServiceSpan(ctx, "export", "execute")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrRunID, run.ID.String(),
		telemetry.SpanAttrAttempt, run.Attempt,
		telemetry.SpanAttrDestination, string(schedule.Destination.Kind),
	)

	defer e.release(ctx, schedule.ID)
	defer func() {
		if r := recover(); r != nil {
			e.finish(ctx, schedule, run, 0, "", fmt.Errorf("export panicked: %v", r))
		}
	}()

	rows, location, err := e.produce(ctx, schedule)
	if err != nil {
		telemetry.RecordError(span, err)
	} else {
		telemetry.SetAttributes(span, telemetry.SpanAttrRowCount, rows)
	}
	e.finish(ctx, schedule, run, rows, location, err)
}

// produce snapshots the catalog, renders it and ships it
func (e *RunExecutor) produce(ctx context.Context, schedule *export.ExportSchedule) (int, string, error) {
	products, err := e.products.FindAll(ctx, schedule.Filter.ProductFilter())
	if err != nil {
		return 0, "", fmt.Errorf("failed to load catalog: %w", err)
	}
	body, err := e.generator.Generate(products)
	if err != nil {
		return 0, "", fmt.Errorf("failed to generate export: %w", err)
	}

	location, err := e.deliverer.Deliver(ctx, schedule.Destination, delivery.Artifact{
		FileName:    csvexport.Filename(e.clock.Now()),
		ContentType: csvexport.ContentType,
		Body:        body,
		RowCount:    len(products),
	})
	if err != nil {
		return 0, "", fmt.Errorf("delivery to %s failed: %w", schedule.Destination.Describe(), err)
	}
	return len(products), location, nil
}

// finish records the outcome and, for a failure the retry policy still
// covers, queues the next attempt. Bookkeeping writes outlive a cancelled
// execution context.
func (e *RunExecutor) finish(ctx context.Context, schedule *export.ExportSchedule, run *export.ExportRun, rows int, location string, runErr error) {
	store := context.WithoutCancel(ctx)
	log := logger.WithLogger(ctx, e.logger).With(zap.Int("attempt", run.Attempt))
	now := e.clock.Now()

	elapsed := now.Sub(run.CreatedAt)
	if run.StartedAt != nil {
		elapsed = now.Sub(*run.StartedAt)
	}

	if runErr == nil {
		if err := run.Succeed(now, rows, location); err != nil {
			log.Error("Export run could not be completed", zap.Error(err))
			return
		}
		if err := e.runs.UpdateStatus(store, run); err != nil {
			log.Error("Failed to record export run success", zap.Error(err))
		}
		schedule.MarkRun(now)
		e.saveRunTimes(store, schedule)
		e.metrics.RecordExportRun(store, string(run.Status), string(run.Trigger), string(schedule.Destination.Kind), rows, elapsed)
		log.Info("Export run succeeded",
			zap.Int("rows", rows),
			zap.String("location", location),
			zap.Duration("elapsed", elapsed),
		)
		return
	}

	if err := run.Fail(now, runErr.Error()); err != nil {
		log.Error("Export run could not be failed", zap.Error(err))
		return
	}
	if err := e.runs.UpdateStatus(store, run); err != nil {
		log.Error("Failed to record export run failure", zap.Error(err))
	}
	e.metrics.RecordExportRun(store, string(run.Status), string(run.Trigger), string(schedule.Destination.Kind), 0, elapsed)
	log.Warn("Export run failed", zap.Error(runErr))

	if !schedule.Retry.AllowsRetryAfter(run.Attempt) {
		if schedule.Retry.Enabled {
			log.Error("Export retries exhausted", zap.Int("max_attempts", schedule.Retry.MaxAttempts))
		}
		return
	}

	due := now.Add(backoff(schedule.Retry).Delay(run.Attempt))
	next, err := run.QueueAttempt(now, due)
	if err != nil {
		log.Error("Failed to build retry", zap.Error(err))
		return
	}
	if err := e.runs.Create(store, next); err != nil {
		log.Error("Failed to record pending retry", zap.Error(err))
		return
	}
	e.queue.Push(scheduler.DelayedTask{RunID: next.ID, ScheduleID: schedule.ID, FireAt: due})
	log.Info("Export retry scheduled",
		zap.String("retry_run_id", next.ID.String()),
		zap.Int("next_attempt", next.Attempt),
		zap.Time("scheduled_for", due),
	)
}

func (e *RunExecutor) acquire(ctx context.Context, scheduleID uuid.UUID) error {
	ok, err := e.locker.TryLock(ctx, lockKey(scheduleID))
	if err != nil {
		return fmt.Errorf("failed to acquire schedule lock: %w", err)
	}
	if !ok {
		return export.ErrAlreadyRunning
	}
	return nil
}

func (e *RunExecutor) release(ctx context.Context, scheduleID uuid.UUID) {
	if err := e.locker.Unlock(context.WithoutCancel(ctx), lockKey(scheduleID)); err != nil {
		logger.WithLogger(ctx, e.logger).Warn("Failed to release schedule lock", zap.Error(err))
	}
}

func (e *RunExecutor) saveRunTimes(ctx context.Context, schedule *export.ExportSchedule) {
	if err := e.schedules.UpdateRunTimes(ctx, schedule.ID, schedule.LastRunAt, schedule.NextRunAt); err != nil {
		logger.WithLogger(ctx, e.logger).Warn("Failed to update schedule run times", zap.Error(err))
	}
}

func lockKey(scheduleID uuid.UUID) string {
	return "export-schedule:" + scheduleID.String()
}

func backoff(p export.RetryPolicy) scheduler.BackoffStrategy {
	return scheduler.NewConstantBackoff(p.Backoff())
}

var _ scheduler.Dispatcher = (*RunExecutor)(nil)
