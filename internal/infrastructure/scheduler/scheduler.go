package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Job is a unit of background work. The context carries the pool's job
// timeout and is cancelled when the pool is stopped hard.
type Job struct {
	Name string
	Run  func(ctx context.Context)
}

// PoolConfig holds worker pool configuration
type PoolConfig struct {
	Workers    int
	QueueSize  int
	JobTimeout time.Duration
}

// DefaultPoolConfig returns default worker pool configuration
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		Workers:    2,
		QueueSize:  100,
		JobTimeout: 10 * time.Minute,
	}
}

// WorkerPool runs submitted jobs on a fixed set of goroutines
type WorkerPool struct {
	config PoolConfig
	logger *zap.Logger

	jobs      chan Job
	cancel    context.CancelFunc
	workers   sync.WaitGroup
	inflight  sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewWorkerPool creates a new worker pool
func NewWorkerPool(config PoolConfig, logger *zap.Logger) *WorkerPool {
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 1
	}
	return &WorkerPool{
		config: config,
		logger: logger,
		jobs:   make(chan Job, config.QueueSize),
	}
}

// Start launches the workers
func (p *WorkerPool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.isRunning {
		return nil
	}
	p.isRunning = true

	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	p.cancel = cancel

	for i := 0; i < p.config.Workers; i++ {
		p.workers.Add(1)
		go p.worker(ctx, i)
	}

	p.logger.Info("Worker pool started",
		zap.Int("workers", p.config.Workers),
		zap.Duration("job_timeout", p.config.JobTimeout),
	)
	return nil
}

// Stop drains queued jobs and waits for the workers. When ctx expires
// first, running jobs are cancelled.
func (p *WorkerPool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.isRunning {
		p.mu.Unlock()
		return nil
	}
	p.isRunning = false
	close(p.jobs)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.workers.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		p.logger.Info("Worker pool stopped gracefully")
		return nil
	case <-ctx.Done():
		p.cancel()
		p.logger.Warn("Worker pool stop timed out, cancelling running jobs")
		<-done
		return ctx.Err()
	}
}

// Submit queues a job without blocking
func (p *WorkerPool) Submit(job Job) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.isRunning {
		return ErrSchedulerNotRunning
	}

	p.inflight.Add(1)
	select {
	case p.jobs <- job:
		p.logger.Debug("Job submitted", zap.String("job", job.Name))
		return nil
	default:
		p.inflight.Done()
		return ErrJobQueueFull
	}
}

// Wait blocks until every submitted job has finished
func (p *WorkerPool) Wait() {
	p.inflight.Wait()
}

func (p *WorkerPool) worker(ctx context.Context, workerID int) {
	defer p.workers.Done()
	for job := range p.jobs {
		p.process(ctx, job, workerID)
	}
}

func (p *WorkerPool) process(ctx context.Context, job Job, workerID int) {
	defer p.inflight.Done()
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Job panicked",
				zap.Int("worker_id", workerID),
				zap.String("job", job.Name),
				zap.Any("panic", r),
			)
		}
	}()

	jobCtx := ctx
	if p.config.JobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, p.config.JobTimeout)
		defer cancel()
	}
	job.Run(jobCtx)
}
